// AngelaMos | 2026
// handler.go

package card

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
)

type Handler struct {
	resolver  *Resolver
	renderer  *Renderer
	publicURL string
	logger    *slog.Logger
}

func NewHandler(
	resolver *Resolver,
	renderer *Renderer,
	publicURL string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		resolver:  resolver,
		renderer:  renderer,
		publicURL: publicURL,
		logger:    logger,
	}
}

// RegisterRoutes mounts the JSON card API. optionalAuth attaches a session
// when the caller sent a valid token and lets anonymous callers through.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/cards", func(r chi.Router) {
		r.Use(optionalAuth)

		r.Get("/{username}", h.Get)
		r.Get("/{username}/vcard", h.VCard)
	})
}

// RegisterPageRoutes mounts the server-rendered public card page at the
// site root.
func (h *Handler) RegisterPageRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.With(optionalAuth).Get("/profile/{username}", h.Page)
}

func (h *Handler) resolve(r *http.Request) Resolution {
	return h.resolver.Resolve(
		r.Context(),
		chi.URLParam(r, "username"),
		middleware.SessionFrom(r.Context()),
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	res := h.resolve(r)

	if res.State == StateNotFound {
		core.NotFound(w, "profile")
		return
	}

	core.OK(w, ToResolutionResponse(res))
}

func (h *Handler) VCard(w http.ResponseWriter, r *http.Request) {
	res := h.resolve(r)

	if res.State != StatePublished {
		core.NotFound(w, "profile")
		return
	}

	body := VCard(res.Profile, CardURL(h.publicURL, res.Profile.UsernameValue()))

	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": VCardFilename(res.Profile),
	}))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(body)
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	res := h.resolve(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var err error
	switch res.State {
	case StatePublished:
		w.Header().Set("Cache-Control", "no-cache")
		err = h.renderer.RenderCard(w, res.Kind, NewView(res.Profile, res.Kind, h.publicURL))
	case StateUnpublished:
		err = h.renderer.RenderUnpublished(w)
	default:
		w.WriteHeader(http.StatusNotFound)
		err = h.renderer.RenderNotFound(w)
	}

	if err != nil {
		h.logger.ErrorContext(r.Context(), "render card page failed",
			"username", chi.URLParam(r, "username"),
			"state", res.State,
			"error", err,
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
