// AngelaMos | 2026
// handler.go

package theme

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/themes", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/mine", h.ListMine)
		r.Post("/{themeID}/apply", h.Apply)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/themes", h.ListAvailable)
		r.Post("/admin/themes", h.Create)
		r.Delete("/admin/themes/{themeID}", h.Delete)

		r.Get("/admin/profiles/{profileID}/themes", h.ListForUser)
		r.Put("/admin/profiles/{profileID}/themes/{themeID}", h.Assign)
		r.Delete("/admin/profiles/{profileID}/themes/{themeID}", h.Unassign)
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	themes, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToAssignedThemeResponseList(themes))
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	themeID := chi.URLParam(r, "themeID")

	changed, err := h.service.Apply(r.Context(), userID, themeID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "theme assignment")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ApplyResponse{ThemeID: themeID, Applied: true, Changed: changed})
}

func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.ListAvailable(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToThemeResponseList(themes))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Trim()

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, core.FieldErrors(err))
		return
	}

	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToThemeResponse(*t))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "themeID")); err != nil {
		writeNotFoundOr500(w, err, "theme")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.ListForUser(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToAssignedThemeResponseList(themes))
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "profileID")
	themeID := chi.URLParam(r, "themeID")

	created, err := h.service.Assign(r.Context(), userID, themeID)
	if err != nil {
		writeNotFoundOr500(w, err, "profile or theme")
		return
	}

	body := map[string]any{"user_id": userID, "theme_id": themeID}
	if created {
		core.Created(w, body)
		return
	}
	core.OK(w, body)
}

func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	err := h.service.Unassign(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "themeID"))
	if err != nil {
		writeNotFoundOr500(w, err, "theme assignment")
		return
	}

	core.NoContent(w)
}

func writeNotFoundOr500(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, resource)
		return
	}
	core.InternalServerError(w, err)
}
