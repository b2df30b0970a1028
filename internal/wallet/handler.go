// AngelaMos | 2026
// handler.go

package wallet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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

// RegisterRoutes mounts the wallet API. Saving goes through optionalAuth so
// an anonymous visitor gets the sign-in redirect instead of a bare 401.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/wallet", func(r chi.Router) {
		r.With(optionalAuth).Post("/cards", h.Save)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Get("/", h.Get)
			r.Post("/join", h.Join)
			r.Get("/cards", h.List)
			r.Post("/cards/{username}/view", h.MarkViewed)
			r.Delete("/cards/{username}", h.Remove)
		})
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, _, err := h.service.EnsureMembership(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err, "account")
		return
	}

	core.OK(w, ToMemberResponse(m))
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	m, created, err := h.service.EnsureMembership(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err, "account")
		return
	}

	if created {
		core.Created(w, ToMemberResponse(m))
		return
	}
	core.OK(w, ToMemberResponse(m))
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Trim()

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, core.FieldErrors(err))
		return
	}

	res, err := h.service.Save(r.Context(), middleware.SessionFrom(r.Context()), req.Username)
	if err != nil {
		writeError(w, err, "profile")
		return
	}

	body := ToSaveResponse(res)
	switch res.Outcome {
	case OutcomeNeedsAuth:
		core.JSON(w, http.StatusUnauthorized, core.Response{
			Data:  body,
			Error: &core.ErrorBody{Code: "AUTH_REQUIRED", Message: "sign in to save this card"},
		})
	case OutcomeNeedsMembership:
		core.JSON(w, http.StatusConflict, core.Response{
			Data:  body,
			Error: &core.ErrorBody{Code: "WALLET_MEMBERSHIP_REQUIRED", Message: "join the wallet to save cards"},
		})
	case OutcomeSaved:
		core.Created(w, body)
	default:
		core.OK(w, body)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		PageParams: core.PageFromQuery(r),
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	}

	cards, total, params, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToSavedCardResponseList(cards), params.Page, params.PageSize, total)
}

func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkViewed(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err, "saved card")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.service.Remove(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err, "saved card")
		return
	}

	core.NoContent(w)
}

func writeError(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, resource)
		return
	}
	core.InternalServerError(w, err)
}
