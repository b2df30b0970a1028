// AngelaMos | 2026
// handler.go

package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
	"github.com/tapinfi/cardhub/internal/storage"
)

const uploadField = "file"

type Handler struct {
	service        *Service
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		validator:      core.NewValidator(),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/profiles", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMine)
		r.Put("/me", h.UpdateMine)
		r.Post("/me/images/{kind}", h.UploadImage)
		r.Get("/username-available", h.UsernameAvailable)
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

		r.Get("/admin/profiles", h.List)
		r.Put("/admin/profiles/{profileID}/publish", h.SetPublish)
		r.Post("/admin/profiles/{profileID}/publish/toggle", h.TogglePublish)
		r.Put("/admin/profiles/{profileID}/locks", h.SetLocks)
	})
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	p, err := h.service.GetMine(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(p))
}

func (h *Handler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Trim()

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, core.FieldErrors(err))
		return
	}

	p, err := h.service.Update(r.Context(), userID, req)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(p))
}

func (h *Handler) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	username := r.URL.Query().Get("username")

	available, reason, err := h.service.UsernameAvailable(r.Context(), userID, username)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, AvailabilityResponse{
		Username:  username,
		Available: available,
		Reason:    reason,
	})
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	kind := chi.URLParam(r, "kind")
	if !IsImageKind(kind) {
		core.NotFound(w, "image kind")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(
				core.ErrInvalidInput,
				"image is too large",
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
			))
			return
		}
		core.BadRequest(w, "expected a multipart upload")
		return
	}
	defer func() {
		//nolint:errcheck // temp file cleanup
		_ = r.MultipartForm.RemoveAll()
	}()

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		core.ValidationFailed(w, map[string]string{uploadField: "is required"})
		return
	}
	defer file.Close() //nolint:errcheck // read-only

	url, err := h.service.UploadImage(r.Context(), userID, kind, file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			core.ValidationFailed(w, map[string]string{
				uploadField: "must be a JPEG, PNG or GIF image",
			})
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ImageResponse{Kind: kind, URL: url})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		PageParams: core.PageFromQuery(r),
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if v, err := strconv.ParseBool(r.URL.Query().Get("published")); err == nil {
		params.Published = &v
	}

	profiles, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize(core.DefaultPageSize)
	core.Paginated(w, ToAdminProfileResponseList(profiles), params.Page, params.PageSize, total)
}

func (h *Handler) SetPublish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")

	var req SetPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, core.FieldErrors(err))
		return
	}

	if err := h.service.SetPublish(r.Context(), id, *req.Publish); err != nil {
		writeAdminError(w, err)
		return
	}

	core.OK(w, map[string]any{"id": id, "publish": *req.Publish})
}

func (h *Handler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")

	publish, err := h.service.TogglePublish(r.Context(), id)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	core.OK(w, map[string]any{"id": id, "publish": publish})
}

func (h *Handler) SetLocks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")

	var req SetLocksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, core.FieldErrors(err))
		return
	}

	p, err := h.service.SetLocks(r.Context(), id, *req.UsernameLocked, *req.FullNameLocked)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	core.OK(w, ToAdminProfileResponse(p))
}

func writeAdminError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "profile")
		return
	}
	core.InternalServerError(w, err)
}
