// AngelaMos | 2026
// handler_test.go

package profile

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/middleware"
)

func asUser(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithSession(r.Context(), &middleware.Session{
				UserID: userID,
				Role:   role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type errorEnvelope struct {
	Error struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func newProfileRouter(repo *memRepo, store *memStore, userID, role string) http.Handler {
	h := NewHandler(NewService(repo, store, testImages, nil, nil), 1<<20)
	r := chi.NewRouter()
	h.RegisterRoutes(r, asUser(userID, role))
	h.RegisterAdminRoutes(r, asUser(userID, role), middleware.RequireAdmin)
	return r
}

func TestUpdateMineReportsFieldErrors(t *testing.T) {
	router := newProfileRouter(newMemRepo(), newMemStore(), "u1", middleware.RoleUser)

	body := `{
		"username": "has space",
		"full_name": "Alice",
		"company": "Acme",
		"role": "CTO",
		"phone_number": "12ab",
		"website_url": "ftp://example.com",
		"instagram_url": "https://evil.example/alice"
	}`
	req := httptest.NewRequest(http.MethodPut, "/profiles/me", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	for _, field := range []string{"username", "phone_number", "website_url", "instagram_url"} {
		assert.Contains(t, env.Error.Fields, field)
	}
	assert.NotContains(t, env.Error.Fields, "full_name")
}

func TestUpdateMineSaves(t *testing.T) {
	repo := newMemRepo()
	router := newProfileRouter(repo, newMemStore(), "u1", middleware.RoleUser)

	body := `{"username":"alice","full_name":"  Alice Doe ","company":"Acme","role":"CTO",
		"whatsapp_url":"https://wa.me/15551234567"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/profiles/me", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := repo.profiles["u1"]
	assert.Equal(t, "Alice Doe", p.FullName)
	assert.True(t, p.UsernameLocked)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := newProfileRouter(newMemRepo(Profile{ID: "p1"}), newMemStore(), "u1", middleware.RoleUser)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/profiles/p1/publish/toggle", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSetPublish(t *testing.T) {
	repo := newMemRepo(Profile{ID: "p1"})
	router := newProfileRouter(repo, newMemStore(), "admin-1", middleware.RoleAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/profiles/p1/publish",
		strings.NewReader(`{"publish":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.profiles["p1"].Publish)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/profiles/zzz/publish",
		strings.NewReader(`{"publish":true}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/profiles/p1/publish",
		strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadImageEndpoint(t *testing.T) {
	store := newMemStore()
	router := newProfileRouter(newMemRepo(), store, "u1", middleware.RoleUser)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, "me.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, 40, 40))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profiles/me/images/cover", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, store.keys(), 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/profiles/me/images/avatar", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
