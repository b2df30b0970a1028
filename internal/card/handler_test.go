// AngelaMos | 2026
// handler_test.go

package card

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/profile"
	"github.com/tapinfi/cardhub/internal/theme"
)

func passthrough(next http.Handler) http.Handler { return next }

func newCardRouter(t *testing.T, p *profile.Profile, kinds map[string]theme.Kind) http.Handler {
	t.Helper()
	resolver, _, _ := newTestResolver(p, kinds)
	h := NewHandler(resolver, newTestRenderer(t), "https://tapinfi.test", nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough)
	h.RegisterPageRoutes(r, passthrough)
	return r
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetCardStates(t *testing.T) {
	router := newCardRouter(t, alice(false), nil)

	rec := get(router, "/cards/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile not found")

	rec = get(router, "/cards/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"unpublished"`)
	assert.NotContains(t, rec.Body.String(), "Alice Doe")
	assert.NotContains(t, rec.Body.String(), "alice@example.com")
}

func TestGetPublishedCard(t *testing.T) {
	router := newCardRouter(t, alice(true), map[string]theme.Kind{"alice-id": theme.KindGreenProfile})

	rec := get(router, "/cards/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"state":"published"`)
	assert.Contains(t, body, `"theme":"GreenProfile"`)
	assert.Contains(t, body, `"full_name":"Alice Doe"`)
	assert.NotContains(t, body, "is_username_locked")
}

func TestProfilePage(t *testing.T) {
	router := newCardRouter(t, alice(true), map[string]theme.Kind{"alice-id": theme.KindEngineerTheme})

	rec := get(router, "/profile/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "theme-EngineerTheme")

	rec = get(router, "/profile/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Profile not found")
}

func TestProfilePageUnpublished(t *testing.T) {
	router := newCardRouter(t, alice(false), nil)

	rec := get(router, "/profile/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not published yet")
	assert.NotContains(t, rec.Body.String(), "Alice Doe")
}

func TestVCardEndpoint(t *testing.T) {
	router := newCardRouter(t, alice(true), nil)

	rec := get(router, "/cards/alice/vcard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vcard; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=Alice_Doe.vcf`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "URL:https://tapinfi.test/profile/alice\r\n")

	hidden := newCardRouter(t, alice(false), nil)
	rec = get(hidden, "/cards/alice/vcard")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
