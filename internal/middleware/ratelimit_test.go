// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis returns a client whose server is already gone, so every
// call fails and the in-process limiter takes over.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func fromIP(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/cards/alice", nil)
	req.RemoteAddr = ip + ":5000"
	return req
}

func TestRateLimiterFallsBackToLocalBucket(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit:    PerMinute(1, 2),
		FailOpen: true,
	})
	h := rl.Handler(okHandler())

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, fromIP("10.0.0.1"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, fromIP("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, fromIP("10.0.0.2"))
	assert.Equal(t, http.StatusNoContent, rec.Code, "other callers keep their own bucket")
}

func TestByRoleUsesSessionRole(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{FailOpen: true})
	h := rl.ByRole(RoleLimits{
		"anonymous": PerMinute(1, 1),
		RoleUser:    PerMinute(10, 5),
	})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, fromIP("10.0.0.3"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "anonymous", rec.Header().Get("X-RateLimit-Role"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, fromIP("10.0.0.3"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	req := fromIP("10.0.0.3")
	req = req.WithContext(WithSession(req.Context(), &Session{UserID: "u9", Role: RoleUser}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, RoleUser, rec.Header().Get("X-RateLimit-Role"))
}

func TestKeyByIPPrefersForwardedHeader(t *testing.T) {
	req := fromIP("10.0.0.4")
	assert.Equal(t, "ratelimit:ip:10.0.0.4", KeyByIP(req))

	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "ratelimit:ip:2.2.2.2", KeyByIP(req))
	assert.Equal(t, "ratelimit:ip:2.2.2.2:path:/v1/cards/alice", KeyByIPAndPath(req))
}
