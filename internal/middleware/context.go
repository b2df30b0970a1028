// AngelaMos | 2026
// context.go

package middleware

import (
	"context"
	"time"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	requestIDKey contextKey = "request_id"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Session is the single per-request view of who is calling. It is derived
// once by Authenticator or OptionalAuth and read everywhere else.
type Session struct {
	UserID       string
	Role         string
	TokenVersion int
	TokenID      string
	ExpiresAt    time.Time
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns nil for anonymous requests.
func SessionFrom(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if s := SessionFrom(ctx); s != nil {
		return s.UserID
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if s := SessionFrom(ctx); s != nil {
		return s.Role
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return SessionFrom(ctx).IsAuthenticated()
}

func IsAdmin(ctx context.Context) bool {
	return SessionFrom(ctx).IsAdmin()
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
