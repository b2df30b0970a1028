// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/mail"
	"github.com/tapinfi/cardhub/internal/middleware"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[string]*RefreshToken{}}
}

func (m *memTokens) Create(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memTokens) FindByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memTokens) FindByID(_ context.Context, id string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) MarkAsUsed(_ context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.IsUsed {
		return core.ErrNotFound
	}
	now := time.Now()
	t.IsUsed = true
	t.UsedAt = &now
	t.ReplacedByID = &replacedByID
	return nil
}

func (m *memTokens) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.RevokedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (m *memTokens) RevokeByFamilyID(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memTokens) GetActiveSessionsForUser(
	_ context.Context,
	userID string,
) ([]RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.IsValid() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTokens) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) familyRevoked(familyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			return false
		}
	}
	return true
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*UserInfo{}}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(
	_ context.Context,
	email, passwordHash string,
	confirmed bool,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:             uuid.New().String(),
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           middleware.RoleUser,
		EmailConfirmed: confirmed,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].TokenVersion++
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].PasswordHash = hash
	return nil
}

func (m *memUsers) MarkEmailConfirmed(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.EmailConfirmed = true
	return nil
}

func (m *memUsers) setRole(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].Role = role
}

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordedEvents) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc    *Service
	tokens *memTokens
	users  *memUsers
	mail   *outbox
	events *recordedEvents
	redis  *miniredis.Miniredis
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "keys", "private.pem")
	pub := filepath.Join(dir, "keys", "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "cardhub",
		Audience:           "cardhub-api",
	})
	require.NoError(t, err)
	return m
}

func newTestEnv(t *testing.T, requireConfirmation bool) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		tokens: newMemTokens(),
		users:  newMemUsers(),
		mail:   &outbox{},
		events: &recordedEvents{},
		redis:  mr,
	}

	env.svc = NewService(Deps{
		Repo:   env.tokens,
		JWT:    newTestJWT(t),
		Users:  env.users,
		Redis:  rdb,
		Mailer: env.mail,
		Events: env.events,
		Config: ServiceConfig{
			AppName:                  "Tapinfi",
			PublicURL:                "https://tapinfi.test",
			RequireEmailConfirmation: requireConfirmation,
			ConfirmationTTL:          time.Hour,
			ResetTTL:                 time.Hour,
		},
	})

	return env
}

var linkToken = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func tokenFromMail(t *testing.T, msg mail.Message) string {
	t.Helper()
	m := linkToken.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2, "mail body has no token link")
	return m[1]
}

func TestRegisterRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	resp, err := env.svc.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: "secret1",
	}, "test", "127.0.0.1")
	require.NoError(t, err)

	assert.True(t, resp.ConfirmationRequired)
	assert.Nil(t, resp.Tokens)

	msg := env.mail.last(t)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.HTML, "https://tapinfi.test/confirm-email?token=")

	_, err = env.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "secret1",
	}, "test", "127.0.0.1")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)

	token := tokenFromMail(t, msg)
	require.NoError(t, env.svc.ConfirmEmail(ctx, token))
	assert.ErrorIs(t, env.svc.ConfirmEmail(ctx, token), core.ErrTokenInvalid)

	login, err := env.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "secret1",
	}, "test", "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, login.Tokens)
	assert.NotEmpty(t, login.Tokens.AccessToken)

	assert.Equal(t, []EventType{EventUserUpdated, EventSignedIn}, env.events.types())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	req := RegisterRequest{Email: "bob@example.com", Password: "secret1"}

	resp, err := env.svc.Register(ctx, req, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)

	_, err = env.svc.Register(ctx, req, "", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, RegisterRequest{
		Email: "carol@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, LoginRequest{
		Email: "carol@example.com", Password: "wrong-password",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, LoginRequest{
		Email: "nobody@example.com", Password: "secret1",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLoginRejectsNonAdminWithoutTokens(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "dave@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	before, err := env.tokens.GetActiveSessionsForUser(ctx, reg.User.ID)
	require.NoError(t, err)

	_, err = env.svc.AdminLogin(ctx, LoginRequest{
		Email: "dave@example.com", Password: "secret1",
	}, "", "")
	assert.ErrorIs(t, err, ErrNotAdmin)

	after, err := env.tokens.GetActiveSessionsForUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	env.users.setRole(reg.User.ID, middleware.RoleAdmin)
	resp, err := env.svc.AdminLogin(ctx, LoginRequest{
		Email: "dave@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, resp.User.Role)
}

func TestRefreshRotationAndReuseDetection(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "erin@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)
	original := reg.Tokens.RefreshToken

	rotated, err := env.svc.Refresh(ctx, original, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated.Tokens.RefreshToken)

	stored, err := env.tokens.FindByHash(ctx, core.HashToken(rotated.Tokens.RefreshToken))
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, original, "", "")
	assert.ErrorIs(t, err, ErrTokenReuse)
	assert.True(t, env.tokens.familyRevoked(stored.FamilyID))

	_, err = env.svc.Refresh(ctx, rotated.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshUnknownToken(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.svc.Refresh(context.Background(), "not-a-token", "", "")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "frank@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	claims, err := env.svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)

	session := &middleware.Session{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}
	require.NoError(t, env.svc.Logout(ctx, reg.Tokens.RefreshToken, session))

	_, err = env.svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = env.svc.Refresh(ctx, reg.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestVerifyAccessTokenPicksUpRoleChange(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "gina@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	env.users.setRole(reg.User.ID, middleware.RoleAdmin)

	claims, err := env.svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, claims.Role)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t, false)

	require.NoError(t, env.svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, env.mail.sent)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "hana@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, env.svc.ForgotPassword(ctx, "hana@example.com"))
	msg := env.mail.last(t)
	assert.Contains(t, msg.HTML, "https://tapinfi.test/reset-password?token=")

	token := tokenFromMail(t, msg)
	require.NoError(t, env.svc.ResetPassword(ctx, token, "newsecret"))

	assert.ErrorIs(t, env.svc.ResetPassword(ctx, token, "again1"), core.ErrTokenInvalid)

	_, err = env.svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = env.svc.Login(ctx, LoginRequest{Email: "hana@example.com", Password: "secret1"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, LoginRequest{Email: "hana@example.com", Password: "newsecret"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventSignedIn,
		EventPasswordRecovery,
		EventSignedOut,
		EventSignedIn,
	}, env.events.types())
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, RegisterRequest{
		Email: "ivan@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)

	err = env.svc.ChangePassword(ctx, reg.User.ID, "nope", "another1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRevokeSessionOfAnotherUser(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	a, err := env.svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "secret1"}, "", "")
	require.NoError(t, err)
	b, err := env.svc.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "secret1"}, "", "")
	require.NoError(t, err)

	sessions, err := env.svc.GetActiveSessions(ctx, a.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	err = env.svc.RevokeSession(ctx, b.User.ID, sessions[0].ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, env.svc.RevokeSession(ctx, a.User.ID, sessions[0].ID))
}

func TestPruneExpiredSessions(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	require.NoError(t, env.tokens.Create(ctx, &RefreshToken{
		ID: "old", UserID: "u", FamilyID: "f", ExpiresAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, env.tokens.Create(ctx, &RefreshToken{
		ID: "fresh", UserID: "u", FamilyID: "f", ExpiresAt: time.Now().Add(time.Hour),
	}))

	n, err := env.svc.PruneExpiredSessions(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
