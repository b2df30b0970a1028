// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/mail"
	"github.com/tapinfi/cardhub/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrNotAdmin           = errors.New("account is not an admin")
)

type UserInfo struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           string
	TokenVersion   int
	EmailConfirmed bool
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash string,
		confirmed bool,
	) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkEmailConfirmed(ctx context.Context, userID string) error
}

type ServiceConfig struct {
	AppName                  string
	PublicURL                string
	RequireEmailConfirmation bool
	ConfirmationTTL          time.Duration
	ResetTTL                 time.Duration
}

type Deps struct {
	Repo   Repository
	JWT    *JWTManager
	Users  UserProvider
	Redis  *redis.Client
	Mailer mail.Sender
	Events EventPublisher
	Config ServiceConfig
	Logger *slog.Logger
}

type Service struct {
	repo   Repository
	jwt    *JWTManager
	users  UserProvider
	redis  *redis.Client
	tokens *OneTimeTokens
	mailer mail.Sender
	events EventPublisher
	cfg    ServiceConfig
	logger *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:   d.Repo,
		jwt:    d.JWT,
		users:  d.Users,
		redis:  d.Redis,
		tokens: NewOneTimeTokens(d.Redis),
		mailer: d.Mailer,
		events: d.Events,
		cfg:    d.Config,
		logger: logger,
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	confirmed := !s.cfg.RequireEmailConfirmation
	user, err := s.users.Create(ctx, req.Email, passwordHash, confirmed)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if !confirmed {
		if err := s.sendLink(ctx, user, PurposeConfirmEmail); err != nil {
			s.logger.ErrorContext(ctx, "send confirmation email failed",
				"user_id", user.ID,
				"error", err,
			)
		}
		return &AuthResponse{
			User:                 toUserResponse(user),
			ConfirmationRequired: true,
		}, nil
	}

	return s.signIn(ctx, user, userAgent, ipAddress)
}

func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.Consume(ctx, PurposeConfirmEmail, token)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailConfirmed(ctx, userID); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	s.publish(ctx, EventUserUpdated, userID)
	return nil
}

// ResendConfirmation is silent about unknown or already confirmed
// addresses so callers cannot probe which emails are registered.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if user.EmailConfirmed {
		return nil
	}

	return s.sendLink(ctx, user, PurposeConfirmEmail)
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return s.signIn(ctx, user, userAgent, ipAddress)
}

// AdminLogin authenticates like Login but issues no tokens unless the
// account holds the admin role.
func (s *Service) AdminLogin(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if user.Role != middleware.RoleAdmin {
		return nil, ErrNotAdmin
	}

	return s.signIn(ctx, user, userAgent, ipAddress)
}

func (s *Service) authenticate(
	ctx context.Context,
	email, password string,
) (*UserInfo, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	if s.cfg.RequireEmailConfirmation && !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	return user, nil
}

func (s *Service) signIn(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	resp, err := s.issueTokens(ctx, user, userAgent, ipAddress, "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventSignedIn, user.ID)
	return resp, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if stored.IsUsed {
		s.revokeFamily(ctx, stored.FamilyID)
		return nil, ErrTokenReuse
	}

	if !stored.IsValid() {
		if stored.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	nextID := uuid.New().String()
	if err := s.repo.MarkAsUsed(ctx, stored.ID, nextID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.revokeFamily(ctx, stored.FamilyID)
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	resp, err := s.issueTokensWithID(ctx, user, userAgent, ipAddress, stored.FamilyID, nextID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventTokenRefreshed, user.ID)
	return resp, nil
}

func (s *Service) revokeFamily(ctx context.Context, familyID string) {
	if err := s.repo.RevokeByFamilyID(ctx, familyID); err != nil {
		s.logger.ErrorContext(ctx, "revoke token family failed",
			"family_id", familyID,
			"error", err,
		)
	}
}

func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	session *middleware.Session,
) error {
	if session.TokenID != "" {
		if err := s.RevokeAccessToken(ctx, session.TokenID, session.ExpiresAt); err != nil {
			s.logger.WarnContext(ctx, "blacklist access token failed", "error", err)
		}
	}

	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.publish(ctx, EventSignedOut, session.UserID)
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if stored.UserID != session.UserID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, stored.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.publish(ctx, EventSignedOut, session.UserID)
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	s.publish(ctx, EventSignedOut, userID)
	return nil
}

func blacklistKey(jti string) string {
	return "auth:blacklist:" + jti
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

// VerifyAccessToken validates the JWT and then rejects tokens that were
// signed out individually or invalidated by a token version bump. The role
// is taken from the account so promotions apply without a new sign-in.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claims.TokenID != "" {
		blacklisted, err := s.IsAccessTokenBlacklisted(ctx, claims.TokenID)
		if err != nil {
			s.logger.WarnContext(ctx, "blacklist lookup failed, allowing token", "error", err)
		} else if blacklisted {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	claims.Role = user.Role
	return claims, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if token.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// PruneExpiredSessions deletes refresh tokens that expired before cutoff.
func (s *Service) PruneExpiredSessions(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	return s.repo.DeleteExpiredBefore(ctx, cutoff)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	valid, err := core.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		return err
	}

	s.publish(ctx, EventUserUpdated, userID)
	return s.LogoutAll(ctx, userID)
}

// ForgotPassword mails a reset link when the address belongs to an
// account and does nothing otherwise.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	return s.sendLink(ctx, user, PurposePasswordReset)
}

func (s *Service) ResetPassword(
	ctx context.Context,
	token, newPassword string,
) error {
	userID, err := s.tokens.Consume(ctx, PurposePasswordReset, token)
	if err != nil {
		return err
	}

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		return err
	}

	s.publish(ctx, EventPasswordRecovery, userID)
	return s.LogoutAll(ctx, userID)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) sendLink(ctx context.Context, user *UserInfo, purpose string) error {
	ttl, path, build := s.cfg.ConfirmationTTL, "/confirm-email", mail.ConfirmationMessage
	if purpose == PurposePasswordReset {
		ttl, path, build = s.cfg.ResetTTL, "/reset-password", mail.PasswordResetMessage
	}

	token, err := s.tokens.Issue(ctx, purpose, user.ID, ttl)
	if err != nil {
		return err
	}

	msg, err := build(user.Email, mail.LinkData{
		AppName: s.cfg.AppName,
		Email:   user.Email,
		Link:    s.cfg.PublicURL + path + "?token=" + url.QueryEscape(token),
	})
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", purpose, err)
	}

	return nil
}

func (s *Service) publish(ctx context.Context, t EventType, userID string) {
	if s.events == nil {
		return
	}

	if err := s.events.Publish(ctx, Event{Type: t, UserID: userID}); err != nil {
		s.logger.WarnContext(ctx, "publish auth event failed",
			"type", t,
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *Service) issueTokens(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
) (*AuthResponse, error) {
	return s.issueTokensWithID(ctx, user, userAgent, ipAddress, familyID, uuid.New().String())
}

func (s *Service) issueTokensWithID(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID, tokenID string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	if err := s.repo.Create(ctx, &RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: &TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(time.Until(access.ExpiresAt).Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}
