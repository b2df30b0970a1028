// AngelaMos | 2026
// service.go

package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tapinfi/cardhub/internal/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(acct), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	acct, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(acct), nil
}

// Create registers a new identity. When confirmed is false the account
// cannot sign in until ConfirmEmail runs.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash string,
	confirmed bool,
) (*auth.UserInfo, error) {
	acct := &Account{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
	}

	if confirmed {
		now := time.Now()
		acct.EmailConfirmedAt = &now
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}

	return toUserInfo(acct), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) MarkEmailConfirmed(ctx context.Context, userID string) error {
	return s.repo.MarkEmailConfirmed(ctx, userID)
}

// Promote grants or removes the admin flag for the account with email.
func (s *Service) Promote(ctx context.Context, email string, isAdmin bool) error {
	return s.repo.SetAdminByEmail(ctx, normalizeEmail(email), isAdmin)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(a *Account) *auth.UserInfo {
	return &auth.UserInfo{
		ID:             a.ID,
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		Role:           a.Role(),
		TokenVersion:   a.TokenVersion,
		EmailConfirmed: a.IsConfirmed(),
	}
}

var _ auth.UserProvider = (*Service)(nil)
