// AngelaMos | 2026
// service.go

package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
	"github.com/tapinfi/cardhub/internal/profile"
)

// CardLookup finds the card a viewer wants to save.
type CardLookup interface {
	GetByUsername(ctx context.Context, username string) (*profile.Profile, error)
}

type Service struct {
	repo     Repository
	cards    CardLookup
	pageSize int
	saves    *prometheus.CounterVec
	logger   *slog.Logger
}

// NewService accepts a nil saves counter when metrics are not wanted.
func NewService(
	repo Repository,
	cards CardLookup,
	pageSize int,
	saves *prometheus.CounterVec,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		cards:    cards,
		pageSize: pageSize,
		saves:    saves,
		logger:   logger,
	}
}

// EnsureMembership returns the viewer's membership, creating it on first
// use. The bool reports whether it was created by this call.
func (s *Service) EnsureMembership(ctx context.Context, userID string) (*Member, bool, error) {
	created, err := s.repo.EnsureMember(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	m, err := s.repo.GetMember(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load wallet member: %w", err)
	}

	if created {
		s.logger.InfoContext(ctx, "wallet member joined", "user_id", userID)
	}

	return m, created, nil
}

// Save bookmarks a published card for the viewer. Anonymous viewers and
// viewers without a membership get an outcome carrying where to send them
// next. A card that is missing or unpublished is ErrNotFound.
func (s *Service) Save(
	ctx context.Context,
	viewer *middleware.Session,
	username string,
) (SaveResult, error) {
	res, err := s.save(ctx, viewer, username)

	if s.saves != nil {
		label := string(res.Outcome)
		switch {
		case errors.Is(err, core.ErrNotFound):
			label = "not_found"
		case err != nil:
			label = "error"
		}
		s.saves.WithLabelValues(label).Inc()
	}

	return res, err
}

func (s *Service) save(
	ctx context.Context,
	viewer *middleware.Session,
	username string,
) (SaveResult, error) {
	res := SaveResult{Username: username}

	if !viewer.IsAuthenticated() {
		res.Outcome = OutcomeNeedsAuth
		res.RedirectTo = "/?redirectTo=" + ProfilePath(username)
		return res, nil
	}

	card, err := s.cards.GetByUsername(ctx, username)
	if err != nil {
		return res, fmt.Errorf("find card: %w", err)
	}
	if !card.Publish {
		return res, fmt.Errorf("find card: %w", core.ErrNotFound)
	}

	member, err := s.repo.IsMember(ctx, viewer.UserID)
	if err != nil {
		return res, err
	}
	if !member {
		res.Outcome = OutcomeNeedsMembership
		res.RedirectTo = "/wallet/join?redirectTo=" + ProfilePath(username)
		return res, nil
	}

	created, err := s.repo.SaveCard(ctx, viewer.UserID, username)
	if err != nil {
		return res, err
	}

	res.Outcome = OutcomeAlreadySaved
	if created {
		res.Outcome = OutcomeSaved
	}

	return res, nil
}

// ProfilePath is the site path of a card's public page.
func ProfilePath(username string) string {
	return "/profile/" + url.PathEscape(username)
}

func (s *Service) Remove(ctx context.Context, userID, username string) error {
	return s.repo.RemoveCard(ctx, userID, username)
}

func (s *Service) MarkViewed(ctx context.Context, userID, username string) error {
	return s.repo.TouchCard(ctx, userID, username)
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]SavedCard, int, ListParams, error) {
	params.Normalize(s.pageSize)

	cards, total, err := s.repo.ListCards(ctx, userID, params)
	if err != nil {
		return nil, 0, params, err
	}

	return cards, total, params, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.repo.Counts(ctx)
}
