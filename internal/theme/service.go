// AngelaMos | 2026
// service.go

package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tapinfi/cardhub/internal/core"
)

const msgUnknownKind = "must name one of the available card renderers"

type Service struct {
	repo         Repository
	applications prometheus.Counter
	logger       *slog.Logger
}

// NewService accepts a nil applications counter when metrics are not wanted.
func NewService(
	repo Repository,
	applications prometheus.Counter,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:         repo,
		applications: applications,
		logger:       logger,
	}
}

func (s *Service) ListAvailable(ctx context.Context) ([]Theme, error) {
	return s.repo.ListAvailable(ctx)
}

// Create registers a theme. Its id must name a Kind so that every
// available theme has a renderer.
func (s *Service) Create(ctx context.Context, req CreateThemeRequest) (*Theme, error) {
	if !ParseKind(req.ID).Known() {
		return nil, core.ValidationError(map[string]string{"id": msgUnknownKind})
	}

	t := &Theme{ID: req.ID, Name: req.Name, ImageURL: req.ImageURL}
	if err := s.repo.CreateAvailable(ctx, t); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("theme id")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "theme created", "theme_id", t.ID)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteAvailable(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "theme deleted", "theme_id", id)
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountAvailable(ctx)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]AssignedTheme, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) Assign(ctx context.Context, userID, themeID string) (bool, error) {
	return s.repo.Assign(ctx, userID, themeID)
}

func (s *Service) Unassign(ctx context.Context, userID, themeID string) error {
	return s.repo.Unassign(ctx, userID, themeID)
}

// Apply makes themeID the caller's applied theme. Applying the theme that
// is already applied succeeds without writing and reports false.
func (s *Service) Apply(ctx context.Context, userID, themeID string) (bool, error) {
	changed, err := s.repo.Apply(ctx, userID, themeID)
	if err != nil {
		return false, err
	}

	if changed && s.applications != nil {
		s.applications.Inc()
	}

	return changed, nil
}

// CurrentKind maps the user's applied assignment to a renderer. No
// assignment, a removed assignment and an id without a renderer all give
// KindNone with a nil error.
func (s *Service) CurrentKind(ctx context.Context, userID string) (Kind, error) {
	id, err := s.repo.AppliedThemeID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return KindNone, nil
	}
	if err != nil {
		return KindNone, fmt.Errorf("current theme: %w", err)
	}

	return ParseKind(id), nil
}
