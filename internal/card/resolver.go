// AngelaMos | 2026
// resolver.go

package card

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
	"github.com/tapinfi/cardhub/internal/profile"
	"github.com/tapinfi/cardhub/internal/theme"
)

type State string

const (
	StateNotFound    State = "not_found"
	StateUnpublished State = "unpublished"
	StatePublished   State = "published"
)

// Resolution is the outcome of looking up a public card. Profile is set
// only in StatePublished, and Kind is meaningful only there.
type Resolution struct {
	State   State
	Kind    theme.Kind
	Profile *profile.Profile
}

type ProfileSource interface {
	GetByUsername(ctx context.Context, username string) (*profile.Profile, error)
}

type ThemeSource interface {
	CurrentKind(ctx context.Context, userID string) (theme.Kind, error)
}

type Resolver struct {
	profiles    ProfileSource
	themes      ThemeSource
	resolutions *prometheus.CounterVec
	logger      *slog.Logger
}

// NewResolver accepts a nil resolutions counter when metrics are not wanted.
func NewResolver(
	profiles ProfileSource,
	themes ThemeSource,
	resolutions *prometheus.CounterVec,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		profiles:    profiles,
		themes:      themes,
		resolutions: resolutions,
		logger:      logger,
	}
}

// Resolve decides what a visitor sees at a card's public address. A store
// failure while loading the profile looks the same as a missing profile to
// the visitor and is logged. An unpublished card is shown only to admins.
// A failed theme lookup renders the card with the neutral layout.
func (r *Resolver) Resolve(
	ctx context.Context,
	username string,
	viewer *middleware.Session,
) Resolution {
	ctx, span := core.StartSpan(ctx, "card.resolve", attribute.String("card.username", username))
	defer span.End()

	res := r.resolve(ctx, username, viewer)

	span.SetAttributes(
		attribute.String("card.state", string(res.State)),
		attribute.String("card.theme", res.Kind.Label()),
	)
	if r.resolutions != nil {
		r.resolutions.WithLabelValues(string(res.State), res.Kind.Label()).Inc()
	}

	return res
}

func (r *Resolver) resolve(
	ctx context.Context,
	username string,
	viewer *middleware.Session,
) Resolution {
	if username == "" {
		return Resolution{State: StateNotFound}
	}

	p, err := r.profiles.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			core.SetSpanError(ctx, err)
			r.logger.ErrorContext(ctx, "card lookup failed",
				"username", username,
				"error", err,
			)
		}
		return Resolution{State: StateNotFound}
	}

	if !p.Publish && !viewer.IsAdmin() {
		return Resolution{State: StateUnpublished}
	}

	kind, err := r.themes.CurrentKind(ctx, p.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "card theme lookup failed, using neutral layout",
			"username", username,
			"error", err,
		)
		kind = theme.KindNone
	}

	return Resolution{State: StatePublished, Kind: kind, Profile: p}
}
