// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/profile"
	"github.com/tapinfi/cardhub/internal/wallet"
)

type ProfileCounter interface {
	Counts(ctx context.Context) (profile.Counts, error)
}

type WalletCounter interface {
	Counts(ctx context.Context) (wallet.Counts, error)
}

type ThemeCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	dbStats     func() sql.DBStats
	redisStats  func() *redis.PoolStats
	redisPing   func(ctx context.Context) error
	dbPing      func(ctx context.Context) error
	storagePing func(ctx context.Context) error
	profiles    ProfileCounter
	wallet      WalletCounter
	themes      ThemeCounter
}

type HandlerConfig struct {
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
	DBPing      func(ctx context.Context) error
	StoragePing func(ctx context.Context) error
	Profiles    ProfileCounter
	Wallet      WalletCounter
	Themes      ThemeCounter
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:     cfg.DBStats,
		redisStats:  cfg.RedisStats,
		redisPing:   cfg.RedisPing,
		dbPing:      cfg.DBPing,
		storagePing: cfg.StoragePing,
		profiles:    cfg.Profiles,
		wallet:      cfg.Wallet,
		themes:      cfg.Themes,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/dashboard", h.GetDashboard)
		r.Get("/admin/stats", h.GetSystemStats)
		r.Get("/admin/stats/db", h.GetDatabaseStats)
		r.Get("/admin/stats/redis", h.GetRedisStats)
		r.Get("/admin/stats/runtime", h.GetRuntimeStats)
	})
}

// GetDashboard gathers the card, wallet and theme counts in parallel.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		profiles profile.Counts
		saved    wallet.Counts
		themes   int
	)

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		c, err := h.profiles.Counts(ctx)
		profiles = c
		return err
	})
	g.Go(func() error {
		c, err := h.wallet.Counts(ctx)
		saved = c
		return err
	})
	g.Go(func() error {
		n, err := h.themes.Count(ctx)
		themes = n
		return err
	})

	if err := g.Wait(); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, DashboardResponse{
		Profiles: ProfileSummary{
			Total:       profiles.Total,
			Published:   profiles.Published,
			Unpublished: profiles.Total - profiles.Published,
		},
		Wallet: WalletSummary{
			Members:    saved.Members,
			SavedCards: saved.SavedCards,
		},
		Themes: ThemeSummary{Available: themes},
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Storage: StorageStatus{
			Healthy: pingOK(ctx, h.storagePing),
		},
		Runtime: readRuntimeStats(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

// pingOK treats a missing probe as healthy.
func pingOK(ctx context.Context, ping func(ctx context.Context) error) bool {
	return ping == nil || ping(ctx) == nil
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}
