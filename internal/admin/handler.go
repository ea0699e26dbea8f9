// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

type PlanCounter interface {
	CountByPlan(ctx context.Context) (map[string]int, error)
}

type CardCounter interface {
	CountCreatedSinceAll(ctx context.Context, since time.Time) (int, error)
}

type PaymentCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	users      PlanCounter
	cards      CardCounter
	payments   PaymentCounter
	now        func() time.Time
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Users      PlanCounter
	Cards      CardCounter
	Payments   PaymentCounter
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		users:      cfg.Users,
		cards:      cfg.Cards,
		payments:   cfg.Payments,
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)
		r.Use(middleware.NoStore)

		r.Get("/", h.GetSystemStats)
		r.Get("/usage", h.GetUsageStats)
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
		Runtime: readRuntimeStats(),
	})
}

// GetUsageStats reports business counters: users per plan, cards generated
// since the start of the current UTC month and payments per status.
func (h *Handler) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plans, err := h.users.CountByPlan(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	monthStart := flashcard.MonthStartUTC(h.now())
	cards, err := h.cards.CountCreatedSinceAll(ctx, monthStart)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	payments, err := h.payments.CountByStatus(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, UsageStatsResponse{
		UsersByPlan:      plans,
		CardsThisMonth:   cards,
		MonthStart:       monthStart,
		PaymentsByStatus: payments,
	})
}

func pingOK(ctx context.Context, ping func(ctx context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
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
	}
}
