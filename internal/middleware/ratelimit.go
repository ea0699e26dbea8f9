// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Minute,
	}
}

// limiter counts in redis and falls back to an in-process bucket per key
// while redis is unreachable.
type limiter struct {
	redis *redis_rate.Limiter
	local *localLimiter
}

func newLimiter(rdb *redis.Client) *limiter {
	return &limiter{
		redis: redis_rate.NewLimiter(rdb),
		local: newLocalLimiter(time.Now),
	}
}

func (l *limiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	res, err := l.redis.Allow(ctx, key, limit)
	if err == nil {
		return res, nil
	}
	slog.Debug("redis rate limiter unavailable, using local bucket",
		"key", key,
		"error", err,
	)
	return l.local.allow(key, limit)
}

type RateLimiter struct {
	limiter *limiter
	config  RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		limiter: newLimiter(rdb),
		config:  cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		res, err := rl.limiter.allow(r.Context(), key, rl.config.Limit)
		if err != nil {
			if rl.config.FailOpen {
				slog.Warn("rate limiter error, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		if !admit(w, res, rl.config.Limit) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return "ratelimit:ip:" + strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ratelimit:ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	return "ratelimit:ip:" + ip
}

// PlanLookup resolves the subscription plan whose budget applies.
type PlanLookup func(ctx context.Context, userID string) string

// PlanLimits is a per-plan request budget for one group of routes. Plans
// missing from Limits use the Default plan's entry.
type PlanLimits struct {
	Scope   string
	Default string
	Limits  map[string]redis_rate.Limit
}

func (p PlanLimits) forPlan(plan string) (string, redis_rate.Limit) {
	if limit, ok := p.Limits[plan]; ok {
		return plan, limit
	}
	return p.Default, p.Limits[p.Default]
}

// PlanRateLimiter limits each authenticated user by the budget of their
// current plan. Budgets are counted per user and scope, so an upgrade takes
// effect on the next request.
func PlanRateLimiter(
	rdb *redis.Client,
	limits PlanLimits,
	lookup PlanLookup,
) func(http.Handler) http.Handler {
	l := newLimiter(rdb)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())

			plan := ""
			if lookup != nil && userID != "" {
				plan = lookup(r.Context(), userID)
			}
			plan, limit := limits.forPlan(plan)

			key := fmt.Sprintf("ratelimit:%s:user:%s", limits.Scope, userID)
			res, err := l.allow(r.Context(), key, limit)
			if err != nil {
				core.InternalServerError(w, err)
				return
			}

			w.Header().Set("RateLimit-Plan", plan)
			if !admit(w, res, limit) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// admit writes the RateLimit headers and, when the request is over budget,
// the 429 response. It reports whether the request may proceed.
func admit(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) bool {
	h := w.Header()
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))

	if res.Allowed > 0 {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(1, int(res.RetryAfter.Seconds()))))
	core.JSONError(w, core.RateLimitedError(res.RetryAfter))
	return false
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per key. Idle buckets are swept
// lazily from allow.
type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
	idleTTL   time.Duration
}

func newLocalLimiter(now func() time.Time) *localLimiter {
	return &localLimiter{
		buckets:   make(map[string]*bucket),
		now:       now,
		lastSweep: now(),
		idleTTL:   10 * time.Minute,
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Period <= 0 || limit.Rate <= 0 {
		return nil, fmt.Errorf("invalid rate limit %s", limit)
	}

	perToken := limit.Period / time.Duration(limit.Rate)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(perToken), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: perToken,
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = perToken
	}
	res.Remaining = max(0, int(b.limiter.TokensAt(now)))

	return res, nil
}
