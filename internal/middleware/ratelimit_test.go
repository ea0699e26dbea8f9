// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis forces every limiter onto the local bucket.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLocalLimiterRefillsAndSweeps(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	l := newLocalLimiter(func() time.Time { return now })
	limit := PerMinute(6, 2)

	for range 2 {
		res, err := l.allow("k", limit)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Allowed)
	}

	res, err := l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Equal(t, 10*time.Second, res.RetryAfter)

	now = now.Add(10 * time.Second)
	res, err = l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	now = now.Add(11 * time.Minute)
	_, err = l.allow("other", limit)
	require.NoError(t, err)
	assert.NotContains(t, l.buckets, "k")
	assert.Contains(t, l.buckets, "other")
}

func TestLocalLimiterRejectsZeroLimit(t *testing.T) {
	l := newLocalLimiter(time.Now)

	_, err := l.allow("k", redis_rate.Limit{})
	assert.Error(t, err)
}

func TestRateLimiterFallsBackWhenRedisDown(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{Limit: PerMinute(1, 1)})
	h := rl.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/decks", nil)
	req.RemoteAddr = "203.0.113.9:5555"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1;w=60", first.Header().Get("RateLimit-Policy"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestPlanRateLimiterUsesPlanBudget(t *testing.T) {
	limits := PlanLimits{
		Scope:   "generate",
		Default: "free",
		Limits: map[string]redis_rate.Limit{
			"free": PerMinute(1, 1),
			"pro":  PerMinute(3, 3),
		},
	}
	plans := map[string]string{"user_free": "free", "user_pro": "pro", "user_odd": "legacy"}
	lookup := func(_ context.Context, userID string) string { return plans[userID] }

	mw := PlanRateLimiter(unreachableRedis(t), limits, lookup)
	h := mw(okHandler())

	send := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/flashcards/generate", nil)
		req = req.WithContext(WithClaims(req.Context(), &IdentityClaims{UserID: userID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		user     string
		allowed  int
		wantPlan string
	}{
		{user: "user_free", allowed: 1, wantPlan: "free"},
		{user: "user_pro", allowed: 3, wantPlan: "pro"},
		{user: "user_odd", allowed: 1, wantPlan: "free"},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			for i := range tt.allowed {
				rec := send(tt.user)
				require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
				assert.Equal(t, tt.wantPlan, rec.Header().Get("RateLimit-Plan"))
			}
			assert.Equal(t, http.StatusTooManyRequests, send(tt.user).Code)
		})
	}
}
