// AngelaMos | 2026
// jobs_test.go

package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls int
	at    time.Time
	err   error
}

func (f *fakeExpirer) ExpireSubscriptions(_ context.Context, now time.Time) (int64, error) {
	f.calls++
	f.at = now
	return 3, f.err
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return nil
}

type fakePurger struct{ retention time.Duration }

func (f *fakePurger) PurgeWebhookEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 0, nil
}

func TestSubscriptionSweep(t *testing.T) {
	users := &fakeExpirer{}
	task := SubscriptionSweep(users, time.Hour, slog.Default())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, users.calls)
	assert.Equal(t, time.UTC, users.at.Location())

	users.err = errors.New("db down")
	assert.ErrorContains(t, task.Run(context.Background()), "db down")
}

func TestJWKSRefresh(t *testing.T) {
	keys := &fakeRefresher{}
	task := JWKSRefresh(keys, 15*time.Minute)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, keys.calls)
	assert.Equal(t, "jwks_refresh", task.Name)
}

func TestWebhookEventPurgeInterval(t *testing.T) {
	purger := &fakePurger{}

	task := WebhookEventPurge(purger, 72*time.Hour, slog.Default())
	assert.Equal(t, 18*time.Hour, task.Interval)

	task = WebhookEventPurge(purger, 30*24*time.Hour, slog.Default())
	assert.Equal(t, 24*time.Hour, task.Interval)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 30*24*time.Hour, purger.retention)
}

func TestSchedulerSkipsDisabledTasks(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.Add(JWKSRefresh(&fakeRefresher{}, 0)))
	require.NoError(t, s.Add(JWKSRefresh(&fakeRefresher{}, time.Hour)))
	require.NoError(t, s.Add(SubscriptionSweep(&fakeExpirer{}, time.Hour, slog.Default())))

	assert.Equal(t, 2, s.Len())
}

func TestSchedulerRunSwallowsErrors(t *testing.T) {
	s := New(nil)
	called := false

	assert.NotPanics(t, func() {
		s.run(Task{
			Name: "broken",
			Run: func(context.Context) error {
				called = true
				return errors.New("boom")
			},
		})
	})
	assert.True(t, called)
}
