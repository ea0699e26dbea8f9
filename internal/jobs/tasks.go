// AngelaMos | 2026
// tasks.go

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type SubscriptionExpirer interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

type KeyRefresher interface {
	Refresh(ctx context.Context) error
}

type WebhookEventPurger interface {
	PurgeWebhookEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// SubscriptionSweep downgrades users whose paid period has ended.
func SubscriptionSweep(
	users SubscriptionExpirer,
	interval time.Duration,
	logger *slog.Logger,
) Task {
	return Task{
		Name:     "subscription_sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := users.ExpireSubscriptions(ctx, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("expire subscriptions: %w", err)
			}
			if n > 0 {
				logger.Info("subscriptions expired", "count", n)
			}
			return nil
		},
	}
}

func JWKSRefresh(keys KeyRefresher, interval time.Duration) Task {
	return Task{
		Name:     "jwks_refresh",
		Interval: interval,
		Run:      keys.Refresh,
	}
}

// WebhookEventPurge drops payment webhook dedupe rows past retention. The
// interval is a fraction of retention so rows never linger much longer.
func WebhookEventPurge(
	payments WebhookEventPurger,
	retention time.Duration,
	logger *slog.Logger,
) Task {
	interval := retention / 4
	if interval > 24*time.Hour {
		interval = 24 * time.Hour
	}

	return Task{
		Name:     "webhook_event_purge",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := payments.PurgeWebhookEvents(ctx, retention)
			if err != nil {
				return fmt.Errorf("purge webhook events: %w", err)
			}
			if n > 0 {
				logger.Info("webhook events purged", "count", n)
			}
			return nil
		},
	}
}
