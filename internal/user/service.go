// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

const seenTTL = 24 * time.Hour

// SeenCache remembers which users already have a row so the lazy sync does
// not write on every request.
type SeenCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Service struct {
	repo   Repository
	seen   SeenCache
	logger *slog.Logger
}

func NewService(repo Repository, seen SeenCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, seen: seen, logger: logger}
}

func seenKey(id string) string {
	return "user:seen:" + id
}

// EnsureUser creates the user on first contact. When the full write fails
// it retries with only the id so that dependent rows can still reference the
// user, and reports the outcome as partial.
func (s *Service) EnsureUser(ctx context.Context, id, email string) SyncResult {
	_, result := s.ensure(ctx, id, email)
	return result
}

func (s *Service) ensure(ctx context.Context, id, email string) (*User, SyncResult) {
	if id == "" {
		return nil, SyncResult{
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("ensure user: %w", core.ErrInvalidInput),
		}
	}

	u := &User{
		ID:                 id,
		Email:              strings.ToLower(strings.TrimSpace(email)),
		Plan:               PlanFree,
		SubscriptionStatus: StatusInactive,
	}

	err := s.repo.Upsert(ctx, u)
	if err == nil {
		return u, SyncResult{Outcome: OutcomeApplied}
	}

	s.logger.Warn("user upsert failed, retrying with id only",
		"user_id", id,
		"error", err,
	)

	if minErr := s.repo.InsertMinimal(ctx, id); minErr != nil {
		return nil, SyncResult{
			Outcome: OutcomeFailed,
			Err:     errors.Join(err, minErr),
		}
	}

	return nil, SyncResult{Outcome: OutcomePartial, Err: err}
}

// SyncUser is the request-path variant of EnsureUser. Partial writes are
// accepted; only a failed sync stops the request. A user deleted at the
// identity provider is rejected with ErrTokenRevoked even while their
// session token is still valid.
func (s *Service) SyncUser(ctx context.Context, id, email string) error {
	key := seenKey(id)

	if s.seen != nil {
		known, err := s.seen.Exists(ctx, key)
		if err == nil && known {
			return nil
		}
	}

	u, result := s.ensure(ctx, id, email)
	switch result.Outcome {
	case OutcomeFailed:
		return fmt.Errorf("sync user: %w", result.Err)
	case OutcomePartial:
		s.logger.Warn("user synced partially", "user_id", id, "error", result.Err)
		return nil
	}

	if u != nil && u.DeletedAt != nil {
		return fmt.Errorf("sync user: %w", core.ErrTokenRevoked)
	}

	if s.seen != nil {
		if _, err := s.seen.Claim(ctx, key, seenTTL); err != nil {
			s.logger.Debug("mark user seen failed", "user_id", id, "error", err)
		}
	}

	return nil
}

func (s *Service) ApplyIdentityEvent(
	ctx context.Context,
	event IdentityEvent,
) SyncResult {
	switch event.Type {
	case EventUserCreated, EventUserUpdated:
		return s.EnsureUser(ctx, event.UserID, event.Email)

	case EventUserDeleted:
		err := s.repo.SoftDelete(ctx, event.UserID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return SyncResult{Outcome: OutcomeFailed, Err: err}
		}

		if s.seen != nil {
			if relErr := s.seen.Release(ctx, seenKey(event.UserID)); relErr != nil {
				s.logger.Debug("release seen key failed",
					"user_id", event.UserID,
					"error", relErr,
				)
			}
		}
		return SyncResult{Outcome: OutcomeApplied}

	default:
		return SyncResult{Outcome: OutcomeIgnored}
	}
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ExpireSubscriptions(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	return s.repo.ExpireSubscriptions(ctx, now)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountByPlan(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByPlan(ctx)
}
