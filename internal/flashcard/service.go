// AngelaMos | 2026
// service.go

package flashcard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/ai"
	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/subscription"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

type Generator interface {
	Generate(ctx context.Context, text string, count int) ([]ai.Card, error)
}

type UserReader interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	repo      Repository
	users     UserReader
	generator Generator
	now       func() time.Time
}

func NewService(repo Repository, users UserReader, generator Generator) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		generator: generator,
		now:       time.Now,
	}
}

// PlanOf returns the plan whose cap applies at now. A lapsed or inactive
// subscription falls back to free, as does a missing user row.
func PlanOf(
	ctx context.Context,
	users UserReader,
	userID string,
	now time.Time,
) (string, error) {
	u, err := users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return user.PlanFree, nil
		}
		return "", err
	}
	return subscription.Resolve(u, now).EffectivePlan(), nil
}

// QuotaWith computes the quota through repo, so callers holding a
// transaction see their own uncommitted inserts.
func QuotaWith(
	ctx context.Context,
	repo Repository,
	plan, userID string,
	now time.Time,
) (Quota, error) {
	used, err := repo.CountCreatedSince(ctx, userID, MonthStartUTC(now))
	if err != nil {
		return Quota{}, err
	}
	return ComputeQuota(plan, used), nil
}

func (s *Service) Quota(ctx context.Context, userID string) (Quota, error) {
	now := s.now()
	plan, err := PlanOf(ctx, s.users, userID, now)
	if err != nil {
		return Quota{}, err
	}

	return QuotaWith(ctx, s.repo, plan, userID, now)
}

// Generate produces at most min(10, remaining) cards. Nothing is persisted
// here; saving into a deck re-checks the quota.
func (s *Service) Generate(
	ctx context.Context,
	userID, text string,
) (*GenerateResponse, error) {
	quota, err := s.Quota(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quota.Exhausted() {
		return nil, core.QuotaExceededError(QuotaExceededMessage)
	}

	ctx, span := core.StartSpan(ctx, "flashcard.generate",
		attribute.String("plan", quota.Plan),
		attribute.Int("quota.remaining", quota.Remaining),
		attribute.Int("quota.desired", quota.DesiredCount),
	)
	defer span.End()

	cards, err := s.generator.Generate(ctx, text, quota.DesiredCount)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, core.UpstreamError(err, ai.Category(err))
	}

	if len(cards) == 0 {
		err := fmt.Errorf("generate: %w: no usable cards", ai.ErrResponseFormat)
		core.SetSpanError(ctx, err)
		return nil, core.UpstreamError(err, ai.Category(err))
	}

	if len(cards) > quota.DesiredCount {
		cards = cards[:quota.DesiredCount]
	}

	return &GenerateResponse{Flashcards: cards, Quota: quota}, nil
}

func (s *Service) Due(
	ctx context.Context,
	userID string,
	deckID *string,
	limit int,
) ([]Flashcard, error) {
	return s.repo.Due(ctx, DueParams{
		UserID: userID,
		DeckID: deckID,
		Now:    s.now(),
		Limit:  limit,
	})
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateFlashcardRequest,
) (*Flashcard, error) {
	card, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	card.Question = req.Question
	card.Answer = req.Answer

	if err := s.repo.UpdateContent(ctx, card); err != nil {
		return nil, err
	}

	return card, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
