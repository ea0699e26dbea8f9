// AngelaMos | 2026
// service.go

package deck

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
)

type Service struct {
	db    core.TxRunner
	repo  Repository
	cards flashcard.Repository
	users flashcard.UserReader
	lock  func(ctx context.Context, tx core.DBTX, key string) error
	now   func() time.Time
}

func NewService(
	db core.TxRunner,
	repo Repository,
	cards flashcard.Repository,
	users flashcard.UserReader,
) *Service {
	return &Service{
		db:    db,
		repo:  repo,
		cards: cards,
		users: users,
		lock:  core.LockKey,
		now:   time.Now,
	}
}

func quotaLockKey(userID string) string {
	return "quota:" + userID
}

// Create saves a deck and its cards in one transaction. The monthly quota
// is re-counted under a per-user lock so concurrent saves cannot overshoot.
func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateDeckRequest,
) (*Deck, []flashcard.Flashcard, error) {
	plan, err := flashcard.PlanOf(ctx, s.users, userID, s.now())
	if err != nil {
		return nil, nil, err
	}

	deck := &Deck{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   strings.TrimSpace(req.Name),
	}

	var saved []flashcard.Flashcard
	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.lock(ctx, tx, quotaLockKey(userID)); err != nil {
			return err
		}

		cards := s.cards.WithTx(tx)
		if err := s.checkQuota(ctx, cards, plan, userID, len(req.Cards)); err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Create(ctx, deck); err != nil {
			return err
		}

		saved = buildCards(userID, deck.ID, 0, req.Cards)
		return cards.InsertBatch(ctx, saved)
	})
	if err != nil {
		return nil, nil, err
	}

	deck.CardCount = len(saved)
	return deck, saved, nil
}

// AddCards appends cards to an existing deck under the same quota rules as
// Create.
func (s *Service) AddCards(
	ctx context.Context,
	userID, deckID string,
	inputs []CardInput,
) ([]flashcard.Flashcard, error) {
	plan, err := flashcard.PlanOf(ctx, s.users, userID, s.now())
	if err != nil {
		return nil, err
	}

	var saved []flashcard.Flashcard
	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.lock(ctx, tx, quotaLockKey(userID)); err != nil {
			return err
		}

		decks := s.repo.WithTx(tx)
		if _, err := decks.GetForUpdate(ctx, userID, deckID); err != nil {
			return err
		}

		cards := s.cards.WithTx(tx)
		if err := s.checkQuota(ctx, cards, plan, userID, len(inputs)); err != nil {
			return err
		}

		start, err := decks.NextPosition(ctx, deckID)
		if err != nil {
			return err
		}

		saved = buildCards(userID, deckID, start, inputs)
		return cards.InsertBatch(ctx, saved)
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func (s *Service) checkQuota(
	ctx context.Context,
	cards flashcard.Repository,
	plan, userID string,
	adding int,
) error {
	if adding == 0 {
		return nil
	}

	quota, err := flashcard.QuotaWith(ctx, cards, plan, userID, s.now())
	if err != nil {
		return err
	}

	if adding > quota.Remaining {
		return core.QuotaExceededError(flashcard.QuotaExceededMessage)
	}

	return nil
}

func buildCards(
	userID, deckID string,
	start int,
	inputs []CardInput,
) []flashcard.Flashcard {
	cards := make([]flashcard.Flashcard, 0, len(inputs))
	for i, in := range inputs {
		cards = append(cards, flashcard.Flashcard{
			ID:         uuid.NewString(),
			UserID:     userID,
			DeckID:     deckID,
			Position:   start + i,
			Question:   strings.TrimSpace(in.Question),
			Answer:     strings.TrimSpace(in.Answer),
			Difficulty: flashcard.DifficultyMedium,
		})
	}
	return cards
}

func (s *Service) Get(
	ctx context.Context,
	userID, id string,
) (*Deck, []flashcard.Flashcard, error) {
	deck, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	cards, err := s.cards.ListByDeck(ctx, deck.ID)
	if err != nil {
		return nil, nil, err
	}

	return deck, cards, nil
}

func (s *Service) List(
	ctx context.Context,
	params ListDecksParams,
) ([]Deck, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Rename(
	ctx context.Context,
	userID, id, name string,
) (*Deck, error) {
	deck, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	deck.Name = strings.TrimSpace(name)
	if err := s.repo.Rename(ctx, deck); err != nil {
		return nil, err
	}

	return deck, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
