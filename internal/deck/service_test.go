// AngelaMos | 2026
// service_test.go

package deck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

// store is shared by the fakes; mu guards it and stands in for the
// per-user advisory lock.
type store struct {
	mu    sync.Mutex
	lock  sync.Mutex
	decks map[string]*Deck
	cards []flashcard.Flashcard
}

func newStore() *store {
	return &store{decks: make(map[string]*Deck)}
}

type fakeTx struct {
	s      *store
	mu     sync.Mutex
	locked int
}

func (f *fakeTx) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	defer func() {
		f.mu.Lock()
		if f.locked > 0 {
			f.locked--
			f.s.lock.Unlock()
		}
		f.mu.Unlock()
	}()
	return fn(nil)
}

func (f *fakeTx) lockKey(context.Context, core.DBTX, string) error {
	f.s.lock.Lock()
	f.mu.Lock()
	f.locked++
	f.mu.Unlock()
	return nil
}

type fakeDecks struct{ s *store }

func (f fakeDecks) WithTx(core.DBTX) Repository { return f }

func (f fakeDecks) Create(_ context.Context, d *Deck) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	f.s.decks[d.ID] = &cp
	return nil
}

func (f fakeDecks) GetByID(_ context.Context, userID, id string) (*Deck, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.decks[id]
	if !ok || d.UserID != userID {
		return nil, fmt.Errorf("get deck: %w", core.ErrNotFound)
	}
	cp := *d
	for _, c := range f.s.cards {
		if c.DeckID == id {
			cp.CardCount++
		}
	}
	return &cp, nil
}

func (f fakeDecks) GetForUpdate(ctx context.Context, userID, id string) (*Deck, error) {
	return f.GetByID(ctx, userID, id)
}

func (f fakeDecks) NextPosition(_ context.Context, deckID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	next := 0
	for _, c := range f.s.cards {
		if c.DeckID == deckID && c.Position >= next {
			next = c.Position + 1
		}
	}
	return next, nil
}

func (f fakeDecks) List(context.Context, ListDecksParams) ([]Deck, int, error) {
	return nil, 0, nil
}

func (f fakeDecks) Rename(_ context.Context, d *Deck) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stored, ok := f.s.decks[d.ID]
	if !ok || stored.UserID != d.UserID {
		return fmt.Errorf("rename deck: %w", core.ErrNotFound)
	}
	stored.Name = d.Name
	return nil
}

func (f fakeDecks) Delete(_ context.Context, userID, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.decks[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("delete deck: %w", core.ErrNotFound)
	}
	delete(f.s.decks, id)
	kept := f.s.cards[:0]
	for _, c := range f.s.cards {
		if c.DeckID != id {
			kept = append(kept, c)
		}
	}
	f.s.cards = kept
	return nil
}

type fakeCards struct {
	s *store
	flashcard.Repository
}

func (f fakeCards) WithTx(core.DBTX) flashcard.Repository { return f }

func (f fakeCards) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, c := range f.s.cards {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f fakeCards) InsertBatch(_ context.Context, cards []flashcard.Flashcard) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i := range cards {
		cards[i].CreatedAt = fixedNow
	}
	f.s.cards = append(f.s.cards, cards...)
	return nil
}

func (f fakeCards) ListByDeck(_ context.Context, deckID string) ([]flashcard.Flashcard, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []flashcard.Flashcard
	for _, c := range f.s.cards {
		if c.DeckID == deckID {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubUsers map[string]*user.User

func (s stubUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

var fixedNow = time.Date(2026, 6, 18, 10, 0, 0, 0, time.UTC)

func newTestService(users stubUsers) (*Service, *store) {
	s := newStore()
	tx := &fakeTx{s: s}
	svc := NewService(tx, fakeDecks{s: s}, fakeCards{s: s}, users)
	svc.lock = tx.lockKey
	svc.now = func() time.Time { return fixedNow }
	return svc, s
}

func inputs(n int) []CardInput {
	out := make([]CardInput, n)
	for i := range out {
		out[i] = CardInput{Question: fmt.Sprintf(" Q%d ", i), Answer: "A"}
	}
	return out
}

func TestCreateSavesOrderedCards(t *testing.T) {
	svc, _ := newTestService(stubUsers{})
	ctx := context.Background()

	deck, cards, err := svc.Create(ctx, "u1", CreateDeckRequest{Name: " Biology ", Cards: inputs(3)})
	require.NoError(t, err)

	assert.Equal(t, "Biology", deck.Name)
	assert.Equal(t, 3, deck.CardCount)
	require.Len(t, cards, 3)
	for i, c := range cards {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, deck.ID, c.DeckID)
		assert.Equal(t, fmt.Sprintf("Q%d", i), c.Question)
		assert.Equal(t, flashcard.DifficultyMedium, c.Difficulty)
		assert.Nil(t, c.NextReview)
	}

	_, got, err := svc.Get(ctx, "u1", deck.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCreateRejectsOverQuota(t *testing.T) {
	svc, s := newTestService(stubUsers{"u1": {ID: "u1", Plan: user.PlanFree}})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "u1", CreateDeckRequest{Name: "one", Cards: inputs(8)})
	require.NoError(t, err)

	_, _, err = svc.Create(ctx, "u1", CreateDeckRequest{Name: "two", Cards: inputs(3)})
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
	assert.Equal(t, "Monthly limit reached", appErr.Message)

	assert.Len(t, s.decks, 1)
	assert.Len(t, s.cards, 8)
}

func TestConcurrentSavesCannotOvershootQuota(t *testing.T) {
	svc, s := newTestService(stubUsers{"u1": {ID: "u1", Plan: user.PlanFree}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Create(context.Background(), "u1", CreateDeckRequest{
				Name:  "deck",
				Cards: inputs(3),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, core.ErrQuotaExceeded) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, rejected)
	assert.Len(t, s.cards, 9)
}

func TestAddCardsContinuesPositions(t *testing.T) {
	svc, _ := newTestService(stubUsers{"u1": {
		ID:                 "u1",
		Plan:               user.PlanPro,
		SubscriptionStatus: user.StatusActive,
	}})
	ctx := context.Background()

	deck, _, err := svc.Create(ctx, "u1", CreateDeckRequest{Name: "d", Cards: inputs(2)})
	require.NoError(t, err)

	added, err := svc.AddCards(ctx, "u1", deck.ID, inputs(2))
	require.NoError(t, err)
	assert.Equal(t, 2, added[0].Position)
	assert.Equal(t, 3, added[1].Position)

	_, err = svc.AddCards(ctx, "u2", deck.ID, inputs(1))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	svc, s := newTestService(stubUsers{})
	ctx := context.Background()

	deck, _, err := svc.Create(ctx, "u1", CreateDeckRequest{Name: "d", Cards: inputs(2)})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", deck.ID), core.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", deck.ID))
	assert.Empty(t, s.cards)
}
