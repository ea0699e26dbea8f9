// AngelaMos | 2026
// service_test.go

package flashcard

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/flashdeck/internal/ai"
	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

type fakeRepo struct {
	cards []Flashcard
}

func (f *fakeRepo) WithTx(core.DBTX) Repository { return f }

func (f *fakeRepo) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	n := 0
	for _, c := range f.cards {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountCreatedSinceAll(_ context.Context, since time.Time) (int, error) {
	n := 0
	for _, c := range f.cards {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) find(userID, id string) (*Flashcard, error) {
	for i := range f.cards {
		if f.cards[i].ID == id && f.cards[i].UserID == userID {
			return &f.cards[i], nil
		}
	}
	return nil, fmt.Errorf("get flashcard: %w", core.ErrNotFound)
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id string) (*Flashcard, error) {
	c, err := f.find(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, userID, id string) (*Flashcard, error) {
	return f.GetByID(ctx, userID, id)
}

func (f *fakeRepo) ListByDeck(_ context.Context, deckID string) ([]Flashcard, error) {
	var out []Flashcard
	for _, c := range f.cards {
		if c.DeckID == deckID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) Due(_ context.Context, p DueParams) ([]Flashcard, error) {
	p.Normalize()
	var out []Flashcard
	for _, c := range f.cards {
		if c.UserID == p.UserID && c.IsDue(p.Now) && (p.DeckID == nil || *p.DeckID == c.DeckID) {
			out = append(out, c)
		}
	}
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (f *fakeRepo) InsertBatch(_ context.Context, cards []Flashcard) error {
	f.cards = append(f.cards, cards...)
	return nil
}

func (f *fakeRepo) UpdateContent(_ context.Context, card *Flashcard) error {
	c, err := f.find(card.UserID, card.ID)
	if err != nil {
		return err
	}
	c.Question, c.Answer = card.Question, card.Answer
	return nil
}

func (f *fakeRepo) SaveReview(_ context.Context, card *Flashcard) error {
	c, err := f.find(card.UserID, card.ID)
	if err != nil {
		return err
	}
	*c = *card
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id string) error {
	for i := range f.cards {
		if f.cards[i].ID == id && f.cards[i].UserID == userID {
			f.cards = append(f.cards[:i], f.cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete flashcard: %w", core.ErrNotFound)
}

type stubUsers map[string]*user.User

func (s stubUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

type stubGenerator struct {
	calls     int
	lastCount int
	cards     []ai.Card
	err       error
}

func (g *stubGenerator) Generate(_ context.Context, _ string, count int) ([]ai.Card, error) {
	g.calls++
	g.lastCount = count
	return g.cards, g.err
}

var fixedNow = time.Date(2026, 6, 18, 10, 0, 0, 0, time.UTC)

func seedCards(userID string, n int, at time.Time) []Flashcard {
	cards := make([]Flashcard, n)
	for i := range cards {
		cards[i] = Flashcard{
			ID:        fmt.Sprintf("%s-%d", userID, i),
			UserID:    userID,
			DeckID:    "deck-1",
			CreatedAt: at,
		}
	}
	return cards
}

func manyCards(n int) []ai.Card {
	cards := make([]ai.Card, n)
	for i := range cards {
		cards[i] = ai.Card{Question: fmt.Sprintf("Q%d", i), Answer: "A"}
	}
	return cards
}

func newTestService(repo *fakeRepo, users stubUsers, gen Generator) *Service {
	svc := NewService(repo, users, gen)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestGenerateQuotaExhausted(t *testing.T) {
	repo := &fakeRepo{cards: seedCards("u1", 10, fixedNow.Add(-time.Hour))}
	gen := &stubGenerator{cards: manyCards(10)}
	svc := newTestService(repo, stubUsers{"u1": {ID: "u1", Plan: user.PlanFree}}, gen)

	_, err := svc.Generate(context.Background(), "u1", "some text")

	require.Error(t, err)
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
	assert.Equal(t, "Monthly limit reached", appErr.Message)
	assert.Zero(t, gen.calls)
}

func TestGenerateIgnoresLastMonth(t *testing.T) {
	lastMonth := MonthStartUTC(fixedNow).Add(-time.Second)
	repo := &fakeRepo{cards: seedCards("u1", 10, lastMonth)}
	gen := &stubGenerator{cards: manyCards(10)}
	svc := newTestService(repo, stubUsers{}, gen)

	resp, err := svc.Generate(context.Background(), "u1", "some text")

	require.NoError(t, err)
	assert.Len(t, resp.Flashcards, 10)
	assert.Equal(t, 0, resp.Quota.Used)
}

func TestGenerateRequestsAndTruncatesToRemaining(t *testing.T) {
	repo := &fakeRepo{cards: seedCards("u1", 7, fixedNow.Add(-time.Hour))}
	gen := &stubGenerator{cards: manyCards(10)}
	svc := newTestService(repo, stubUsers{"u1": {ID: "u1", Plan: user.PlanFree}}, gen)

	resp, err := svc.Generate(context.Background(), "u1", "some text")

	require.NoError(t, err)
	assert.Equal(t, 3, gen.lastCount)
	assert.Len(t, resp.Flashcards, 3)
	assert.Equal(t, 3, resp.Quota.Remaining)
}

func TestGenerateUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		gen     *stubGenerator
		message string
	}{
		{
			name:    "network",
			gen:     &stubGenerator{err: fmt.Errorf("%w: dial tcp", ai.ErrNetwork)},
			message: "network error",
		},
		{
			name:    "format",
			gen:     &stubGenerator{err: fmt.Errorf("%w: bad json", ai.ErrResponseFormat)},
			message: "AI response format error",
		},
		{
			name:    "service",
			gen:     &stubGenerator{err: fmt.Errorf("%w: status 500", ai.ErrService)},
			message: "AI service error",
		},
		{
			name:    "empty result",
			gen:     &stubGenerator{cards: nil},
			message: "AI response format error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeRepo{}, stubUsers{}, tt.gen)

			_, err := svc.Generate(context.Background(), "u1", "text")

			var appErr *core.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
			assert.Equal(t, tt.message, appErr.Message)
			assert.ErrorIs(t, err, core.ErrUpstream)
		})
	}
}

func TestQuotaUsesPlanCap(t *testing.T) {
	repo := &fakeRepo{cards: seedCards("u1", 12, fixedNow.Add(-time.Hour))}
	svc := newTestService(repo, stubUsers{"u1": {
		ID:                 "u1",
		Plan:               user.PlanBasic,
		SubscriptionStatus: user.StatusActive,
	}}, &stubGenerator{})

	q, err := svc.Quota(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 500, q.Limit)
	assert.Equal(t, 12, q.Used)
	assert.Equal(t, 488, q.Remaining)
}

func TestQuotaFallsBackToFreeWhenSubscriptionLapsed(t *testing.T) {
	ended := fixedNow.Add(-48 * time.Hour)

	tests := []struct {
		name string
		user *user.User
	}{
		{
			name: "inactive and expired",
			user: &user.User{
				ID:                 "u1",
				Plan:               user.PlanPro,
				SubscriptionStatus: user.StatusInactive,
				SubscriptionEndsAt: &ended,
			},
		},
		{
			name: "active but past end date",
			user: &user.User{
				ID:                 "u1",
				Plan:               user.PlanPro,
				SubscriptionStatus: user.StatusActive,
				SubscriptionEndsAt: &ended,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{cards: seedCards("u1", 10, fixedNow.Add(-time.Hour))}
			gen := &stubGenerator{cards: manyCards(10)}
			svc := newTestService(repo, stubUsers{"u1": tt.user}, gen)

			q, err := svc.Quota(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, user.PlanFree, q.Plan)
			assert.Equal(t, 10, q.Limit)
			assert.Equal(t, 0, q.Remaining)

			_, err = svc.Generate(context.Background(), "u1", "text")
			var appErr *core.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
			assert.Zero(t, gen.calls)
		})
	}
}

func TestUpdateAndDeleteAreScopedToOwner(t *testing.T) {
	repo := &fakeRepo{cards: seedCards("u1", 1, fixedNow)}
	svc := newTestService(repo, stubUsers{}, &stubGenerator{})
	ctx := context.Background()

	_, err := svc.Update(ctx, "u2", "u1-0", UpdateFlashcardRequest{Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	card, err := svc.Update(ctx, "u1", "u1-0", UpdateFlashcardRequest{Question: "q", Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, "q", card.Question)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", "u1-0"), core.ErrNotFound)
	assert.NoError(t, svc.Delete(ctx, "u1", "u1-0"))
}

func TestDue(t *testing.T) {
	future := fixedNow.Add(time.Hour)
	cards := seedCards("u1", 3, fixedNow)
	cards[1].NextReview = &future
	repo := &fakeRepo{cards: cards}
	svc := newTestService(repo, stubUsers{}, &stubGenerator{})

	due, err := svc.Due(context.Background(), "u1", nil, 0)

	require.NoError(t, err)
	assert.Len(t, due, 2)
}
