// AngelaMos | 2026
// repository.go

package flashcard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountCreatedSinceAll(ctx context.Context, since time.Time) (int, error)
	GetByID(ctx context.Context, userID, id string) (*Flashcard, error)
	GetForUpdate(ctx context.Context, userID, id string) (*Flashcard, error)
	ListByDeck(ctx context.Context, deckID string) ([]Flashcard, error)
	Due(ctx context.Context, params DueParams) ([]Flashcard, error)
	InsertBatch(ctx context.Context, cards []Flashcard) error
	UpdateContent(ctx context.Context, card *Flashcard) error
	SaveReview(ctx context.Context, card *Flashcard) error
	Delete(ctx context.Context, userID, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

const cardColumns = `id, user_id, deck_id, position, question, answer,
	difficulty, repetitions, last_reviewed, next_review, created_at, updated_at`

func (r *repository) CountCreatedSince(
	ctx context.Context,
	userID string,
	since time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM flashcards
		WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, since); err != nil {
		return 0, fmt.Errorf("count flashcards: %w", err)
	}

	return count, nil
}

func (r *repository) CountCreatedSinceAll(
	ctx context.Context,
	since time.Time,
) (int, error) {
	query := `SELECT COUNT(*) FROM flashcards WHERE created_at >= $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count all flashcards: %w", err)
	}

	return count, nil
}

func (r *repository) GetByID(
	ctx context.Context,
	userID, id string,
) (*Flashcard, error) {
	query := `SELECT ` + cardColumns + `
		FROM flashcards
		WHERE id = $1 AND user_id = $2`

	return r.getOne(ctx, query, id, userID)
}

func (r *repository) GetForUpdate(
	ctx context.Context,
	userID, id string,
) (*Flashcard, error) {
	query := `SELECT ` + cardColumns + `
		FROM flashcards
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`

	return r.getOne(ctx, query, id, userID)
}

func (r *repository) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*Flashcard, error) {
	var card Flashcard
	err := r.db.GetContext(ctx, &card, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get flashcard: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get flashcard: %w", err)
	}

	return &card, nil
}

func (r *repository) ListByDeck(
	ctx context.Context,
	deckID string,
) ([]Flashcard, error) {
	query := `SELECT ` + cardColumns + `
		FROM flashcards
		WHERE deck_id = $1
		ORDER BY position ASC, created_at ASC`

	cards := []Flashcard{}
	if err := r.db.SelectContext(ctx, &cards, query, deckID); err != nil {
		return nil, fmt.Errorf("list deck flashcards: %w", err)
	}

	return cards, nil
}

func (r *repository) Due(
	ctx context.Context,
	params DueParams,
) ([]Flashcard, error) {
	params.Normalize()

	query := `SELECT ` + cardColumns + `
		FROM flashcards
		WHERE user_id = $1
		  AND (next_review IS NULL OR next_review <= $2)
		  AND ($3::uuid IS NULL OR deck_id = $3::uuid)
		ORDER BY next_review ASC NULLS FIRST, position ASC
		LIMIT $4`

	cards := []Flashcard{}
	err := r.db.SelectContext(ctx, &cards, query,
		params.UserID,
		params.Now,
		params.DeckID,
		params.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due flashcards: %w", err)
	}

	return cards, nil
}

// InsertBatch writes all cards in one statement. Timestamps are filled in
// from the returned rows.
func (r *repository) InsertBatch(ctx context.Context, cards []Flashcard) error {
	if len(cards) == 0 {
		return nil
	}

	ids := make([]string, len(cards))
	positions := make([]int64, len(cards))
	questions := make([]string, len(cards))
	answers := make([]string, len(cards))
	difficulties := make([]string, len(cards))

	for i, c := range cards {
		ids[i] = c.ID
		positions[i] = int64(c.Position)
		questions[i] = c.Question
		answers[i] = c.Answer
		difficulties[i] = c.Difficulty
	}

	query := `
		INSERT INTO flashcards (id, user_id, deck_id, position, question, answer, difficulty)
		SELECT t.id, $2, $3, t.position, t.question, t.answer, t.difficulty
		FROM unnest($1::uuid[], $4::int[], $5::text[], $6::text[], $7::text[])
		     AS t(id, position, question, answer, difficulty)
		RETURNING id, created_at, updated_at`

	var rows []struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := r.db.SelectContext(ctx, &rows, query,
		pq.Array(ids),
		cards[0].UserID,
		cards[0].DeckID,
		pq.Array(positions),
		pq.Array(questions),
		pq.Array(answers),
		pq.Array(difficulties),
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("insert flashcards: %w", core.ErrNotFound)
		}
		return fmt.Errorf("insert flashcards: %w", err)
	}

	stamps := make(map[string]int, len(rows))
	for i, row := range rows {
		stamps[row.ID] = i
	}
	for i := range cards {
		if j, ok := stamps[cards[i].ID]; ok {
			cards[i].CreatedAt = rows[j].CreatedAt
			cards[i].UpdatedAt = rows[j].UpdatedAt
		}
	}

	return nil
}

func (r *repository) UpdateContent(ctx context.Context, card *Flashcard) error {
	query := `
		UPDATE flashcards
		SET question = $3, answer = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &card.UpdatedAt, query,
		card.ID,
		card.UserID,
		card.Question,
		card.Answer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update flashcard: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update flashcard: %w", err)
	}

	return nil
}

func (r *repository) SaveReview(ctx context.Context, card *Flashcard) error {
	query := `
		UPDATE flashcards
		SET difficulty = $3,
		    repetitions = $4,
		    last_reviewed = $5,
		    next_review = $6,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &card.UpdatedAt, query,
		card.ID,
		card.UserID,
		card.Difficulty,
		card.Repetitions,
		card.LastReviewed,
		card.NextReview,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save review: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM flashcards WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete flashcard: %w", core.ErrNotFound)
	}

	return nil
}
