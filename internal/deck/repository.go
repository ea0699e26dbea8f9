// AngelaMos | 2026
// repository.go

package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	Create(ctx context.Context, deck *Deck) error
	GetByID(ctx context.Context, userID, id string) (*Deck, error)
	GetForUpdate(ctx context.Context, userID, id string) (*Deck, error)
	NextPosition(ctx context.Context, deckID string) (int, error)
	List(ctx context.Context, params ListDecksParams) ([]Deck, int, error)
	Rename(ctx context.Context, deck *Deck) error
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

func (r *repository) Create(ctx context.Context, deck *Deck) error {
	query := `
		INSERT INTO decks (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, deck, query, deck.ID, deck.UserID, deck.Name)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create deck: unknown user: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create deck: %w", err)
	}

	return nil
}

const deckSelect = `
	SELECT d.id, d.user_id, d.name, d.created_at, d.updated_at,
	       (SELECT COUNT(*) FROM flashcards f WHERE f.deck_id = d.id) AS card_count
	FROM decks d`

func (r *repository) GetByID(ctx context.Context, userID, id string) (*Deck, error) {
	query := deckSelect + ` WHERE d.id = $1 AND d.user_id = $2`

	var deck Deck
	err := r.db.GetContext(ctx, &deck, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get deck: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get deck: %w", err)
	}

	return &deck, nil
}

func (r *repository) GetForUpdate(ctx context.Context, userID, id string) (*Deck, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM decks
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`

	var deck Deck
	err := r.db.GetContext(ctx, &deck, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock deck: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock deck: %w", err)
	}

	return &deck, nil
}

func (r *repository) NextPosition(ctx context.Context, deckID string) (int, error) {
	query := `SELECT COALESCE(MAX(position) + 1, 0) FROM flashcards WHERE deck_id = $1`

	var pos int
	if err := r.db.GetContext(ctx, &pos, query, deckID); err != nil {
		return 0, fmt.Errorf("next card position: %w", err)
	}

	return pos, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListDecksParams,
) ([]Deck, int, error) {
	params.Normalize()

	conditions := []string{"d.user_id = $1"}
	args := []any{params.UserID}
	argIdx := 2

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("d.name ILIKE $%d", argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM decks d WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count decks: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY d.updated_at DESC
		LIMIT $%d OFFSET $%d`,
		deckSelect, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	decks := []Deck{}
	if err := r.db.SelectContext(ctx, &decks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list decks: %w", err)
	}

	return decks, total, nil
}

func (r *repository) Rename(ctx context.Context, deck *Deck) error {
	query := `
		UPDATE decks
		SET name = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &deck.UpdatedAt, query, deck.ID, deck.UserID, deck.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rename deck: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("rename deck: %w", err)
	}

	return nil
}

// Delete removes the deck; flashcards go with it through ON DELETE CASCADE.
func (r *repository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM decks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete deck: %w", core.ErrNotFound)
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
