// AngelaMos | 2026
// repository.go

package study

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, userID, id string) (*Session, error)
	GetSessionForUpdate(ctx context.Context, userID, id string) (*Session, error)
	CloseSession(ctx context.Context, session *Session) error
	InsertRecord(ctx context.Context, record *Record) error
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

func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO study_sessions (id, user_id, start_time)
		VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.StartTime)
	if err != nil {
		return fmt.Errorf("create study session: %w", err)
	}

	return nil
}

func (r *repository) GetSession(ctx context.Context, userID, id string) (*Session, error) {
	query := `
		SELECT id, user_id, start_time, end_time
		FROM study_sessions
		WHERE id = $1 AND user_id = $2`

	return r.getSession(ctx, query, id, userID)
}

func (r *repository) GetSessionForUpdate(ctx context.Context, userID, id string) (*Session, error) {
	query := `
		SELECT id, user_id, start_time, end_time
		FROM study_sessions
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`

	return r.getSession(ctx, query, id, userID)
}

func (r *repository) getSession(ctx context.Context, query string, args ...any) (*Session, error) {
	var session Session
	err := r.db.GetContext(ctx, &session, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get study session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get study session: %w", err)
	}

	return &session, nil
}

// CloseSession sets the end time only if it is still unset.
func (r *repository) CloseSession(ctx context.Context, session *Session) error {
	query := `
		UPDATE study_sessions
		SET end_time = $3
		WHERE id = $1 AND user_id = $2 AND end_time IS NULL`

	result, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.EndTime)
	if err != nil {
		return fmt.Errorf("close study session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close study session: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("close study session: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) InsertRecord(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO study_records (id, session_id, flashcard_id, is_correct, time_spent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.SessionID,
		record.FlashcardID,
		record.IsCorrect,
		record.TimeSpent,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert study record: %w", err)
	}

	return nil
}
