// AngelaMos | 2026
// repository.go

package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	Records(ctx context.Context, userID string, f Filter) ([]RecordRow, error)
	Sessions(ctx context.Context, userID string, f Filter) ([]SessionRow, error)
	SessionSummaries(ctx context.Context, userID string, f Filter) ([]SessionSummary, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// where accumulates positional predicates.
type where struct {
	conditions []string
	args       []any
}

func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	return strings.Join(w.conditions, " AND ")
}

func recordWhere(userID string, f Filter) *where {
	w := &where{}
	w.add("s.user_id = $%d", userID)

	if f.Subject != nil {
		w.add("LOWER(d.name) = LOWER($%d)", *f.Subject)
	}
	if f.Difficulty != nil {
		w.add("fc.difficulty = $%d", *f.Difficulty)
	}
	if f.From != nil {
		w.add("r.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("r.created_at < $%d", *f.To)
	}

	return w
}

func (r *repository) Records(
	ctx context.Context,
	userID string,
	f Filter,
) ([]RecordRow, error) {
	w := recordWhere(userID, f)

	query := fmt.Sprintf(`
		SELECT r.flashcard_id, d.name AS deck_name, r.is_correct,
			r.time_spent, r.created_at
		FROM study_records r
		JOIN study_sessions s ON s.id = r.session_id
		JOIN flashcards fc ON fc.id = r.flashcard_id
		JOIN decks d ON d.id = fc.deck_id
		WHERE %s
		ORDER BY r.created_at ASC`, w)

	var rows []RecordRow
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("select study records: %w", err)
	}

	return rows, nil
}

func sessionWhere(userID string, f Filter) *where {
	w := &where{}
	w.add("s.user_id = $%d", userID)

	if f.Subject != nil {
		w.add(`EXISTS (
			SELECT 1 FROM study_records sr
			JOIN flashcards sf ON sf.id = sr.flashcard_id
			JOIN decks sd ON sd.id = sf.deck_id
			WHERE sr.session_id = s.id AND LOWER(sd.name) = LOWER($%d))`, *f.Subject)
	}
	if f.From != nil {
		w.add("s.start_time >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("s.start_time < $%d", *f.To)
	}

	return w
}

func (r *repository) Sessions(
	ctx context.Context,
	userID string,
	f Filter,
) ([]SessionRow, error) {
	w := sessionWhere(userID, f)

	query := fmt.Sprintf(`
		SELECT s.id, s.start_time, s.end_time
		FROM study_sessions s
		WHERE %s
		ORDER BY s.start_time ASC`, w)

	var rows []SessionRow
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("select study sessions: %w", err)
	}

	return rows, nil
}

func (r *repository) SessionSummaries(
	ctx context.Context,
	userID string,
	f Filter,
) ([]SessionSummary, error) {
	w := sessionWhere(userID, f)

	query := fmt.Sprintf(`
		SELECT s.id, s.start_time, s.end_time,
			COUNT(r.id) AS record_count,
			COALESCE(SUM(r.time_spent), 0) AS total_time_spent
		FROM study_sessions s
		LEFT JOIN study_records r ON r.session_id = s.id
		WHERE %s
		GROUP BY s.id, s.start_time, s.end_time
		ORDER BY s.start_time ASC`, w)

	var rows []SessionSummary
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("select session summaries: %w", err)
	}

	return rows, nil
}
