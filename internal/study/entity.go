// AngelaMos | 2026
// entity.go

package study

import (
	"time"
)

type Session struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	StartTime time.Time  `db:"start_time"`
	EndTime   *time.Time `db:"end_time"`
}

func (s *Session) IsOpen() bool {
	return s.EndTime == nil
}

// Record is one answered card. Rows are append-only.
type Record struct {
	ID          string    `db:"id"`
	SessionID   string    `db:"session_id"`
	FlashcardID string    `db:"flashcard_id"`
	IsCorrect   bool      `db:"is_correct"`
	TimeSpent   int       `db:"time_spent"`
	CreatedAt   time.Time `db:"created_at"`
}
