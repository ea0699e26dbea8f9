// AngelaMos | 2026
// entity.go

package flashcard

import (
	"strings"
	"time"
)

type Flashcard struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	DeckID       string     `db:"deck_id"`
	Position     int        `db:"position"`
	Question     string     `db:"question"`
	Answer       string     `db:"answer"`
	Difficulty   string     `db:"difficulty"`
	Repetitions  int        `db:"repetitions"`
	LastReviewed *time.Time `db:"last_reviewed"`
	NextReview   *time.Time `db:"next_review"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

func NormalizeDifficulty(d string) string {
	return strings.ToUpper(strings.TrimSpace(d))
}

func IsKnownDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// IsDue reports whether the card should be shown at now. Cards that were
// never reviewed are always due.
func (f *Flashcard) IsDue(now time.Time) bool {
	return f.NextReview == nil || !f.NextReview.After(now)
}
