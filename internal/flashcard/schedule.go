// AngelaMos | 2026
// schedule.go

package flashcard

import (
	"time"
)

const baseInterval = 24 * time.Hour

// NextReviewInterval is a flat lookup with no history: a miss always comes
// back in half a day, a hit waits by the submitted difficulty.
func NextReviewInterval(isCorrect bool, difficulty string) time.Duration {
	if !isCorrect {
		return baseInterval / 2
	}

	switch difficulty {
	case DifficultyEasy:
		return 7 * baseInterval
	case DifficultyMedium:
		return 3 * baseInterval
	case DifficultyHard:
		return baseInterval
	default:
		return 2 * baseInterval
	}
}

// ApplyReview records an answer on the card. The submitted difficulty
// replaces the stored one and nextReview is always derived here.
func ApplyReview(card *Flashcard, isCorrect bool, difficulty string, now time.Time) {
	next := now.Add(NextReviewInterval(isCorrect, difficulty))
	reviewed := now

	card.Difficulty = difficulty
	card.Repetitions++
	card.LastReviewed = &reviewed
	card.NextReview = &next
}
