// AngelaMos | 2026
// dto.go

package study

import (
	"time"

	"github.com/carterperez-dev/flashdeck/internal/flashcard"
)

type RecordAnswerRequest struct {
	SessionID   string `json:"session_id"   validate:"required,uuid"`
	FlashcardID string `json:"flashcard_id" validate:"required,uuid"`
	IsCorrect   *bool  `json:"is_correct"   validate:"required"`
	Difficulty  string `json:"difficulty"   validate:"required,oneof=EASY MEDIUM HARD"`
	TimeSpent   int    `json:"time_spent"   validate:"min=0,max=86400"`
}

// Normalize upper-cases the difficulty so "hard" and " Hard" validate.
func (r *RecordAnswerRequest) Normalize() {
	r.Difficulty = flashcard.NormalizeDifficulty(r.Difficulty)
}

type SessionResponse struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type RecordResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	FlashcardID string    `json:"flashcard_id"`
	IsCorrect   bool      `json:"is_correct"`
	TimeSpent   int       `json:"time_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

type AnswerResponse struct {
	Record    RecordResponse              `json:"record"`
	Flashcard flashcard.FlashcardResponse `json:"flashcard"`
}

func ToSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

func ToRecordResponse(r *Record) RecordResponse {
	return RecordResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		FlashcardID: r.FlashcardID,
		IsCorrect:   r.IsCorrect,
		TimeSpent:   r.TimeSpent,
		CreatedAt:   r.CreatedAt,
	}
}
