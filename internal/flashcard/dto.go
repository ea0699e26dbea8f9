// AngelaMos | 2026
// dto.go

package flashcard

import (
	"time"

	"github.com/carterperez-dev/flashdeck/internal/ai"
)

type GenerateRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

type GenerateResponse struct {
	Flashcards []ai.Card `json:"flashcards"`
	Quota      Quota     `json:"quota"`
}

type UpdateFlashcardRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
	Answer   string `json:"answer"   validate:"required,min=1,max=4000"`
}

type FlashcardResponse struct {
	ID           string     `json:"id"`
	DeckID       string     `json:"deck_id"`
	Position     int        `json:"position"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Difficulty   string     `json:"difficulty"`
	Repetitions  int        `json:"repetitions"`
	LastReviewed *time.Time `json:"last_reviewed"`
	NextReview   *time.Time `json:"next_review"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type DueParams struct {
	UserID string
	DeckID *string
	Now    time.Time
	Limit  int
}

func (p *DueParams) Normalize() {
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

func ToFlashcardResponse(f *Flashcard) FlashcardResponse {
	return FlashcardResponse{
		ID:           f.ID,
		DeckID:       f.DeckID,
		Position:     f.Position,
		Question:     f.Question,
		Answer:       f.Answer,
		Difficulty:   f.Difficulty,
		Repetitions:  f.Repetitions,
		LastReviewed: f.LastReviewed,
		NextReview:   f.NextReview,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func ToFlashcardResponseList(cards []Flashcard) []FlashcardResponse {
	responses := make([]FlashcardResponse, 0, len(cards))
	for _, c := range cards {
		responses = append(responses, ToFlashcardResponse(&c))
	}
	return responses
}
