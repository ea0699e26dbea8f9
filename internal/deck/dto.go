// AngelaMos | 2026
// dto.go

package deck

import (
	"time"

	"github.com/carterperez-dev/flashdeck/internal/flashcard"
)

const MaxCardsPerSave = 100

type CardInput struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
	Answer   string `json:"answer"   validate:"required,min=1,max=4000"`
}

type CreateDeckRequest struct {
	Name  string      `json:"name"  validate:"required,min=1,max=120"`
	Cards []CardInput `json:"cards" validate:"max=100,dive"`
}

type AddCardsRequest struct {
	Cards []CardInput `json:"cards" validate:"required,min=1,max=100,dive"`
}

type RenameDeckRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type DeckResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CardCount int       `json:"card_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DeckDetailResponse struct {
	DeckResponse
	Flashcards []flashcard.FlashcardResponse `json:"flashcards"`
}

type ListDecksParams struct {
	UserID   string
	Page     int
	PageSize int
	Search   string
}

func (p *ListDecksParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListDecksParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToDeckResponse(d *Deck) DeckResponse {
	return DeckResponse{
		ID:        d.ID,
		Name:      d.Name,
		CardCount: d.CardCount,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func ToDeckResponseList(decks []Deck) []DeckResponse {
	responses := make([]DeckResponse, 0, len(decks))
	for _, d := range decks {
		responses = append(responses, ToDeckResponse(&d))
	}
	return responses
}
