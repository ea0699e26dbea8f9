// AngelaMos | 2026
// handler.go

package deck

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, syncUser func(http.Handler) http.Handler,
) {
	r.Route("/decks", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(syncUser)
		r.Use(middleware.NoStore)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{deckID}", h.Get)
		r.Put("/{deckID}", h.Rename)
		r.Delete("/{deckID}", h.Delete)
		r.Post("/{deckID}/cards", h.AddCards)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	deck, cards, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, DeckDetailResponse{
		DeckResponse: ToDeckResponse(deck),
		Flashcards:   flashcard.ToFlashcardResponseList(cards),
	})
}

func (h *Handler) AddCards(w http.ResponseWriter, r *http.Request) {
	deckID, ok := deckIDParam(w, r)
	if !ok {
		return
	}

	var req AddCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	cards, err := h.service.AddCards(r.Context(), middleware.GetUserID(r.Context()), deckID, req.Cards)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "deck")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.Created(w, flashcard.ToFlashcardResponseList(cards))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListDecksParams{
		UserID:   middleware.GetUserID(r.Context()),
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
	}

	decks, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(w, ToDeckResponseList(decks), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	deckID, ok := deckIDParam(w, r)
	if !ok {
		return
	}

	deck, cards, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()), deckID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "deck")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, DeckDetailResponse{
		DeckResponse: ToDeckResponse(deck),
		Flashcards:   flashcard.ToFlashcardResponseList(cards),
	})
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	deckID, ok := deckIDParam(w, r)
	if !ok {
		return
	}

	var req RenameDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	deck, err := h.service.Rename(r.Context(), middleware.GetUserID(r.Context()), deckID, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "deck")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToDeckResponse(deck))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deckID, ok := deckIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetUserID(r.Context()), deckID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "deck")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func deckIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "deckID")
	if _, err := uuid.Parse(id); err != nil {
		core.NotFound(w, "deck")
		return "", false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
