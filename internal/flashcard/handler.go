// AngelaMos | 2026
// handler.go

package flashcard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

type Handler struct {
	service       *Service
	validator     *validator.Validate
	maxInputChars int
}

func NewHandler(service *Service, maxInputChars int) *Handler {
	return &Handler{
		service:       service,
		validator:     validator.New(validator.WithRequiredStructEnabled()),
		maxInputChars: maxInputChars,
	}
}

// RegisterRoutes mounts the flashcard routes. generateLimit wraps only the
// AI generation endpoint.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, syncUser, generateLimit func(http.Handler) http.Handler,
) {
	r.Route("/flashcards", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(syncUser)
		r.Use(middleware.NoStore)

		r.Get("/quota", h.GetQuota)
		r.With(generateLimit).Post("/generate", h.Generate)
		r.Get("/due", h.ListDue)
		r.Put("/{flashcardID}", h.Update)
		r.Delete("/{flashcardID}", h.Delete)
	})
}

func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	quota, err := h.service.Quota(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, quota)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if h.maxInputChars > 0 && utf8.RuneCountInString(req.Text) > h.maxInputChars {
		core.BadRequest(w, "text must be at most "+strconv.Itoa(h.maxInputChars)+" characters")
		return
	}

	resp, err := h.service.Generate(r.Context(), middleware.GetUserID(r.Context()), req.Text)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ListDue(w http.ResponseWriter, r *http.Request) {
	var deckID *string
	if raw := r.URL.Query().Get("deck_id"); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			core.BadRequest(w, "deck_id must be a valid id")
			return
		}
		deckID = &raw
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			core.BadRequest(w, "limit must be a number")
			return
		}
		limit = parsed
	}

	cards, err := h.service.Due(r.Context(), middleware.GetUserID(r.Context()), deckID, limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToFlashcardResponseList(cards))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "flashcardID")
	if _, err := uuid.Parse(id); err != nil {
		core.NotFound(w, "flashcard")
		return
	}

	var req UpdateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	card, err := h.service.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "flashcard")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToFlashcardResponse(card))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "flashcardID")
	if _, err := uuid.Parse(id); err != nil {
		core.NotFound(w, "flashcard")
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "flashcard")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
