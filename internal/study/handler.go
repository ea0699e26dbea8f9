// AngelaMos | 2026
// handler.go

package study

import (
	"encoding/json"
	"errors"
	"net/http"

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
	r.Route("/study", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(syncUser)
		r.Use(middleware.NoStore)

		r.Post("/sessions", h.StartSession)
		r.Post("/sessions/{sessionID}/complete", h.CompleteSession)
		r.Post("/records", h.RecordAnswer)
	})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.StartSession(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToSessionResponse(session))
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := uuid.Parse(id); err != nil {
		core.NotFound(w, "study session")
		return
	}

	session, err := h.service.CompleteSession(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "study session")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSessionResponse(session))
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	var req RecordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Normalize()

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	record, card, err := h.service.RecordAnswer(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionClosed):
			core.BadRequest(w, "study session already completed")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "flashcard or study session")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, AnswerResponse{
		Record:    ToRecordResponse(record),
		Flashcard: flashcard.ToFlashcardResponse(card),
	})
}
