// AngelaMos | 2026
// service.go

package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
)

var ErrSessionClosed = errors.New("study session already completed")

type Service struct {
	db    core.TxRunner
	repo  Repository
	cards flashcard.Repository
	now   func() time.Time
}

func NewService(db core.TxRunner, repo Repository, cards flashcard.Repository) *Service {
	return &Service{
		db:    db,
		repo:  repo,
		cards: cards,
		now:   time.Now,
	}
}

func (s *Service) StartSession(ctx context.Context, userID string) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartTime: s.now().UTC(),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// RecordAnswer applies the review rule to the card and appends the answer
// to the session in one transaction.
func (s *Service) RecordAnswer(
	ctx context.Context,
	userID string,
	req RecordAnswerRequest,
) (*Record, *flashcard.Flashcard, error) {
	ctx, span := core.StartSpan(ctx, "study.record_answer",
		attribute.String("flashcard.id", req.FlashcardID),
		attribute.Bool("answer.correct", *req.IsCorrect),
	)
	defer span.End()

	now := s.now().UTC()
	req.Normalize()
	difficulty := req.Difficulty

	var (
		record *Record
		card   *flashcard.Flashcard
	)
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		sessions := s.repo.WithTx(tx)
		session, err := sessions.GetSession(ctx, userID, req.SessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return fmt.Errorf("record answer: %w", ErrSessionClosed)
		}

		cards := s.cards.WithTx(tx)
		card, err = cards.GetForUpdate(ctx, userID, req.FlashcardID)
		if err != nil {
			return err
		}

		flashcard.ApplyReview(card, *req.IsCorrect, difficulty, now)
		if err := cards.SaveReview(ctx, card); err != nil {
			return err
		}

		record = &Record{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			FlashcardID: card.ID,
			IsCorrect:   *req.IsCorrect,
			TimeSpent:   req.TimeSpent,
			CreatedAt:   now,
		}
		return sessions.InsertRecord(ctx, record)
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, nil, err
	}

	return record, card, nil
}

// CompleteSession stamps the end time. A session that is already closed is
// returned unchanged.
func (s *Service) CompleteSession(
	ctx context.Context,
	userID, sessionID string,
) (*Session, error) {
	var session *Session
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		sessions := s.repo.WithTx(tx)

		var err error
		session, err = sessions.GetSessionForUpdate(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return nil
		}

		end := s.now().UTC()
		session.EndTime = &end
		return sessions.CloseSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}
