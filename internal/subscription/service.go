// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

type UserReader interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	users UserReader
	now   func() time.Time
}

func NewService(users UserReader) *Service {
	return &Service{users: users, now: time.Now}
}

// GetStatus resolves the caller's subscription. A missing user is reported
// as the free tier rather than an error.
func (s *Service) GetStatus(ctx context.Context, userID string) (Status, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Resolve(nil, s.now()), nil
		}
		return Status{}, err
	}

	return Resolve(u, s.now()), nil
}

// PlanFor matches middleware.PlanLookup. Lookup failures fall back to free.
func (s *Service) PlanFor(ctx context.Context, userID string) string {
	status, err := s.GetStatus(ctx, userID)
	if err != nil {
		slog.Warn("plan lookup failed", "user_id", userID, "error", err)
		return user.PlanFree
	}
	return status.EffectivePlan()
}

func (s *Service) RequirePro(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, err := s.GetStatus(r.Context(), middleware.GetUserID(r.Context()))
		if err != nil {
			core.InternalServerError(w, err)
			return
		}

		if !status.CanAccessPro {
			core.JSONError(w, core.PlanRequiredError("Pro subscription required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
