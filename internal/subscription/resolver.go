// AngelaMos | 2026
// resolver.go

package subscription

import (
	"time"

	"github.com/carterperez-dev/flashdeck/internal/user"
)

type Status struct {
	Plan         string     `json:"plan"`
	Status       string     `json:"status"`
	IsActive     bool       `json:"is_active"`
	IsExpired    bool       `json:"is_expired"`
	CanAccessPro bool       `json:"can_access_pro"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Resolve derives the subscription state from the stored fields. A nil user
// resolves to the free tier with every flag false.
func Resolve(u *user.User, now time.Time) Status {
	if u == nil {
		return Status{
			Plan:   user.PlanFree,
			Status: user.StatusInactive,
		}
	}

	plan := u.Plan
	if plan == "" {
		plan = user.PlanFree
	}

	status := u.SubscriptionStatus
	if status == "" {
		status = user.StatusInactive
	}

	isExpired := u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.Before(now)
	isActive := status == user.StatusActive && !isExpired

	return Status{
		Plan:         plan,
		Status:       status,
		IsActive:     isActive,
		IsExpired:    isExpired,
		CanAccessPro: isActive && IsProPlan(plan),
		ExpiresAt:    u.SubscriptionEndsAt,
	}
}

// EffectivePlan is the plan whose perks currently apply.
func (s Status) EffectivePlan() string {
	if s.IsActive {
		return s.Plan
	}
	return user.PlanFree
}
