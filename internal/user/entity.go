// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                    string     `db:"id"`
	Email                 string     `db:"email"`
	Plan                  string     `db:"plan"`
	SubscriptionStatus    string     `db:"subscription_status"`
	BillingCycle          *string    `db:"billing_cycle"`
	SubscriptionStartedAt *time.Time `db:"subscription_started_at"`
	SubscriptionEndsAt    *time.Time `db:"subscription_ends_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
	DeletedAt             *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
	PlanOrgs  = "orgs"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

func IsKnownPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanBasic, PlanPro, PlanOrgs:
		return true
	}
	return false
}

// Identity provider webhook event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type IdentityEvent struct {
	Type   string
	UserID string
	Email  string
}

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

// SyncResult reports how far a user write got. A partial outcome means the
// row exists but some profile fields were not stored; Err carries the cause.
type SyncResult struct {
	Outcome Outcome
	Err     error
}

func (r SyncResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}
