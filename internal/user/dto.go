// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UserResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Plan                  string     `json:"plan"`
	SubscriptionStatus    string     `json:"subscription_status"`
	BillingCycle          *string    `json:"billing_cycle,omitempty"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at,omitempty"`
	SubscriptionEndsAt    *time.Time `json:"subscription_ends_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Plan     string `json:"plan"`
	Status   string `json:"status"`
}

func (p *ListUsersParams) Normalize() {
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

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Plan:                  u.Plan,
		SubscriptionStatus:    u.SubscriptionStatus,
		BillingCycle:          u.BillingCycle,
		SubscriptionStartedAt: u.SubscriptionStartedAt,
		SubscriptionEndsAt:    u.SubscriptionEndsAt,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
