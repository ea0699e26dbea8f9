// AngelaMos | 2026
// entity.go

package payment

import (
	"time"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type Payment struct {
	ID               string    `db:"id"`
	OrderID          string    `db:"order_id"`
	UserID           string    `db:"user_id"`
	Plan             string    `db:"plan"`
	BillingCycle     string    `db:"billing_cycle"`
	Amount           int64     `db:"amount"`
	Currency         string    `db:"currency"`
	Gateway          string    `db:"gateway"`
	Status           string    `db:"status"`
	GatewayPaymentID *string   `db:"gateway_payment_id"`
	Receipt          string    `db:"receipt"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// Webhook outcomes reported back to the gateway.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

type WebhookResult struct {
	Outcome   string `json:"outcome"`
	PaymentID string `json:"payment_id,omitempty"`
	Status    string `json:"status,omitempty"`
}
