// AngelaMos | 2026
// dto.go

package payment

import (
	"time"
)

type CreateOrderRequest struct {
	Plan         string `json:"plan"          validate:"required,oneof=basic pro orgs"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
	Gateway      string `json:"gateway"       validate:"omitempty,oneof=razorpay stripe"`
}

type OrderResponse struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	Gateway     string `json:"gateway"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	// KeyID is the public key the browser checkout needs for Razorpay.
	KeyID string `json:"key_id,omitempty"`
}

type PaymentResponse struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Plan         string    `json:"plan"`
	BillingCycle string    `json:"billing_cycle"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Gateway      string    `json:"gateway"`
	Status       string    `json:"status"`
	Receipt      string    `json:"receipt"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListPaymentsParams struct {
	UserID   string
	Page     int
	PageSize int
}

func (p *ListPaymentsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p ListPaymentsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		OrderID:      p.OrderID,
		Plan:         p.Plan,
		BillingCycle: p.BillingCycle,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Gateway:      p.Gateway,
		Status:       p.Status,
		Receipt:      p.Receipt,
		CreatedAt:    p.CreatedAt,
	}
}

func ToPaymentResponseList(payments []Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}
