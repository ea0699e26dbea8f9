// AngelaMos | 2026
// gateway.go

package payment

import (
	"context"
	"errors"
	"net/http"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
)

// ErrMalformedEvent marks a verified webhook whose body could not be read.
var ErrMalformedEvent = errors.New("malformed webhook event")

type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaid
	EventFailed
)

type Event struct {
	ID        string
	Type      string
	Kind      EventKind
	OrderID   string
	PaymentID string
}

type OrderRequest struct {
	Receipt string
	Amount  int64
	Plan    string
	Cycle   string
	UserID  string
	Email   string
}

type Order struct {
	ID          string
	Amount      int64
	Currency    string
	CheckoutURL string
}

type Gateway interface {
	Name() string
	Currency() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// ParseWebhook verifies the signature before reading the body.
	ParseWebhook(header http.Header, body []byte) (*Event, error)
}
