// AngelaMos | 2026
// razorpay.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
)

const (
	razorpayDefaultBaseURL  = "https://api.razorpay.com/v1"
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	baseURL       string
	httpClient    *http.Client
}

func NewRazorpay(cfg config.RazorpayConfig, httpClient *http.Client) *Razorpay {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = razorpayDefaultBaseURL
	}

	currency := strings.ToUpper(cfg.Currency)
	if currency == "" {
		currency = "INR"
	}

	return &Razorpay{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		baseURL:       baseURL,
		httpClient:    httpClient,
	}
}

func (r *Razorpay) Name() string     { return GatewayRazorpay }
func (r *Razorpay) Currency() string { return r.currency }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	ctx, span := core.StartSpan(ctx, "payment.razorpay.create_order",
		attribute.String("payment.receipt", req.Receipt),
		attribute.Int64("payment.amount", req.Amount),
	)
	defer span.End()

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount,
		Currency: r.currency,
		Receipt:  req.Receipt,
		Notes: map[string]string{
			"user_id":       req.UserID,
			"plan":          req.Plan,
			"billing_cycle": req.Cycle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal razorpay order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create razorpay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read razorpay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr razorpayError
		msg := resp.Status
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Description
		}
		err := fmt.Errorf("razorpay create order: status %d: %s", resp.StatusCode, msg)
		core.SetSpanError(ctx, err)
		return nil, err
	}

	var order razorpayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay create order: empty order id")
	}

	return &Order{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

type razorpayEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (r *Razorpay) ParseWebhook(header http.Header, body []byte) (*Event, error) {
	if err := core.VerifyHMACHex(r.webhookSecret, body, header.Get(razorpaySignatureHeader)); err != nil {
		return nil, err
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	event := &Event{
		ID:   header.Get(razorpayEventIDHeader),
		Type: hook.Event,
	}

	if p := hook.Payload.Payment; p != nil {
		event.OrderID = p.Entity.OrderID
		event.PaymentID = p.Entity.ID
	}
	if o := hook.Payload.Order; o != nil && event.OrderID == "" {
		event.OrderID = o.Entity.ID
	}

	switch hook.Event {
	case "payment.captured", "order.paid":
		event.Kind = EventPaid
	case "payment.failed":
		event.Kind = EventFailed
	default:
		event.Kind = EventIgnored
	}

	if event.Kind != EventIgnored && event.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedEvent)
	}

	// Older deliveries carry no event id header.
	if event.ID == "" {
		event.ID = hook.Event + ":" + event.OrderID + ":" + event.PaymentID
	}

	return event, nil
}

// PublicKey is the key id the browser checkout widget is opened with.
func (r *Razorpay) PublicKey() string { return r.keyID }
