// AngelaMos | 2026
// stripe.go

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
)

const (
	stripeDefaultBaseURL  = "https://api.stripe.com"
	stripeSignatureHeader = "Stripe-Signature"
)

type Stripe struct {
	secretKey     string
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
}

func NewStripe(cfg config.StripeConfig, httpClient *http.Client) *Stripe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = stripeDefaultBaseURL
	}

	currency := strings.ToUpper(cfg.Currency)
	if currency == "" {
		currency = "USD"
	}

	return &Stripe{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		baseURL:       baseURL,
		httpClient:    httpClient,
		now:           time.Now,
	}
}

func (s *Stripe) Name() string     { return GatewayStripe }
func (s *Stripe) Currency() string { return s.currency }

type stripeSession struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateOrder opens a Checkout Session. The session id is the order id.
func (s *Stripe) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	ctx, span := core.StartSpan(ctx, "payment.stripe.create_order",
		attribute.String("payment.receipt", req.Receipt),
		attribute.Int64("payment.amount", req.Amount),
	)
	defer span.End()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	form.Set("client_reference_id", req.Receipt)
	if req.Email != "" {
		form.Set("customer_email", req.Email)
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(s.currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]",
		fmt.Sprintf("Flashdeck %s (%s)", req.Plan, req.Cycle))
	form.Set("metadata[user_id]", req.UserID)
	form.Set("metadata[plan]", req.Plan)
	form.Set("metadata[billing_cycle]", req.Cycle)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create stripe request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Idempotency-Key", req.Receipt)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("stripe create session: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeError
		msg := resp.Status
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		err := fmt.Errorf("stripe create session: status %d: %s", resp.StatusCode, msg)
		core.SetSpanError(ctx, err)
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode stripe session: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("stripe create session: empty session id")
	}

	return &Order{
		ID:          session.ID,
		Amount:      session.AmountTotal,
		Currency:    strings.ToUpper(session.Currency),
		CheckoutURL: session.URL,
	}, nil
}

type stripeWebhook struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
			PaymentStatus string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Stripe) ParseWebhook(header http.Header, body []byte) (*Event, error) {
	if err := core.VerifyStripeSignature(s.webhookSecret, body, header.Get(stripeSignatureHeader), s.now()); err != nil {
		return nil, err
	}

	var hook stripeWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if hook.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrMalformedEvent)
	}

	obj := hook.Data.Object
	event := &Event{
		ID:        hook.ID,
		Type:      hook.Type,
		OrderID:   obj.ID,
		PaymentID: obj.PaymentIntent,
	}

	switch hook.Type {
	case "checkout.session.completed":
		// Delayed methods complete with payment_status unpaid and settle later.
		if obj.PaymentStatus == "paid" {
			event.Kind = EventPaid
		}
	case "checkout.session.async_payment_succeeded":
		event.Kind = EventPaid
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		event.Kind = EventFailed
	}

	if event.Kind != EventIgnored && event.OrderID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}

	return event, nil
}
