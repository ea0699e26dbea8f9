// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/mail"
	"github.com/carterperez-dev/flashdeck/internal/subscription"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

const webhookClaimTTL = 24 * time.Hour

type UserEnsurer interface {
	EnsureUser(ctx context.Context, id, email string) user.SyncResult
}

// Claimer is the fast-path duplicate filter for webhook deliveries.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type publicKeyer interface {
	PublicKey() string
}

type Service struct {
	db             core.TxRunner
	repo           Repository
	users          user.Repository
	ensurer        UserEnsurer
	gateways       map[string]Gateway
	defaultGateway string
	claims         Claimer
	mailer         mail.Mailer
	logger         *slog.Logger
	now            func() time.Time
}

type ServiceConfig struct {
	DB             core.TxRunner
	Repo           Repository
	Users          user.Repository
	Ensurer        UserEnsurer
	Gateways       []Gateway
	DefaultGateway string
	Claims         Claimer
	Mailer         mail.Mailer
	Logger         *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	gateways := make(map[string]Gateway, len(cfg.Gateways))
	for _, gw := range cfg.Gateways {
		gateways[gw.Name()] = gw
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		db:             cfg.DB,
		repo:           cfg.Repo,
		users:          cfg.Users,
		ensurer:        cfg.Ensurer,
		gateways:       gateways,
		defaultGateway: cfg.DefaultGateway,
		claims:         cfg.Claims,
		mailer:         cfg.Mailer,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *Service) gateway(name string) (Gateway, error) {
	if name == "" {
		name = s.defaultGateway
	}

	gw, ok := s.gateways[name]
	if !ok {
		return nil, core.ValidationError("payment gateway unavailable")
	}
	return gw, nil
}

// Gateways lists the configured gateway names.
func (s *Service) Gateways() []string {
	names := make([]string, 0, len(s.gateways))
	for name := range s.gateways {
		names = append(names, name)
	}
	return names
}

// CreateOrder opens an order with the gateway and records it as PENDING.
// The user row is ensured first; a partial write is accepted so the
// payment still has a user to reference.
func (s *Service) CreateOrder(
	ctx context.Context,
	userID, email string,
	req CreateOrderRequest,
) (*OrderResponse, error) {
	gw, err := s.gateway(req.Gateway)
	if err != nil {
		return nil, err
	}

	amount, err := subscription.Price(req.Plan, req.BillingCycle, gw.Currency())
	if err != nil {
		return nil, core.ValidationError("plan is not available for purchase")
	}

	ctx, span := core.StartSpan(ctx, "payment.create_order",
		attribute.String("payment.gateway", gw.Name()),
		attribute.String("payment.plan", req.Plan),
	)
	defer span.End()

	ensured := s.ensurer.EnsureUser(ctx, userID, email)
	switch ensured.Outcome {
	case user.OutcomeFailed:
		core.SetSpanError(ctx, ensured.Err)
		return nil, fmt.Errorf("create order: %w", ensured.Err)
	case user.OutcomePartial:
		s.logger.Warn("creating order after partial user sync",
			"user_id", userID,
			"error", ensured.Err,
		)
	}

	receipt := "rcpt_" + ksuid.New().String()

	order, err := gw.CreateOrder(ctx, OrderRequest{
		Receipt: receipt,
		Amount:  amount,
		Plan:    req.Plan,
		Cycle:   req.BillingCycle,
		UserID:  userID,
		Email:   email,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, core.UpstreamError(err, "payment gateway error")
	}

	currency := order.Currency
	if currency == "" {
		currency = gw.Currency()
	}

	p := &Payment{
		ID:           uuid.NewString(),
		OrderID:      order.ID,
		UserID:       userID,
		Plan:         req.Plan,
		BillingCycle: req.BillingCycle,
		Amount:       amount,
		Currency:     strings.ToUpper(currency),
		Gateway:      gw.Name(),
		Status:       StatusPending,
		Receipt:      receipt,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	resp := &OrderResponse{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Gateway:     p.Gateway,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Receipt:     p.Receipt,
		CheckoutURL: order.CheckoutURL,
	}
	if pk, ok := gw.(publicKeyer); ok {
		resp.KeyID = pk.PublicKey()
	}

	return resp, nil
}

func webhookClaimKey(gateway, eventID string) string {
	return "webhook:" + gateway + ":" + eventID
}

// HandleWebhook verifies and applies one gateway delivery. Deliveries are
// deduplicated by event id in redis and in webhook_events, and the payment
// row is locked so concurrent deliveries for one order serialize.
func (s *Service) HandleWebhook(
	ctx context.Context,
	gatewayName string,
	header http.Header,
	body []byte,
) (WebhookResult, error) {
	gw, ok := s.gateways[gatewayName]
	if !ok {
		return WebhookResult{}, core.NotFoundError("payment gateway")
	}

	event, err := gw.ParseWebhook(header, body)
	if err != nil {
		if errors.Is(err, core.ErrSignatureInvalid) {
			return WebhookResult{}, core.SignatureInvalidError()
		}
		return WebhookResult{}, core.ValidationError("malformed webhook payload")
	}

	if event.Kind == EventIgnored {
		return WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	ctx, span := core.StartSpan(ctx, "payment.webhook",
		attribute.String("payment.gateway", gatewayName),
		attribute.String("payment.event", event.Type),
	)
	defer span.End()

	key := webhookClaimKey(gatewayName, event.ID)
	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, key, webhookClaimTTL)
		if err != nil {
			s.logger.Warn("webhook claim unavailable", "key", key, "error", err)
		} else if !ok {
			core.AddSpanEvent(ctx, "webhook.duplicate_claim")
			return WebhookResult{Outcome: OutcomeDuplicate}, nil
		} else {
			claimed = true
		}
	}

	result, activated, err := s.applyEvent(ctx, gatewayName, event)
	if err != nil {
		core.SetSpanError(ctx, err)
		if claimed {
			if relErr := s.claims.Release(ctx, key); relErr != nil {
				s.logger.Warn("release webhook claim failed", "key", key, "error", relErr)
			}
		}
		return WebhookResult{}, err
	}

	if activated != nil {
		s.sendReceipt(ctx, activated.payment, activated.user)
	}

	s.logger.Info("payment webhook processed",
		"gateway", gatewayName,
		"event", event.Type,
		"outcome", result.Outcome,
		"payment_id", result.PaymentID,
	)

	return result, nil
}

type activation struct {
	payment *Payment
	user    *user.User
}

func (s *Service) applyEvent(
	ctx context.Context,
	gatewayName string,
	event *Event,
) (WebhookResult, *activation, error) {
	var (
		result    WebhookResult
		activated *activation
	)

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		payments := s.repo.WithTx(tx)

		fresh, err := payments.RecordEvent(ctx, gatewayName, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			result = WebhookResult{Outcome: OutcomeDuplicate}
			return nil
		}

		p, err := payments.GetByOrderForUpdate(ctx, gatewayName, event.OrderID)
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("webhook for unknown order",
				"gateway", gatewayName,
				"order_id", event.OrderID,
			)
			result = WebhookResult{Outcome: OutcomeIgnored}
			return nil
		}
		if err != nil {
			return err
		}

		if p.IsCompleted() {
			result = WebhookResult{Outcome: OutcomeDuplicate, PaymentID: p.ID, Status: p.Status}
			return nil
		}

		var paymentID *string
		if event.PaymentID != "" {
			paymentID = &event.PaymentID
		}

		if event.Kind == EventFailed {
			if err := payments.SetStatus(ctx, p.ID, StatusFailed, paymentID); err != nil {
				return err
			}
			result = WebhookResult{Outcome: OutcomeFailed, PaymentID: p.ID, Status: StatusFailed}
			return nil
		}

		if err := payments.SetStatus(ctx, p.ID, StatusCompleted, paymentID); err != nil {
			return err
		}
		p.Status = StatusCompleted

		users := s.users.WithTx(tx)
		u, err := users.GetByID(ctx, p.UserID)
		if errors.Is(err, core.ErrNotFound) {
			// The account was deleted after checkout. The capture is kept on
			// record but there is no subscription left to activate.
			s.logger.Warn("webhook for deleted user",
				"gateway", gatewayName,
				"payment_id", p.ID,
				"user_id", p.UserID,
			)
			result = WebhookResult{Outcome: OutcomeIgnored, PaymentID: p.ID, Status: StatusCompleted}
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		startedAt, endsAt := subscription.NextPeriod(u, p.Plan, p.BillingCycle, now)
		if err := users.ActivateSubscription(ctx, u.ID, p.Plan, p.BillingCycle, startedAt, endsAt); err != nil {
			return err
		}
		u.SubscriptionEndsAt = &endsAt

		result = WebhookResult{Outcome: OutcomeCompleted, PaymentID: p.ID, Status: StatusCompleted}
		activated = &activation{payment: p, user: u}
		return nil
	})
	if err != nil {
		return WebhookResult{}, nil, err
	}

	return result, activated, nil
}

func (s *Service) sendReceipt(ctx context.Context, p *Payment, u *user.User) {
	if s.mailer == nil || u.Email == "" {
		return
	}

	if err := s.mailer.Send(ctx, ReceiptMessage(p, u)); err != nil {
		s.logger.Warn("receipt mail failed",
			"payment_id", p.ID,
			"user_id", u.ID,
			"error", err,
		)
	}
}

// ReceiptMessage renders the confirmation sent after a completed payment.
func ReceiptMessage(p *Payment, u *user.User) mail.Message {
	amount := fmt.Sprintf("%s %d.%02d", p.Currency, p.Amount/100, p.Amount%100)

	var until string
	if u.SubscriptionEndsAt != nil {
		until = u.SubscriptionEndsAt.UTC().Format("January 2, 2006")
	}

	text := fmt.Sprintf(
		"Thanks for your purchase.\n\nPlan: %s (%s)\nAmount: %s\nReceipt: %s\nActive until: %s\n",
		p.Plan, p.BillingCycle, amount, p.Receipt, until,
	)

	return mail.Message{
		To:       u.Email,
		Subject:  "Your Flashdeck receipt " + p.Receipt,
		TextBody: text,
	}
}

func (s *Service) List(ctx context.Context, params ListPaymentsParams) ([]Payment, int, error) {
	return s.repo.ListByUser(ctx, params)
}

func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByStatus(ctx)
}

// PurgeWebhookEvents drops dedupe rows older than retention.
func (s *Service) PurgeWebhookEvents(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeEvents(ctx, s.now().Add(-retention))
}
