// AngelaMos | 2026
// webhook.go

package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

const maxIdentityWebhookBody = 1 << 20

type IdentityEventApplier interface {
	ApplyIdentityEvent(ctx context.Context, event user.IdentityEvent) user.SyncResult
}

// WebhookHandler receives user lifecycle events from the identity provider.
// Deliveries are signed with the svix scheme.
type WebhookHandler struct {
	secret string
	users  IdentityEventApplier
	logger *slog.Logger
	now    func() time.Time
}

func NewWebhookHandler(secret string, users IdentityEventApplier, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret: secret,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/identity", h.Handle)
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type identityPayload struct {
	Type string `json:"type"`
	Data struct {
		ID                    string         `json:"id"`
		EmailAddresses        []emailAddress `json:"email_addresses"`
		PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	} `json:"data"`
}

func (p identityPayload) primaryEmail() string {
	for _, e := range p.Data.EmailAddresses {
		if e.ID == p.Data.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(p.Data.EmailAddresses) > 0 {
		return p.Data.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	msgID := r.Header.Get("svix-id")
	timestamp := r.Header.Get("svix-timestamp")
	signature := r.Header.Get("svix-signature")

	if msgID == "" || timestamp == "" || signature == "" {
		core.BadRequest(w, "missing webhook signature headers")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdentityWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable webhook body")
		return
	}

	if err := core.VerifySvixSignature(h.secret, msgID, timestamp, signature, body, h.now()); err != nil {
		h.logger.Warn("identity webhook rejected", "svix_id", msgID, "error", err)
		core.JSONError(w, core.SignatureInvalidError())
		return
	}

	var payload identityPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data.ID == "" {
		core.BadRequest(w, "malformed webhook payload")
		return
	}

	result := h.users.ApplyIdentityEvent(r.Context(), user.IdentityEvent{
		Type:   payload.Type,
		UserID: payload.Data.ID,
		Email:  payload.primaryEmail(),
	})

	switch result.Outcome {
	case user.OutcomeFailed:
		core.InternalServerError(w, result.Err)
		return
	case user.OutcomePartial:
		h.logger.Warn("identity event applied partially",
			"type", payload.Type,
			"user_id", payload.Data.ID,
			"error", result.Err,
		)
	}

	core.OK(w, map[string]string{"outcome": string(result.Outcome)})
}
