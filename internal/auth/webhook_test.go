// AngelaMos | 2026
// webhook_test.go

package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("identity-webhook-secret"))

type recordingApplier struct {
	events []user.IdentityEvent
	result user.SyncResult
}

func (r *recordingApplier) ApplyIdentityEvent(_ context.Context, e user.IdentityEvent) user.SyncResult {
	r.events = append(r.events, e)
	return r.result
}

const createdPayload = `{"type":"user.created","data":{"id":"user_2abc","primary_email_address_id":"idn_2","email_addresses":[{"id":"idn_1","email_address":"old@example.com"},{"id":"idn_2","email_address":"ada@example.com"}]}}`

func signedRequest(t *testing.T, secret, body string, ts time.Time) *http.Request {
	t.Helper()

	stamp := strconv.FormatInt(ts.Unix(), 10)
	sig, err := core.SignSvix(secret, "msg_1", stamp, []byte(body))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(body))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", stamp)
	req.Header.Set("svix-signature", "v1,"+sig)
	return req
}

func newTestWebhook(applier *recordingApplier, now time.Time) *WebhookHandler {
	h := NewWebhookHandler(testSecret, applier, nil)
	h.now = func() time.Time { return now }
	return h
}

func TestIdentityWebhookAppliesEvent(t *testing.T) {
	now := time.Now()
	applier := &recordingApplier{result: user.SyncResult{Outcome: user.OutcomeApplied}}
	h := newTestWebhook(applier, now)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, testSecret, createdPayload, now))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, applier.events, 1)
	assert.Equal(t, user.IdentityEvent{
		Type:   user.EventUserCreated,
		UserID: "user_2abc",
		Email:  "ada@example.com",
	}, applier.events[0])
}

func TestIdentityWebhookMissingHeaders(t *testing.T) {
	applier := &recordingApplier{}
	h := newTestWebhook(applier, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(createdPayload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, applier.events)
}

func TestIdentityWebhookBadSignature(t *testing.T) {
	now := time.Now()
	applier := &recordingApplier{}
	h := newTestWebhook(applier, now)

	other := "whsec_" + base64.StdEncoding.EncodeToString([]byte("someone-else"))
	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, other, createdPayload, now))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, applier.events)
}

func TestIdentityWebhookStaleTimestamp(t *testing.T) {
	now := time.Now()
	applier := &recordingApplier{}
	h := newTestWebhook(applier, now)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, testSecret, createdPayload, now.Add(-time.Hour)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, applier.events)
}

func TestIdentityWebhookFailedSync(t *testing.T) {
	now := time.Now()
	applier := &recordingApplier{result: user.SyncResult{Outcome: user.OutcomeFailed, Err: errors.New("db down")}}
	h := newTestWebhook(applier, now)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, testSecret, createdPayload, now))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
