// AngelaMos | 2026
// security_test.go

package core

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyHMACHex(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignHMACHex("shh", body)

	assert.NoError(t, VerifyHMACHex("shh", body, sig))
	assert.ErrorIs(t, VerifyHMACHex("other", body, sig), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifyHMACHex("shh", []byte(`{}`), sig), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifyHMACHex("shh", body, ""), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifyHMACHex("", body, sig), ErrSignatureInvalid)
}

func TestVerifyStripeSignature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	body := []byte(`{"id":"evt_1"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := SignHMACHex("whsec", []byte(ts+"."+string(body)))

	t.Run("valid", func(t *testing.T) {
		header := fmt.Sprintf("t=%s,v1=deadbeef,v1=%s", ts, sig)
		assert.NoError(t, VerifyStripeSignature("whsec", body, header, now))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := fmt.Sprintf("t=%s,v1=%s", ts, sig)
		err := VerifyStripeSignature("whsec", body, header, now.Add(10*time.Minute))
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := fmt.Sprintf("t=%s,v1=%s", ts, sig)
		err := VerifyStripeSignature("whsec", []byte(`{"id":"evt_2"}`), header, now)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("malformed header", func(t *testing.T) {
		err := VerifyStripeSignature("whsec", body, "garbage", now)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}

func TestVerifySvixSignature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("identity-secret"))
	body := []byte(`{"type":"user.created"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	sig, err := SignSvix(secret, "msg_1", ts, body)
	require.NoError(t, err)

	assert.NoError(t, VerifySvixSignature(secret, "msg_1", ts, "v1,bogus v1,"+sig, body, now))
	assert.ErrorIs(t,
		VerifySvixSignature(secret, "msg_2", ts, "v1,"+sig, body, now),
		ErrSignatureInvalid,
	)
	assert.ErrorIs(t,
		VerifySvixSignature(secret, "msg_1", ts, "", body, now),
		ErrSignatureInvalid,
	)
	assert.ErrorIs(t,
		VerifySvixSignature(secret, "msg_1", ts, "v1,"+sig, body, now.Add(time.Hour)),
		ErrSignatureInvalid,
	)
}
