// AngelaMos | 2026
// security.go

package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	stripeSignatureTolerance = 5 * time.Minute
	svixSignatureTolerance   = 5 * time.Minute
	svixSecretPrefix         = "whsec_"
)

func SignHMACHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACHex checks a hex encoded HMAC-SHA256 of payload. Used for
// Razorpay webhooks where the signature covers the raw request body.
func VerifyHMACHex(secret string, payload []byte, signature string) error {
	if secret == "" || signature == "" {
		return fmt.Errorf("verify signature: %w", ErrSignatureInvalid)
	}

	expected := SignHMACHex(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return fmt.Errorf("verify signature: %w", ErrSignatureInvalid)
	}

	return nil
}

// VerifyStripeSignature validates a Stripe-Signature header of the form
// "t=<unix>,v1=<hex>[,v1=<hex>]". The signed content is "<t>.<payload>".
func VerifyStripeSignature(
	secret string,
	payload []byte,
	header string,
	now time.Time,
) error {
	if secret == "" || header == "" {
		return fmt.Errorf("verify stripe signature: %w", ErrSignatureInvalid)
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("verify stripe signature: %w", ErrSignatureInvalid)
	}

	if err := checkTimestamp(timestamp, now, stripeSignatureTolerance); err != nil {
		return fmt.Errorf("verify stripe signature: %w", err)
	}

	signed := make([]byte, 0, len(timestamp)+1+len(payload))
	signed = append(signed, timestamp...)
	signed = append(signed, '.')
	signed = append(signed, payload...)
	expected := SignHMACHex(secret, signed)

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return fmt.Errorf("verify stripe signature: %w", ErrSignatureInvalid)
}

func SignSvix(secret, msgID, timestamp string, payload []byte) (string, error) {
	key, err := decodeSvixSecret(secret)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(payload)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifySvixSignature validates identity-provider webhooks. The signature
// header holds space separated "v1,<base64>" entries.
func VerifySvixSignature(
	secret, msgID, timestamp, signatureHeader string,
	payload []byte,
	now time.Time,
) error {
	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return fmt.Errorf("verify svix signature: %w", ErrSignatureInvalid)
	}

	if err := checkTimestamp(timestamp, now, svixSignatureTolerance); err != nil {
		return fmt.Errorf("verify svix signature: %w", err)
	}

	expected, err := SignSvix(secret, msgID, timestamp, payload)
	if err != nil {
		return fmt.Errorf("verify svix signature: %w", err)
	}

	for _, entry := range strings.Fields(signatureHeader) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return fmt.Errorf("verify svix signature: %w", ErrSignatureInvalid)
}

func decodeSvixSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrSignatureInvalid
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, svixSecretPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}

	return key, nil
}

func checkTimestamp(raw string, now time.Time, tolerance time.Duration) error {
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}

	diff := now.Sub(time.Unix(unix, 0))
	if diff < 0 {
		diff = -diff
	}

	if diff > tolerance {
		return ErrSignatureInvalid
	}

	return nil
}
