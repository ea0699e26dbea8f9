// AngelaMos | 2026
// verifier_test.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
)

const (
	testIssuer   = "https://clerk.example.com"
	testAudience = "flashdeck"
)

func newKeyPair(t *testing.T, kid string) (jwk.Key, jwk.Key) {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	private, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, private.Set(jwk.KeyIDKey, kid))
	require.NoError(t, private.Set(jwk.AlgorithmKey, jwa.ES256()))

	public, err := private.PublicKey()
	require.NoError(t, err)

	return private, public
}

type tokenOpts struct {
	subject string
	issuer  string
	expires time.Time
	email   string
	role    string
}

func signToken(t *testing.T, key jwk.Key, o tokenOpts) string {
	t.Helper()

	b := jwt.NewBuilder().
		Issuer(o.issuer).
		Audience([]string{testAudience}).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(o.expires)
	if o.subject != "" {
		b = b.Subject(o.subject)
	}
	if o.email != "" {
		b = b.Claim("email", o.email)
	}
	if o.role != "" {
		b = b.Claim("role", o.role)
	}

	token, err := b.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), key))
	require.NoError(t, err)

	return string(signed)
}

func validOpts() tokenOpts {
	return tokenOpts{
		subject: "user_2abc",
		issuer:  testIssuer,
		expires: time.Now().Add(time.Hour),
		email:   "ada@example.com",
	}
}

func TestVerifyAccessToken(t *testing.T) {
	private, public := newKeyPair(t, "k1")
	v := NewVerifierWithKey(public, jwa.ES256(), testIssuer, testAudience)

	opts := validOpts()
	opts.role = "admin"

	claims, err := v.VerifyAccessToken(context.Background(), signToken(t, private, opts))
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	private, public := newKeyPair(t, "k1")
	v := NewVerifierWithKey(public, jwa.ES256(), testIssuer, testAudience)

	opts := validOpts()
	opts.expires = time.Now().Add(-time.Hour)

	_, err := v.VerifyAccessToken(context.Background(), signToken(t, private, opts))
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	private, public := newKeyPair(t, "k1")
	otherPrivate, _ := newKeyPair(t, "k2")
	v := NewVerifierWithKey(public, jwa.ES256(), testIssuer, testAudience)

	wrongIssuer := validOpts()
	wrongIssuer.issuer = "https://evil.example.com"

	noSubject := validOpts()
	noSubject.subject = ""

	tests := map[string]string{
		"wrong issuer":  signToken(t, private, wrongIssuer),
		"no subject":    signToken(t, private, noSubject),
		"foreign key":   signToken(t, otherPrivate, validOpts()),
		"garbage token": "not.a.jwt",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyAccessToken(context.Background(), token)
			assert.ErrorIs(t, err, core.ErrTokenInvalid)
		})
	}
}

func TestVerifierFetchesJWKS(t *testing.T) {
	private, public := newKeyPair(t, "kid-jwks")

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(public))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	v, err := NewVerifier(context.Background(), config.IdentityConfig{
		JWKSURL:   srv.URL,
		Algorithm: "ES256",
		Issuer:    testIssuer,
		Audience:  testAudience,
	}, srv.Client())
	require.NoError(t, err)

	claims, err := v.VerifyAccessToken(context.Background(), signToken(t, private, validOpts()))
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", claims.UserID)

	require.NoError(t, v.Refresh(context.Background()))
}

func TestNewVerifierRejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewVerifier(context.Background(), config.IdentityConfig{
		PublicKeyPath: "unused.pem",
		Algorithm:     "HS256",
	}, nil)
	assert.Error(t, err)
}
