// AngelaMos | 2026
// verifier.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

const clockSkew = 30 * time.Second

// Verifier checks session tokens issued by the hosted identity provider.
// Keys come from the provider's JWKS endpoint or a pinned PEM public key.
type Verifier struct {
	mu         sync.RWMutex
	keys       jwk.Set
	pinned     jwk.Key
	alg        jwa.SignatureAlgorithm
	jwksURL    string
	issuer     string
	audience   string
	httpClient *http.Client
	now        func() time.Time
}

func signatureAlgorithm(name string) (jwa.SignatureAlgorithm, error) {
	switch name {
	case "", "RS256":
		return jwa.RS256(), nil
	case "ES256":
		return jwa.ES256(), nil
	default:
		return jwa.SignatureAlgorithm{}, fmt.Errorf("unsupported algorithm %q", name)
	}
}

func NewVerifier(
	ctx context.Context,
	cfg config.IdentityConfig,
	httpClient *http.Client,
) (*Verifier, error) {
	alg, err := signatureAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	v := &Verifier{
		alg:        alg,
		jwksURL:    cfg.JWKSURL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		httpClient: httpClient,
		now:        time.Now,
	}

	if cfg.JWKSURL != "" {
		if err := v.Refresh(ctx); err != nil {
			return nil, err
		}
		return v, nil
	}

	pemBytes, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read identity public key: %w", err)
	}

	key, err := jwk.ParseKey(pemBytes, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse identity public key: %w", err)
	}

	v.pinned = key
	return v, nil
}

// NewVerifierWithKey pins a single verification key.
func NewVerifierWithKey(key jwk.Key, alg jwa.SignatureAlgorithm, issuer, audience string) *Verifier {
	return &Verifier{
		pinned:   key,
		alg:      alg,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Refresh re-fetches the JWKS. Keys without an alg get the configured one
// so tokens can be matched by kid alone.
func (v *Verifier) Refresh(ctx context.Context) error {
	if v.jwksURL == "" {
		return nil
	}

	set, err := jwk.Fetch(ctx, v.jwksURL, jwk.WithHTTPClient(v.httpClient))
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	if set.Len() == 0 {
		return fmt.Errorf("fetch jwks: empty key set")
	}

	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if _, has := key.Algorithm(); !has {
			if err := key.Set(jwk.AlgorithmKey, v.alg); err != nil {
				return fmt.Errorf("set key algorithm: %w", err)
			}
		}
	}

	v.mu.Lock()
	v.keys = set
	v.mu.Unlock()

	return nil
}

func (v *Verifier) keyOption() jwt.ParseOption {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.pinned != nil {
		return jwt.WithKey(v.alg, v.pinned)
	}
	return jwt.WithKeySet(v.keys)
}

// VerifyAccessToken satisfies middleware.TokenVerifier.
func (v *Verifier) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.IdentityClaims, error) {
	opts := []jwt.ParseOption{
		v.keyOption(),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	claims := &middleware.IdentityClaims{UserID: subject}

	// email and role are optional session claims.
	var email string
	if err := token.Get("email", &email); err == nil {
		claims.Email = email
	}

	var role string
	if err := token.Get("role", &role); err == nil {
		claims.Role = role
	}

	return claims, nil
}
