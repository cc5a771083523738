// Package token verifies bearer identity tokens against the provider's JWKS.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shiftpoint/upload-signer/internal/jwks"
)

// Verification failures, one per pipeline stage. Key resolution failures
// propagate jwks.ErrKeyNotFound / jwks.ErrFetchFailed unchanged.
var (
	ErrMalformed        = errors.New("token: malformed")
	ErrSignatureInvalid = errors.New("token: signature invalid")
	ErrExpired          = errors.New("token: expired")
	ErrIssuerMismatch   = errors.New("token: issuer mismatch")
	ErrAudienceMismatch = errors.New("token: audience mismatch")
)

// IdentityClaims is the verified identity carried by a bearer token.
// Only ever produced by a successful Verify; never built from raw input.
type IdentityClaims struct {
	Subject   string
	Issuer    string
	Audience  string
	ExpiresAt time.Time
	Raw       map[string]any
}

// KeySource resolves RSA signing keys by key ID.
type KeySource interface {
	Key(ctx context.Context, kid string) (*jwks.SigningKey, error)
}

// Verifier validates token signature, issuer, audience and expiry for one
// configured identity provider.
type Verifier struct {
	keys     KeySource
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier returns a Verifier for the expected issuer and audience.
func NewVerifier(keys KeySource, issuer, audience string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, audience: audience, now: time.Now}
}

// The parser pins RS256 and defers claim checks to Verify so each failure
// maps to exactly one category. Never honor the token's own alg choice.
var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	jwt.WithoutClaimsValidation(),
)

// Verify checks structure, algorithm, key, signature, issuer, audience and
// expiry, in that order, short-circuiting on the first failure.
func (v *Verifier) Verify(ctx context.Context, raw string) (*IdentityClaims, error) {
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrMalformed)
		}
		key, kerr := v.keys.Key(ctx, kid)
		if kerr != nil {
			return nil, kerr
		}
		return key.PublicKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	iss, _ := claims.GetIssuer()
	if iss != v.issuer {
		return nil, fmt.Errorf("%w: got %q", ErrIssuerMismatch, iss)
	}

	aud, _ := claims.GetAudience()
	if !containsAudience(aud, v.audience) {
		return nil, fmt.Errorf("%w: got %v", ErrAudienceMismatch, []string(aud))
	}

	exp, eerr := claims.GetExpirationTime()
	if eerr != nil || exp == nil || !exp.After(v.now()) {
		return nil, ErrExpired
	}

	sub, _ := claims.GetSubject()
	return &IdentityClaims{
		Subject:   sub,
		Issuer:    iss,
		Audience:  v.audience,
		ExpiresAt: exp.Time,
		Raw:       map[string]any(claims),
	}, nil
}

// classify maps parse errors onto the package's failure taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwks.ErrKeyNotFound), errors.Is(err, jwks.ErrFetchFailed),
		errors.Is(err, ErrMalformed):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
