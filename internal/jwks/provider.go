// Package jwks fetches and caches the identity provider's public signing keys.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrKeyNotFound means the key set was fetched but does not contain the
// requested kid (rotated-out key or forged token header).
var ErrKeyNotFound = errors.New("jwks: signing key not found")

// ErrFetchFailed means the key set could not be fetched or parsed; callers
// should treat the verifier as unavailable rather than the token as untrusted.
var ErrFetchFailed = errors.New("jwks: key set fetch failed")

const (
	fetchTimeout = 5 * time.Second
	retryBackoff = 250 * time.Millisecond
)

// SigningKey is one entry of the provider's key set. Immutable once fetched;
// a refresh replaces the whole set rather than mutating entries.
type SigningKey struct {
	KeyID     string
	Algorithm string
	PublicKey *rsa.PublicKey
	FetchedAt time.Time
}

// Provider caches the JWKS of a single identity provider, refreshing on miss.
// Safe for concurrent use.
type Provider struct {
	url    string
	client *http.Client

	mu   sync.RWMutex
	keys map[string]*SigningKey

	// refreshMu serializes refreshes so N concurrent misses cost one fetch.
	refreshMu sync.Mutex
}

// NewProvider returns a Provider reading from the given JWKS URL.
func NewProvider(url string) *Provider {
	return &Provider{
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
		keys:   map[string]*SigningKey{},
	}
}

// Key returns the signing key for kid, refreshing the cached set once on a
// miss. A kid still absent after refresh fails with ErrKeyNotFound.
func (p *Provider) Key(ctx context.Context, kid string) (*SigningKey, error) {
	if k := p.lookup(kid); k != nil {
		return k, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// A concurrent caller may have refreshed while we waited.
	if k := p.lookup(kid); k != nil {
		return k, nil
	}
	if err := p.refresh(ctx); err != nil {
		return nil, err
	}
	if k := p.lookup(kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

func (p *Provider) lookup(kid string) *SigningKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.keys[kid]
}

// jwksDocument mirrors the well-known JWKS wire format.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// refresh fetches the key set and swaps the cached map wholesale. One retry
// with a short backoff on a transient fetch error.
func (p *Provider) refresh(ctx context.Context) error {
	doc, err := p.fetch(ctx)
	if err != nil {
		time.Sleep(retryBackoff)
		if doc, err = p.fetch(ctx); err != nil {
			return err
		}
	}

	now := time.Now()
	next := make(map[string]*SigningKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, perr := rsaPublicKey(k.N, k.E)
		if perr != nil {
			return fmt.Errorf("%w: key %q: %v", ErrFetchFailed, k.Kid, perr)
		}
		next[k.Kid] = &SigningKey{KeyID: k.Kid, Algorithm: "RS256", PublicKey: pub, FetchedAt: now}
	}

	p.mu.Lock()
	p.keys = next
	p.mu.Unlock()
	return nil
}

func (p *Provider) fetch(ctx context.Context) (*jwksDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return &doc, nil
}

// rsaPublicKey builds an RSA public key from base64url modulus and exponent.
func rsaPublicKey(n64, e64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n64)
	if err != nil {
		return nil, fmt.Errorf("modulus: %v", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e64)
	if err != nil {
		return nil, fmt.Errorf("exponent: %v", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("zero exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
