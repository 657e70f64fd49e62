// Package licverifier verifies license tokens offline, for embedding in
// client applications that must honor a license without calling the license
// service. Trust anchors come from PEM bytes or a JWKS endpoint; verified
// tokens map onto a License value with a query-time status helper.
package licverifier

import (
	"context"
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid license token")
	ErrKidNotFound    = errors.New("kid not found in trust anchors")
	ErrNoKeysFound    = errors.New("no keys found")
	ErrUnsupportedAlg = errors.New("unsupported algorithm")
	ErrMissingID      = errors.New("license token carries no jti")
)

// licenseTokenType is the expected JOSE typ header of a license token.
const licenseTokenType = "license+jwt"

// Status is the temporal state of a license at a given instant.
type Status string

const (
	StatusActive  Status = "active"
	StatusGrace   Status = "grace"
	StatusExpired Status = "expired"
	StatusFuture  Status = "future"
)

// License is the verified content of a license token.
type License struct {
	ID           string
	Issuer       string
	Subject      string
	IssuedAt     time.Time
	NotBefore    *time.Time
	ExpiresAt    *time.Time
	GracePeriod  *time.Duration
	ClientLimit  *int64
	IssuerLimit  *int64
	ValidIssuers []string
}

// StatusAt reports the license status at now. fallbackGrace applies when the
// token carried no grace claim.
func (l *License) StatusAt(now time.Time, fallbackGrace time.Duration) Status {
	if l.NotBefore != nil && now.Before(*l.NotBefore) {
		return StatusFuture
	}
	if l.ExpiresAt == nil || !now.After(*l.ExpiresAt) {
		return StatusActive
	}

	grace := fallbackGrace
	if l.GracePeriod != nil {
		grace = *l.GracePeriod
	}
	if now.Sub(*l.ExpiresAt) <= grace {
		return StatusGrace
	}
	return StatusExpired
}

// Enforceable reports whether the license still grants entitlements at now:
// active outright, or expired but within its grace window.
func (l *License) Enforceable(now time.Time, fallbackGrace time.Duration) bool {
	switch l.StatusAt(now, fallbackGrace) {
	case StatusActive, StatusGrace:
		return true
	default:
		return false
	}
}

// claims is the wire shape of the custom license claims.
type claims struct {
	jwt.RegisteredClaims
	ClientLimit     *int64   `json:"client_limit,omitempty"`
	IssuerLimit     *int64   `json:"issuer_limit,omitempty"`
	ValidIssuers    []string `json:"valid_issuers,omitempty"`
	GracePeriodDays *int64   `json:"grace_period_days,omitempty"`
}

// Verifier verifies license tokens against a fixed set of trust anchors.
type Verifier struct {
	keys       map[string]stdcrypto.PublicKey
	defaultKID string
}

// NewVerifierFromPEM builds a verifier from one or more PEM public key
// blocks. A block may carry a "kid" PEM header; the first block becomes the
// default anchor for tokens without a kid.
func NewVerifierFromPEM(data []byte) (*Verifier, error) {
	keys := make(map[string]stdcrypto.PublicKey)
	defaultKID := ""
	first := true

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "PUBLIC KEY" {
			return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
		}
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}

		kid := block.Headers["kid"]
		keys[kid] = pub
		if first {
			defaultKID = kid
			first = false
		}
	}

	if len(keys) == 0 {
		return nil, ErrNoKeysFound
	}
	return &Verifier{keys: keys, defaultKID: defaultKID}, nil
}

// NewVerifierFromKeys builds a verifier from an explicit anchor map. The
// empty-string entry, when present, is the default anchor.
func NewVerifierFromKeys(anchors map[string]stdcrypto.PublicKey) (*Verifier, error) {
	if len(anchors) == 0 {
		return nil, ErrNoKeysFound
	}
	keys := make(map[string]stdcrypto.PublicKey, len(anchors))
	defaultKID := ""
	for kid, pub := range anchors {
		keys[kid] = pub
		if defaultKID == "" {
			defaultKID = kid
		}
	}
	if _, ok := keys[""]; ok {
		defaultKID = ""
	}
	return &Verifier{keys: keys, defaultKID: defaultKID}, nil
}

// Verify checks the token's signature and structure and maps its claims onto
// a License. Expiry is NOT enforced here: an expired license still verifies,
// and the caller interprets StatusAt at its own clock.
func (v *Verifier) Verify(tokenString string) (*License, error) {
	parsed := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, v.keyFor,
		jwt.WithValidMethods([]string{"EdDSA", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if typ, _ := token.Header["typ"].(string); typ != licenseTokenType && typ != "JWT" {
		return nil, fmt.Errorf("%w: unexpected typ header %q", ErrInvalidToken, typ)
	}
	if parsed.ID == "" {
		return nil, ErrMissingID
	}

	lic := &License{
		ID:           parsed.ID,
		Issuer:       parsed.Issuer,
		Subject:      parsed.Subject,
		ClientLimit:  parsed.ClientLimit,
		IssuerLimit:  parsed.IssuerLimit,
		ValidIssuers: parsed.ValidIssuers,
	}
	if parsed.IssuedAt != nil {
		lic.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.NotBefore != nil {
		nb := parsed.NotBefore.Time.UTC()
		lic.NotBefore = &nb
	}
	if parsed.ExpiresAt != nil {
		exp := parsed.ExpiresAt.Time.UTC()
		lic.ExpiresAt = &exp
	}
	if parsed.GracePeriodDays != nil {
		gp := time.Duration(*parsed.GracePeriodDays) * 24 * time.Hour
		lic.GracePeriod = &gp
	}
	return lic, nil
}

func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		kid = v.defaultKID
	}
	pub, ok := v.keys[kid]
	if !ok {
		return nil, ErrKidNotFound
	}
	return pub, nil
}

// JWKSRefresher fetches trust anchors from a JWKS endpoint and caches them,
// revalidating with ETags. It serves deployments where the licensing
// authority rotates keys.
type JWKSRefresher struct {
	jwksURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	verifier *Verifier
	lastETag string
}

// NewJWKSRefresher creates a refresher for jwksURL. The cache starts empty;
// the first Verify call triggers a fetch.
func NewJWKSRefresher(jwksURL string) *JWKSRefresher {
	return &JWKSRefresher{
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Refresh fetches the JWKS and replaces the cached anchor set. A 304 response
// leaves the cache untouched.
func (r *JWKSRefresher) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, nil)
	if err != nil {
		return err
	}

	r.mu.RLock()
	if r.lastETag != "" {
		req.Header.Set("If-None-Match", r.lastETag)
	}
	r.mu.RUnlock()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: status code %d", resp.StatusCode)
	}

	var jwks jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return err
	}
	if len(jwks.Keys) == 0 {
		return ErrNoKeysFound
	}

	anchors := make(map[string]stdcrypto.PublicKey, len(jwks.Keys))
	for _, key := range jwks.Keys {
		switch pub := key.Key.(type) {
		case ed25519.PublicKey, *rsa.PublicKey:
			anchors[key.KeyID] = pub
		default:
			// Symmetric and unknown key types never verify licenses.
		}
	}
	if len(anchors) == 0 {
		return ErrNoKeysFound
	}

	verifier, err := NewVerifierFromKeys(anchors)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.verifier = verifier
	r.lastETag = resp.Header.Get("ETag")
	r.mu.Unlock()
	return nil
}

// Verify verifies a license token against the cached anchors, refreshing the
// JWKS once when the cache is empty or the anchor is unknown.
func (r *JWKSRefresher) Verify(ctx context.Context, tokenString string) (*License, error) {
	r.mu.RLock()
	verifier := r.verifier
	r.mu.RUnlock()

	if verifier != nil {
		lic, err := verifier.Verify(tokenString)
		if err == nil {
			return lic, nil
		}
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	verifier = r.verifier
	r.mu.RUnlock()
	if verifier == nil {
		return nil, ErrNoKeysFound
	}
	return verifier.Verify(tokenString)
}
