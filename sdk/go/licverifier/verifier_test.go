package licverifier_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/sdk/go/licverifier"
)

type sdkSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newSDKSigner(t *testing.T) *sdkSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &sdkSigner{priv: priv, pub: pub}
}

func (s *sdkSigner) publicPEM(t *testing.T) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(s.pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func (s *sdkSigner) sign(t *testing.T, claims jwt.Claims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["typ"] = "license+jwt"
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(s.priv)
	require.NoError(t, err)
	return signed
}

type signClaims struct {
	jwt.RegisteredClaims
	ClientLimit     *int64   `json:"client_limit,omitempty"`
	ValidIssuers    []string `json:"valid_issuers,omitempty"`
	GracePeriodDays *int64   `json:"grace_period_days,omitempty"`
}

func baseClaims(id string) *signClaims {
	return &signClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    "https://licensing.example.com",
			Subject:   "acme-corp",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
}

func TestVerifierFromPEM(t *testing.T) {
	t.Parallel()

	s := newSDKSigner(t)
	v, err := licverifier.NewVerifierFromPEM(s.publicPEM(t))
	require.NoError(t, err)

	limit := int64(50)
	claims := baseClaims("lic-001")
	claims.ClientLimit = &limit
	claims.ValidIssuers = []string{"https://tokens.example.com"}

	lic, err := v.Verify(s.sign(t, claims, ""))
	require.NoError(t, err)
	assert.Equal(t, "lic-001", lic.ID)
	assert.Equal(t, "https://licensing.example.com", lic.Issuer)
	require.NotNil(t, lic.ClientLimit)
	assert.Equal(t, int64(50), *lic.ClientLimit)
	assert.Equal(t, []string{"https://tokens.example.com"}, lic.ValidIssuers)
	assert.Equal(t, licverifier.StatusActive, lic.StatusAt(time.Now(), 0))
}

func TestVerifier_ExpiredTokenStillVerifies(t *testing.T) {
	t.Parallel()

	s := newSDKSigner(t)
	v, err := licverifier.NewVerifierFromPEM(s.publicPEM(t))
	require.NoError(t, err)

	claims := baseClaims("lic-expired")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-72 * time.Hour))

	lic, err := v.Verify(s.sign(t, claims, ""))
	require.NoError(t, err, "expiry is interpreted at query time, not at verification")
	assert.Equal(t, licverifier.StatusExpired, lic.StatusAt(time.Now(), 24*time.Hour))
	assert.Equal(t, licverifier.StatusGrace, lic.StatusAt(time.Now(), 14*24*time.Hour))
	assert.True(t, lic.Enforceable(time.Now(), 14*24*time.Hour))
}

func TestLicenseStatusAt(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	nb := now.Add(time.Hour)
	exp := now.Add(48 * time.Hour)
	grace := 24 * time.Hour

	lic := &licverifier.License{NotBefore: &nb, ExpiresAt: &exp, GracePeriod: &grace}

	assert.Equal(t, licverifier.StatusFuture, lic.StatusAt(now, 0))
	assert.Equal(t, licverifier.StatusActive, lic.StatusAt(now.Add(2*time.Hour), 0))
	assert.Equal(t, licverifier.StatusGrace, lic.StatusAt(exp.Add(time.Hour), 0))
	assert.Equal(t, licverifier.StatusExpired, lic.StatusAt(exp.Add(25*time.Hour), 0))

	// A perpetual license is always active once its window opens.
	open := &licverifier.License{}
	assert.Equal(t, licverifier.StatusActive, open.StatusAt(now.Add(100*365*24*time.Hour), 0))
}

func TestVerifier_Rejections(t *testing.T) {
	t.Parallel()

	s := newSDKSigner(t)
	stranger := newSDKSigner(t)
	v, err := licverifier.NewVerifierFromPEM(s.publicPEM(t))
	require.NoError(t, err)

	_, err = v.Verify(stranger.sign(t, baseClaims("lic"), ""))
	assert.Error(t, err, "untrusted key")

	_, err = v.Verify(s.sign(t, baseClaims(""), ""))
	assert.ErrorIs(t, err, licverifier.ErrMissingID)

	_, err = v.Verify("not.a.token")
	assert.ErrorIs(t, err, licverifier.ErrInvalidToken)
}

func TestJWKSRefresher(t *testing.T) {
	t.Parallel()

	s := newSDKSigner(t)
	jwks := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       s.pub,
			KeyID:     "lic-key-1",
			Algorithm: "EdDSA",
			Use:       "sig",
		}},
	}
	body, err := json.Marshal(jwks)
	require.NoError(t, err)

	var fetches int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(body)
	}))
	defer ts.Close()

	refresher := licverifier.NewJWKSRefresher(ts.URL)
	ctx := context.Background()

	lic, err := refresher.Verify(ctx, s.sign(t, baseClaims("lic-jwks"), "lic-key-1"))
	require.NoError(t, err)
	assert.Equal(t, "lic-jwks", lic.ID)

	// Cached anchors answer the second call without another fetch.
	_, err = refresher.Verify(ctx, s.sign(t, baseClaims("lic-jwks-2"), "lic-key-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	// An explicit refresh revalidates with the ETag.
	require.NoError(t, refresher.Refresh(ctx))
	assert.Equal(t, 2, fetches)
}
