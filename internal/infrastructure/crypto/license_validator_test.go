package crypto_test

import (
	"bytes"
	"context"
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/infrastructure/crypto"
	"github.com/turtacn/cle/pkg/constants"
	cleerrors "github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger(constants.LogLevelError, &bytes.Buffer{})
}

type signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &signer{priv: priv, pub: pub}
}

func (s *signer) trustStore(t *testing.T, kid string) service.TrustStore {
	t.Helper()
	store, err := crypto.NewStaticTrustStore(map[string]stdcrypto.PublicKey{kid: s.pub})
	require.NoError(t, err)
	return store
}

// sign produces a compact license token. mutate may adjust the token headers
// before signing.
func (s *signer) sign(t *testing.T, claims *models.LicenseClaims, mutate func(*jwt.Token)) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["typ"] = constants.LicenseTokenType
	if mutate != nil {
		mutate(token)
	}
	signed, err := token.SignedString(s.priv)
	require.NoError(t, err)
	return signed
}

func baseClaims(id, issuer string) *models.LicenseClaims {
	return &models.LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			Issuer:   issuer,
			Subject:  "acme-corp",
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}
}

func newValidator(t *testing.T, s *signer, cfg *config.LicenseConfig) service.LicenseValidator {
	t.Helper()
	if cfg == nil {
		cfg = &config.LicenseConfig{}
	}
	return crypto.NewLicenseValidator(s.trustStore(t, ""), cfg, testLogger())
}

func TestLicenseValidator_ValidToken(t *testing.T) {
	t.Parallel()

	s := newSigner(t)
	v := newValidator(t, s, nil)

	limit := int64(50)
	claims := baseClaims("lic-001", "https://licensing.example.com")
	claims.ClientLimit = &limit
	claims.ValidIssuers = []string{"https://tokens.example.com"}

	got, err := v.Validate(context.Background(), s.sign(t, claims, nil))
	require.NoError(t, err)
	assert.Equal(t, "lic-001", got.ID)
	assert.Equal(t, "https://licensing.example.com", got.Issuer)
	require.NotNil(t, got.ClientLimit)
	assert.Equal(t, int64(50), *got.ClientLimit)
	assert.Equal(t, []string{"https://tokens.example.com"}, got.ValidIssuers)
}

func TestLicenseValidator_ExpiredTokenStillParses(t *testing.T) {
	t.Parallel()

	s := newSigner(t)
	v := newValidator(t, s, nil)

	claims := baseClaims("lic-expired", "iss")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-365 * 24 * time.Hour))

	got, err := v.Validate(context.Background(), s.sign(t, claims, nil))
	require.NoError(t, err, "expiry is interpreted at query time, not at ingestion")
	assert.Equal(t, "lic-expired", got.ID)
}

func TestLicenseValidator_LegacyTypeHeader(t *testing.T) {
	t.Parallel()

	s := newSigner(t)
	v := newValidator(t, s, nil)

	token := s.sign(t, baseClaims("lic-legacy", "iss"), func(tok *jwt.Token) {
		tok.Header["typ"] = constants.LicenseTokenTypeLegacy
	})

	_, err := v.Validate(context.Background(), token)
	assert.NoError(t, err)
}

func TestLicenseValidator_Rejections(t *testing.T) {
	t.Parallel()

	s := newSigner(t)
	stranger := newSigner(t)

	cases := []struct {
		name  string
		cfg   *config.LicenseConfig
		token func(t *testing.T) string
	}{
		{
			name: "wrong typ header",
			token: func(t *testing.T) string {
				return s.sign(t, baseClaims("lic", "iss"), func(tok *jwt.Token) {
					tok.Header["typ"] = "at+jwt"
				})
			},
		},
		{
			name: "signed by an untrusted key",
			token: func(t *testing.T) string {
				return stranger.sign(t, baseClaims("lic", "iss"), nil)
			},
		},
		{
			name: "symmetric algorithm confusion",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims("lic", "iss"))
				tok.Header["typ"] = constants.LicenseTokenType
				signed, err := tok.SignedString([]byte(s.pub))
				require.NoError(t, err)
				return signed
			},
		},
		{
			name: "missing jti",
			token: func(t *testing.T) string {
				return s.sign(t, baseClaims("", "iss"), nil)
			},
		},
		{
			name: "issuer outside the accepted set",
			cfg: &config.LicenseConfig{
				AcceptedIssuers: []string{"https://licensing.example.com"},
			},
			token: func(t *testing.T) string {
				return s.sign(t, baseClaims("lic", "https://rogue.example.com"), nil)
			},
		},
		{
			name: "tampered payload",
			token: func(t *testing.T) string {
				signed := s.sign(t, baseClaims("lic", "iss"), nil)
				return signed[:len(signed)-4] + "AAAA"
			},
		},
		{
			name: "garbage input",
			token: func(t *testing.T) string {
				return "not.a.token"
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v := newValidator(t, s, tc.cfg)
			_, err := v.Validate(context.Background(), tc.token(t))
			require.Error(t, err)

			// Every rejection is indistinguishable from the outside.
			cleErr, ok := cleerrors.AsCLEError(err)
			require.True(t, ok)
			assert.Equal(t, constants.ErrCodeInvalidLicense, cleErr.Code())
		})
	}
}

func TestLicenseValidator_AlgorithmPinning(t *testing.T) {
	t.Parallel()

	s := newSigner(t)
	v := newValidator(t, s, &config.LicenseConfig{
		AllowedAlgorithms: []string{string(constants.AlgorithmRS256)},
	})

	// A genuine EdDSA signature is refused once configuration pins RS256.
	_, err := v.Validate(context.Background(), s.sign(t, baseClaims("lic", "iss"), nil))
	assert.Error(t, err)
}
