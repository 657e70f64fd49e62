package serverlite

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/pkg/constants"
)

// LicenseSpec describes a license token to mint for a test scenario. Zero
// values produce a well-formed license: a random ID, a one-day validity
// window, and no entitlement limits.
type LicenseSpec struct {
	ID           string
	Issuer       string
	Subject      string
	NotBefore    *time.Time
	ExpiresAt    *time.Time
	ClientLimit  *int64
	IssuerLimit  *int64
	ValidIssuers []string
	GraceDays    *int64
}

// MintLicense signs a license token for spec with the server's ephemeral key.
func (s *Server) MintLicense(spec LicenseSpec) (string, error) {
	now := time.Now().UTC()

	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Issuer == "" {
		spec.Issuer = "https://licensing.serverlite.test"
	}
	if spec.Subject == "" {
		spec.Subject = "serverlite-tenant"
	}
	if spec.ExpiresAt == nil {
		exp := now.Add(24 * time.Hour)
		spec.ExpiresAt = &exp
	}

	claims := &models.LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        spec.ID,
			Issuer:    spec.Issuer,
			Subject:   spec.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(*spec.ExpiresAt),
		},
		ClientLimit:     spec.ClientLimit,
		IssuerLimit:     spec.IssuerLimit,
		ValidIssuers:    spec.ValidIssuers,
		GracePeriodDays: spec.GraceDays,
	}
	if spec.NotBefore != nil {
		claims.NotBefore = jwt.NewNumericDate(*spec.NotBefore)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["typ"] = constants.LicenseTokenType
	return token.SignedString(s.signingKey)
}
