package crypto

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// licenseValidator verifies license token signatures against the trust store.
// Expiry is deliberately not checked here: an expired token still parses, and
// whether its license may still be used is decided at query time.
type licenseValidator struct {
	trust           service.TrustStore
	log             logger.Logger
	validMethods    []string
	acceptedIssuers map[string]struct{}
}

var _ service.LicenseValidator = (*licenseValidator)(nil)

// NewLicenseValidator creates a LicenseValidator bound to the given trust
// store. The allowed signature algorithms and the accepted issuer set come
// from configuration; unset values fall back to the built-in defaults.
// NewLicenseValidator 创建绑定到给定信任存储的 LicenseValidator。
// 允许的签名算法和可接受的颁发者集合来自配置；未设置的值回退到内置默认值。
//
// Parameters:
//   - trust: Source of verification keys.
//   - cfg: License configuration.
//   - log: Structured logger.
//
// Returns:
//   - service.LicenseValidator: The configured validator.
func NewLicenseValidator(trust service.TrustStore, cfg *config.LicenseConfig, log logger.Logger) service.LicenseValidator {
	methods := cfg.AllowedAlgorithms
	if len(methods) == 0 {
		methods = []string{
			string(constants.AlgorithmRS256),
			string(constants.AlgorithmRS512),
			string(constants.AlgorithmEdDSA),
		}
	}

	var issuers map[string]struct{}
	if len(cfg.AcceptedIssuers) > 0 {
		issuers = make(map[string]struct{}, len(cfg.AcceptedIssuers))
		for _, iss := range cfg.AcceptedIssuers {
			issuers[iss] = struct{}{}
		}
	}

	return &licenseValidator{
		trust:           trust,
		log:             log.WithComponent("license_validator"),
		validMethods:    methods,
		acceptedIssuers: issuers,
	}
}

// Validate verifies the token signature, type header, algorithm, and issuer.
// Every failure collapses into the same invalid_license error so a caller
// cannot distinguish a forged signature from an unknown issuer.
//
// Parameters:
//   - ctx: Request context.
//   - tokenString: The compact serialized license token.
//
// Returns:
//   - *models.LicenseClaims: The verified claims.
//   - error: A uniform invalid_license error on any failure.
func (v *licenseValidator) Validate(ctx context.Context, tokenString string) (*models.LicenseClaims, error) {
	claims := &models.LicenseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFor(ctx),
		jwt.WithValidMethods(v.validMethods),
		// Temporal claims are interpreted by the license manager, not here.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, v.reject(ctx, "token parse failed", err)
	}
	if !token.Valid {
		return nil, v.reject(ctx, "token signature invalid", nil)
	}

	if claims.ID == "" {
		return nil, v.reject(ctx, "token carries no jti", nil)
	}
	if v.acceptedIssuers != nil {
		if _, ok := v.acceptedIssuers[claims.Issuer]; !ok {
			return nil, v.reject(ctx, "token issuer not accepted", nil,
				logger.String("iss", claims.Issuer))
		}
	}

	return claims, nil
}

// keyFor returns the jwt keyfunc that checks the typ header and resolves the
// verification key for the token's kid.
func (v *licenseValidator) keyFor(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		typ, _ := token.Header["typ"].(string)
		switch typ {
		case constants.LicenseTokenType, constants.LicenseTokenTypeLegacy:
		default:
			return nil, errors.ErrInvalidLicense()
		}

		kid, _ := token.Header["kid"].(string)
		return v.trust.VerificationKey(ctx, kid)
	}
}

// reject logs the concrete failure at debug level and returns the uniform
// refusal. The detail stays server-side.
func (v *licenseValidator) reject(ctx context.Context, reason string, cause error, fields ...logger.Field) error {
	if cause != nil {
		fields = append(fields, logger.Error(cause))
	}
	v.log.Debug(ctx, "License token rejected: "+reason, fields...)
	return errors.ErrInvalidLicense()
}
