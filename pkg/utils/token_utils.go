package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// PeekLicenseClaims decodes the claims of a license token WITHOUT verifying
// its signature. Intended for diagnostic tooling only; enforcement paths must
// go through the license validator.
func PeekLicenseClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode license token: %w", err)
	}

	return claims, nil
}

// PeekLicenseHeader decodes the JOSE header of a license token WITHOUT
// verifying its signature.
func PeekLicenseHeader(token string) (map[string]interface{}, error) {
	parser := jwt.NewParser()

	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to decode license token: %w", err)
	}

	return parsed.Header, nil
}

// ExtractLicenseID returns the jti claim of a license token without
// verifying its signature.
func ExtractLicenseID(token string) (string, error) {
	claims, err := PeekLicenseClaims(token)
	if err != nil {
		return "", err
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return "", fmt.Errorf("license token carries no jti claim")
	}

	return jti, nil
}
