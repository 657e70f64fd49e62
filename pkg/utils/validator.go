package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turtacn/cle/pkg/errors"
)

// Validator holds the singleton instance of the validator.
var defaultValidator *validator.Validate

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

func init() {
	defaultValidator = validator.New()
	// Register custom validation functions
	defaultValidator.RegisterValidation("uuid", validateUUID)
}

// ValidateStruct validates a struct using the default validator.
// It returns a CLEError carrying per-field messages when validation fails,
// or nil when the struct is valid.
func ValidateStruct(s interface{}) errors.CLEError {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrInvalidRequest(err.Error())
	}

	cleErr := errors.ErrInvalidRequest("One or more request fields failed validation.")
	for _, fe := range validationErrors {
		cleErr = cleErr.WithMetadata(toSnakeCase(fe.Field()), formatValidationError(fe))
	}

	return cleErr
}

// validateUUID is a custom validation function for UUIDs.
func validateUUID(fl validator.FieldLevel) bool {
	field := fl.Field().String()
	if _, err := uuid.Parse(field); err != nil {
		return false
	}
	return true
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

// toSnakeCase converts a string from CamelCase to snake_case.
// This is used to format field names in the validation error response.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// ValidateNotEmpty checks if a string is not empty.
func ValidateNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// ValidateIssuerURL checks if a string is a plausible license issuer
// identifier (an absolute http or https URL without fragment).
func ValidateIssuerURL(issuer string) bool {
	if !strings.HasPrefix(issuer, "https://") && !strings.HasPrefix(issuer, "http://") {
		return false
	}
	if strings.Contains(issuer, "#") {
		return false
	}
	return defaultValidator.Var(issuer, "url") == nil
}
