// Package utils provides utility functions for the CLE License Enforcement Service.
// This file contains data conversion, transformation, and formatting utilities.
package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ================================================================================
// String Conversion
// ================================================================================

// StringToInt converts a string to an integer with default value on error
func StringToInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// StringToInt64 converts a string to int64 with default value on error
func StringToInt64(s string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val
	}
	return defaultValue
}

// StringToBool converts a string to boolean
func StringToBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Int64ToString converts int64 to string
func Int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

// ================================================================================
// JSON Conversion
// ================================================================================

// ToJSON converts an object to JSON string
func ToJSON(v interface{}) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(bytes), nil
}

// ToJSONPretty converts an object to pretty-printed JSON string
func ToJSONPretty(v interface{}) (string, error) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(bytes), nil
}

// FromJSON parses JSON string into an object
func FromJSON(jsonStr string, v interface{}) error {
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// ToJSONBytes converts an object to JSON bytes
func ToJSONBytes(v interface{}) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to JSON bytes: %w", err)
	}
	return bytes, nil
}

// ================================================================================
// Base64 Encoding/Decoding
// ================================================================================

// Base64Encode encodes bytes to base64 string
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes base64 string to bytes
func Base64Decode(encoded string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return decoded, nil
}

// Base64URLDecode decodes URL-safe base64 string to bytes
func Base64URLDecode(encoded string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode URL-safe base64: %w", err)
	}
	return decoded, nil
}

// ================================================================================
// Time Conversion
// ================================================================================

// TimeToUnix converts time.Time to Unix timestamp (seconds)
func TimeToUnix(t time.Time) int64 {
	return t.Unix()
}

// UnixToTime converts Unix timestamp (seconds) to time.Time
func UnixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0)
}

// TimeToISO8601 converts time.Time to ISO 8601 string
func TimeToISO8601(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ISO8601ToTime parses ISO 8601 string to time.Time
func ISO8601ToTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse ISO 8601 time: %w", err)
	}
	return t, nil
}

// DurationToSeconds converts time.Duration to seconds
func DurationToSeconds(d time.Duration) int64 {
	return int64(d.Seconds())
}

// SecondsToDuration converts seconds to time.Duration
func SecondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// DaysToDuration converts whole days to time.Duration
func DaysToDuration(days int64) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// ================================================================================
// Data Masking/Obfuscation
// ================================================================================

// MaskString masks a string, showing only first and last characters
func MaskString(s string, showChars int) string {
	length := len(s)
	if length <= showChars*2 {
		return strings.Repeat("*", length)
	}

	prefix := s[:showChars]
	suffix := s[length-showChars:]
	masked := strings.Repeat("*", length-showChars*2)

	return prefix + masked + suffix
}

// MaskToken masks a token, showing only first 8 characters
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + strings.Repeat("*", len(token)-8)
}

// ================================================================================
// Slice Conversion
// ================================================================================

// InterfaceSliceToStringSlice converts []interface{} to []string,
// dropping entries that are not strings
func InterfaceSliceToStringSlice(slice []interface{}) []string {
	result := make([]string, 0, len(slice))
	for _, v := range slice {
		if str, ok := v.(string); ok {
			result = append(result, str)
		}
	}
	return result
}

// StringSliceToMap converts []string to map[string]bool for quick lookup
func StringSliceToMap(slice []string) map[string]bool {
	result := make(map[string]bool, len(slice))
	for _, v := range slice {
		result[v] = true
	}
	return result
}

// RemoveDuplicates removes duplicate strings from slice
func RemoveDuplicates(slice []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(slice))

	for _, item := range slice {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

// Contains checks if a slice contains a value
func Contains(slice []string, value string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}

// ================================================================================
// Pointer Conversion Helpers
// ================================================================================

// StringPtr returns a pointer to the string value
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the int value
func IntPtr(i int) *int {
	return &i
}

// Int64Ptr returns a pointer to the int64 value
func Int64Ptr(i int64) *int64 {
	return &i
}

// BoolPtr returns a pointer to the bool value
func BoolPtr(b bool) *bool {
	return &b
}

// TimePtr returns a pointer to the time.Time value
func TimePtr(t time.Time) *time.Time {
	return &t
}

// DurationPtr returns a pointer to the time.Duration value
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// StringValue returns the string value or default if nil
func StringValue(s *string, defaultValue string) string {
	if s == nil {
		return defaultValue
	}
	return *s
}

// Int64Value returns the int64 value or default if nil
func Int64Value(i *int64, defaultValue int64) int64 {
	if i == nil {
		return defaultValue
	}
	return *i
}

// BoolValue returns the bool value or default if nil
func BoolValue(b *bool, defaultValue bool) bool {
	if b == nil {
		return defaultValue
	}
	return *b
}

// TimeValue returns the time.Time value or default if nil
func TimeValue(t *time.Time, defaultValue time.Time) time.Time {
	if t == nil {
		return defaultValue
	}
	return *t
}

// ================================================================================
// Default Value Helpers
// ================================================================================

// DefaultString returns the value if not empty, otherwise returns the default
func DefaultString(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// DefaultInt64 returns the value if not zero, otherwise returns the default
func DefaultInt64(value, defaultValue int64) int64 {
	if value == 0 {
		return defaultValue
	}
	return value
}

// CoalesceString returns the first non-empty string
func CoalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
