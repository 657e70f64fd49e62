package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/turtacn/cle/internal/domain/models"
)

// SignAuditEvent calculates the HMAC-SHA256 signature for an audit event.
// Consumers that hold the shared secret can detect tampered trail entries.
func SignAuditEvent(event *models.AuditEvent, secretKey string) (string, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(eventBytes)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// VerifyAuditEvent reports whether signature matches the event under the
// shared secret.
func VerifyAuditEvent(event *models.AuditEvent, secretKey, signature string) bool {
	expected, err := SignAuditEvent(event, secretKey)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
