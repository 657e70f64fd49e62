package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/cle/pkg/constants"
)

// AuditEvent represents a single licensing audit trail event.
type AuditEvent struct {
	EventID    uuid.UUID                  `json:"event_id"`
	EventType  constants.AuditEventType   `json:"event_type"`
	Result     constants.AuditEventResult `json:"result"`
	ResultCode constants.ErrorCode        `json:"result_code,omitempty"`
	LicenseID  string                     `json:"license_id,omitempty"` // Set for license lifecycle events
	ClientID   string                     `json:"client_id,omitempty"`  // Set for client admission events
	Issuer     string                     `json:"issuer,omitempty"`     // Set for issuer admission events
	Reason     constants.AdmissionReason  `json:"reason,omitempty"`
	ActorID    string                     `json:"actor_id,omitempty"` // Who triggered the event (API caller, watcher, system)
	IPAddress  string                     `json:"ip_address,omitempty"`
	TraceID    string                     `json:"trace_id,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Metadata   json.RawMessage            `json:"metadata,omitempty"` // Flexible field for event-specific data
	Timestamp  time.Time                  `json:"timestamp"`
}

// NewAuditEvent creates a new audit event.
func NewAuditEvent(
	eventType constants.AuditEventType,
	result constants.AuditEventResult,
	message string,
) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Result:    result,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithLicense sets the license ID for the audit event.
func (a *AuditEvent) WithLicense(licenseID string) *AuditEvent {
	a.LicenseID = licenseID
	return a
}

// WithClient sets the client ID for the audit event.
func (a *AuditEvent) WithClient(clientID string) *AuditEvent {
	a.ClientID = clientID
	return a
}

// WithIssuer sets the issuer for the audit event.
func (a *AuditEvent) WithIssuer(issuer string) *AuditEvent {
	a.Issuer = issuer
	return a
}

// WithReason sets the admission reason for the audit event.
func (a *AuditEvent) WithReason(reason constants.AdmissionReason) *AuditEvent {
	a.Reason = reason
	return a
}

// WithActor sets the actor ID for the audit event.
func (a *AuditEvent) WithActor(actorID string) *AuditEvent {
	a.ActorID = actorID
	return a
}

// WithContextInfo sets context-related information.
func (a *AuditEvent) WithContextInfo(ip, traceID string) *AuditEvent {
	a.IPAddress = ip
	a.TraceID = traceID
	return a
}

// WithMetadata sets JSON metadata for the audit event.
func (a *AuditEvent) WithMetadata(data interface{}) *AuditEvent {
	jsonData, err := json.Marshal(data)
	if err == nil {
		a.Metadata = jsonData
	}
	return a
}

// WithResultCode sets the specific error code for failed events.
func (a *AuditEvent) WithResultCode(code constants.ErrorCode) *AuditEvent {
	a.ResultCode = code
	return a
}
