// Package constants defines system-wide constants for the CLE License Enforcement Service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// License Status Constants
// ================================================================================

// LicenseStatus represents the temporal state of a license at a point in time
type LicenseStatus string

const (
	// LicenseStatusActive indicates the license window covers the evaluation instant
	LicenseStatusActive LicenseStatus = "active"

	// LicenseStatusInGrace indicates the license is expired but inside its grace period
	LicenseStatusInGrace LicenseStatus = "in_grace"

	// LicenseStatusExpired indicates the license is past its expiry and grace period
	LicenseStatusExpired LicenseStatus = "expired"

	// LicenseStatusFuture indicates the license window has not opened yet
	LicenseStatusFuture LicenseStatus = "future"
)

// ================================================================================
// Entitlement Tier Constants
// ================================================================================

// EntitlementTier represents which enforcement regime is in effect
type EntitlementTier string

const (
	// TierLicensed indicates at least one license is currently active
	TierLicensed EntitlementTier = "licensed"

	// TierGrace indicates enforcement runs on expired licenses inside grace
	TierGrace EntitlementTier = "grace"

	// TierFree indicates no usable license; built-in free-tier limits apply
	TierFree EntitlementTier = "free"
)

// ================================================================================
// License Token Constants
// ================================================================================

// JWTAlgorithm represents the signing algorithm accepted on license tokens
type JWTAlgorithm string

const (
	// AlgorithmRS256 represents RSA signature with SHA-256
	AlgorithmRS256 JWTAlgorithm = "RS256"

	// AlgorithmRS512 represents RSA signature with SHA-512
	AlgorithmRS512 JWTAlgorithm = "RS512"

	// AlgorithmEdDSA represents Ed25519 signatures
	AlgorithmEdDSA JWTAlgorithm = "EdDSA"
)

const (
	// LicenseTokenType is the required "typ" header value on license tokens
	LicenseTokenType = "license+jwt"

	// LicenseTokenTypeLegacy is the pre-1.0 "typ" header value still accepted on ingestion
	LicenseTokenTypeLegacy = "JWT"

	// LicenseFileExtension is the file suffix scanned by the directory loader
	LicenseFileExtension = ".lic"

	// LicenseSourceAPI marks tokens ingested through the HTTP API
	LicenseSourceAPI = "api"

	// LicenseSourceDatabase marks tokens replayed from the persisted collection
	LicenseSourceDatabase = "database"
)

// ================================================================================
// License Claim Keys
// ================================================================================

const (
	// ClaimKeyIssuer is the standard "iss" claim
	ClaimKeyIssuer = "iss"

	// ClaimKeySubject is the standard "sub" claim
	ClaimKeySubject = "sub"

	// ClaimKeyExpiresAt is the standard "exp" claim (epoch seconds)
	ClaimKeyExpiresAt = "exp"

	// ClaimKeyNotBefore is the standard "nbf" claim (epoch seconds)
	ClaimKeyNotBefore = "nbf"

	// ClaimKeyIssuedAt is the standard "iat" claim (epoch seconds)
	ClaimKeyIssuedAt = "iat"

	// ClaimKeyJWTID is the standard "jti" claim
	ClaimKeyJWTID = "jti"

	// ClaimKeyClientLimit is the custom "client_limit" claim
	ClaimKeyClientLimit = "client_limit"

	// ClaimKeyIssuerLimit is the custom "issuer_limit" claim
	ClaimKeyIssuerLimit = "issuer_limit"

	// ClaimKeyValidIssuers is the custom "valid_issuers" claim
	ClaimKeyValidIssuers = "valid_issuers"

	// ClaimKeyGracePeriodDays is the custom "grace_period_days" claim
	ClaimKeyGracePeriodDays = "grace_period_days"
)

// ================================================================================
// Enforcement Defaults
// ================================================================================

const (
	// DefaultFreeTierClientLimit is the client limit applied when no license is usable
	DefaultFreeTierClientLimit int64 = 2

	// DefaultClientToleranceFactor is the multiplier applied to the client limit
	// before an unknown client is rejected
	DefaultClientToleranceFactor = 1.3

	// DefaultGracePeriod applies when a license token carries no grace claim.
	// A missing claim grants no grace; operators opt into a deployment-wide
	// fallback via license.default_grace_period.
	DefaultGracePeriod = 0 * time.Hour

	// ExpiryWarningWindow is how far ahead of expiry operators start getting warned (30 days)
	ExpiryWarningWindow = 30 * 24 * time.Hour

	// ExpiryWarnThrottlePeriod is the minimum interval between repeated expiry
	// warnings for the same license
	ExpiryWarnThrottlePeriod = 1 * time.Hour

	// ThrottleSweepInterval is how often idle throttle slots are reclaimed
	ThrottleSweepInterval = 1 * time.Minute

	// DirectoryLookupTimeout bounds the wait on an asynchronous client lookup
	DirectoryLookupTimeout = 2 * time.Second

	// DirectoryCacheTTL is the lifetime of cached client directory answers
	DirectoryCacheTTL = 5 * time.Minute
)

// ================================================================================
// Admission Constants
// ================================================================================

// AdmissionReason explains an admission decision
type AdmissionReason string

const (
	// AdmissionReasonKnown indicates the principal was already grandfathered
	AdmissionReasonKnown AdmissionReason = "known"

	// AdmissionReasonWithinLimit indicates the principal fit under the effective limit
	AdmissionReasonWithinLimit AdmissionReason = "within_limit"

	// AdmissionReasonWhitelisted indicates the issuer matched the license whitelist
	AdmissionReasonWhitelisted AdmissionReason = "whitelisted"

	// AdmissionReasonLimitExceeded indicates the effective limit was exhausted
	AdmissionReasonLimitExceeded AdmissionReason = "limit_exceeded"

	// AdmissionReasonNotWhitelisted indicates the issuer fell outside a
	// non-empty license whitelist
	AdmissionReasonNotWhitelisted AdmissionReason = "not_whitelisted"
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode represents machine-readable error codes surfaced by the service
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates the request is missing required parameters
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeInvalidLicense indicates a license token failed verification
	ErrCodeInvalidLicense ErrorCode = "invalid_license"

	// ErrCodeLicenseNotFound indicates no license matched the identifier
	ErrCodeLicenseNotFound ErrorCode = "license_not_found"

	// ErrCodeClientLimitExceeded indicates client admission was refused
	ErrCodeClientLimitExceeded ErrorCode = "client_limit_exceeded"

	// ErrCodeIssuerLimitExceeded indicates issuer admission was refused
	ErrCodeIssuerLimitExceeded ErrorCode = "issuer_limit_exceeded"

	// ErrCodeIssuerNotWhitelisted indicates the issuer is outside the license whitelist
	ErrCodeIssuerNotWhitelisted ErrorCode = "issuer_not_whitelisted"

	// ErrCodeStorageError indicates a persistence-layer failure
	ErrCodeStorageError ErrorCode = "storage_error"

	// ErrCodeCacheError indicates a Redis registry failure
	ErrCodeCacheError ErrorCode = "cache_error"

	// ErrCodeVaultError indicates trust material could not be fetched
	ErrCodeVaultError ErrorCode = "vault_error"

	// ErrCodeServerError indicates an internal server error occurred
	ErrCodeServerError ErrorCode = "server_error"

	// ErrCodeTemporarilyUnavailable indicates the service is temporarily unavailable
	ErrCodeTemporarilyUnavailable ErrorCode = "temporarily_unavailable"
)

// ================================================================================
// HTTP Status Code Constants
// ================================================================================

const (
	// HTTPStatusOK indicates successful request (200)
	HTTPStatusOK = 200

	// HTTPStatusCreated indicates successful resource creation (201)
	HTTPStatusCreated = 201

	// HTTPStatusBadRequest indicates client error (400)
	HTTPStatusBadRequest = 400

	// HTTPStatusUnauthorized indicates authentication failure (401)
	HTTPStatusUnauthorized = 401

	// HTTPStatusForbidden indicates authorization failure (403)
	HTTPStatusForbidden = 403

	// HTTPStatusNotFound indicates resource not found (404)
	HTTPStatusNotFound = 404

	// HTTPStatusConflict indicates the resource already exists (409)
	HTTPStatusConflict = 409

	// HTTPStatusTooManyRequests indicates a limit was exceeded (429)
	HTTPStatusTooManyRequests = 429

	// HTTPStatusInternalServerError indicates server error (500)
	HTTPStatusInternalServerError = 500

	// HTTPStatusServiceUnavailable indicates service unavailable (503)
	HTTPStatusServiceUnavailable = 503
)

// ================================================================================
// Audit Event Type Constants
// ================================================================================

// AuditEventType represents different types of auditable licensing events
type AuditEventType string

const (
	// EventTypeLicenseLoaded represents successful license ingestion
	EventTypeLicenseLoaded AuditEventType = "license_loaded"

	// EventTypeLicenseRejected represents a license token failing verification
	EventTypeLicenseRejected AuditEventType = "license_rejected"

	// EventTypeLicenseGraceEntered represents enforcement dropping to grace licenses
	EventTypeLicenseGraceEntered AuditEventType = "license_grace_entered"

	// EventTypeClientAdmitted represents a client admission decision in the affirmative
	EventTypeClientAdmitted AuditEventType = "client_admitted"

	// EventTypeClientRejected represents a client refused by the tolerance gate
	EventTypeClientRejected AuditEventType = "client_rejected"

	// EventTypeIssuerAdmitted represents an issuer admission decision in the affirmative
	EventTypeIssuerAdmitted AuditEventType = "issuer_admitted"

	// EventTypeIssuerRejected represents an issuer refused by the hard cutoff
	EventTypeIssuerRejected AuditEventType = "issuer_rejected"
)

// AuditEventResult represents the result of an audited event
type AuditEventResult string

const (
	// AuditResultSuccess indicates the event completed successfully
	AuditResultSuccess AuditEventResult = "success"

	// AuditResultFailure indicates the event failed
	AuditResultFailure AuditEventResult = "failure"
)

// ================================================================================
// Registry Key Prefix Constants
// ================================================================================

const (
	// RegistryKeySeenClients is the Redis set holding grandfathered client IDs
	RegistryKeySeenClients = "cle:registry:clients"

	// RegistryKeySeenIssuers is the Redis set holding grandfathered issuers
	RegistryKeySeenIssuers = "cle:registry:issuers"

	// CacheKeyPrefixDirectory is the prefix for cached client directory answers
	CacheKeyPrefixDirectory = "directory:client:"

	// RateLimitKeyPrefix is the prefix for admission API rate limit buckets
	RateLimitKeyPrefix = "cle:ratelimit"
)

// ================================================================================
// Database Table Name Constants
// ================================================================================

const (
	// TableNameLicenseRecords is the name of the persisted license token table
	TableNameLicenseRecords = "license_records"

	// TableNameLicenseAuditLogs is the name of the licensing audit trail table
	TableNameLicenseAuditLogs = "license_audit_logs"

	// TableNameRegisteredClients is the table consulted by the client directory
	TableNameRegisteredClients = "registered_clients"
)

// ================================================================================
// Vault Path Constants
// ================================================================================

const (
	// VaultMountPath is the KV v2 mount used for CLE secrets
	VaultMountPath = "secret"

	// VaultSecretPathPrefix is the base path for CLE secrets in Vault
	VaultSecretPathPrefix = "secret/cle"

	// VaultTrustAnchorsPath is the KV path holding license verification keys
	VaultTrustAnchorsPath = "trust/anchors"
)

// ================================================================================
// Messaging Constants
// ================================================================================

const (
	// AuditTopic is the Kafka topic carrying licensing audit events
	AuditTopic = "cle-license-audit"

	// AuditConsumerGroup is the consumer group used by audit readers
	AuditConsumerGroup = "cle-audit-consumers"
)

// ================================================================================
// Service Configuration Constants
// ================================================================================

const (
	// ServiceName identifies this service in logs, traces, and metrics
	ServiceName = "cle-license-service"

	// ServiceVersion is the reported service version
	ServiceVersion = "1.0.0"

	// DefaultServicePort is the default HTTP service port
	DefaultServicePort = 8080

	// DefaultMetricsPort is the default Prometheus metrics port
	DefaultMetricsPort = 9090

	// DefaultGRPCPort is the default gRPC health port
	DefaultGRPCPort = 50051

	// DefaultRequestTimeout is the default request timeout (5 seconds)
	DefaultRequestTimeout = 5 * time.Second

	// DefaultShutdownTimeout is the graceful shutdown timeout (30 seconds)
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultRateLimitPerMinute is the default per-client request budget
	DefaultRateLimitPerMinute = 100
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"

	// LogLevelFatal indicates critical errors that cause service termination
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeySpanID is the key for trace span ID in context
	ContextKeySpanID ContextKey = "span_id"

	// ContextKeyClientID is the key for the admission client ID in context
	ContextKeyClientID ContextKey = "client_id"

	// ContextKeyLicenseID is the key for the license ID in context
	ContextKeyLicenseID ContextKey = "license_id"

	// ContextKeyClientIP is the key for client IP address in context
	ContextKeyClientIP ContextKey = "client_ip"
)
