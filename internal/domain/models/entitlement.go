package models

import (
	"time"

	"github.com/turtacn/cle/pkg/constants"
)

// Entitlements is a point-in-time snapshot of the enforcement regime: which
// tier is in effect, the effective limits, and the admission counts so far.
type Entitlements struct {
	// Tier is the regime in effect: licensed, grace, or free.
	Tier constants.EntitlementTier `json:"tier"`

	// ClientLimit is the effective client limit; nil means unlimited.
	ClientLimit *int64 `json:"client_limit,omitempty"`

	// IssuerLimit is the effective issuer limit; nil means unlimited.
	IssuerLimit *int64 `json:"issuer_limit,omitempty"`

	// ValidIssuers is the union of issuer whitelists across contributors.
	ValidIssuers []string `json:"valid_issuers,omitempty"`

	// GuaranteedClientLimit is the strictest explicit client limit across
	// contributors: the floor kept if the most generous grant lapses.
	GuaranteedClientLimit *int64 `json:"guaranteed_client_limit,omitempty"`

	// KnownClients is the number of grandfathered clients.
	KnownClients int64 `json:"known_clients"`

	// KnownIssuers is the number of grandfathered issuers.
	KnownIssuers int64 `json:"known_issuers"`

	// ContributingLicenses lists the IDs folded into the effective limits.
	ContributingLicenses []string `json:"contributing_licenses,omitempty"`

	// GraceDeadline is when the grace window closes; set only in the grace tier.
	GraceDeadline *time.Time `json:"grace_deadline,omitempty"`

	// EvaluatedAt is the instant the snapshot was taken.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// IsUnlicensed reports whether the free tier is in effect.
func (e *Entitlements) IsUnlicensed() bool {
	return e.Tier == constants.TierFree
}

// AdmissionDecision is the outcome of a client or issuer admission check.
type AdmissionDecision struct {
	// Allowed reports whether the principal was admitted.
	Allowed bool `json:"allowed"`

	// Reason explains the decision.
	Reason constants.AdmissionReason `json:"reason"`

	// Principal is the client ID or issuer the decision applies to.
	Principal string `json:"principal"`

	// EffectiveLimit is the limit consulted; nil means unlimited.
	EffectiveLimit *int64 `json:"effective_limit,omitempty"`

	// KnownCount is the size of the grandfathered set at decision time.
	KnownCount int64 `json:"known_count"`

	// DecidedAt is the instant the decision was made.
	DecidedAt time.Time `json:"decided_at"`
}
