package service

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// Ensure it satisfies the interface in interfaces.go
var _ LicenseChecker = (*licenseChecker)(nil)

// CheckerDeps carries the optional collaborators of the license checker.
// Every field may be nil; the checker then runs on its in-process state alone.
type CheckerDeps struct {
	// Audit receives admission decisions. Best-effort.
	Audit AuditService

	// Metrics receives decision counters. Best-effort.
	Metrics Metrics

	// Registry mirrors the seen-sets across replicas.
	Registry ClientRegistry

	// Directory resolves unknown clients against the host deployment.
	Directory ClientDirectory
}

// licenseChecker coordinates enforcement for the whole process: one license
// manager plus the in-memory sets of principals observed since start. The
// sets only grow; they reset on process restart.
type licenseChecker struct {
	manager LicenseManager
	log     logger.Logger
	deps    CheckerDeps

	mu           sync.Mutex
	knownClients map[string]struct{}
	knownIssuers map[string]struct{}

	tolerance     float64
	freeTierLimit int64
	fallbackGrace time.Duration
	lookupTimeout time.Duration
}

// NewLicenseChecker creates the process-wide enforcement coordinator. A
// tolerance below 1.0 and non-positive limits fall back to the built-in
// defaults.
func NewLicenseChecker(
	manager LicenseManager,
	log logger.Logger,
	tolerance float64,
	freeTierLimit int64,
	fallbackGrace time.Duration,
	deps CheckerDeps,
) LicenseChecker {
	if tolerance < 1.0 {
		tolerance = constants.DefaultClientToleranceFactor
	}
	if freeTierLimit <= 0 {
		freeTierLimit = constants.DefaultFreeTierClientLimit
	}
	if fallbackGrace < 0 {
		fallbackGrace = 0
	}

	return &licenseChecker{
		manager:       manager,
		log:           log.WithComponent("license_checker"),
		deps:          deps,
		knownClients:  make(map[string]struct{}),
		knownIssuers:  make(map[string]struct{}),
		tolerance:     tolerance,
		freeTierLimit: freeTierLimit,
		fallbackGrace: fallbackGrace,
		lookupTimeout: constants.DirectoryLookupTimeout,
	}
}

// AddLicense feeds a verified license into the owned manager.
func (c *licenseChecker) AddLicense(ctx context.Context, lic *models.License) {
	c.manager.Add(ctx, lic)
}

// AllowClient decides whether clientID may be admitted at now. An empty
// clientID is an absent principal and passes through as a nil decision with
// no check and no side effects. The effective license is fetched fresh on
// every call; when none exists the free-tier client limit applies.
func (c *licenseChecker) AllowClient(ctx context.Context, clientID string, now time.Time) *models.AdmissionDecision {
	if clientID == "" {
		return nil
	}

	limit := c.effectiveClientLimit(ctx, now)

	c.mu.Lock()
	if _, known := c.knownClients[clientID]; known {
		count := int64(len(c.knownClients))
		c.mu.Unlock()
		return c.finishClient(ctx, decision(true, constants.AdmissionReasonKnown, clientID, limit, count, now), false)
	}
	c.mu.Unlock()

	// Unknown locally: a replica or the host directory may already know it,
	// in which case the client is grandfathered rather than counted anew.
	if c.remoteKnows(ctx, clientID) {
		c.mu.Lock()
		c.knownClients[clientID] = struct{}{}
		count := int64(len(c.knownClients))
		c.mu.Unlock()
		return c.finishClient(ctx, decision(true, constants.AdmissionReasonKnown, clientID, limit, count, now), true)
	}

	var d *models.AdmissionDecision
	admitted := false

	c.mu.Lock()
	// Re-check under the lock: a concurrent call may have admitted it.
	if _, known := c.knownClients[clientID]; known {
		d = decision(true, constants.AdmissionReasonKnown, clientID, limit, int64(len(c.knownClients)), now)
	} else if newCount := int64(len(c.knownClients)) + 1; limit != nil && float64(newCount) > float64(*limit)*c.tolerance {
		d = decision(false, constants.AdmissionReasonLimitExceeded, clientID, limit, int64(len(c.knownClients)), now)
	} else {
		c.knownClients[clientID] = struct{}{}
		d = decision(true, constants.AdmissionReasonWithinLimit, clientID, limit, newCount, now)
		admitted = true
	}
	c.mu.Unlock()

	return c.finishClient(ctx, d, admitted)
}

// ResolveAndAllowClient applies AllowClient to the outcome of an in-flight
// client lookup. A lookup that yields no client ID passes through as a nil
// decision; lookup errors propagate unchanged.
func (c *licenseChecker) ResolveAndAllowClient(ctx context.Context, lookup func(context.Context) (string, error), now time.Time) (*models.AdmissionDecision, error) {
	clientID, err := lookup(ctx)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, nil
	}
	return c.AllowClient(ctx, clientID, now), nil
}

// AllowIssuer decides whether issuer may be admitted at now. The whitelist
// check and the limit check are independent; both must pass. Refusals return
// a typed error because issuer checks run during startup and configuration,
// where the caller is expected to abort rather than degrade.
func (c *licenseChecker) AllowIssuer(ctx context.Context, issuer string, now time.Time) (*models.AdmissionDecision, error) {
	if issuer == "" {
		return nil, errors.ErrMissingRequiredParameter("issuer")
	}

	agg := c.manager.ActiveLicense(ctx, now)

	var limit *int64
	whitelisted := false
	if agg != nil {
		limit = agg.IssuerLimit
		if len(agg.ValidIssuers) > 0 {
			if !containsIssuer(agg.ValidIssuers, issuer) {
				d := decision(false, constants.AdmissionReasonNotWhitelisted, issuer, limit, c.knownIssuerCount(), now)
				c.finishIssuer(ctx, d, false)
				return d, errors.ErrIssuerNotWhitelisted(issuer)
			}
			whitelisted = true
		}
	}

	var d *models.AdmissionDecision
	var refusal error
	admitted := false

	allowedReason := constants.AdmissionReasonWithinLimit
	knownReason := constants.AdmissionReasonKnown
	if whitelisted {
		allowedReason = constants.AdmissionReasonWhitelisted
		knownReason = constants.AdmissionReasonWhitelisted
	}

	c.mu.Lock()
	if _, known := c.knownIssuers[issuer]; known {
		d = decision(true, knownReason, issuer, limit, int64(len(c.knownIssuers)), now)
	} else if newCount := int64(len(c.knownIssuers)) + 1; limit != nil && newCount > *limit {
		d = decision(false, constants.AdmissionReasonLimitExceeded, issuer, limit, int64(len(c.knownIssuers)), now)
		refusal = errors.ErrIssuerLimitExceeded(issuer, *limit)
	} else {
		c.knownIssuers[issuer] = struct{}{}
		d = decision(true, allowedReason, issuer, limit, newCount, now)
		admitted = true
	}
	c.mu.Unlock()

	return c.finishIssuer(ctx, d, admitted), refusal
}

// Entitlements reports the enforcement regime in effect at now.
func (c *licenseChecker) Entitlements(ctx context.Context, now time.Time) *models.Entitlements {
	agg := c.manager.ActiveLicense(ctx, now)

	ent := &models.Entitlements{
		Tier:        constants.TierFree,
		EvaluatedAt: now,
	}

	c.mu.Lock()
	ent.KnownClients = int64(len(c.knownClients))
	ent.KnownIssuers = int64(len(c.knownIssuers))
	c.mu.Unlock()

	if c.deps.Registry != nil {
		if n, err := c.deps.Registry.CountClients(ctx); err == nil && n > ent.KnownClients {
			ent.KnownClients = n
		}
		if n, err := c.deps.Registry.CountIssuers(ctx); err == nil && n > ent.KnownIssuers {
			ent.KnownIssuers = n
		}
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.UpdateKnownCounts(ent.KnownClients, ent.KnownIssuers)
	}

	if agg == nil {
		free := c.freeTierLimit
		ent.ClientLimit = &free
		return ent
	}

	ent.ClientLimit = agg.ClientLimit
	ent.IssuerLimit = agg.IssuerLimit
	ent.ValidIssuers = agg.ValidIssuers

	contributors := c.contributorsAt(now)
	ent.GuaranteedClientLimit = models.StrictestClientLimit(contributors)
	for _, lic := range contributors {
		ent.ContributingLicenses = append(ent.ContributingLicenses, lic.ID)
	}

	if agg.IsActiveAt(now) {
		ent.Tier = constants.TierLicensed
	} else {
		ent.Tier = constants.TierGrace
		ent.GraceDeadline = agg.GraceDeadlineAt(c.fallbackGrace)
	}

	return ent
}

// effectiveClientLimit resolves the client limit in force at now: the
// aggregate's limit when a license is relevant, otherwise the free tier.
func (c *licenseChecker) effectiveClientLimit(ctx context.Context, now time.Time) *int64 {
	if agg := c.manager.ActiveLicense(ctx, now); agg != nil {
		return agg.ClientLimit
	}
	free := c.freeTierLimit
	return &free
}

// remoteKnows consults the registry and, failing that, the client directory
// with a bounded wait. Both lookups are best-effort: any failure simply means
// the client is treated as unknown.
func (c *licenseChecker) remoteKnows(ctx context.Context, clientID string) bool {
	if c.deps.Registry != nil {
		if known, err := c.deps.Registry.HasClient(ctx, clientID); err == nil && known {
			return true
		}
	}

	if c.deps.Directory == nil {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	type answer struct {
		exists bool
		err    error
	}
	ch := make(chan answer, 1)
	go func() {
		exists, err := c.deps.Directory.Exists(lookupCtx, clientID)
		ch <- answer{exists, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			c.log.Debug(ctx, "Client directory lookup failed",
				logger.String("client_id", clientID), logger.Error(a.err))
			return false
		}
		return a.exists
	case <-lookupCtx.Done():
		c.log.Debug(ctx, "Client directory lookup timed out",
			logger.String("client_id", clientID))
		return false
	}
}

// knownIssuerCount reads the issuer set size under the lock.
func (c *licenseChecker) knownIssuerCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.knownIssuers))
}

// finishClient records a client decision with the audit trail, the metrics
// sink, and the registry mirror. All three are best-effort.
func (c *licenseChecker) finishClient(ctx context.Context, d *models.AdmissionDecision, newlyAdmitted bool) *models.AdmissionDecision {
	if newlyAdmitted && c.deps.Registry != nil {
		if _, err := c.deps.Registry.AddClient(ctx, d.Principal); err != nil {
			c.log.Warn(ctx, "Registry mirror write failed",
				logger.String("client_id", d.Principal), logger.F("error", err.Error()))
		}
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordClientAdmission(d.Allowed, string(d.Reason))
	}
	c.auditDecision(ctx, d, constants.ErrCodeClientLimitExceeded,
		models.NewAuditEvent(clientEventType(d.Allowed), auditResult(d.Allowed), "client admission").
			WithClient(d.Principal).WithReason(d.Reason))
	return d
}

// finishIssuer records an issuer decision; same best-effort discipline as
// finishClient.
func (c *licenseChecker) finishIssuer(ctx context.Context, d *models.AdmissionDecision, newlyAdmitted bool) *models.AdmissionDecision {
	if newlyAdmitted && c.deps.Registry != nil {
		if _, err := c.deps.Registry.AddIssuer(ctx, d.Principal); err != nil {
			c.log.Warn(ctx, "Registry mirror write failed",
				logger.String("issuer", d.Principal), logger.F("error", err.Error()))
		}
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordIssuerAdmission(d.Allowed, string(d.Reason))
	}
	code := constants.ErrCodeIssuerLimitExceeded
	if d.Reason == constants.AdmissionReasonNotWhitelisted {
		code = constants.ErrCodeIssuerNotWhitelisted
	}
	c.auditDecision(ctx, d, code,
		models.NewAuditEvent(issuerEventType(d.Allowed), auditResult(d.Allowed), "issuer admission").
			WithIssuer(d.Principal).WithReason(d.Reason))
	return d
}

// auditDecision writes one audit event, swallowing failures.
func (c *licenseChecker) auditDecision(ctx context.Context, d *models.AdmissionDecision, refusalCode constants.ErrorCode, event *models.AuditEvent) {
	if c.deps.Audit == nil {
		return
	}
	if !d.Allowed {
		event.WithResultCode(refusalCode)
	}
	if err := c.deps.Audit.LogEvent(ctx, event); err != nil {
		c.log.Debug(ctx, "Audit write failed", logger.Error(err))
	}
}

// contributorsAt snapshots the licenses in the tier that governs enforcement
// at now: active ones, or in-grace ones when nothing is active.
func (c *licenseChecker) contributorsAt(now time.Time) []*models.License {
	var active, inGrace []*models.License
	for _, lic := range c.manager.Licenses() {
		switch {
		case lic.IsActiveAt(now):
			active = append(active, lic)
		case lic.IsInGraceAt(now, c.fallbackGrace):
			inGrace = append(inGrace, lic)
		}
	}
	if len(active) > 0 {
		return active
	}
	return inGrace
}

func decision(allowed bool, reason constants.AdmissionReason, principal string, limit *int64, count int64, now time.Time) *models.AdmissionDecision {
	d := &models.AdmissionDecision{
		Allowed:    allowed,
		Reason:     reason,
		Principal:  principal,
		KnownCount: count,
		DecidedAt:  now,
	}
	if limit != nil {
		v := *limit
		d.EffectiveLimit = &v
	}
	return d
}

func containsIssuer(issuers []string, issuer string) bool {
	for _, iss := range issuers {
		if iss == issuer {
			return true
		}
	}
	return false
}

func clientEventType(allowed bool) constants.AuditEventType {
	if allowed {
		return constants.EventTypeClientAdmitted
	}
	return constants.EventTypeClientRejected
}

func issuerEventType(allowed bool) constants.AuditEventType {
	if allowed {
		return constants.EventTypeIssuerAdmitted
	}
	return constants.EventTypeIssuerRejected
}

func auditResult(allowed bool) constants.AuditEventResult {
	if allowed {
		return constants.AuditResultSuccess
	}
	return constants.AuditResultFailure
}

