package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// Ensure it satisfies the interface in interfaces.go
var _ LicenseManager = (*licenseManager)(nil)

// licenseManager keeps licenses sorted ascending by NotBefore under a
// reader/writer lock. License values are cloned on the way in and out, so the
// managed entries are never shared mutable state.
type licenseManager struct {
	mu       sync.RWMutex
	licenses []*models.License

	log       logger.Logger
	throttled *logger.ThrottledLogger
	metrics   Metrics

	fallbackGrace time.Duration
	warnWindow    time.Duration
	warnEvery     time.Duration
}

// NewLicenseManager creates a license manager. fallbackGrace applies to
// licenses that carry no grace claim; warnWindow is how far ahead of expiry
// operators start getting warned. metrics may be nil.
func NewLicenseManager(
	log logger.Logger,
	metrics Metrics,
	fallbackGrace time.Duration,
	warnWindow time.Duration,
) LicenseManager {
	if fallbackGrace < 0 {
		fallbackGrace = 0
	}
	if warnWindow <= 0 {
		warnWindow = constants.ExpiryWarningWindow
	}

	componentLog := log.WithComponent("license_manager")

	return &licenseManager{
		licenses:      make([]*models.License, 0),
		log:           componentLog,
		throttled:     logger.NewThrottledLogger(componentLog),
		metrics:       metrics,
		fallbackGrace: fallbackGrace,
		warnWindow:    warnWindow,
		warnEvery:     constants.ExpiryWarnThrottlePeriod,
	}
}

// Add inserts lic into the ordered collection. The insertion point is found
// by binary search over NotBefore; the shift is O(n), which is fine for the
// expected population of tens of licenses. The value is accepted as-is: no
// field invariants are validated and duplicates simply appear twice.
func (m *licenseManager) Add(ctx context.Context, lic *models.License) {
	if lic == nil {
		return
	}
	entry := lic.Clone()

	m.mu.Lock()
	idx := sort.Search(len(m.licenses), func(i int) bool {
		return !m.licenses[i].StartsBefore(entry)
	})
	m.licenses = append(m.licenses, nil)
	copy(m.licenses[idx+1:], m.licenses[idx:])
	m.licenses[idx] = entry
	held := len(m.licenses)
	m.mu.Unlock()

	m.log.Info(ctx, "License added",
		logger.String("license_id", entry.ID),
		logger.String("issuer", entry.Issuer),
		logger.Int("held", held),
	)
}

// Licenses returns a sorted snapshot. Each entry is cloned so callers cannot
// reach back into the managed collection.
func (m *licenseManager) Licenses() []*models.License {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]*models.License, len(m.licenses))
	for i, lic := range m.licenses {
		snapshot[i] = lic.Clone()
	}
	return snapshot
}

// Count returns the number of held licenses.
func (m *licenseManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.licenses)
}

// ActiveLicense computes the effective license as of now. Licenses partition
// into three temporal classes: active, in grace, and excluded (future or past
// grace). All active licenses fold together; in-grace licenses are consulted
// only when nothing is active and never mix with active ones. A nil result
// means no license is relevant.
func (m *licenseManager) ActiveLicense(ctx context.Context, now time.Time) *models.License {
	started := time.Now()

	m.mu.RLock()
	var active, inGrace []*models.License
	for _, lic := range m.licenses {
		switch {
		case lic.IsActiveAt(now):
			active = append(active, lic)
		case lic.IsInGraceAt(now, m.fallbackGrace):
			inGrace = append(inGrace, lic)
		}
	}
	held := len(m.licenses)
	m.mu.RUnlock()

	contributors := active
	tier := constants.TierLicensed
	if len(active) == 0 {
		contributors = inGrace
		tier = constants.TierGrace
	}

	agg := models.FoldLicenses(contributors)
	if agg == nil {
		tier = constants.TierFree
	}

	if m.metrics != nil {
		m.metrics.RecordEvaluation(string(tier), time.Since(started))
		m.metrics.UpdateLicenseCounts(held, len(active))
	}

	m.warnBestEffort(ctx, tier, contributors, now)

	return agg
}

// CurrentLimits is a convenience alias for ActiveLicense with an explicit
// presence flag.
func (m *licenseManager) CurrentLimits(ctx context.Context, now time.Time) (*models.License, bool) {
	agg := m.ActiveLicense(ctx, now)
	return agg, agg != nil
}

// warnBestEffort emits throttled diagnostics about licenses nearing expiry and
// about enforcement running on grace licenses. It never panics and never
// influences the returned aggregate.
func (m *licenseManager) warnBestEffort(ctx context.Context, tier constants.EntitlementTier, contributors []*models.License, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Debug(ctx, "Expiry diagnostics skipped", logger.Any("panic", r))
		}
	}()

	switch tier {
	case constants.TierLicensed:
		for _, lic := range contributors {
			if !lic.IsExpiringSoonAt(now, m.warnWindow) {
				continue
			}
			m.throttled.WarnThrottled(ctx,
				fmt.Sprintf("license_expiring:%s", lic.ID),
				m.warnEvery,
				"License expiring soon",
				logger.String("license_id", lic.ID),
				logger.Time("expires_at", *lic.ExpiresAt),
				logger.Duration("remaining", lic.TimeUntilExpiryAt(now)),
			)
		}
	case constants.TierGrace:
		for _, lic := range contributors {
			deadline := lic.GraceDeadlineAt(m.fallbackGrace)
			if deadline == nil {
				continue
			}
			m.throttled.WarnThrottled(ctx,
				fmt.Sprintf("license_grace:%s", lic.ID),
				m.warnEvery,
				"Enforcement running on an expired license inside its grace period",
				logger.String("license_id", lic.ID),
				logger.Time("expires_at", *lic.ExpiresAt),
				logger.Time("grace_until", *deadline),
			)
		}
	}
}
