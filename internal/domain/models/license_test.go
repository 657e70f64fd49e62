package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/pkg/constants"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func durPtr(d time.Duration) *time.Duration {
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestLicense_StatusAt(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lic := &models.License{
		ID:          "lic-status",
		NotBefore:   timePtr(base),
		ExpiresAt:   timePtr(base.AddDate(0, 0, 10)),
		GracePeriod: durPtr(72 * time.Hour),
	}

	tests := []struct {
		name string
		at   time.Time
		want constants.LicenseStatus
	}{
		{"before window opens", base.Add(-time.Hour), constants.LicenseStatusFuture},
		{"exactly at not before", base, constants.LicenseStatusActive},
		{"inside window", base.AddDate(0, 0, 5), constants.LicenseStatusActive},
		{"instant before expiry", base.AddDate(0, 0, 10).Add(-time.Second), constants.LicenseStatusActive},
		{"exactly at expiry", base.AddDate(0, 0, 10), constants.LicenseStatusInGrace},
		{"inside grace", base.AddDate(0, 0, 11), constants.LicenseStatusInGrace},
		{"exactly at grace deadline", base.AddDate(0, 0, 13), constants.LicenseStatusExpired},
		{"past grace", base.AddDate(0, 0, 30), constants.LicenseStatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lic.StatusAt(tt.at, constants.DefaultGracePeriod))
		})
	}
}

func TestLicense_StatusAt_UnboundedSides(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		lic  *models.License
		at   time.Time
		want constants.LicenseStatus
	}{
		{
			"perpetual license is always active",
			&models.License{},
			now.AddDate(100, 0, 0),
			constants.LicenseStatusActive,
		},
		{
			"nil not before is active arbitrarily far back",
			&models.License{ExpiresAt: timePtr(now)},
			now.AddDate(-100, 0, 0),
			constants.LicenseStatusActive,
		},
		{
			"nil expiry never enters grace",
			&models.License{NotBefore: timePtr(now)},
			now.AddDate(100, 0, 0),
			constants.LicenseStatusActive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lic.StatusAt(tt.at, constants.DefaultGracePeriod))
		})
	}
}

func TestLicense_StatusAt_AbsentGraceClaim(t *testing.T) {
	exp := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lic := &models.License{ExpiresAt: timePtr(exp)} // no grace claim

	// Without a grace claim the license expires outright; the built-in
	// fallback is zero.
	assert.Equal(t, constants.LicenseStatusExpired, lic.StatusAt(exp, constants.DefaultGracePeriod))
	assert.Equal(t, constants.LicenseStatusExpired, lic.StatusAt(exp.Add(time.Second), constants.DefaultGracePeriod))

	// Operators may configure a deployment-wide fallback grace.
	assert.Equal(t, constants.LicenseStatusInGrace, lic.StatusAt(exp.Add(71*time.Hour), 72*time.Hour))
	assert.Equal(t, constants.LicenseStatusExpired, lic.StatusAt(exp.Add(73*time.Hour), 72*time.Hour))

	// An explicit grace claim beats the configured fallback.
	lic.GracePeriod = durPtr(24 * time.Hour)
	assert.Equal(t, constants.LicenseStatusExpired, lic.StatusAt(exp.Add(25*time.Hour), 72*time.Hour))
}

func TestLicense_EffectiveGracePeriod(t *testing.T) {
	lic := &models.License{}
	assert.Equal(t, 72*time.Hour, lic.EffectiveGracePeriod(72*time.Hour))

	lic.GracePeriod = durPtr(24 * time.Hour)
	assert.Equal(t, 24*time.Hour, lic.EffectiveGracePeriod(72*time.Hour))
}

func TestLicense_IsExpiringSoonAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	tests := []struct {
		name string
		lic  *models.License
		want bool
	}{
		{"expiring inside the window", &models.License{ExpiresAt: timePtr(now.AddDate(0, 0, 20))}, true},
		{"expiring at the window edge", &models.License{ExpiresAt: timePtr(now.Add(window))}, true},
		{"expiring beyond the window", &models.License{ExpiresAt: timePtr(now.AddDate(0, 0, 40))}, false},
		{"perpetual never warns", &models.License{}, false},
		{"already expired never warns", &models.License{ExpiresAt: timePtr(now.Add(-time.Hour))}, false},
		{"future license never warns", &models.License{NotBefore: timePtr(now.Add(time.Hour)), ExpiresAt: timePtr(now.AddDate(0, 0, 2))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lic.IsExpiringSoonAt(now, window))
		})
	}
}

func TestLicense_StartsBefore(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)

	tests := []struct {
		name string
		a, b *models.License
		want bool
	}{
		{"nil starts before set", &models.License{}, &models.License{NotBefore: timePtr(early)}, true},
		{"set never starts before nil", &models.License{NotBefore: timePtr(early)}, &models.License{}, false},
		{"both nil compare equal", &models.License{}, &models.License{}, false},
		{"earlier starts before later", &models.License{NotBefore: timePtr(early)}, &models.License{NotBefore: timePtr(late)}, true},
		{"later does not start before earlier", &models.License{NotBefore: timePtr(late)}, &models.License{NotBefore: timePtr(early)}, false},
		{"equal instants compare equal", &models.License{NotBefore: timePtr(early)}, &models.License{NotBefore: timePtr(early)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.StartsBefore(tt.b))
		})
	}
}

func TestLicense_Clone_Independence(t *testing.T) {
	nb := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := nb.AddDate(1, 0, 0)
	lic := &models.License{
		ID:           "lic-clone",
		Issuer:       "https://licensing.example.com",
		NotBefore:    timePtr(nb),
		ExpiresAt:    timePtr(exp),
		GracePeriod:  durPtr(72 * time.Hour),
		ClientLimit:  int64Ptr(10),
		IssuerLimit:  int64Ptr(3),
		ValidIssuers: []string{"https://a.example.com"},
	}

	clone := lic.Clone()
	require.NotSame(t, lic, clone)

	// Mutating the clone must not reach the original.
	*clone.ClientLimit = 99
	*clone.ExpiresAt = exp.AddDate(5, 0, 0)
	clone.ValidIssuers[0] = "https://evil.example.com"

	assert.Equal(t, int64(10), *lic.ClientLimit)
	assert.True(t, lic.ExpiresAt.Equal(exp))
	assert.Equal(t, "https://a.example.com", lic.ValidIssuers[0])

	var nilLic *models.License
	assert.Nil(t, nilLic.Clone())
}
