package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// Test_LoadConfig_Defaults verifies the built-in defaults apply when no
// config file is present.
func Test_LoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.LoadConfig(logger.NewNoopLogger())
	require.NoError(t, err, "config loader failed")

	assert.Equal(t, constants.DefaultServicePort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultGRPCPort, cfg.Server.GRPCPort)
	assert.Equal(t, "embedded", cfg.License.TrustAnchorSource)
	assert.Equal(t, constants.DefaultClientToleranceFactor, cfg.License.ClientToleranceFactor)
	assert.Equal(t, constants.DefaultGracePeriod, cfg.License.DefaultGracePeriod)
	assert.Equal(t, constants.DefaultFreeTierClientLimit, cfg.License.FreeTierClientLimit)
	assert.False(t, cfg.Audit.Enabled, "audit should be disabled by default")
}

// Test_LoadConfig_FileOverrides verifies values from a config file override
// the defaults, including duration parsing.
func Test_LoadConfig_FileOverrides(t *testing.T) {
	configContent := `
server:
  port: 9999
license:
  directory: "/var/lib/cle/licenses"
  trust_anchor_source: "file"
  trust_anchor_file: "/etc/cle/anchor.pem"
  accepted_issuers: ["https://licensing.example.com"]
  client_tolerance_factor: 1.5
  default_grace_period: 96h
  free_tier_client_limit: 3
audit:
  enabled: true
  brokers: ["localhost:9092"]
  topic: "test-audit"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err, "failed to write test config file")

	t.Chdir(tmpDir)

	cfg, err := config.LoadConfig(logger.NewNoopLogger())
	require.NoError(t, err, "config loader failed")

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/var/lib/cle/licenses", cfg.License.Directory)
	assert.Equal(t, "file", cfg.License.TrustAnchorSource)
	assert.Equal(t, []string{"https://licensing.example.com"}, cfg.License.AcceptedIssuers)
	assert.Equal(t, 1.5, cfg.License.ClientToleranceFactor)
	assert.Equal(t, 96*time.Hour, cfg.License.DefaultGracePeriod)
	assert.Equal(t, int64(3), cfg.License.FreeTierClientLimit)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Audit.Brokers)
}

// Test_Config_Validate_Failures exercises the validation rules.
func Test_Config_Validate_Failures(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Server: config.ServerConfig{Port: 8080, GRPCPort: 50051},
			License: config.LicenseConfig{
				TrustAnchorSource:     "embedded",
				ClientToleranceFactor: 1.3,
				FreeTierClientLimit:   2,
			},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "ZeroHTTPPort",
			mutate:  func(c *config.Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "ToleranceBelowOne",
			mutate:  func(c *config.Config) { c.License.ClientToleranceFactor = 0.5 },
			wantErr: "client_tolerance_factor",
		},
		{
			name:    "NegativeFreeTierLimit",
			mutate:  func(c *config.Config) { c.License.FreeTierClientLimit = -1 },
			wantErr: "free_tier_client_limit",
		},
		{
			name:    "UnknownTrustAnchorSource",
			mutate:  func(c *config.Config) { c.License.TrustAnchorSource = "hsm" },
			wantErr: "trust_anchor_source",
		},
		{
			name: "FileSourceWithoutPath",
			mutate: func(c *config.Config) {
				c.License.TrustAnchorSource = "file"
				c.License.TrustAnchorFile = ""
			},
			wantErr: "trust_anchor_file",
		},
		{
			name:    "AuditEnabledWithoutBrokers",
			mutate:  func(c *config.Config) { c.Audit.Enabled = true },
			wantErr: "audit.brokers",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	assert.NoError(t, valid().Validate(), "baseline config should validate")
}

// Test_LicenseConfig_FallbackAccessors verifies the zero-value fallbacks.
func Test_LicenseConfig_FallbackAccessors(t *testing.T) {
	var lc config.LicenseConfig

	assert.Equal(t, constants.DefaultGracePeriod, lc.GraceOrDefault())
	assert.Equal(t, constants.DefaultClientToleranceFactor, lc.ToleranceOrDefault())

	lc.DefaultGracePeriod = 24 * time.Hour
	lc.ClientToleranceFactor = 2.0

	assert.Equal(t, 24*time.Hour, lc.GraceOrDefault())
	assert.Equal(t, 2.0, lc.ToleranceOrDefault())
}
