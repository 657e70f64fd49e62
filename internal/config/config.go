package config

import (
	"fmt"
	"time"

	"github.com/turtacn/cle/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	License   LicenseConfig   `mapstructure:"license"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	GRPCPort     int    `mapstructure:"grpc_port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	PprofEnabled bool   `mapstructure:"pprof_enabled"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`  // in minutes
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

type VaultConfig struct {
	Address         string `mapstructure:"address"`
	Token           string `mapstructure:"token"`
	MountPath       string `mapstructure:"mount_path"`
	TrustAnchorPath string `mapstructure:"trust_anchor_path"`
}

// LicenseConfig controls how license tokens are loaded and how their
// entitlements are enforced.
type LicenseConfig struct {
	// Directory holds .lic token files ingested at boot and on change.
	Directory string `mapstructure:"directory"`

	// WatchDirectory enables live reload when the directory changes.
	WatchDirectory bool `mapstructure:"watch_directory"`

	// TrustAnchorSource selects where verification keys come from:
	// "embedded", "file", or "vault".
	TrustAnchorSource string `mapstructure:"trust_anchor_source"`

	// TrustAnchorFile is the PEM file used when TrustAnchorSource is "file".
	TrustAnchorFile string `mapstructure:"trust_anchor_file"`

	// AcceptedIssuers lists the iss values license tokens may carry.
	AcceptedIssuers []string `mapstructure:"accepted_issuers"`

	// AllowedAlgorithms pins the signature algorithms accepted on tokens.
	AllowedAlgorithms []string `mapstructure:"allowed_algorithms"`

	// ClientToleranceFactor scales the licensed client limit before
	// admission is refused.
	ClientToleranceFactor float64 `mapstructure:"client_tolerance_factor"`

	// DefaultGracePeriod applies to licenses that carry no grace period
	// of their own.
	DefaultGracePeriod time.Duration `mapstructure:"default_grace_period"`

	// FreeTierClientLimit applies when no license is active or in grace.
	FreeTierClientLimit int64 `mapstructure:"free_tier_client_limit"`

	// DirectoryCacheTTL bounds how long client-directory lookups are cached.
	DirectoryCacheTTL time.Duration `mapstructure:"directory_cache_ttl"`
}

type AuditConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	HMACSecret string   `mapstructure:"hmac_secret"`
}

type RateLimitConfig struct {
	DefaultRPM int `mapstructure:"default_rpm"`
	BurstSize  int `mapstructure:"burst_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port must be between 1 and 65535, got %d", c.Server.GRPCPort)
	}

	if c.License.ClientToleranceFactor < 1.0 {
		return fmt.Errorf("license.client_tolerance_factor must be at least 1.0, got %v", c.License.ClientToleranceFactor)
	}
	if c.License.FreeTierClientLimit < 0 {
		return fmt.Errorf("license.free_tier_client_limit must not be negative, got %d", c.License.FreeTierClientLimit)
	}
	if c.License.DefaultGracePeriod < 0 {
		return fmt.Errorf("license.default_grace_period must not be negative, got %v", c.License.DefaultGracePeriod)
	}

	switch c.License.TrustAnchorSource {
	case "embedded", "file", "vault":
	default:
		return fmt.Errorf("license.trust_anchor_source must be one of embedded, file, vault; got %q", c.License.TrustAnchorSource)
	}
	if c.License.TrustAnchorSource == "file" && c.License.TrustAnchorFile == "" {
		return fmt.Errorf("license.trust_anchor_file is required when trust_anchor_source is file")
	}

	if c.Audit.Enabled && len(c.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers is required when audit is enabled")
	}

	return nil
}

// GraceOrDefault returns the configured default grace period, falling back
// to the built-in default when unset.
func (c *LicenseConfig) GraceOrDefault() time.Duration {
	if c.DefaultGracePeriod > 0 {
		return c.DefaultGracePeriod
	}
	return constants.DefaultGracePeriod
}

// ToleranceOrDefault returns the configured client tolerance factor,
// falling back to the built-in default when unset.
func (c *LicenseConfig) ToleranceOrDefault() float64 {
	if c.ClientToleranceFactor >= 1.0 {
		return c.ClientToleranceFactor
	}
	return constants.DefaultClientToleranceFactor
}
