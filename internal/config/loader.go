package config

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// LoadConfig loads the configuration from file, environment variables, and command line.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cle/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.WrapError(err, constants.ErrCodeServerError, "failed to read config file")
		}
		log.Info(context.Background(), "No config file found, using defaults and environment")
	} else {
		log.Info(context.Background(), "Loaded config file", logger.String("path", v.ConfigFileUsed()))
	}

	// Load from environment variables
	v.SetEnvPrefix("CLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapError(err, constants.ErrCodeInvalidRequest, "invalid configuration")
	}

	return &cfg, nil
}

// setDefaults seeds viper with the built-in defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", constants.DefaultServicePort)
	v.SetDefault("server.grpc_port", constants.DefaultGRPCPort)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cle")
	v.SetDefault("database.database", "cle_license")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 60)
	v.SetDefault("database.max_conn_idle_time", 10)

	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("vault.mount_path", constants.VaultMountPath)
	v.SetDefault("vault.trust_anchor_path", constants.VaultTrustAnchorsPath)

	v.SetDefault("license.directory", "/etc/cle/licenses")
	v.SetDefault("license.watch_directory", true)
	v.SetDefault("license.trust_anchor_source", "embedded")
	v.SetDefault("license.allowed_algorithms", []string{
		string(constants.AlgorithmRS256),
		string(constants.AlgorithmRS512),
	})
	v.SetDefault("license.client_tolerance_factor", constants.DefaultClientToleranceFactor)
	v.SetDefault("license.default_grace_period", constants.DefaultGracePeriod)
	v.SetDefault("license.free_tier_client_limit", constants.DefaultFreeTierClientLimit)
	v.SetDefault("license.directory_cache_ttl", constants.DirectoryCacheTTL)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.topic", constants.AuditTopic)

	v.SetDefault("rate_limit.default_rpm", constants.DefaultRateLimitPerMinute)
	v.SetDefault("rate_limit.burst_size", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sample_ratio", 0.1)
}
