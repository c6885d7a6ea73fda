// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. Both the
// search service and the gateway read the same file; each binary uses its
// slice of it.
type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Auth      AuthConfig               `mapstructure:"auth"`
	Scheduler SchedulerConfig          `mapstructure:"scheduler"`
	Catalog   CatalogConfig            `mapstructure:"catalog"`
	Gateway   GatewayConfig            `mapstructure:"gateway"`
	Breaker   BreakerConfig            `mapstructure:"breaker"`
	Breakers  map[string]BreakerConfig `mapstructure:"breakers"`
	Logging   LoggingConfig            `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SchedulerConfig governs the worker pool and job queue.
type SchedulerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// CatalogConfig controls access to the video catalog database. An empty DSN
// selects the in-memory source.
type CatalogConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
	ConnLifeMins int    `mapstructure:"conn_lifetime_minutes"`
}

// GatewayConfig maps downstream service names to base URLs and sets the
// per-call client timeout.
type GatewayConfig struct {
	Port                 int               `mapstructure:"port"`
	Services             map[string]string `mapstructure:"services"`
	ClientTimeoutSeconds int               `mapstructure:"client_timeout_seconds"`
}

// BreakerConfig holds circuit breaker parameters.
type BreakerConfig struct {
	FailureThreshold       int `mapstructure:"failure_threshold"`
	RecoveryTimeoutSeconds int `mapstructure:"recovery_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEARCHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("scheduler.concurrency", 4)
	v.SetDefault("scheduler.queue_depth", 64)
	v.SetDefault("gateway.port", 5000)
	v.SetDefault("gateway.client_timeout_seconds", 5)
	v.SetDefault("gateway.services", map[string]string{
		"auth":      "http://localhost:5002",
		"video":     "http://localhost:5003",
		"search":    "http://localhost:5001",
		"analytics": "http://localhost:5004",
	})
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler.concurrency must be > 0")
	}
	if c.Scheduler.QueueDepth <= 0 {
		return fmt.Errorf("scheduler.queue_depth must be > 0")
	}
	if c.Gateway.Port <= 0 {
		return fmt.Errorf("gateway.port must be > 0")
	}
	if c.Gateway.ClientTimeoutSeconds <= 0 {
		return fmt.Errorf("gateway.client_timeout_seconds must be > 0")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be > 0")
	}
	if c.Breaker.RecoveryTimeoutSeconds <= 0 {
		return fmt.Errorf("breaker.recovery_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ServerTimeout converts the server timeout config into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// ClientTimeout converts the gateway client timeout config into a duration.
func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.Gateway.ClientTimeoutSeconds) * time.Second
}

// RecoveryTimeout converts a breaker recovery timeout into a duration.
func (b BreakerConfig) RecoveryTimeout() time.Duration {
	return time.Duration(b.RecoveryTimeoutSeconds) * time.Second
}
