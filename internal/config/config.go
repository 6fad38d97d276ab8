// Package config holds the settings of the formctl command line tool.
package config

import (
	"time"

	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/remote"
)

// EnvPrefix marks the environment variables read by Load.
const EnvPrefix = "FORMENGINE_"

// Config is the complete CLI configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Transport TransportConfig `koanf:"transport"`
	Remote    RemoteConfig    `koanf:"remote"`
	Storage   StorageConfig   `koanf:"storage"`
}

// LogConfig controls the charm logger.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// TransportConfig controls the HTTP client.
type TransportConfig struct {
	Timeout time.Duration     `koanf:"timeout" validate:"gte=0"`
	Retries int               `koanf:"retries" validate:"gte=0,lte=10"`
	Headers map[string]string `koanf:"headers"`
}

// RemoteConfig is the data source table shared by every form.
type RemoteConfig struct {
	Headers      map[string]string   `koanf:"headers"`
	Params       map[string]any      `koanf:"params"`
	URLCacheTime time.Duration       `koanf:"url_cache_time" validate:"gte=0"`
	Sources      []remote.DataSource `koanf:"sources"        validate:"dive"`
}

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// StorageConfig selects where drafts are kept.
type StorageConfig struct {
	Backend   string        `koanf:"backend"    validate:"oneof=memory redis"`
	RedisAddr string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	Prefix    string        `koanf:"prefix"`
	Expiry    time.Duration `koanf:"expiry"     validate:"gte=0"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info"},
		Transport: TransportConfig{Timeout: 10 * time.Second},
		Remote:    RemoteConfig{},
		Storage:   StorageConfig{Backend: StorageMemory, Prefix: "formengine:"},
	}
}

// LoaderOptions converts the remote section for remote.New.
func (c *Config) LoaderOptions() remote.Options {
	return remote.Options{
		Sources:      c.Remote.Sources,
		Headers:      c.Remote.Headers,
		Params:       c.Remote.Params,
		URLCacheTime: c.Remote.URLCacheTime,
	}
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Log.Level)
	cfg.JSON = c.Log.JSON
	return cfg
}
