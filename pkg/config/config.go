// Package config loads woo-lister configuration from a .env file, an optional
// config file and WOO_* environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable (WOO_LOG_LEVEL, ...).
const EnvPrefix = "WOO"

// Settings backends.
const (
	BackendEnv   = "env"
	BackendRedis = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	// Log holds configuration for the logger.
	Log LogConfig `mapstructure:"log"`
	// Client holds configuration for the store HTTP client.
	Client ClientConfig `mapstructure:"client"`
	// Settings selects where the endpoint URL and API keys are kept.
	Settings SettingsConfig `mapstructure:"settings"`
	// Redis holds the connection used by the redis settings backend.
	Redis RedisConfig `mapstructure:"redis"`
	// Server holds configuration for the HTTP front-end.
	Server ServerConfig `mapstructure:"server"`

	v *viper.Viper
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `mapstructure:"level" default:"info"`
	Pretty bool   `mapstructure:"pretty" default:"false"`
}

// ClientConfig configures pkg/client.
type ClientConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" default:"30s"`
	UserAgent         string        `mapstructure:"user_agent" default:"woo-lister/0.1.0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" default:"0"`
	Burst             int           `mapstructure:"burst" default:"1"`
}

// SettingsConfig configures the credentials store.
type SettingsConfig struct {
	Backend string `mapstructure:"backend" default:"env"`
	// SecretKey is the base64 key sealing values in the redis backend.
	SecretKey string `mapstructure:"secret_key" default:""`
}

// RedisConfig configures the redis client.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password" default:""`
	DB       int    `mapstructure:"db" default:"0"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Port            int           `mapstructure:"port" default:"8080"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" default:"30m"`
	MaxSessions     int           `mapstructure:"max_sessions" default:"1000"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// Load reads configuration. dir is searched for a .env file; configFile, if
// not empty, is read as an additional config file (yaml, json or toml).
// Environment variables override both.
func Load(dir, configFile string) (*Config, error) {
	// Missing .env is fine (e.g. production)
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Viper returns the instance the config was loaded from. Settings keys
// (endpoint_url, api_key, api_secret) are read from it by the env backend.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	var errs []error

	switch c.Settings.Backend {
	case BackendEnv:
	case BackendRedis:
		if c.Settings.SecretKey == "" {
			errs = append(errs, fmt.Errorf("settings.secret_key is required for the redis backend"))
		} else if key, err := base64.StdEncoding.DecodeString(c.Settings.SecretKey); err != nil || len(key) != 32 {
			errs = append(errs, fmt.Errorf("settings.secret_key must be 32 bytes, base64 encoded"))
		}
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("settings.backend must be %q or %q (got %q)", BackendEnv, BackendRedis, c.Settings.Backend))
	}

	if c.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be positive (got %s)", c.Client.Timeout))
	}
	if c.Client.UserAgent == "" {
		errs = append(errs, fmt.Errorf("client.user_agent is required"))
	}
	if c.Client.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("client.requests_per_second must not be negative"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl must be positive"))
	}
	if c.Server.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("server.max_sessions must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// bindValues walks the struct and registers every mapstructure key with its
// default so AutomaticEnv can resolve it during Unmarshal.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// time.Duration is not a struct, so only config sections recurse here.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
