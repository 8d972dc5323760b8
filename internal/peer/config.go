package peer

import (
	"fmt"
	"os"
	"time"

	"github.com/dyluth/murmur/internal/config"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "MURMUR"

// DefaultInterval is the broadcast period and listener idle wait.
const DefaultInterval = 2 * time.Second

var validate = validator.New()

// Config holds a peer's runtime configuration.
// Precedence: built-in defaults, then murmur.yml, then MURMUR_* environment variables.
type Config struct {
	// RedisURL locates the shared broker (MURMUR_REDIS_URL)
	RedisURL string `envconfig:"REDIS_URL" validate:"required"`

	// Namespace isolates a mesh on a shared Redis (MURMUR_NAMESPACE)
	Namespace string `envconfig:"NAMESPACE"`

	// Interval is the broadcast period (MURMUR_INTERVAL)
	Interval time.Duration `envconfig:"INTERVAL" validate:"gt=0"`

	// IdleInterval is how long the listener waits before logging idleness (MURMUR_IDLE_INTERVAL)
	IdleInterval time.Duration `envconfig:"IDLE_INTERVAL" validate:"gt=0"`

	// ShutdownTimeout bounds the wait for both loops to stop (MURMUR_SHUTDOWN_TIMEOUT)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	// DeregisterTimeout bounds the final registry removal (MURMUR_DEREGISTER_TIMEOUT)
	DeregisterTimeout time.Duration `envconfig:"DEREGISTER_TIMEOUT" validate:"gt=0"`

	// HealthPort serves /healthz when non-zero (MURMUR_HEALTH_PORT)
	HealthPort int `envconfig:"HEALTH_PORT" validate:"min=0,max=65535"`

	// LogLevel is one of debug, info, warn, error (MURMUR_LOG_LEVEL)
	LogLevel string `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RedisURL:          config.DefaultRedisURL(),
		Interval:          DefaultInterval,
		IdleInterval:      DefaultInterval,
		ShutdownTimeout:   DefaultInterval,
		DeregisterTimeout: 5 * time.Second,
		LogLevel:          "info",
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file at
// path (or MURMUR_CONFIG when path is empty) and MURMUR_* overrides, then validates it.
// All errors are detected here, before any connection is made.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if path != "" {
		file, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(file)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s_* environment: %w", EnvPrefix, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile copies every field set in the file over the current values.
func (c *Config) applyFile(f *config.MurmurConfig) {
	if f.Namespace != "" {
		c.Namespace = f.Namespace
	}

	if f.Redis != nil {
		c.RedisURL = f.Redis.URL()
	}

	if p := f.Peer; p != nil {
		if p.Interval > 0 {
			c.Interval = p.Interval
		}
		if p.IdleInterval > 0 {
			c.IdleInterval = p.IdleInterval
		}
		if p.ShutdownTimeout > 0 {
			c.ShutdownTimeout = p.ShutdownTimeout
		}
		if p.DeregisterTimeout > 0 {
			c.DeregisterTimeout = p.DeregisterTimeout
		}
	}

	if f.Health != nil {
		c.HealthPort = f.Health.Port
	}

	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
}

// Validate checks that all configuration fields are present and valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := redis.ParseURL(c.RedisURL); err != nil {
		return fmt.Errorf("invalid redis url %q: %w", c.RedisURL, err)
	}

	if err := presence.ValidateNamespace(c.Namespace); err != nil {
		return err
	}

	return nil
}

// RedisOptions parses RedisURL into go-redis options.
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", c.RedisURL, err)
	}
	return opts, nil
}
