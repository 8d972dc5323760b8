package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file murmur looks for when no path is given.
const DefaultPath = "murmur.yml"

// RedisConfig locates the shared broker
type RedisConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// PeerConfig tunes the two peer loops and shutdown
type PeerConfig struct {
	Interval          time.Duration `yaml:"interval,omitempty"`           // Broadcast period
	IdleInterval      time.Duration `yaml:"idle_interval,omitempty"`      // Listener idle wait
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout,omitempty"`   // Bound on waiting for loops to stop
	DeregisterTimeout time.Duration `yaml:"deregister_timeout,omitempty"` // Bound on the final registry removal
}

// HealthConfig enables the /healthz endpoint
type HealthConfig struct {
	Port int `yaml:"port,omitempty"` // 0 disables the endpoint
}

// MurmurConfig represents the top-level murmur.yml configuration.
// Every field is optional; unset fields keep the built-in defaults.
type MurmurConfig struct {
	Version   string        `yaml:"version"`
	Namespace string        `yaml:"namespace,omitempty"`
	Redis     *RedisConfig  `yaml:"redis,omitempty"`
	Peer      *PeerConfig   `yaml:"peer,omitempty"`
	Health    *HealthConfig `yaml:"health,omitempty"`
	LogLevel  string        `yaml:"log_level,omitempty"`
}

// Validate performs strict validation on the configuration
func (c *MurmurConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	if c.Peer != nil {
		if err := c.Peer.Validate(); err != nil {
			return err
		}
	}

	if c.Health != nil && (c.Health.Port < 0 || c.Health.Port > 65535) {
		return fmt.Errorf("health.port must be between 0 and 65535, got %d", c.Health.Port)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel)
	}

	return nil
}

// Validate checks the broker location
func (r *RedisConfig) Validate() error {
	if r.Port < 0 || r.Port > 65535 {
		return fmt.Errorf("redis.port must be between 0 and 65535, got %d", r.Port)
	}

	if r.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", r.DB)
	}

	return nil
}

// URL renders the broker location as a redis:// URL, filling in the default
// host and port for anything left unset.
func (r *RedisConfig) URL() string {
	host := r.Host
	if host == "" {
		host = GetRedisHost()
	}

	port := r.Port
	if port == 0 {
		port = DefaultRedisPort
	}

	u := url.URL{
		Scheme: "redis",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   "/" + strconv.Itoa(r.DB),
	}
	if r.Password != "" {
		u.User = url.UserPassword("", r.Password)
	}

	return u.String()
}

// Validate checks the loop timings. Zero means "use the default".
func (p *PeerConfig) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"peer.interval", p.Interval},
		{"peer.idle_interval", p.IdleInterval},
		{"peer.shutdown_timeout", p.ShutdownTimeout},
		{"peer.deregister_timeout", p.DeregisterTimeout},
	}

	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must be >= 0, got %s", d.name, d.value)
		}
	}

	return nil
}

// Load reads and validates murmur.yml from the specified path
func Load(path string) (*MurmurConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config MurmurConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
