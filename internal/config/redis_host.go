package config

import (
	"fmt"
	"os"
)

// DefaultRedisPort is the standard Redis port.
const DefaultRedisPort = 6379

// GetRedisHost returns the appropriate Redis hostname for the current environment.
// In Docker it returns "host.docker.internal" to reach the host's published ports.
// Otherwise, it returns "localhost".
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// DefaultRedisURL returns the broker URL used when nothing is configured.
func DefaultRedisURL() string {
	return fmt.Sprintf("redis://%s:%d/0", GetRedisHost(), DefaultRedisPort)
}
