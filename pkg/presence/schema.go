package presence

import (
	"fmt"
	"regexp"
)

// Redis naming helpers
//
// The bare names are the protocol's well-known names, so un-namespaced
// clients interoperate with any other peer speaking it.

const (
	// RegistryKey is the well-known key holding the JSON array of connected tokens.
	RegistryKey = "connected_ids"

	// ChannelSuffix is appended to a token to form its inbound channel.
	ChannelSuffix = " CHANNEL"
)

// ChannelFor returns the inbound channel of a token.
// Pattern: {token} CHANNEL
func ChannelFor(token string) string {
	return token + ChannelSuffix
}

// NamespacePrefix returns the prefix applied to keys and channels for a namespace.
// The empty namespace has no prefix.
// Pattern: murmur:{namespace}:
func NamespacePrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return fmt.Sprintf("murmur:%s:", namespace)
}

// NamespacedRegistryKey returns the registry key for a namespace.
// Pattern: murmur:{namespace}:connected_ids
func NamespacedRegistryKey(namespace string) string {
	return NamespacePrefix(namespace) + RegistryKey
}

// NamespacedChannelFor returns the inbound channel of a token within a namespace.
// Pattern: murmur:{namespace}:{token} CHANNEL
func NamespacedChannelFor(namespace, token string) string {
	return NamespacePrefix(namespace) + ChannelFor(token)
}

// MaxNamespaceLength is the maximum length for a namespace (DNS-compatible).
const MaxNamespaceLength = 63

// NamespacePattern matches valid namespaces: lowercase alphanumeric, hyphens
// allowed but not at the start or end.
var NamespacePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateNamespace checks a non-empty namespace against NamespacePattern.
// The empty namespace is valid and selects the bare names.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return nil
	}

	if len(namespace) > MaxNamespaceLength {
		return fmt.Errorf("namespace too long: %d characters (max: %d)", len(namespace), MaxNamespaceLength)
	}

	if !NamespacePattern.MatchString(namespace) {
		return fmt.Errorf("invalid namespace '%s': must be lowercase alphanumeric with hyphens (not at start/end)", namespace)
	}

	return nil
}
