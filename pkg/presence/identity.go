package presence

import (
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a fresh identity token.
// Tokens are random v4 UUIDs, so peers started in the same clock tick never collide.
func NewToken() string {
	return uuid.NewString()
}

// ValidToken reports whether s can be used as a peer token.
func ValidToken(s string) bool {
	return strings.TrimSpace(s) != ""
}
