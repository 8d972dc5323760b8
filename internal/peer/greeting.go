package peer

import (
	"fmt"
	"math/rand"
)

// Greeter produces envelope content. to is the recipient, from is this peer.
type Greeter func(to, from string) string

// nonce keeps consecutive greetings distinguishable in logs.
func nonce() int {
	return rand.Intn(2000) - 1000
}

// BroadcastGreeting is the content sent to every peer each round.
func BroadcastGreeting(to, from string) string {
	return fmt.Sprintf("Hello '%s'! It's %s! [%d] ~ begin", to, from, nonce())
}

// ReplyGreeting is the content sent back to the sender of a greeting.
func ReplyGreeting(to, from string) string {
	return fmt.Sprintf("Hello '%s'! It's %s! [%d] ~ callback", to, from, nonce())
}
