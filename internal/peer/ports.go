package peer

import (
	"context"

	"github.com/dyluth/murmur/pkg/presence"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// Sender publishes an envelope to the channel of the peer identified by to.
type Sender interface {
	Send(ctx context.Context, to string, env presence.Envelope) error
}

// Lister reads the current registry membership.
type Lister interface {
	Members(ctx context.Context) ([]string, error)
}

// Inbox delivers raw payloads published to this peer's channel.
type Inbox interface {
	Messages() <-chan []byte
}

// Registry is the mutable shared membership.
type Registry interface {
	Lister
	Add(ctx context.Context, token string) error
	Remove(ctx context.Context, token string) error
}

// Broker is everything the engine needs from the shared broker.
// *presence.Client implements it.
type Broker interface {
	Sender
	Registry
	Subscribe(ctx context.Context, token string) (*presence.Subscription, error)
	Ping(ctx context.Context) error
}
