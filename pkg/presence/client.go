package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides namespaced registry and pub/sub operations against the shared broker.
// The client is thread-safe and can be used concurrently from multiple goroutines;
// the inbound and outbound loops of one peer share a single Client.
type Client struct {
	rdb       *redis.Client
	namespace string
	retry     RetryPolicy
}

// NewClient creates a new presence client.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: optional mesh namespace; empty selects the bare key and channel names
//
// Returns an error if the namespace is invalid.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		retry:     DefaultRetryPolicy(),
	}, nil
}

// WithRetryPolicy replaces the registry retry policy and returns the client.
func (c *Client) WithRetryPolicy(p RetryPolicy) *Client {
	c.retry = p
	return c
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Namespace returns the namespace the client was created with.
func (c *Client) Namespace() string {
	return c.namespace
}

// RegistryKey returns the registry key used by this client.
func (c *Client) RegistryKey() string {
	return NamespacedRegistryKey(c.namespace)
}

// ChannelFor returns the channel this client publishes to for a token.
func (c *Client) ChannelFor(token string) string {
	return NamespacedChannelFor(c.namespace, token)
}

// Send encodes env and publishes it to the channel of the peer identified by to.
// Delivery is at-most-once: if nobody is subscribed the message is gone.
func (c *Client) Send(ctx context.Context, to string, env Envelope) error {
	if !ValidToken(to) {
		return fmt.Errorf("recipient token cannot be empty")
	}

	payload, err := Encode(env)
	if err != nil {
		return err
	}

	if err := c.rdb.Publish(ctx, c.ChannelFor(to), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope to %s: %w", to, err)
	}

	return nil
}

// Subscription is an active subscription to one peer channel.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	channel  string
	messages <-chan []byte
	cancel   func()
	once     sync.Once
}

// Channel returns the subscribed channel name.
func (s *Subscription) Channel() string {
	return s.channel
}

// Messages returns raw payloads as they arrive.
// The channel is closed when the subscription is closed or its context is cancelled.
func (s *Subscription) Messages() <-chan []byte {
	return s.messages
}

// Close stops the subscription. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to the channel of token and waits for the server to confirm
// the subscription, so anything published after Subscribe returns is delivered.
//
// Payloads are delivered undecoded on a buffered channel (size 10); decoding and
// error policy belong to the consumer.
func (c *Client) Subscribe(ctx context.Context, token string) (*Subscription, error) {
	if !ValidToken(token) {
		return nil, fmt.Errorf("subscription token cannot be empty")
	}

	channel := c.ChannelFor(token)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Receive blocks until the subscribe confirmation (or an error) arrives
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	messages := make(chan []byte, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(messages)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				select {
				case messages <- []byte(msg.Payload):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		channel:  channel,
		messages: messages,
		cancel:   cancelFunc,
	}, nil
}
