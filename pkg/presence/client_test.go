package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T, namespace string) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t, "test")
		assert.NotNil(t, client)
		assert.Equal(t, "test", client.Namespace())
		assert.Equal(t, "murmur:test:connected_ids", client.RegistryKey())
		assert.Equal(t, "murmur:test:x CHANNEL", client.ChannelFor("x"))
	})

	t.Run("empty namespace uses bare names", func(t *testing.T) {
		client, _ := setupTestClient(t, "")
		assert.Equal(t, "connected_ids", client.RegistryKey())
		assert.Equal(t, "x CHANNEL", client.ChannelFor("x"))
	})

	t.Run("rejects invalid namespace", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "Bad Name")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid namespace")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t, "")
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	client, mr := setupTestClient(t, "")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, client.Ping(ctx))
}

func TestSendAndSubscribe(t *testing.T) {
	client, _ := setupTestClient(t, "")
	ctx := context.Background()

	sub, err := client.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, "bob CHANNEL", sub.Channel())

	env := Envelope{SenderID: "alice", Content: "hi", Kind: KindGreeting}
	require.NoError(t, client.Send(ctx, "bob", env))

	select {
	case payload := <-sub.Messages():
		decoded, err := Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, env, decoded)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for envelope")
	}
}

func TestSend_OnlyReachesRecipientChannel(t *testing.T) {
	client, _ := setupTestClient(t, "")
	ctx := context.Background()

	bob, err := client.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer bob.Close()

	carol, err := client.Subscribe(ctx, "carol")
	require.NoError(t, err)
	defer carol.Close()

	require.NoError(t, client.Send(ctx, "bob", Envelope{SenderID: "alice", Content: "for bob"}))

	select {
	case <-bob.Messages():
	case <-time.After(time.Second):
		t.Fatal("bob did not receive")
	}

	select {
	case payload := <-carol.Messages():
		t.Fatalf("carol received %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSend_NamespacesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	prod, err := NewClient(&redis.Options{Addr: mr.Addr()}, "prod")
	require.NoError(t, err)
	defer prod.Close()

	staging, err := NewClient(&redis.Options{Addr: mr.Addr()}, "staging")
	require.NoError(t, err)
	defer staging.Close()

	sub, err := staging.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, prod.Send(ctx, "bob", Envelope{SenderID: "alice", Content: "wrong mesh"}))

	select {
	case payload := <-sub.Messages():
		t.Fatalf("cross-namespace delivery: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSend_Validation(t *testing.T) {
	client, _ := setupTestClient(t, "")
	ctx := context.Background()

	err := client.Send(ctx, "", Envelope{SenderID: "a"})
	assert.Error(t, err)

	err = client.Send(ctx, "bob", Envelope{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid envelope")
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t, "")

	sub, err := client.Subscribe(context.Background(), "bob")
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Messages():
		assert.False(t, ok, "messages channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("messages channel not closed after Close")
	}
}

func TestSubscription_ClosedByContext(t *testing.T) {
	client, _ := setupTestClient(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := client.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer sub.Close()

	cancel()

	select {
	case _, ok := <-sub.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("messages channel not closed after context cancellation")
	}
}

func TestSubscribe_Unreachable(t *testing.T) {
	client, mr := setupTestClient(t, "")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Subscribe(ctx, "bob")
	assert.Error(t, err)
}
