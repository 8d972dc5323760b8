package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembers_AbsentKeyIsEmpty(t *testing.T) {
	client, _ := setupTestClient(t, "")

	members, err := client.Members(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestMembers_ReadsPlainJSONArray(t *testing.T) {
	client, mr := setupTestClient(t, "")
	require.NoError(t, mr.Set("connected_ids", `["a", "b", "a"]`))

	members, err := client.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)
}

func TestMembers_NullIsEmpty(t *testing.T) {
	client, mr := setupTestClient(t, "")
	require.NoError(t, mr.Set("connected_ids", `null`))

	members, err := client.Members(context.Background())
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMembers_CorruptValue(t *testing.T) {
	client, mr := setupTestClient(t, "")
	require.NoError(t, mr.Set("connected_ids", `{"not":"a list"}`))

	_, err := client.Members(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptRegistry))
}

func TestAdd(t *testing.T) {
	client, mr := setupTestClient(t, "")
	ctx := context.Background()

	t.Run("adds to empty registry", func(t *testing.T) {
		require.NoError(t, client.Add(ctx, "a"))

		members, err := client.Members(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, members)

		stored, err := mr.Get("connected_ids")
		require.NoError(t, err)
		assert.JSONEq(t, `["a"]`, stored)
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, client.Add(ctx, "b"))
		before, err := client.Members(ctx)
		require.NoError(t, err)

		require.NoError(t, client.Add(ctx, "b"))
		after, err := client.Members(ctx)
		require.NoError(t, err)

		assert.Equal(t, before, after)
		assert.Equal(t, []string{"a", "b"}, after)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		assert.Error(t, client.Add(ctx, ""))
	})

	t.Run("refuses to overwrite corrupt registry", func(t *testing.T) {
		require.NoError(t, mr.Set("connected_ids", `42`))
		err := client.Add(ctx, "c")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorruptRegistry))

		stored, err := mr.Get("connected_ids")
		require.NoError(t, err)
		assert.Equal(t, "42", stored)
	})
}

func TestRemove(t *testing.T) {
	client, mr := setupTestClient(t, "")
	ctx := context.Background()

	t.Run("absent key stays absent", func(t *testing.T) {
		require.NoError(t, client.Remove(ctx, "ghost"))
		assert.False(t, mr.Exists("connected_ids"))
	})

	t.Run("absent token leaves membership unchanged", func(t *testing.T) {
		require.NoError(t, client.Add(ctx, "a"))
		require.NoError(t, client.Add(ctx, "b"))

		require.NoError(t, client.Remove(ctx, "ghost"))

		members, err := client.Members(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, members)
	})

	t.Run("add then remove", func(t *testing.T) {
		require.NoError(t, client.Add(ctx, "c"))
		require.NoError(t, client.Remove(ctx, "c"))

		members, err := client.Members(ctx)
		require.NoError(t, err)
		assert.NotContains(t, members, "c")
		assert.Equal(t, []string{"a", "b"}, members)
	})

	t.Run("rewrites the stored list", func(t *testing.T) {
		require.NoError(t, mr.Set("connected_ids", `["x","y"]`))
		require.NoError(t, client.Remove(ctx, "x"))

		stored, err := mr.Get("connected_ids")
		require.NoError(t, err)
		assert.JSONEq(t, `["y"]`, stored)
	})
}

// Registrations from many peers at once must all survive.
func TestRegistry_ConcurrentAddsAreNotLost(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	const peers = 12
	var wg sync.WaitGroup
	errs := make(chan error, peers)

	for i := 0; i < peers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "")
			if err != nil {
				errs <- err
				return
			}
			defer client.Close()

			errs <- client.Add(ctx, fmt.Sprintf("peer-%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	client, _ := NewClient(&redis.Options{Addr: mr.Addr()}, "")
	defer client.Close()

	members, err := client.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, peers)
	for i := 0; i < peers; i++ {
		assert.Contains(t, members, fmt.Sprintf("peer-%d", i))
	}
}

func TestRegistry_ConcurrentAddAndRemove(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	seed, err := NewClient(&redis.Options{Addr: mr.Addr()}, "")
	require.NoError(t, err)
	defer seed.Close()

	const peers = 8
	for i := 0; i < peers; i++ {
		require.NoError(t, seed.Add(ctx, fmt.Sprintf("old-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < peers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			client, _ := NewClient(&redis.Options{Addr: mr.Addr()}, "")
			defer client.Close()
			assert.NoError(t, client.Remove(ctx, fmt.Sprintf("old-%d", i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			client, _ := NewClient(&redis.Options{Addr: mr.Addr()}, "")
			defer client.Close()
			assert.NoError(t, client.Add(ctx, fmt.Sprintf("new-%d", i)))
		}(i)
	}
	wg.Wait()

	members, err := seed.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, peers)
	for i := 0; i < peers; i++ {
		assert.Contains(t, members, fmt.Sprintf("new-%d", i))
		assert.NotContains(t, members, fmt.Sprintf("old-%d", i))
	}
}

func TestRegistry_NamespacedKey(t *testing.T) {
	client, mr := setupTestClient(t, "prod")
	ctx := context.Background()

	require.NoError(t, client.Add(ctx, "a"))
	assert.True(t, mr.Exists("murmur:prod:connected_ids"))
	assert.False(t, mr.Exists("connected_ids"))
}

func TestRegistry_Unreachable(t *testing.T) {
	client, mr := setupTestClient(t, "")
	client.WithRetryPolicy(RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		MaxElapsedTime:  50 * time.Millisecond,
	})
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, client.Add(ctx, "a"))
	assert.Error(t, client.Remove(ctx, "a"))
	_, err := client.Members(ctx)
	assert.Error(t, err)
}
