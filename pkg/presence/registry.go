package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// RetryPolicy bounds how long a registry update keeps retrying after losing
// an optimistic transaction to another writer.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy returns the policy used by NewClient.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		MaxElapsedTime:  5 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// Members returns the tokens currently in the registry, in stored order with
// duplicates removed. An absent key is the empty registry, not an error.
func (c *Client) Members(ctx context.Context) ([]string, error) {
	raw, err := c.rdb.Get(ctx, c.RegistryKey()).Bytes()
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	members, err := decodeMembers(raw)
	if err != nil {
		return nil, err
	}

	return members, nil
}

// Add registers token. Adding a token that is already present leaves the registry unchanged.
func (c *Client) Add(ctx context.Context, token string) error {
	if !ValidToken(token) {
		return fmt.Errorf("token cannot be empty")
	}

	err := c.update(ctx, func(members []string) ([]string, bool) {
		if lo.Contains(members, token) {
			return members, false
		}
		return append(members, token), true
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to registry: %w", token, err)
	}

	return nil
}

// Remove deregisters the first occurrence of token. Removing an absent token is a no-op.
func (c *Client) Remove(ctx context.Context, token string) error {
	err := c.update(ctx, func(members []string) ([]string, bool) {
		i := lo.IndexOf(members, token)
		if i < 0 {
			return members, false
		}
		return append(members[:i], members[i+1:]...), true
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s from registry: %w", token, err)
	}

	return nil
}

// update applies mutate under WATCH/MULTI/EXEC. When another writer touches the
// key between our GET and EXEC, the transaction fails with redis.TxFailedErr and
// the whole read-modify-write is retried, so no concurrent update is lost.
func (c *Client) update(ctx context.Context, mutate func([]string) ([]string, bool)) error {
	key := c.RegistryKey()

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !IsNotFound(err) {
			return err
		}

		members, err := decodeMembers(raw)
		if err != nil {
			return err
		}

		next, changed := mutate(members)
		if !changed {
			return nil
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal registry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	attempt := func() error {
		err := c.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	err := backoff.Retry(attempt, c.retry.backOff(ctx))
	if errors.Is(err, redis.TxFailedErr) {
		return ErrRegistryContention
	}
	return err
}

// decodeMembers parses the stored registry value. Empty input is the empty registry.
func decodeMembers(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRegistry, err)
	}

	// "null" is what a list-less writer leaves behind
	if members == nil {
		return []string{}, nil
	}

	return lo.Uniq(members), nil
}
