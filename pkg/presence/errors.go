package presence

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMalformedEnvelope is matched by every error returned from Decode.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrCorruptRegistry means the registry key holds something other than a JSON array of tokens.
	ErrCorruptRegistry = errors.New("registry value is not a token list")

	// ErrRegistryContention means a registry update kept losing to concurrent writers until the retry budget ran out.
	ErrRegistryContention = errors.New("registry update abandoned under contention")
)

// DecodeError describes why a payload could not be decoded into an Envelope.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedEnvelope, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedEnvelope, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes every DecodeError match ErrMalformedEnvelope.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedEnvelope
}

// IsDecodeError returns true if err was produced by Decode.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrMalformedEnvelope)
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
