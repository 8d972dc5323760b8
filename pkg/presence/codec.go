package presence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// wireFields are the exact JSON names of Envelope's fields.
var wireFields = []string{"uuid", "content", "kind"}

// Validate checks that the envelope has a usable sender and a known kind.
func (e Envelope) Validate() error {
	if !ValidToken(e.SenderID) {
		return fmt.Errorf("sender id is required")
	}
	if err := validate.Struct(e); err != nil {
		return err
	}
	return nil
}

// Encode validates env and serializes it as UTF-8 JSON.
func Encode(env Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return data, nil
}

// Decode parses a payload produced by Encode (or by any peer speaking the same format).
// Every failure is a *DecodeError matching ErrMalformedEnvelope; callers drop the
// message and carry on.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, &DecodeError{Reason: "empty payload"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Envelope{}, &DecodeError{Reason: "payload is not an envelope object", Err: err}
	}
	if err := checkFieldNames(lo.Keys(fields)); err != nil {
		return Envelope{}, &DecodeError{Reason: "invalid envelope fields", Err: err}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, &DecodeError{Reason: "payload is not an envelope object", Err: err}
	}

	if err := env.Validate(); err != nil {
		return Envelope{}, &DecodeError{Reason: "invalid envelope fields", Err: err}
	}

	return env, nil
}

// checkFieldNames rejects keys that only match a wire field case-insensitively.
// encoding/json would otherwise accept "UUID" for "uuid". Unrelated keys are ignored.
func checkFieldNames(keys []string) error {
	for _, key := range keys {
		if lo.Contains(wireFields, key) {
			continue
		}
		if _, ok := lo.Find(wireFields, func(f string) bool { return strings.EqualFold(f, key) }); ok {
			return fmt.Errorf("field %q must be spelled %q", key, strings.ToLower(key))
		}
	}
	return nil
}
