package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/murmur/pkg/presence"
	"github.com/samber/lo"
)

// OutputFormat selects how Stream renders envelopes
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Lister reads registry membership.
type Lister interface {
	Members(ctx context.Context) ([]string, error)
}

// Inbox delivers raw payloads from a subscribed channel.
type Inbox interface {
	Messages() <-chan []byte
}

// WaitForMember polls the registry until token is present.
// Polls every 200ms for the specified timeout duration.
func WaitForMember(ctx context.Context, lister Lister, token string, timeout time.Duration) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		members, err := lister.Members(ctx)
		if err != nil {
			return fmt.Errorf("failed to query registry: %w", err)
		}
		if lo.Contains(members, token) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeoutCh:
			return fmt.Errorf("timeout waiting for %s to register after %v", token, timeout)

		case <-ticker.C:
		}
	}
}

// Line is one rendered payload in JSON output
type Line struct {
	Time     time.Time `json:"time"`
	SenderID string    `json:"uuid,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Content  string    `json:"content,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Stream renders every payload from inbox to w until ctx is cancelled or the inbox closes.
// Malformed payloads are rendered as errors rather than ending the stream.
func Stream(ctx context.Context, inbox Inbox, format OutputFormat, w io.Writer) error {
	messages := inbox.Messages()
	enc := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return nil

		case payload, ok := <-messages:
			if !ok {
				return nil
			}

			line := Line{Time: time.Now().UTC()}
			env, err := presence.Decode(payload)
			if err != nil {
				line.Error = err.Error()
			} else {
				line.SenderID = env.SenderID
				line.Kind = string(env.Kind)
				line.Content = env.Content
			}

			if format == OutputFormatJSON {
				if err := enc.Encode(line); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
				continue
			}

			if _, err := fmt.Fprintln(w, formatLine(line)); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

func formatLine(l Line) string {
	ts := l.Time.Format("15:04:05")
	if l.Error != "" {
		return fmt.Sprintf("[%s] ⚠️  %s", ts, l.Error)
	}

	kind := l.Kind
	if kind == "" {
		kind = string(presence.KindGreeting)
	}
	return fmt.Sprintf("[%s] 💬 %s from %s: %s", ts, kind, l.SenderID, l.Content)
}
