package peer

import (
	"context"
	"errors"
	"time"

	"github.com/dyluth/murmur/pkg/presence"
	"github.com/rs/zerolog"
)

// ErrInboxClosed is returned by Listener.Run when the subscription goes away
// while the listener is still supposed to be running.
var ErrInboxClosed = errors.New("inbox closed unexpectedly")

// Listener drains this peer's channel and answers every greeting with one reply
// addressed to the greeting's sender.
type Listener struct {
	self   string
	inbox  Inbox
	sender Sender
	idle   time.Duration
	greet  Greeter
	log    zerolog.Logger
}

// NewListener creates a listener for self reading from inbox and replying through sender.
// idle is how long the listener waits for a message before logging that it is idle.
func NewListener(self string, inbox Inbox, sender Sender, idle time.Duration, log zerolog.Logger) *Listener {
	return &Listener{
		self:   self,
		inbox:  inbox,
		sender: sender,
		idle:   idle,
		greet:  ReplyGreeting,
		log:    log.With().Str("component", "listener").Logger(),
	}
}

// Run processes inbound payloads until ctx is cancelled.
// A message wakes the loop immediately; otherwise it wakes every idle interval.
// Malformed payloads and failed replies are logged and skipped.
//
// Returns nil on cancellation and ErrInboxClosed if the inbox closes first.
func (l *Listener) Run(ctx context.Context) error {
	l.log.Debug().Dur("idle", l.idle).Msg("Listener starting")
	defer l.log.Debug().Msg("Listener exited cleanly")

	idle := time.NewTicker(l.idle)
	defer idle.Stop()

	messages := l.inbox.Messages()

	for {
		select {
		case <-ctx.Done():
			l.log.Debug().Msg("Listener received shutdown signal")
			return nil

		case payload, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrInboxClosed
			}

			l.handle(ctx, payload)
			idle.Reset(l.idle)

		case <-idle.C:
			l.log.Debug().Msg("There is no message")
		}
	}
}

// handle decodes one payload and replies if it is a greeting.
// Returns true if a reply was published.
func (l *Listener) handle(ctx context.Context, payload []byte) bool {
	env, err := presence.Decode(payload)
	if err != nil {
		l.log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed envelope")
		return false
	}

	l.log.Info().Str("from", env.SenderID).Str("kind", string(env.Kind)).Str("content", env.Content).Msg("New message received")

	if env.Kind.IsReply() {
		return false
	}

	reply := presence.Envelope{
		SenderID: l.self,
		Content:  l.greet(env.SenderID, l.self),
		Kind:     presence.KindReply,
	}

	if err := l.sender.Send(ctx, env.SenderID, reply); err != nil {
		l.log.Warn().Err(err).Str("to", env.SenderID).Msg("Failed to publish reply")
		return false
	}

	return true
}
