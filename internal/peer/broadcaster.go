package peer

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/murmur/pkg/presence"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Broadcaster greets every other registered peer once per interval.
type Broadcaster struct {
	self     string
	registry Lister
	sender   Sender
	interval time.Duration
	greet    Greeter
	log      zerolog.Logger
}

// NewBroadcaster creates a broadcaster for self.
func NewBroadcaster(self string, registry Lister, sender Sender, interval time.Duration, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		self:     self,
		registry: registry,
		sender:   sender,
		interval: interval,
		greet:    BroadcastGreeting,
		log:      log.With().Str("component", "broadcaster").Logger(),
	}
}

// Run broadcasts immediately and then once per interval until ctx is cancelled.
// Failed rounds are logged and retried on the next tick. Always returns nil.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Debug().Dur("interval", b.interval).Msg("Broadcaster starting")
	defer b.log.Debug().Msg("Broadcaster exited cleanly")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if _, err := b.Round(ctx); err != nil && ctx.Err() == nil {
			b.log.Warn().Err(err).Msg("Broadcast round skipped")
		}

		select {
		case <-ctx.Done():
			b.log.Debug().Msg("Broadcaster received shutdown signal")
			return nil
		case <-ticker.C:
		}
	}
}

// Round sends one greeting to every registered peer except self and returns
// how many were published. Publish failures are logged and skipped; only a
// registry read failure is returned.
func (b *Broadcaster) Round(ctx context.Context) (int, error) {
	members, err := b.registry.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read registry: %w", err)
	}

	peers := lo.Without(members, b.self)
	if len(peers) == 0 {
		b.log.Debug().Msg("There is no connected peer")
		return 0, nil
	}

	sent := 0
	for _, peer := range peers {
		if ctx.Err() != nil {
			break
		}

		env := presence.Envelope{
			SenderID: b.self,
			Content:  b.greet(peer, b.self),
			Kind:     presence.KindGreeting,
		}

		if err := b.sender.Send(ctx, peer, env); err != nil {
			b.log.Warn().Err(err).Str("to", peer).Msg("Failed to publish greeting")
			continue
		}
		sent++
	}

	b.log.Debug().Int("peers", len(peers)).Int("sent", sent).Msg("Broadcast round complete")
	return sent, nil
}
