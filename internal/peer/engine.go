package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/murmur/pkg/presence"
	"github.com/rs/zerolog"
)

// ErrShutdownTimeout is joined to a loop fault when the remaining loops did not
// acknowledge cancellation within Config.ShutdownTimeout.
var ErrShutdownTimeout = errors.New("peer loops did not stop within shutdown timeout")

// Engine drives one peer through its lifecycle:
//
//	Initializing → Registered → Running → ShuttingDown → Terminated
//
// While running it manages two concurrent goroutines:
//   - Listener: answers greetings arriving on this peer's channel
//   - Broadcaster: greets every other registered peer once per interval
//
// Once registration succeeds, the peer is removed from the registry on every
// exit path, including loop faults and panics.
type Engine struct {
	config *Config
	broker Broker
	log    zerolog.Logger
	newID  func() string

	state atomic.Int32
	self  atomic.Value
}

// New creates an engine ready to be started with Run.
func New(config *Config, broker Broker, log zerolog.Logger) *Engine {
	e := &Engine{
		config: config,
		broker: broker,
		log:    log,
		newID:  presence.NewToken,
	}
	e.self.Store("")
	return e
}

// WithIdentity overrides token generation. Used by tests and by operators who pin a peer id.
func (e *Engine) WithIdentity(newID func() string) *Engine {
	e.newID = newID
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Self returns this peer's token, or "" before initialization.
func (e *Engine) Self() string {
	return e.self.Load().(string)
}

func (e *Engine) transition(to State) {
	from := State(e.state.Swap(int32(to)))
	e.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Peer state changed")
}

// Run executes the full peer lifecycle and blocks until ctx is cancelled
// (operator shutdown) or a loop faults.
//
// Returns nil after an operator shutdown, even if a loop overran the shutdown
// timeout. Returns an error if initialization or registration fails or if a loop faults.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.transition(StateInitializing)

	self := e.newID()
	if !presence.ValidToken(self) {
		e.transition(StateTerminated)
		return fmt.Errorf("identity generator returned an empty token")
	}
	e.self.Store(self)
	e.log = e.log.With().Str("id", self).Logger()
	e.log.Info().Msg("Peer identity generated")

	// Subscribe before registering so greetings sent by peers that discover us are not missed
	sub, err := e.broker.Subscribe(ctx, self)
	if err != nil {
		e.transition(StateTerminated)
		return fmt.Errorf("failed to subscribe to own channel: %w", err)
	}
	defer sub.Close()

	if err := e.broker.Add(ctx, self); err != nil {
		e.transition(StateTerminated)
		return fmt.Errorf("failed to register peer: %w", err)
	}
	e.transition(StateRegistered)

	defer func() {
		e.deregister(ctx, self)
		e.transition(StateTerminated)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	listener := NewListener(self, sub, e.broker, e.config.IdleInterval, e.log)
	broadcaster := NewBroadcaster(self, e.broker, e.broker, e.config.Interval, e.log)

	faults := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go e.supervise(runCtx, &wg, faults, "listener", listener.Run)
	go e.supervise(runCtx, &wg, faults, "broadcaster", broadcaster.Run)

	e.transition(StateRunning)

	var fault error
	select {
	case <-ctx.Done():
		e.log.Info().Msg("Shutdown signal received, initiating graceful shutdown")
	case fault = <-faults:
		e.log.Error().Err(fault).Msg("Peer loop failed, shutting down")
	}

	e.transition(StateShuttingDown)
	cancel()

	if !waitTimeout(&wg, e.config.ShutdownTimeout) {
		e.log.Error().Dur("timeout", e.config.ShutdownTimeout).Msg("Peer loops did not stop in time - forcing shutdown")
		// An operator shutdown stays successful; the overrun only matters after a fault
		if fault != nil {
			return errors.Join(fault, ErrShutdownTimeout)
		}
		return nil
	}
	e.log.Debug().Msg("All peer loops exited")

	return fault
}

// supervise runs one loop and converts an error, panic or premature return into a fault.
func (e *Engine) supervise(ctx context.Context, wg *sync.WaitGroup, faults chan<- error, name string, loop func(context.Context) error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			faults <- fmt.Errorf("%s panicked: %v", name, r)
		}
	}()

	err := loop(ctx)
	switch {
	case err != nil:
		faults <- fmt.Errorf("%s failed: %w", name, err)
	case ctx.Err() == nil:
		faults <- fmt.Errorf("%s exited before shutdown", name)
	}
}

// deregister removes self from the registry. The parent context is usually
// already cancelled here, so the removal runs on its own bounded context.
func (e *Engine) deregister(parent context.Context, self string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), e.config.DeregisterTimeout)
	defer cancel()

	if err := e.broker.Remove(ctx, self); err != nil {
		e.log.Error().Err(err).Msg("Failed to deregister peer")
		return
	}
	e.log.Info().Msg("Peer deregistered")
}

// waitTimeout waits for wg and reports whether it finished within d.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
