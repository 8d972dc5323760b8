package peer

// State is a stage of the peer lifecycle.
type State int32

const (
	StateInitializing State = iota
	StateRegistered
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRegistered:
		return "registered"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
