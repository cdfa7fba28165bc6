package watchdog

// State represents the lifecycle state of an Observer or EventEmitter.
type State int32

const (
	// StateIdle indicates the loop has been constructed but not started.
	StateIdle State = iota

	// StateRunning indicates the loop is active.
	StateRunning

	// StateStopping indicates cancellation has been requested; the loop
	// exits at its next poll boundary.
	StateStopping

	// StateStopped indicates the loop has exited.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
