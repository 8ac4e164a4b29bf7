// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

// State is a phase of the harvest state machine.
type State int32

const (
	StateIdle State = iota
	StateResuming
	StateStreaming
	StateFlushing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResuming:
		return "resuming"
	case StateStreaming:
		return "streaming"
	case StateFlushing:
		return "flushing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
