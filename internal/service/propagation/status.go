package propagation

import "fmt"

// Phase is the state of a propagation run:
// Idle -> Scanning -> Comparing (i of n) -> Finalizing -> Idle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseComparing  Phase = "comparing"
	PhaseFinalizing Phase = "finalizing"
)

// Status is a snapshot of the engine's progress, published before
// every comparison so the caller can report "comparing i of n"
// incrementally.
type Status struct {
	Phase   Phase  `json:"phase"`
	Tag     string `json:"tag,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

func idleStatus() Status {
	return Status{Phase: PhaseIdle}
}

func comparingStatus(tag string, current, total int) Status {
	return Status{
		Phase:   PhaseComparing,
		Tag:     tag,
		Current: current,
		Total:   total,
		Message: fmt.Sprintf("comparing %d of %d", current, total),
	}
}
