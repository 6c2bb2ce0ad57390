// Package engine defines the types shared between the audio host and the
// control plane: source identity, session status, the error taxonomy and
// the structured results exchanged across the process boundary.
package engine

// SourceID identifies a capturable audio source (e.g. a browser tab).
// It is opaque to the engine and unique while the source exists.
type SourceID string

// Status is the lifecycle state of a session in the registry.
type Status int

const (
	// StatusStarting marks a session whose audio graph is still being
	// constructed. A second start for the same id is refused while a
	// session is in this state.
	StatusStarting Status = iota
	// StatusActive marks a session with a live audio graph.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// StartResult acknowledges a start request. AlreadyActive and
// AlreadyStarting are idempotent acknowledgements, not errors: the caller
// asked for a state that already holds or is being established.
type StartResult struct {
	AlreadyActive   bool
	AlreadyStarting bool
}

// Spectrum is one frequency-bin magnitude snapshot on the 0-255 byte
// scale, cheap to produce and safe to poll continuously.
type Spectrum struct {
	Bins     []byte
	BinCount int
}
