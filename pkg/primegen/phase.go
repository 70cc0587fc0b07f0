package primegen

// Phase is a state of the generation state machine.
type Phase int32

const (
	// PhaseIdle is the state before Run is called.
	PhaseIdle Phase = iota

	// PhaseLoading replays existing checkpoint files into the cache.
	PhaseLoading

	// PhaseMemoryGeneration is the in-memory discovery loop.
	PhaseMemoryGeneration

	// PhaseOverflowing drains the unflushed tail after the cache budget
	// is exhausted.
	PhaseOverflowing

	// PhaseDiskGeneration is trial division beyond the cache boundary.
	// Unimplemented: reaching it surfaces an unsupported-operation error.
	PhaseDiskGeneration

	// PhaseStopped is terminal; no further I/O happens.
	PhaseStopped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseMemoryGeneration:
		return "memory_generation"
	case PhaseOverflowing:
		return "overflowing"
	case PhaseDiskGeneration:
		return "disk_generation"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
