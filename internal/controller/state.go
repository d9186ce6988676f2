package controller

// State is the lifecycle state of a managed controller.
//
// The numeric values are internal to this process; every external
// surface (API, MQTT, history) uses the string form. Only the
// four-state semantics matter, not the specific numbers.
type State int

const (
	// StateUnconfigured is the initial state, set when a controller is
	// loaded. The controller has an instance but no resources.
	StateUnconfigured State = iota

	// StateInactive means the controller is configured and holds its
	// resources, but is not being updated by the loop.
	StateInactive

	// StateActive means the controller is updated every matching tick
	// of the real-time loop.
	StateActive

	// StateFinalized is terminal. Every subsequent operation on a
	// finalized controller fails; recovery requires unload and reload.
	StateFinalized
)

// String returns the canonical lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}
