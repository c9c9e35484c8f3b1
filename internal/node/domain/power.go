package domain

// PowerState is the on/off projection of a node's observed state, plus a
// terminal state for nodes that no longer exist.
type PowerState int

const (
	PowerOff PowerState = iota
	PowerOn
	PowerGone
)

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerOff:
		return "off"
	case PowerGone:
		return "gone"
	}
	return "unknown"
}

// Observation is a single power-state reading from a backend.
type Observation struct {
	State PowerState

	// Raw is the backend-native status, e.g. "stopping" or "terminated".
	// It may be empty when the backend only reports on/off.
	Raw string
}

// On reports whether the node was observed powered on.
func (o Observation) On() bool { return o.State == PowerOn }

// String prefers the backend-native status since it is more precise
// than the projection.
func (o Observation) String() string {
	if o.Raw != "" {
		return o.Raw
	}
	return o.State.String()
}
