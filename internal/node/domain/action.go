package domain

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Action is a power-lifecycle command that can be issued against a node.
type Action int

const (
	ActionStart Action = iota + 1
	ActionStop
	ActionForceStop
	ActionReboot
	ActionHardReset
	ActionDiagnosticInterrupt
	ActionSoftStop
	ActionTerminate
)

// AllActions lists every action in declaration order.
var AllActions = []Action{
	ActionStart,
	ActionStop,
	ActionForceStop,
	ActionReboot,
	ActionHardReset,
	ActionDiagnosticInterrupt,
	ActionSoftStop,
	ActionTerminate,
}

var actionNames = map[Action]string{
	ActionStart:               "start",
	ActionStop:                "stop",
	ActionForceStop:           "force_stop",
	ActionReboot:              "reboot",
	ActionHardReset:           "hard_reset",
	ActionDiagnosticInterrupt: "diagnostic_interrupt",
	ActionSoftStop:            "soft_stop",
	ActionTerminate:           "terminate",
}

// String returns the canonical snake_case name of the action.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts a user-supplied name into an Action. Matching is
// case-insensitive and accepts hyphens in place of underscores, so
// "force-stop" and "FORCE_STOP" both resolve to ActionForceStop.
func ParseAction(name string) (Action, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for action, n := range actionNames {
		if n == normalized {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// IsRestart reports whether the action may cycle power off before
// bringing the node back on.
func (a Action) IsRestart() bool {
	return a == ActionReboot || a == ActionHardReset
}

// Target describes the power state an action is defined to produce.
type Target int

const (
	// TargetNone means the action has no stable terminal state to observe.
	TargetNone Target = iota
	TargetOn
	TargetOff
	TargetGone
)

// Target returns the intended final power state of the action.
func (a Action) Target() Target {
	switch a {
	case ActionStart, ActionReboot, ActionHardReset:
		return TargetOn
	case ActionStop, ActionForceStop, ActionSoftStop:
		return TargetOff
	case ActionTerminate:
		return TargetGone
	case ActionDiagnosticInterrupt:
		return TargetNone
	}
	return TargetNone
}

// State converts a target into the PowerState it expects. The boolean is
// false for TargetNone.
func (t Target) State() (PowerState, bool) {
	switch t {
	case TargetOn:
		return PowerOn, true
	case TargetOff:
		return PowerOff, true
	case TargetGone:
		return PowerGone, true
	}
	return 0, false
}

// ActionSet is the set of actions a backend supports.
type ActionSet = mapset.Set[Action]

// NewActionSet builds an ActionSet from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	return mapset.NewThreadUnsafeSet(actions...)
}

// SortedActions returns the members of set in declaration order.
func SortedActions(set ActionSet) []Action {
	out := make([]Action, 0, set.Cardinality())
	for _, a := range AllActions {
		if set.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}
