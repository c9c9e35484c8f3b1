package engine

import (
	"context"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

// Validate checks whether action is legal given the node's observed state.
// Reboot requires a running node; nothing else has a precondition here.
// Backends may still reject commands on their own terms.
func Validate(action domain.Action, observed domain.Observation) *domain.ActionError {
	if action == domain.ActionReboot && observed.State != domain.PowerOn {
		return domain.PreconditionError("Node must be running to reboot")
	}
	return nil
}

// Dispatch issues action through conn. Actions outside the backend's
// declared set are rejected without contacting the backend.
func Dispatch(ctx context.Context, conn domain.Connector, action domain.Action) *domain.ActionError {
	if !conn.SupportedActions().Contains(action) {
		return domain.UnsupportedActionError(conn.Name(), action)
	}
	if err := conn.Issue(ctx, action); err != nil {
		return domain.ConnectionError(err, "failed to issue %s", action)
	}
	return nil
}
