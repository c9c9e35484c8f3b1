package domain

import (
	"context"
	"time"
)

// Connector is an open session to one node through one backend.
//
// Issue maps each action in SupportedActions to exactly one backend call.
// PowerState performs a fresh query every time it is called.
type Connector interface {
	Name() string
	SupportedActions() ActionSet
	Issue(ctx context.Context, action Action) error
	PowerState(ctx context.Context) (Observation, error)
}

// Waiter is an optional interface for backends with a native blocking
// wait. WaitUntil returns an error matching ErrTimeout when state is not
// reached within timeout; any other error is treated as a connection
// failure.
type Waiter interface {
	WaitUntil(ctx context.Context, state PowerState, timeout time.Duration) error
}

// TerminalWaiter is an optional interface for backends that can block
// until a terminated node is gone. The wait takes no timeout; the
// backend's own terminal-wait semantics apply.
type TerminalWaiter interface {
	WaitUntilTerminal(ctx context.Context) error
}

// InPlaceRestarter is an optional interface for backends on which some
// restart-type actions never pass through power-off (for example a guest
// reboot that keeps the instance running).
type InPlaceRestarter interface {
	RestartsInPlace(action Action) bool
}

// Opener opens a Connector for a node.
type Opener interface {
	Open(ctx context.Context, node NodeRef) (Connector, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, node NodeRef) (Connector, error)

func (f OpenerFunc) Open(ctx context.Context, node NodeRef) (Connector, error) {
	return f(ctx, node)
}
