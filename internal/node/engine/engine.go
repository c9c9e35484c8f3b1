// Package engine executes a single power action against a single node:
// precondition validation, dispatch, optional reconciliation of the
// observed power state, and result reporting.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

// DefaultPollInterval is the delay between power-state queries while
// waiting on backends without a native wait.
const DefaultPollInterval = 500 * time.Millisecond

// Executor runs ActionRequests. It holds no per-request state and may be
// shared by concurrent callers, each Execute call being independent.
type Executor struct {
	opener       domain.Opener
	clock        clockwork.Clock
	pollInterval time.Duration
	log          *logrus.Entry
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock replaces the wall clock. Intended for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithPollInterval sets the delay between power-state queries.
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Executor that opens backend sessions through opener.
func New(opener domain.Opener, opts ...Option) *Executor {
	e := &Executor{
		opener:       opener,
		clock:        clockwork.NewRealClock(),
		pollInterval: DefaultPollInterval,
		log:          logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs req to completion and reports the outcome. It never returns
// a Go error; every failure is expressed as a failed ActionResult.
//
// The reported duration runs from the moment Execute is called until the
// outcome is known, including any time spent waiting.
func (e *Executor) Execute(ctx context.Context, req domain.ActionRequest) domain.ActionResult {
	start := e.clock.Now()
	log := e.log.WithFields(logrus.Fields{
		"backend": req.Node.Backend,
		"node":    req.Node.Label(),
		"action":  req.Action.String(),
	})

	finalOn, err := e.execute(ctx, req, log)
	elapsed := e.clock.Since(start)
	if err != nil {
		log.WithField("kind", err.Kind).WithField("elapsed", elapsed).Warn(err.Reason)
		return domain.Failed(elapsed, err)
	}

	log.WithField("elapsed", elapsed).WithField("power_on", finalOn).Info("action completed")
	return domain.Succeeded(elapsed, finalOn)
}

func (e *Executor) execute(ctx context.Context, req domain.ActionRequest, log *logrus.Entry) (bool, *domain.ActionError) {
	conn, err := e.opener.Open(ctx, req.Node)
	if err != nil {
		return false, domain.ConnectionError(err, "failed to connect to %s node %s", req.Node.Backend, req.Node.Label())
	}
	if closer, ok := conn.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Debug("closing backend session")
			}
		}()
	}

	if !conn.SupportedActions().Contains(req.Action) {
		return false, domain.UnsupportedActionError(conn.Name(), req.Action)
	}

	rc := &reconcile{
		conn:     conn,
		action:   req.Action,
		timeout:  req.EffectiveWaitTimeout(),
		clock:    e.clock,
		interval: e.pollInterval,
		log:      log,
	}

	// Restart-type actions need the state from before the command was
	// issued, both for the precondition and for the two-phase wait.
	if req.Action.IsRestart() {
		obs, err := conn.PowerState(ctx)
		if err != nil {
			return false, domain.ConnectionError(err, "failed to query power state")
		}
		log.WithField("observed", obs.String()).Debug("power state before dispatch")
		if verr := Validate(req.Action, obs); verr != nil {
			return false, verr
		}
		rc.before = &obs
	}

	if derr := Dispatch(ctx, conn, req.Action); derr != nil {
		return false, derr
	}
	log.Info("command issued")

	if req.Wait {
		if werr := rc.run(ctx); werr != nil {
			return false, werr
		}
	}

	final, err := conn.PowerState(ctx)
	if err != nil {
		// The command was accepted. Without a wait, or for an action with
		// no intended state, that is the outcome.
		if !req.Wait || req.Action.Target() == domain.TargetNone {
			log.WithError(err).Warn("could not read power state after dispatch")
			return false, nil
		}
		return false, domain.ConnectionError(err, "failed to query power state")
	}
	return final.On(), Report(req, final)
}

// Report applies the success rule to the final observation. Without a
// wait, issuing the command is enough. With one, the node must be in the
// intended state, except for actions that have no intended state.
func Report(req domain.ActionRequest, final domain.Observation) *domain.ActionError {
	if !req.Wait {
		return nil
	}
	want, ok := req.Action.Target().State()
	if !ok || final.State == want {
		return nil
	}
	return domain.TimeoutError(fmt.Sprintf(
		"Did not reach desired final state within timeout period. Power state is %s", final))
}
