package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

// reconcile is the state for one wait. It lives for a single Execute call.
type reconcile struct {
	conn     domain.Connector
	action   domain.Action
	timeout  time.Duration
	clock    clockwork.Clock
	interval time.Duration
	log      *logrus.Entry

	// before is the observation taken ahead of dispatch. It is only set
	// for restart-type actions.
	before *domain.Observation

	deadline time.Time
}

// run blocks until the intended final state is observed, the deadline
// passes, or the backend fails. Missing the deadline is not an error here;
// the final state check reports it.
func (r *reconcile) run(ctx context.Context) *domain.ActionError {
	switch r.action.Target() {
	case domain.TargetNone:
		r.log.Debug("action has no terminal power state, not waiting")
		return nil
	case domain.TargetGone:
		return r.waitTerminal(ctx)
	}

	r.deadline = r.clock.Now().Add(r.timeout)

	if r.needsPowerOff() {
		r.log.Debug("waiting for power off")
		if err := r.waitFor(ctx, domain.PowerOff); err != nil {
			return err
		}
	}

	want, _ := r.action.Target().State()
	r.log.WithField("state", want).Debug("waiting for final state")
	return r.waitFor(ctx, want)
}

// needsPowerOff reports whether a restart must first be seen powering off.
func (r *reconcile) needsPowerOff() bool {
	if !r.action.IsRestart() || r.before == nil || !r.before.On() {
		return false
	}
	if ip, ok := r.conn.(domain.InPlaceRestarter); ok && ip.RestartsInPlace(r.action) {
		return false
	}
	return true
}

func (r *reconcile) waitFor(ctx context.Context, state domain.PowerState) *domain.ActionError {
	remaining := r.deadline.Sub(r.clock.Now())
	if remaining <= 0 {
		return nil
	}
	if w, ok := r.conn.(domain.Waiter); ok {
		return r.waitResult(w.WaitUntil(ctx, state, remaining), state)
	}
	return r.poll(ctx, state, r.deadline)
}

func (r *reconcile) waitTerminal(ctx context.Context) *domain.ActionError {
	if w, ok := r.conn.(domain.TerminalWaiter); ok {
		r.log.Debug("waiting for termination")
		return r.waitResult(w.WaitUntilTerminal(ctx), domain.PowerGone)
	}
	return r.poll(ctx, domain.PowerGone, time.Time{})
}

func (r *reconcile) waitResult(err error, state domain.PowerState) *domain.ActionError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrTimeout):
		r.log.WithError(err).WithField("state", state).Debug("backend wait ended before state was reached")
		return nil
	default:
		return domain.ConnectionError(err, "failed waiting for power %s", state)
	}
}

// poll queries the backend every interval until state is observed. A zero
// deadline polls until the context ends.
func (r *reconcile) poll(ctx context.Context, state domain.PowerState, deadline time.Time) *domain.ActionError {
	for {
		obs, err := r.conn.PowerState(ctx)
		if err != nil {
			return domain.ConnectionError(err, "failed to query power state")
		}
		r.log.WithField("observed", obs.String()).Debug("polled power state")
		if obs.State == state {
			return nil
		}
		if !deadline.IsZero() && !r.clock.Now().Before(deadline) {
			return nil
		}

		select {
		case <-ctx.Done():
			return domain.ConnectionError(ctx.Err(), "wait for power %s interrupted", state)
		case <-r.clock.After(r.interval):
		}
	}
}
