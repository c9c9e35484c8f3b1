package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

const testInterval = 500 * time.Millisecond

var (
	on      = domain.Observation{State: domain.PowerOn, Raw: "running"}
	off     = domain.Observation{State: domain.PowerOff, Raw: "stopped"}
	stopped = domain.Observation{State: domain.PowerOff, Raw: "stopping"}
	gone    = domain.Observation{State: domain.PowerGone, Raw: "terminated"}
)

// fakeConn implements domain.Connector. PowerState returns states in order
// and keeps returning the last one once they run out.
type fakeConn struct {
	supported domain.ActionSet
	states    []domain.Observation

	issueErr error
	// queryErrAt fails the n-th PowerState call (1-based). Zero never fails.
	queryErrAt int

	issued  []domain.Action
	queries int
	closed  bool
}

func newFakeConn(states ...domain.Observation) *fakeConn {
	return &fakeConn{
		supported: domain.NewActionSet(domain.AllActions...),
		states:    states,
	}
}

func (f *fakeConn) Name() string                       { return "fake" }
func (f *fakeConn) SupportedActions() domain.ActionSet { return f.supported }

func (f *fakeConn) Issue(ctx context.Context, action domain.Action) error {
	if f.issueErr != nil {
		return f.issueErr
	}
	f.issued = append(f.issued, action)
	return nil
}

func (f *fakeConn) PowerState(ctx context.Context) (domain.Observation, error) {
	f.queries++
	if f.queryErrAt != 0 && f.queries == f.queryErrAt {
		return domain.Observation{}, errors.New("bmc unreachable")
	}
	if len(f.states) == 0 {
		return off, nil
	}
	idx := f.queries - 1
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	return f.states[idx], nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

var _ io.Closer = (*fakeConn)(nil)

// waiterConn adds a native wait.
type waiterConn struct {
	*fakeConn
	waitErr  error
	waitedOn []domain.PowerState
	timeouts []time.Duration
}

func (w *waiterConn) WaitUntil(ctx context.Context, state domain.PowerState, timeout time.Duration) error {
	w.waitedOn = append(w.waitedOn, state)
	w.timeouts = append(w.timeouts, timeout)
	return w.waitErr
}

// terminalConn adds a native terminal wait.
type terminalConn struct {
	*fakeConn
	terminalWaits int
}

func (c *terminalConn) WaitUntilTerminal(ctx context.Context) error {
	c.terminalWaits++
	return nil
}

// inPlaceConn reports that every restart keeps power applied.
type inPlaceConn struct {
	*fakeConn
}

func (c *inPlaceConn) RestartsInPlace(action domain.Action) bool { return true }

func openerFor(conn domain.Connector) domain.Opener {
	return domain.OpenerFunc(func(ctx context.Context, node domain.NodeRef) (domain.Connector, error) {
		return conn, nil
	})
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type advancer interface {
	Advance(d time.Duration)
}

// executeWithClock runs Execute in the background and keeps moving the
// fake clock forward until it returns.
func executeWithClock(t *testing.T, exec *Executor, clock advancer, req domain.ActionRequest) domain.ActionResult {
	t.Helper()
	done := make(chan domain.ActionResult, 1)
	go func() { done <- exec.Execute(context.Background(), req) }()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case res := <-done:
			return res
		case <-deadline:
			t.Fatal("Execute did not return")
		case <-time.After(time.Millisecond):
			clock.Advance(testInterval)
		}
	}
}

func newTestExecutor(conn domain.Connector) (*Executor, clockwork.Clock) {
	clock := clockwork.NewFakeClock()
	exec := New(openerFor(conn),
		WithClock(clock),
		WithPollInterval(testInterval),
		WithLogger(quietLogger()),
	)
	return exec, clock
}

func request(action domain.Action, wait bool) domain.ActionRequest {
	return domain.ActionRequest{
		Node:        domain.NodeRef{Backend: "fake", ID: "node-1"},
		Action:      action,
		Wait:        wait,
		WaitTimeout: 10 * time.Second,
	}
}

func TestExecute_NoWaitSucceedsOnDispatch(t *testing.T) {
	for _, action := range domain.AllActions {
		t.Run(action.String(), func(t *testing.T) {
			// Off after dispatch even for start: the result ignores it.
			conn := newFakeConn(on, off)
			exec, _ := newTestExecutor(conn)

			res := exec.Execute(context.Background(), request(action, false))
			if !res.OK() {
				t.Fatalf("expected success, got %v", res.Err())
			}
			if diff := cmp.Diff([]domain.Action{action}, conn.issued); diff != "" {
				t.Errorf("issued mismatch (-want +got):\n%s", diff)
			}
			if !conn.closed {
				t.Error("expected connector to be closed")
			}
		})
	}
}

func TestExecute_NoWaitReportsFinalState(t *testing.T) {
	conn := newFakeConn(on)
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionStop, false))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if !res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=true from the observed state")
	}
}

func TestExecute_NoWaitIgnoresFinalQueryFailure(t *testing.T) {
	conn := newFakeConn(on)
	conn.queryErrAt = 1
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionStart, false))
	if !res.OK() {
		t.Fatalf("expected success once dispatched, got %v", res.Err())
	}
}

func TestExecute_DispatchFailure(t *testing.T) {
	conn := newFakeConn(on)
	conn.issueErr = fmt.Errorf("start instance: %w", domain.ErrUnauthorized)
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionStart, true))
	if res.OK() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err(), domain.ErrConnection) {
		t.Errorf("expected ConnectionError, got %v", res.Err())
	}
	if !errors.Is(res.Err(), domain.ErrUnauthorized) {
		t.Errorf("expected cause to be preserved, got %v", res.Err())
	}
	if conn.queries != 0 {
		t.Errorf("expected no reconciliation after failed dispatch, got %d queries", conn.queries)
	}
}

func TestExecute_OpenFailure(t *testing.T) {
	opener := domain.OpenerFunc(func(ctx context.Context, node domain.NodeRef) (domain.Connector, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	exec := New(opener, WithClock(clockwork.NewFakeClock()), WithLogger(quietLogger()))

	res := exec.Execute(context.Background(), request(domain.ActionStart, false))
	if !errors.Is(res.Err(), domain.ErrConnection) {
		t.Fatalf("expected ConnectionError, got %v", res.Err())
	}
	if !strings.Contains(res.Failure.Reason, "connection refused") {
		t.Errorf("expected reason to carry the cause, got %q", res.Failure.Reason)
	}
}

func TestExecute_RebootPrecondition(t *testing.T) {
	for _, obs := range []domain.Observation{off, gone} {
		t.Run(obs.String(), func(t *testing.T) {
			conn := newFakeConn(obs)
			exec, _ := newTestExecutor(conn)

			for _, wait := range []bool{false, true} {
				res := exec.Execute(context.Background(), request(domain.ActionReboot, wait))
				if !errors.Is(res.Err(), domain.ErrPrecondition) {
					t.Fatalf("expected PreconditionError, got %v", res.Err())
				}
				if res.Failure.Reason != "Node must be running to reboot" {
					t.Errorf("unexpected reason %q", res.Failure.Reason)
				}
			}
			if len(conn.issued) != 0 {
				t.Errorf("expected no dispatch, got %v", conn.issued)
			}
		})
	}
}

func TestExecute_HardResetOnOffNodeHasNoPrecondition(t *testing.T) {
	conn := newFakeConn(off, off, on)
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionHardReset, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if !res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=true")
	}
}

func TestExecute_Unsupported(t *testing.T) {
	conn := newFakeConn(on)
	conn.supported = domain.NewActionSet(domain.ActionStart, domain.ActionStop)
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionTerminate, true))
	if !errors.Is(res.Err(), domain.ErrUnsupportedAction) {
		t.Fatalf("expected UnsupportedActionError, got %v", res.Err())
	}
	if len(conn.issued) != 0 || conn.queries != 0 {
		t.Errorf("expected backend untouched, issued=%v queries=%d", conn.issued, conn.queries)
	}
}

func TestExecute_StartWaitsForOn(t *testing.T) {
	conn := newFakeConn(off, off, off, on)
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionStart, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if !res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=true")
	}
	// Four polls plus the final read.
	if conn.queries != 5 {
		t.Errorf("expected 5 queries, got %d", conn.queries)
	}
}

func TestExecute_StopAfterStart(t *testing.T) {
	conn := newFakeConn(on, off)
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionStop, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=false")
	}
}

func TestExecute_Timeout(t *testing.T) {
	conn := newFakeConn(stopped)
	exec, clock := newTestExecutor(conn)

	req := request(domain.ActionStart, true)
	req.WaitTimeout = 3 * time.Second

	res := executeWithClock(t, exec, clock.(advancer), req)
	if !errors.Is(res.Err(), domain.ErrTimeout) {
		t.Fatalf("expected TimeoutError, got %v", res.Err())
	}
	want := "Did not reach desired final state within timeout period. Power state is stopping"
	if res.Failure.Reason != want {
		t.Errorf("expected %q, got %q", want, res.Failure.Reason)
	}
	if res.Elapsed() < req.WaitTimeout {
		t.Errorf("expected elapsed to cover the wait, got %v", res.Elapsed())
	}
}

func TestExecute_RebootTwoPhase(t *testing.T) {
	// Pre-dispatch read, still on, off, still off, back on.
	conn := newFakeConn(on, on, off, off, on)
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionReboot, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if !res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=true")
	}
	if conn.queries != 6 {
		t.Errorf("expected 6 queries, got %d", conn.queries)
	}
}

func TestExecute_RebootNeverCyclesTerminates(t *testing.T) {
	conn := newFakeConn(on)
	exec, clock := newTestExecutor(conn)

	req := request(domain.ActionReboot, true)
	req.WaitTimeout = 2 * time.Second

	res := executeWithClock(t, exec, clock.(advancer), req)
	if !res.OK() && !errors.Is(res.Err(), domain.ErrTimeout) {
		t.Fatalf("expected success or TimeoutError, got %v", res.Err())
	}
}

func TestExecute_InPlaceRestartSkipsPowerOff(t *testing.T) {
	conn := &inPlaceConn{fakeConn: newFakeConn(on)}
	exec, _ := newTestExecutor(conn)

	// No clock movement is needed: the node is already in its final state.
	res := exec.Execute(context.Background(), request(domain.ActionReboot, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	// Pre-dispatch read, one poll, final read.
	if conn.queries != 3 {
		t.Errorf("expected 3 queries, got %d", conn.queries)
	}
}

func TestExecute_TerminateUsesTerminalWait(t *testing.T) {
	conn := &terminalConn{fakeConn: newFakeConn(gone)}
	exec, _ := newTestExecutor(conn)

	req := request(domain.ActionTerminate, true)
	req.WaitTimeout = time.Nanosecond

	res := exec.Execute(context.Background(), req)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=false")
	}
	if conn.terminalWaits != 1 {
		t.Errorf("expected one terminal wait, got %d", conn.terminalWaits)
	}
}

func TestExecute_TerminateIgnoresWaitTimeout(t *testing.T) {
	// The timeout is far shorter than the time it takes to disappear.
	conn := newFakeConn(on, on, on, on, on, on, gone)
	exec, clock := newTestExecutor(conn)

	req := request(domain.ActionTerminate, true)
	req.WaitTimeout = time.Millisecond

	res := executeWithClock(t, exec, clock.(advancer), req)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if res.Success.FinalPowerStateOn {
		t.Error("expected final_power_state_on=false")
	}
}

func TestExecute_DiagnosticInterruptDoesNotWait(t *testing.T) {
	conn := newFakeConn(on)
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionDiagnosticInterrupt, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if conn.queries != 1 {
		t.Errorf("expected only the final read, got %d queries", conn.queries)
	}
}

func TestExecute_DiagnosticInterruptIgnoresFinalQueryFailure(t *testing.T) {
	conn := newFakeConn(on)
	conn.queryErrAt = 1
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionDiagnosticInterrupt, true))
	if !res.OK() {
		t.Fatalf("expected success after dispatch, got %v", res.Err())
	}
	if diff := cmp.Diff([]domain.Action{domain.ActionDiagnosticInterrupt}, conn.issued); diff != "" {
		t.Errorf("issued mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_PollQueryFailure(t *testing.T) {
	conn := newFakeConn(off)
	conn.queryErrAt = 2
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionStart, true))
	if !errors.Is(res.Err(), domain.ErrConnection) {
		t.Fatalf("expected ConnectionError, got %v", res.Err())
	}
	if !strings.Contains(res.Failure.Reason, "bmc unreachable") {
		t.Errorf("expected reason to carry the cause, got %q", res.Failure.Reason)
	}
}

func TestExecute_CancelledDuringPoll(t *testing.T) {
	conn := newFakeConn(off)
	exec, _ := newTestExecutor(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := exec.Execute(ctx, request(domain.ActionStart, true))
	if !errors.Is(res.Err(), domain.ErrConnection) {
		t.Fatalf("expected ConnectionError, got %v", res.Err())
	}
	if !errors.Is(res.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", res.Err())
	}
}

func TestExecute_NativeWait(t *testing.T) {
	conn := &waiterConn{fakeConn: newFakeConn(on)}
	exec, _ := newTestExecutor(conn)

	req := request(domain.ActionStart, true)
	req.WaitTimeout = 7 * time.Second

	res := exec.Execute(context.Background(), req)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if diff := cmp.Diff([]domain.PowerState{domain.PowerOn}, conn.waitedOn); diff != "" {
		t.Errorf("waited states mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{7 * time.Second}, conn.timeouts); diff != "" {
		t.Errorf("timeouts mismatch (-want +got):\n%s", diff)
	}
	if conn.queries != 1 {
		t.Errorf("expected only the final read, got %d queries", conn.queries)
	}
}

func TestExecute_NativeWaitTwoPhase(t *testing.T) {
	conn := &waiterConn{fakeConn: newFakeConn(on)}
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionHardReset, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	want := []domain.PowerState{domain.PowerOff, domain.PowerOn}
	if diff := cmp.Diff(want, conn.waitedOn); diff != "" {
		t.Errorf("waited states mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_NativeWaitTimeout(t *testing.T) {
	conn := &waiterConn{fakeConn: newFakeConn(stopped)}
	conn.waitErr = fmt.Errorf("exceeded max wait time: %w", domain.ErrTimeout)
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionStart, true))
	if !errors.Is(res.Err(), domain.ErrTimeout) {
		t.Fatalf("expected TimeoutError, got %v", res.Err())
	}
	if !strings.HasSuffix(res.Failure.Reason, "Power state is stopping") {
		t.Errorf("expected raw state in reason, got %q", res.Failure.Reason)
	}
}

func TestExecute_NativeWaitFailure(t *testing.T) {
	conn := &waiterConn{fakeConn: newFakeConn(off)}
	conn.waitErr = errors.New("describe instances: throttled")
	exec, _ := newTestExecutor(conn)

	res := exec.Execute(context.Background(), request(domain.ActionStart, true))
	if !errors.Is(res.Err(), domain.ErrConnection) {
		t.Fatalf("expected ConnectionError, got %v", res.Err())
	}
}

func TestExecute_ElapsedIncludesWait(t *testing.T) {
	conn := newFakeConn(off, off, off, off, on)
	exec, clock := newTestExecutor(conn)

	res := executeWithClock(t, exec, clock.(advancer), request(domain.ActionStart, true))
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if res.Elapsed() < 4*testInterval {
		t.Errorf("expected elapsed of at least %v, got %v", 4*testInterval, res.Elapsed())
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.ActionRequest
		final   domain.Observation
		wantErr bool
	}{
		{"no wait ignores state", request(domain.ActionStart, false), off, false},
		{"start reached", request(domain.ActionStart, true), on, false},
		{"start missed", request(domain.ActionStart, true), off, true},
		{"stop reached", request(domain.ActionSoftStop, true), off, false},
		{"terminate reached", request(domain.ActionTerminate, true), gone, false},
		{"terminate missed", request(domain.ActionTerminate, true), off, true},
		{"diagnostic interrupt", request(domain.ActionDiagnosticInterrupt, true), off, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Report(tt.req, tt.final)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, action := range domain.AllActions {
		for _, obs := range []domain.Observation{on, off, gone} {
			err := Validate(action, obs)
			wantErr := action == domain.ActionReboot && obs.State != domain.PowerOn
			if (err != nil) != wantErr {
				t.Errorf("%v on %v: expected error=%v, got %v", action, obs, wantErr, err)
			}
		}
	}
}
