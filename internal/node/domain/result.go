package domain

import "time"

// ActionResult is the outcome of executing one ActionRequest. Exactly one
// of Success and Failure is set; use Succeeded and Failed to build one.
type ActionResult struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"error,omitempty"`
}

// Success describes an action that was issued and, when waiting was
// requested, reached its intended state.
type Success struct {
	ElapsedMs         int64 `json:"ms_duration"`
	FinalPowerStateOn bool  `json:"final_power_state_on"`
}

// Failure describes why an action could not be completed.
type Failure struct {
	Kind      ErrorKind `json:"kind"`
	Reason    string    `json:"error"`
	ElapsedMs int64     `json:"ms_duration"`

	err *ActionError
}

// Succeeded builds a successful result.
func Succeeded(elapsed time.Duration, finalOn bool) ActionResult {
	return ActionResult{Success: &Success{
		ElapsedMs:         durationMs(elapsed),
		FinalPowerStateOn: finalOn,
	}}
}

// Failed builds a failed result from err.
func Failed(elapsed time.Duration, err *ActionError) ActionResult {
	return ActionResult{Failure: &Failure{
		Kind:      err.Kind,
		Reason:    err.Reason,
		ElapsedMs: durationMs(elapsed),
		err:       err,
	}}
}

// OK reports whether the action succeeded.
func (r ActionResult) OK() bool { return r.Success != nil }

// Err returns the failure as an error, or nil on success.
func (r ActionResult) Err() error {
	if r.Failure == nil {
		return nil
	}
	if r.Failure.err != nil {
		return r.Failure.err
	}
	return &ActionError{Kind: r.Failure.Kind, Reason: r.Failure.Reason}
}

// Elapsed returns the reported duration of either variant.
func (r ActionResult) Elapsed() time.Duration {
	switch {
	case r.Success != nil:
		return time.Duration(r.Success.ElapsedMs) * time.Millisecond
	case r.Failure != nil:
		return time.Duration(r.Failure.ElapsedMs) * time.Millisecond
	}
	return 0
}

func durationMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
