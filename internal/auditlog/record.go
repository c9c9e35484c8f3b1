package auditlog

import (
	"time"

	"github.com/google/uuid"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

// OutcomeSuccess marks a successful action. Failed actions store their
// error kind (e.g. "TimeoutError") as the outcome.
const OutcomeSuccess = "success"

// Entry is one executed power action.
type Entry struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Backend   string    `json:"backend"`
	Node      string    `json:"node"`
	Action    string    `json:"action"`
	Wait      bool      `json:"wait"`
	Args      string    `json:"args,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	FinalOn   bool      `json:"final_power_state_on"`

	DurationMs int64 `json:"duration_ms"`
}

// NewRunID returns an identifier shared by every entry of one invocation,
// so that the nodes of a batch can be listed together.
func NewRunID() string {
	return uuid.NewString()
}

// NewEntry builds the history entry for an executed request.
func NewEntry(runID string, req domain.ActionRequest, result domain.ActionResult) *Entry {
	entry := &Entry{
		RunID:      runID,
		Backend:    req.Node.Backend,
		Node:       req.Node.Label(),
		Action:     req.Action.String(),
		Wait:       req.Wait,
		DurationMs: result.Elapsed().Milliseconds(),
	}
	switch {
	case result.Success != nil:
		entry.Outcome = OutcomeSuccess
		entry.FinalOn = result.Success.FinalPowerStateOn
	case result.Failure != nil:
		entry.Outcome = string(result.Failure.Kind)
		entry.Detail = result.Failure.Reason
	}
	return entry
}

// OK reports whether the recorded action succeeded.
func (e Entry) OK() bool { return e.Outcome == OutcomeSuccess }
