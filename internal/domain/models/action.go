package models

// ActionStatus is the closed set of action outcomes. The evaluator emits
// applied or rejected; the execution applier advances to completed or failed.
type ActionStatus string

const (
	ActionApplied   ActionStatus = "applied"
	ActionRejected  ActionStatus = "rejected"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

// Valid reports whether the status is a known variant.
func (s ActionStatus) Valid() bool {
	switch s {
	case ActionApplied, ActionRejected, ActionCompleted, ActionFailed:
		return true
	}
	return false
}

func (s ActionStatus) String() string { return string(s) }

// Action is the resolved outcome of a Proposal. Created exactly once per
// proposal by the policy evaluator.
type Action struct {
	ActionID     string                 `json:"action_id"`
	ProposalID   string                 `json:"proposal_id"`
	Timestamp    int64                  `json:"timestamp"` // unix milliseconds
	Status       ActionStatus           `json:"status"`
	Result       map[string]interface{} `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}
