package models

// Audit event names emitted by the pipeline.
const (
	EventProposalApproved = "proposal_approved"
	EventProposalRejected = "proposal_rejected"
	EventActionExecuted   = "action_executed"
	EventActionFailed     = "action_failed"
)

// AuditEvent is an immutable record of something that happened. Append-only,
// never updated. The Action or Proposal it describes is always written first.
type AuditEvent struct {
	Event     string                 `json:"event"`
	Source    string                 `json:"source,omitempty"`
	Severity  string                 `json:"severity,omitempty"`
	Timestamp int64                  `json:"timestamp,omitempty"` // unix milliseconds
	Proposal  *Proposal              `json:"proposal,omitempty"`
	Action    *Action                `json:"action,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
