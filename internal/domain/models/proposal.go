package models

// ProposalType is the closed set of proposal kinds the policy evaluator
// understands. New kinds must be added here and handled exhaustively in the
// evaluator's rule set.
type ProposalType string

const (
	ProposalTrade ProposalType = "trade"
	ProposalHalt  ProposalType = "halt"
)

// Valid reports whether the type is a known variant.
func (t ProposalType) Valid() bool {
	switch t {
	case ProposalTrade, ProposalHalt:
		return true
	}
	return false
}

func (t ProposalType) String() string { return string(t) }

// Proposal is an agent's recommended action, awaiting policy evaluation.
// Read-only after emission; terminal once an Action references it.
type Proposal struct {
	ProposalID string                 `json:"proposal_id"`
	AgentID    string                 `json:"agent_id"`
	Timestamp  int64                  `json:"timestamp"` // unix milliseconds
	Type       ProposalType           `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Priority   int                    `json:"priority"`
}
