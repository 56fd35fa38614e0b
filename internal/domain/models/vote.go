package models

// Vote is the governance.votes payload. The topic is reserved: the gateway
// relays it and the ledger can archive it, but nothing produces votes yet.
type Vote struct {
	ProposalID string  `json:"proposal_id"`
	AgentID    string  `json:"agent_id"`
	Vote       string  `json:"vote"`
	Weight     float64 `json:"weight"`
	Timestamp  int64   `json:"timestamp"` // unix milliseconds
	Reason     string  `json:"reason,omitempty"`
}
