package models

import "encoding/json"

// Envelope wraps one stream entry for live subscribers: the topic it came
// from, its entry id, and the verbatim payload bytes.
type Envelope struct {
	Stream string          `json:"stream"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data"`
}

// Reputation is one agent's standing, adjusted by the policy evaluator.
type Reputation struct {
	AgentID  string  `json:"agent_id"`
	Score    float64 `json:"score"`
	Approved int64   `json:"approved"`
	Rejected int64   `json:"rejected"`
}
