package models

import "fmt"

// Tick is one market observation. Ticks are immutable once published.
type Tick struct {
	StreamID  string  `json:"stream_id"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Side      string  `json:"side"`
	Source    string  `json:"source"`
}

// Validate checks the fields a tick must carry before it enters the pipeline.
// Price is deliberately unchecked: negative prices are valid input and drive
// the risk agent's halt path.
func (t *Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("tick symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("tick timestamp invalid")
	}
	if t.Size < 0 {
		return fmt.Errorf("tick size negative")
	}
	return nil
}
