package agents

import (
	"context"
	"testing"

	"GovPulse/internal/domain/models"
)

func tick(price float64) *models.Tick {
	return &models.Tick{
		StreamID:  "s1",
		Timestamp: 1000,
		Symbol:    "X",
		Price:     price,
		Size:      1,
		Side:      "buy",
		Source:    "test",
	}
}

func TestMarketAgentAlwaysProposesTrade(t *testing.T) {
	a := NewMarketAgent("")
	for _, price := range []float64{-1, 0, 42.5} {
		props, err := a.OnTick(context.Background(), tick(price))
		if err != nil {
			t.Fatalf("on tick: %v", err)
		}
		if len(props) != 1 {
			t.Fatalf("price %v: expected 1 proposal, got %d", price, len(props))
		}
		p := props[0]
		if p.Type != models.ProposalTrade {
			t.Fatalf("expected trade proposal, got %s", p.Type)
		}
		if p.Priority != 5 {
			t.Fatalf("expected priority 5, got %d", p.Priority)
		}
		if p.ProposalID == "" {
			t.Fatalf("proposal id empty")
		}
		if p.AgentID != a.ID() {
			t.Fatalf("agent id %s, want %s", p.AgentID, a.ID())
		}
	}
}

func TestRiskAgentHaltsOnNegativePrice(t *testing.T) {
	a := NewRiskAgent("")

	props, err := a.OnTick(context.Background(), tick(-1.0))
	if err != nil {
		t.Fatalf("on tick: %v", err)
	}
	if len(props) != 1 {
		t.Fatalf("expected 1 halt proposal, got %d", len(props))
	}
	if props[0].Type != models.ProposalHalt {
		t.Fatalf("expected halt, got %s", props[0].Type)
	}
	if props[0].Priority != 10 {
		t.Fatalf("expected priority 10, got %d", props[0].Priority)
	}
}

func TestRiskAgentQuietOnNonNegativePrice(t *testing.T) {
	a := NewRiskAgent("")
	for _, price := range []float64{0, 0.0001, 100} {
		props, err := a.OnTick(context.Background(), tick(price))
		if err != nil {
			t.Fatalf("on tick: %v", err)
		}
		if len(props) != 0 {
			t.Fatalf("price %v: expected no proposals, got %d", price, len(props))
		}
	}
}

func TestProposalIDsAreUnique(t *testing.T) {
	a := NewMarketAgent("")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		props, err := a.OnTick(context.Background(), tick(1))
		if err != nil {
			t.Fatalf("on tick: %v", err)
		}
		id := props[0].ProposalID
		if seen[id] {
			t.Fatalf("duplicate proposal id %s", id)
		}
		seen[id] = true
	}
}
