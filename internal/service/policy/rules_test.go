package policy

import (
	"testing"

	"GovPulse/internal/domain/models"
)

func TestTradeApproved(t *testing.T) {
	d := NewTypeRules().Decide(&models.Proposal{ProposalID: "p1", Type: models.ProposalTrade})
	if !d.Approved() {
		t.Fatalf("trade proposal not approved")
	}
	if d.Status != models.ActionApplied {
		t.Fatalf("status %s, want applied", d.Status)
	}
	if executed, ok := d.Result["executed"].(bool); !ok || !executed {
		t.Fatalf("result missing executed=true: %v", d.Result)
	}
	if d.Event != models.EventProposalApproved {
		t.Fatalf("event %s, want %s", d.Event, models.EventProposalApproved)
	}
}

func TestNonTradeRejected(t *testing.T) {
	rules := NewTypeRules()
	for _, typ := range []models.ProposalType{models.ProposalHalt, "vote", ""} {
		d := rules.Decide(&models.Proposal{ProposalID: "p1", Type: typ})
		if d.Approved() {
			t.Fatalf("type %q approved, want rejected", typ)
		}
		if d.Result["reason"] != "unsupported type" {
			t.Fatalf("type %q: unexpected result %v", typ, d.Result)
		}
		if d.Event != models.EventProposalRejected {
			t.Fatalf("type %q: event %s", typ, d.Event)
		}
	}
}

func TestDecisionDeterministic(t *testing.T) {
	rules := NewTypeRules()
	p := &models.Proposal{ProposalID: "p1", Type: models.ProposalTrade, Priority: 5}
	first := rules.Decide(p)
	for i := 0; i < 10; i++ {
		if got := rules.Decide(p); got.Status != first.Status || got.Event != first.Event {
			t.Fatalf("decision changed between calls: %v then %v", first, got)
		}
	}
}
