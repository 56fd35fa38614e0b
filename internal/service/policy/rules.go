package policy

import "GovPulse/internal/domain/models"

// Decision is the resolved outcome for one proposal: the action status to
// emit, its result payload, and the audit event name describing it.
type Decision struct {
	Status models.ActionStatus
	Result map[string]interface{}
	Event  string
}

// Approved reports whether the decision applies the proposal.
func (d Decision) Approved() bool {
	return d.Status == models.ActionApplied
}

// Rules is a deterministic decision function over proposals. Implementations
// must return the same decision for the same proposal on every call, so a
// redelivered proposal re-evaluates identically.
type Rules interface {
	Decide(p *models.Proposal) Decision
}

// TypeRules decides purely on the proposal's type: trade proposals are
// approved, every other variant is rejected. Richer rule sets (priority,
// agent reputation) plug in behind the Rules interface.
type TypeRules struct{}

// NewTypeRules returns the default type-keyed rule set.
func NewTypeRules() TypeRules { return TypeRules{} }

// Decide evaluates one proposal. The switch is exhaustive over the known
// variants; unknown types arriving over the wire fall through to rejection.
func (TypeRules) Decide(p *models.Proposal) Decision {
	switch p.Type {
	case models.ProposalTrade:
		return Decision{
			Status: models.ActionApplied,
			Result: map[string]interface{}{"executed": true},
			Event:  models.EventProposalApproved,
		}
	case models.ProposalHalt:
		return rejected()
	default:
		return rejected()
	}
}

func rejected() Decision {
	return Decision{
		Status: models.ActionRejected,
		Result: map[string]interface{}{"reason": "unsupported type"},
		Event:  models.EventProposalRejected,
	}
}
