package agents

import (
	"context"
	"time"

	"GovPulse/internal/domain/models"

	"github.com/google/uuid"
)

const (
	riskPriority  = 10 // outranks trade proposals
	defaultRiskID = "agent.risk.1"
)

// RiskAgent watches for price anomalies and proposes a halt when one shows
// up. A negative price is the demo anomaly condition.
type RiskAgent struct {
	id string
}

// NewRiskAgent creates a risk agent. An empty id falls back to the default.
func NewRiskAgent(id string) *RiskAgent {
	if id == "" {
		id = defaultRiskID
	}
	return &RiskAgent{id: id}
}

func (a *RiskAgent) ID() string { return a.id }

// OnTick emits one halt proposal when the price is negative, nothing
// otherwise.
func (a *RiskAgent) OnTick(ctx context.Context, tick *models.Tick) ([]*models.Proposal, error) {
	if tick.Price >= 0 {
		return nil, nil
	}

	p := &models.Proposal{
		ProposalID: uuid.NewString(),
		AgentID:    a.id,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.ProposalHalt,
		Payload: map[string]interface{}{
			"reason": "price anomaly",
			"symbol": tick.Symbol,
		},
		Priority: riskPriority,
	}
	return []*models.Proposal{p}, nil
}

func (a *RiskAgent) OnEvent(ctx context.Context, event *models.AuditEvent) error {
	return nil
}
