package agents

import (
	"context"
	"time"

	"GovPulse/internal/domain/models"

	"github.com/google/uuid"
)

const (
	marketDemoSize   = 0.001
	marketPriority   = 5
	defaultMarketID  = "agent.market.1"
	defaultMarketBuy = "buy"
)

// MarketAgent proposes a small buy on every tick. Demo strategy: the point
// is exercising the proposal path, not making money.
type MarketAgent struct {
	id string
}

// NewMarketAgent creates a market agent. An empty id falls back to the
// default.
func NewMarketAgent(id string) *MarketAgent {
	if id == "" {
		id = defaultMarketID
	}
	return &MarketAgent{id: id}
}

func (a *MarketAgent) ID() string { return a.id }

// OnTick emits exactly one trade proposal per tick.
func (a *MarketAgent) OnTick(ctx context.Context, tick *models.Tick) ([]*models.Proposal, error) {
	p := &models.Proposal{
		ProposalID: uuid.NewString(),
		AgentID:    a.id,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.ProposalTrade,
		Payload: map[string]interface{}{
			"symbol": tick.Symbol,
			"side":   defaultMarketBuy,
			"size":   marketDemoSize,
			"price":  tick.Price,
		},
		Priority: marketPriority,
	}
	return []*models.Proposal{p}, nil
}

func (a *MarketAgent) OnEvent(ctx context.Context, event *models.AuditEvent) error {
	return nil
}
