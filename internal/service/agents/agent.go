package agents

import (
	"context"

	"GovPulse/internal/domain/models"
)

// Agent is one autonomous decision unit. Every registered agent sees every
// tick; proposals it returns are appended to the proposal topic by the
// dispatcher. Agents must be side-effect free apart from their returned
// proposals so that a redelivered tick stays cheap.
type Agent interface {
	// ID identifies the agent in proposals and reputation records.
	ID() string

	// OnTick inspects one market observation and returns zero or more
	// proposals.
	OnTick(ctx context.Context, tick *models.Tick) ([]*models.Proposal, error)

	// OnEvent lets an agent react to audit events. No output is required.
	OnEvent(ctx context.Context, event *models.AuditEvent) error
}
