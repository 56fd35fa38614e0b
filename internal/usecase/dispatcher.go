package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/internal/service/agents"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// AgentDispatcher consumes the tick topic and fans each tick out to every
// registered agent concurrently. All agent outcomes are gathered before the
// cursor advances; one agent's failure or panic never cancels its siblings
// and never stalls the loop.
type AgentDispatcher struct {
	stream  domrepo.Stream
	agents  []agents.Agent
	poll    stream.PollConfig
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewAgentDispatcher creates a dispatcher over the given agent pool.
func NewAgentDispatcher(st domrepo.Stream, pool []agents.Agent, poll stream.PollConfig, metrics domrepo.Metrics, log *logger.Logger) *AgentDispatcher {
	return &AgentDispatcher{
		stream:  st,
		agents:  pool,
		poll:    poll,
		metrics: metrics,
		log:     log.With("dispatcher"),
	}
}

// Run blocks until ctx is cancelled. Alongside the tick loop it runs an
// audit feedback loop so agents observe pipeline outcomes.
func (d *AgentDispatcher) Run(ctx context.Context) error {
	d.log.Info("agent dispatcher started",
		logger.String("topic", models.TopicTicks),
		logger.Int("agents", len(d.agents)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p := stream.NewPoller(d.stream, models.TopicAudit, d.poll, d.log)
		_ = p.Run(ctx, d.handleEvent)
	}()

	p := stream.NewPoller(d.stream, models.TopicTicks, d.poll, d.log)
	err := p.Run(ctx, d.handle)
	wg.Wait()
	return err
}

// handleEvent notifies every agent of an audit event. Notification is
// best-effort: agent errors are logged and the cursor advances regardless.
func (d *AgentDispatcher) handleEvent(ctx context.Context, e stream.Entry) error {
	var ev models.AuditEvent
	if err := json.Unmarshal(e.Data, &ev); err != nil {
		d.metrics.RecordError("audit_decode")
		return nil
	}
	for _, a := range d.agents {
		if err := a.OnEvent(ctx, &ev); err != nil {
			d.log.Warn("agent rejected audit event",
				logger.String("agent", a.ID()),
				logger.String("event", ev.Event),
				logger.Error(err))
		}
	}
	return nil
}

func (d *AgentDispatcher) handle(ctx context.Context, e stream.Entry) error {
	d.metrics.RecordEntryConsumed(models.TopicTicks)

	var tick models.Tick
	if err := json.Unmarshal(e.Data, &tick); err != nil {
		// Malformed entry: skip and advance, no retry.
		d.metrics.RecordError("tick_decode")
		d.log.Warn("bad tick payload, skipping",
			logger.String("entry_id", e.ID),
			logger.Error(err))
		return nil
	}
	if err := tick.Validate(); err != nil {
		d.metrics.RecordError("tick_invalid")
		d.log.Warn("invalid tick, skipping",
			logger.String("entry_id", e.ID),
			logger.Error(err))
		return nil
	}

	start := time.Now()
	outcomes := d.dispatch(ctx, &tick)
	d.metrics.RecordLatency("agent_dispatch", time.Since(start).Seconds())

	for _, out := range outcomes {
		if out.err != nil {
			// Isolated: record and move on, siblings' proposals still publish.
			d.metrics.RecordError("agent_" + out.agentID)
			d.log.Warn("agent failed on tick",
				logger.String("agent", out.agentID),
				logger.String("entry_id", e.ID),
				logger.Error(out.err))
			continue
		}
		for _, p := range out.proposals {
			if _, err := d.stream.Append(ctx, models.TopicProposals, p); err != nil {
				// Substrate failure: redeliver the tick from the unchanged
				// cursor. Duplicate proposals are possible here by design.
				return fmt.Errorf("append proposal: %w", err)
			}
			d.metrics.RecordProposal(p.AgentID, p.Type.String())
			d.log.Debug("proposal emitted",
				logger.String("agent", p.AgentID),
				logger.String("proposal_id", p.ProposalID),
				logger.String("type", p.Type.String()))
		}
	}
	return nil
}

type agentOutcome struct {
	agentID   string
	proposals []*models.Proposal
	err       error
}

// dispatch invokes every agent concurrently and waits for all of them.
// Panics are recovered into the agent's own outcome.
func (d *AgentDispatcher) dispatch(ctx context.Context, tick *models.Tick) []agentOutcome {
	outcomes := make([]agentOutcome, len(d.agents))

	var wg sync.WaitGroup
	for i, a := range d.agents {
		wg.Add(1)
		go func(i int, a agents.Agent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = agentOutcome{agentID: a.ID(), err: fmt.Errorf("agent panic: %v", r)}
				}
			}()
			props, err := a.OnTick(ctx, tick)
			outcomes[i] = agentOutcome{agentID: a.ID(), proposals: props, err: err}
		}(i, a)
	}
	wg.Wait()

	return outcomes
}
