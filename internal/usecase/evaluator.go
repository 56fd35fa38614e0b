package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/internal/service/policy"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// ReputationDeltas are the score adjustments applied per policy outcome.
type ReputationDeltas struct {
	Approve float64
	Reject  float64
}

// PolicyEvaluator consumes the proposal topic and resolves each proposal
// into exactly one Action plus one AuditEvent. Decisions are deterministic
// per proposal; redelivered proposals are deduplicated by proposal id so a
// crash between emission and cursor advance cannot double-write.
type PolicyEvaluator struct {
	stream     domrepo.Stream
	rules      policy.Rules
	guard      domrepo.IdempotencyGuard
	reputation domrepo.Reputation
	deltas     ReputationDeltas
	poll       stream.PollConfig
	metrics    domrepo.Metrics
	log        *logger.Logger
}

// NewPolicyEvaluator creates an evaluator. reputation may be nil when no
// reputation store is configured.
func NewPolicyEvaluator(
	st domrepo.Stream,
	rules policy.Rules,
	guard domrepo.IdempotencyGuard,
	reputation domrepo.Reputation,
	deltas ReputationDeltas,
	poll stream.PollConfig,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *PolicyEvaluator {
	return &PolicyEvaluator{
		stream:     st,
		rules:      rules,
		guard:      guard,
		reputation: reputation,
		deltas:     deltas,
		poll:       poll,
		metrics:    metrics,
		log:        log.With("evaluator"),
	}
}

// Run blocks until ctx is cancelled.
func (ev *PolicyEvaluator) Run(ctx context.Context) error {
	ev.log.Info("policy evaluator started", logger.String("topic", models.TopicProposals))
	p := stream.NewPoller(ev.stream, models.TopicProposals, ev.poll, ev.log)
	return p.Run(ctx, ev.handle)
}

func (ev *PolicyEvaluator) handle(ctx context.Context, e stream.Entry) error {
	ev.metrics.RecordEntryConsumed(models.TopicProposals)

	var prop models.Proposal
	if err := json.Unmarshal(e.Data, &prop); err != nil {
		ev.metrics.RecordError("proposal_decode")
		ev.log.Warn("bad proposal payload, skipping",
			logger.String("entry_id", e.ID),
			logger.Error(err))
		return nil
	}
	if prop.ProposalID == "" {
		ev.metrics.RecordError("proposal_no_id")
		ev.log.Warn("proposal without id, skipping", logger.String("entry_id", e.ID))
		return nil
	}

	first, err := ev.guard.FirstSeen(ctx, "proposal", prop.ProposalID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !first {
		ev.log.Debug("proposal already evaluated, skipping",
			logger.String("proposal_id", prop.ProposalID))
		return nil
	}

	decision := ev.rules.Decide(&prop)

	// Action id mirrors the proposal id: deterministic under redelivery and
	// the key the execution applier dedups on.
	action := &models.Action{
		ActionID:   prop.ProposalID,
		ProposalID: prop.ProposalID,
		Timestamp:  prop.Timestamp,
		Status:     decision.Status,
		Result:     decision.Result,
	}

	// Action before audit: an audit event never references a record that
	// was not written.
	if _, err := ev.stream.Append(ctx, models.TopicActions, action); err != nil {
		ev.releaseGuard(ctx, prop.ProposalID)
		return fmt.Errorf("append action: %w", err)
	}

	audit := &models.AuditEvent{
		Event:     decision.Event,
		Source:    "policy",
		Timestamp: time.Now().UnixMilli(),
		Proposal:  &prop,
	}
	if _, err := ev.stream.Append(ctx, models.TopicAudit, audit); err != nil {
		ev.releaseGuard(ctx, prop.ProposalID)
		return fmt.Errorf("append audit: %w", err)
	}

	if ev.reputation != nil {
		delta := ev.deltas.Reject
		if decision.Approved() {
			delta = ev.deltas.Approve
		}
		if err := ev.reputation.Adjust(ctx, prop.AgentID, delta, decision.Approved()); err != nil {
			// Reputation is advisory; losing one adjustment is tolerable.
			ev.metrics.RecordError("reputation_adjust")
			ev.log.Warn("reputation adjust failed",
				logger.String("agent", prop.AgentID),
				logger.Error(err))
		}
	}

	ev.metrics.RecordAction(decision.Status.String())
	if decision.Approved() {
		ev.log.Info("proposal approved", logger.String("proposal_id", prop.ProposalID))
	} else {
		ev.log.Info("proposal rejected",
			logger.String("proposal_id", prop.ProposalID),
			logger.String("type", prop.Type.String()))
	}
	return nil
}

// releaseGuard lets a redelivery retry after a partial write. Best effort:
// if the release itself fails the proposal stays claimed and the gap is
// logged.
func (ev *PolicyEvaluator) releaseGuard(ctx context.Context, proposalID string) {
	if err := ev.guard.Release(ctx, "proposal", proposalID); err != nil {
		ev.metrics.RecordError("guard_release")
		ev.log.Error("guard release failed, proposal may be dropped",
			logger.String("proposal_id", proposalID),
			logger.Error(err))
	}
}
