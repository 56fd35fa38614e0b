package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// ExecutionApplier consumes the action topic, applies each action's effect
// durably, and appends one completion audit event. A check-and-set on the
// action id runs before the effect, so a redelivered action entry applies
// nothing a second time.
type ExecutionApplier struct {
	stream  domrepo.Stream
	effects domrepo.EffectLog
	guard   domrepo.IdempotencyGuard
	poll    stream.PollConfig
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewExecutionApplier creates an applier.
func NewExecutionApplier(
	st domrepo.Stream,
	effects domrepo.EffectLog,
	guard domrepo.IdempotencyGuard,
	poll stream.PollConfig,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *ExecutionApplier {
	return &ExecutionApplier{
		stream:  st,
		effects: effects,
		guard:   guard,
		poll:    poll,
		metrics: metrics,
		log:     log.With("applier"),
	}
}

// Run blocks until ctx is cancelled.
func (ap *ExecutionApplier) Run(ctx context.Context) error {
	ap.log.Info("execution applier started", logger.String("topic", models.TopicActions))
	p := stream.NewPoller(ap.stream, models.TopicActions, ap.poll, ap.log)
	return p.Run(ctx, ap.handle)
}

func (ap *ExecutionApplier) handle(ctx context.Context, e stream.Entry) error {
	ap.metrics.RecordEntryConsumed(models.TopicActions)

	var action models.Action
	if err := json.Unmarshal(e.Data, &action); err != nil {
		ap.metrics.RecordError("action_decode")
		ap.log.Warn("bad action payload, skipping",
			logger.String("entry_id", e.ID),
			logger.Error(err))
		return nil
	}
	if action.ActionID == "" {
		ap.metrics.RecordError("action_no_id")
		ap.log.Warn("action without id, skipping", logger.String("entry_id", e.ID))
		return nil
	}

	first, err := ap.guard.FirstSeen(ctx, "action", action.ActionID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !first {
		ap.log.Debug("action already applied, skipping",
			logger.String("action_id", action.ActionID))
		return nil
	}

	start := time.Now()
	if err := ap.effects.Apply(ctx, &action); err != nil {
		// Effect not applied: release the claim so redelivery retries it.
		if rerr := ap.guard.Release(ctx, "action", action.ActionID); rerr != nil {
			ap.metrics.RecordError("guard_release")
			ap.log.Error("guard release failed after effect failure",
				logger.String("action_id", action.ActionID),
				logger.Error(rerr))
		}
		return fmt.Errorf("apply effect: %w", err)
	}
	ap.metrics.RecordLatency("effect_apply", time.Since(start).Seconds())

	executed := action
	executed.Status = models.ActionCompleted

	audit := &models.AuditEvent{
		Event:     models.EventActionExecuted,
		Source:    "execution",
		Timestamp: time.Now().UnixMilli(),
		Action:    &executed,
	}
	if _, err := ap.stream.Append(ctx, models.TopicAudit, audit); err != nil {
		// The effect already landed, so the claim stays held: redelivery
		// must not re-apply it even though this audit event is lost.
		ap.metrics.RecordError("audit_append")
		return fmt.Errorf("append completion audit: %w", err)
	}

	ap.metrics.RecordAction(models.ActionCompleted.String())
	ap.log.Info("action executed", logger.String("action_id", action.ActionID))
	return nil
}
