package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"GovPulse/internal/domain/models"
	"GovPulse/internal/service/agents"
	"GovPulse/internal/service/policy"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type memGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemGuard() *memGuard { return &memGuard{seen: make(map[string]bool)} }

func (g *memGuard) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := scope + ":" + id
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *memGuard) Release(ctx context.Context, scope, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, scope+":"+id)
	return nil
}

type memEffects struct {
	mu      sync.Mutex
	applied []*models.Action
}

func (e *memEffects) Apply(ctx context.Context, a *models.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *a
	e.applied = append(e.applied, &cp)
	return nil
}

func (e *memEffects) Close() error { return nil }

func (e *memEffects) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.applied)
}

type memReputation struct {
	mu     sync.Mutex
	scores map[string]float64
}

func newMemReputation() *memReputation { return &memReputation{scores: make(map[string]float64)} }

func (r *memReputation) Adjust(ctx context.Context, agentID string, delta float64, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[agentID] += delta
	return nil
}

func (r *memReputation) Leaderboard(ctx context.Context, limit int) ([]*models.Reputation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Reputation, 0, len(r.scores))
	for id, score := range r.scores {
		out = append(out, &models.Reputation{AgentID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordEntryConsumed(string)    {}
func (nopMetrics) RecordProposal(string, string) {}
func (nopMetrics) RecordAction(string)           {}
func (nopMetrics) RecordBroadcast(string)        {}
func (nopMetrics) RecordLiveConnections(int)     {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

// failingAgent always errors.
type failingAgent struct{}

func (failingAgent) ID() string { return "agent.fail.1" }
func (failingAgent) OnTick(context.Context, *models.Tick) ([]*models.Proposal, error) {
	return nil, errors.New("boom")
}
func (failingAgent) OnEvent(context.Context, *models.AuditEvent) error { return nil }

// panickyAgent panics on every tick.
type panickyAgent struct{}

func (panickyAgent) ID() string { return "agent.panic.1" }
func (panickyAgent) OnTick(context.Context, *models.Tick) ([]*models.Proposal, error) {
	panic("agent bug")
}
func (panickyAgent) OnEvent(context.Context, *models.AuditEvent) error { return nil }

// --- helpers ---

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func fastPoll() stream.PollConfig {
	return stream.PollConfig{
		Start:        stream.CursorEarliest,
		BlockTimeout: 20 * time.Millisecond,
		BatchCount:   10,
		IdleSleep:    time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}
}

func readAll(t *testing.T, log *stream.MemoryLog, topic string) []stream.Entry {
	t.Helper()
	entries, err := log.Read(context.Background(), topic, stream.CursorEarliest, time.Millisecond, 1000)
	require.NoError(t, err)
	return entries
}

func decodeProposals(t *testing.T, entries []stream.Entry) []*models.Proposal {
	t.Helper()
	out := make([]*models.Proposal, 0, len(entries))
	for _, e := range entries {
		var p models.Proposal
		require.NoError(t, json.Unmarshal(e.Data, &p))
		out = append(out, &p)
	}
	return out
}

func publishTick(t *testing.T, log *stream.MemoryLog, tick *models.Tick) {
	t.Helper()
	_, err := log.Append(context.Background(), models.TopicTicks, tick)
	require.NoError(t, err)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

// --- dispatcher ---

func TestDispatcherEmitsProposalsFromAllAgents(t *testing.T) {
	log := stream.NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := []agents.Agent{agents.NewMarketAgent(""), agents.NewRiskAgent("")}
	d := NewAgentDispatcher(log, pool, fastPoll(), nopMetrics{}, testLogger(t))
	go func() { _ = d.Run(ctx) }()

	publishTick(t, log, &models.Tick{StreamID: "s1", Timestamp: 1000, Symbol: "X", Price: -1.0, Size: 1, Side: "sell", Source: "test"})

	waitUntil(t, func() bool { return log.Len(models.TopicProposals) >= 2 })
	props := decodeProposals(t, readAll(t, log, models.TopicProposals))
	require.Len(t, props, 2)

	byType := map[models.ProposalType]*models.Proposal{}
	for _, p := range props {
		byType[p.Type] = p
	}
	require.Contains(t, byType, models.ProposalTrade)
	require.Contains(t, byType, models.ProposalHalt)
	assert.Equal(t, 5, byType[models.ProposalTrade].Priority)
	assert.Equal(t, 10, byType[models.ProposalHalt].Priority)
}

func TestDispatcherNoHaltOnPositivePrice(t *testing.T) {
	log := stream.NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := []agents.Agent{agents.NewMarketAgent(""), agents.NewRiskAgent("")}
	d := NewAgentDispatcher(log, pool, fastPoll(), nopMetrics{}, testLogger(t))
	go func() { _ = d.Run(ctx) }()

	publishTick(t, log, &models.Tick{StreamID: "s1", Timestamp: 1000, Symbol: "X", Price: 10, Size: 1, Side: "buy", Source: "test"})

	waitUntil(t, func() bool { return log.Len(models.TopicProposals) >= 1 })
	time.Sleep(50 * time.Millisecond) // allow a stray halt to surface
	props := decodeProposals(t, readAll(t, log, models.TopicProposals))
	require.Len(t, props, 1)
	assert.Equal(t, models.ProposalTrade, props[0].Type)
}

func TestDispatcherIsolatesFailingAndPanickingAgents(t *testing.T) {
	log := stream.NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := []agents.Agent{failingAgent{}, panickyAgent{}, agents.NewMarketAgent("")}
	d := NewAgentDispatcher(log, pool, fastPoll(), nopMetrics{}, testLogger(t))
	go func() { _ = d.Run(ctx) }()

	publishTick(t, log, &models.Tick{StreamID: "s1", Timestamp: 1000, Symbol: "X", Price: 1, Size: 1, Side: "buy", Source: "test"})

	// The healthy agent's proposal still lands.
	waitUntil(t, func() bool { return log.Len(models.TopicProposals) >= 1 })
	props := decodeProposals(t, readAll(t, log, models.TopicProposals))
	require.Len(t, props, 1)
	assert.Equal(t, "agent.market.1", props[0].AgentID)
}

func TestDispatcherSkipsMalformedTick(t *testing.T) {
	log := stream.NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := []agents.Agent{agents.NewMarketAgent("")}
	d := NewAgentDispatcher(log, pool, fastPoll(), nopMetrics{}, testLogger(t))
	go func() { _ = d.Run(ctx) }()

	_, err := log.Append(ctx, models.TopicTicks, []byte(`{not json`))
	require.NoError(t, err)
	publishTick(t, log, &models.Tick{StreamID: "s1", Timestamp: 1000, Symbol: "X", Price: 1, Size: 1, Side: "buy", Source: "test"})

	// The bad entry is skipped and the good one behind it still dispatches.
	waitUntil(t, func() bool { return log.Len(models.TopicProposals) >= 1 })
}

// --- evaluator ---

func runEvaluator(t *testing.T, log *stream.MemoryLog, guard *memGuard, rep *memReputation) (context.CancelFunc, *PolicyEvaluator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ev := NewPolicyEvaluator(log, policy.NewTypeRules(), guard, rep,
		ReputationDeltas{Approve: 1, Reject: -0.25}, fastPoll(), nopMetrics{}, testLogger(t))
	go func() { _ = ev.Run(ctx) }()
	return cancel, ev
}

func TestEvaluatorApprovesTrade(t *testing.T) {
	log := stream.NewMemoryLog()
	rep := newMemReputation()
	cancel, _ := runEvaluator(t, log, newMemGuard(), rep)
	defer cancel()

	prop := &models.Proposal{ProposalID: "p1", AgentID: "agent.market.1", Timestamp: 1000, Type: models.ProposalTrade, Priority: 5}
	_, err := log.Append(context.Background(), models.TopicProposals, prop)
	require.NoError(t, err)

	waitUntil(t, func() bool { return log.Len(models.TopicActions) == 1 && log.Len(models.TopicAudit) == 1 })

	var action models.Action
	require.NoError(t, json.Unmarshal(readAll(t, log, models.TopicActions)[0].Data, &action))
	assert.Equal(t, models.ActionApplied, action.Status)
	assert.Equal(t, "p1", action.ActionID)
	assert.Equal(t, "p1", action.ProposalID)
	assert.Equal(t, true, action.Result["executed"])

	var audit models.AuditEvent
	require.NoError(t, json.Unmarshal(readAll(t, log, models.TopicAudit)[0].Data, &audit))
	assert.Equal(t, models.EventProposalApproved, audit.Event)
	require.NotNil(t, audit.Proposal)
	assert.Equal(t, "p1", audit.Proposal.ProposalID)

	lb, err := rep.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, lb, 1)
	assert.Equal(t, 1.0, lb[0].Score)
}

func TestEvaluatorRejectsHalt(t *testing.T) {
	log := stream.NewMemoryLog()
	cancel, _ := runEvaluator(t, log, newMemGuard(), newMemReputation())
	defer cancel()

	prop := &models.Proposal{ProposalID: "p2", AgentID: "agent.risk.1", Timestamp: 1000, Type: models.ProposalHalt, Priority: 10}
	_, err := log.Append(context.Background(), models.TopicProposals, prop)
	require.NoError(t, err)

	waitUntil(t, func() bool { return log.Len(models.TopicActions) == 1 && log.Len(models.TopicAudit) == 1 })

	var action models.Action
	require.NoError(t, json.Unmarshal(readAll(t, log, models.TopicActions)[0].Data, &action))
	assert.Equal(t, models.ActionRejected, action.Status)
	assert.Equal(t, "unsupported type", action.Result["reason"])

	var audit models.AuditEvent
	require.NoError(t, json.Unmarshal(readAll(t, log, models.TopicAudit)[0].Data, &audit))
	assert.Equal(t, models.EventProposalRejected, audit.Event)
}

func TestEvaluatorDeduplicatesRedelivery(t *testing.T) {
	log := stream.NewMemoryLog()
	ev := NewPolicyEvaluator(log, policy.NewTypeRules(), newMemGuard(), nil,
		ReputationDeltas{}, fastPoll(), nopMetrics{}, testLogger(t))

	prop := &models.Proposal{ProposalID: "p3", AgentID: "a", Timestamp: 1000, Type: models.ProposalTrade}
	raw, err := json.Marshal(prop)
	require.NoError(t, err)

	entry := stream.Entry{ID: "1-0", Data: raw}
	require.NoError(t, ev.handle(context.Background(), entry))
	require.NoError(t, ev.handle(context.Background(), entry)) // redelivery

	assert.Equal(t, 1, log.Len(models.TopicActions))
	assert.Equal(t, 1, log.Len(models.TopicAudit))
}

// --- applier ---

func TestApplierAppliesAndAudits(t *testing.T) {
	log := stream.NewMemoryLog()
	effects := &memEffects{}
	ap := NewExecutionApplier(log, effects, newMemGuard(), fastPoll(), nopMetrics{}, testLogger(t))

	action := &models.Action{ActionID: "a1", ProposalID: "a1", Timestamp: 1000, Status: models.ActionApplied}
	raw, err := json.Marshal(action)
	require.NoError(t, err)

	require.NoError(t, ap.handle(context.Background(), stream.Entry{ID: "1-0", Data: raw}))

	require.Equal(t, 1, effects.count())
	require.Equal(t, 1, log.Len(models.TopicAudit))

	var audit models.AuditEvent
	require.NoError(t, json.Unmarshal(readAll(t, log, models.TopicAudit)[0].Data, &audit))
	assert.Equal(t, models.EventActionExecuted, audit.Event)
	require.NotNil(t, audit.Action)
	assert.Equal(t, models.ActionCompleted, audit.Action.Status)
}

func TestApplierIdempotentOnRedelivery(t *testing.T) {
	log := stream.NewMemoryLog()
	effects := &memEffects{}
	ap := NewExecutionApplier(log, effects, newMemGuard(), fastPoll(), nopMetrics{}, testLogger(t))

	action := &models.Action{ActionID: "a2", ProposalID: "a2", Timestamp: 1000, Status: models.ActionApplied}
	raw, err := json.Marshal(action)
	require.NoError(t, err)

	entry := stream.Entry{ID: "1-0", Data: raw}
	require.NoError(t, ap.handle(context.Background(), entry))
	require.NoError(t, ap.handle(context.Background(), entry)) // same entry id again

	assert.Equal(t, 1, effects.count(), "effect applied twice")
	assert.Equal(t, 1, log.Len(models.TopicAudit), "duplicate completion audit")
}

// --- end to end ---

func TestPipelineScenarioNegativeTick(t *testing.T) {
	log := stream.NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := []agents.Agent{agents.NewMarketAgent(""), agents.NewRiskAgent("")}
	d := NewAgentDispatcher(log, pool, fastPoll(), nopMetrics{}, testLogger(t))
	ev := NewPolicyEvaluator(log, policy.NewTypeRules(), newMemGuard(), newMemReputation(),
		ReputationDeltas{Approve: 1, Reject: -0.25}, fastPoll(), nopMetrics{}, testLogger(t))
	effects := &memEffects{}
	ap := NewExecutionApplier(log, effects, newMemGuard(), fastPoll(), nopMetrics{}, testLogger(t))

	go func() { _ = d.Run(ctx) }()
	go func() { _ = ev.Run(ctx) }()
	go func() { _ = ap.Run(ctx) }()

	publishTick(t, log, &models.Tick{StreamID: "s1", Timestamp: 1000, Symbol: "X", Price: -1.0, Size: 1, Side: "sell", Source: "test"})

	// Two proposals, two actions, and the evaluator + applier audits.
	waitUntil(t, func() bool { return log.Len(models.TopicActions) == 2 })
	waitUntil(t, func() bool { return effects.count() == 2 })

	statuses := map[models.ActionStatus]int{}
	for _, e := range readAll(t, log, models.TopicActions) {
		var a models.Action
		require.NoError(t, json.Unmarshal(e.Data, &a))
		statuses[a.Status]++
	}
	assert.Equal(t, 1, statuses[models.ActionApplied], "trade proposal should be applied")
	assert.Equal(t, 1, statuses[models.ActionRejected], "halt proposal should be rejected")

	// Audit: approved + rejected + two completions.
	waitUntil(t, func() bool { return log.Len(models.TopicAudit) == 4 })
}
