package di

import (
	"context"
	"fmt"
	"time"

	"GovPulse/internal/domain/models"
	"GovPulse/internal/domain/repository"
	"GovPulse/internal/gateway"
	"GovPulse/internal/handler/api"
	"GovPulse/internal/handler/ws"
	internalrepo "GovPulse/internal/repository"
	"GovPulse/internal/service/agents"
	icache "GovPulse/internal/service/cache"
	"GovPulse/internal/service/policy"
	"GovPulse/internal/usecase"
	pkgch "GovPulse/pkg/clickhouse"
	"GovPulse/pkg/config"
	xhttp "GovPulse/pkg/http"
	pkgkafka "GovPulse/pkg/kafka"
	applogger "GovPulse/pkg/logger"
	"GovPulse/pkg/metrics"
	"GovPulse/pkg/server"
	"GovPulse/pkg/stream"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideStreamClient creates the Redis Streams substrate client.
func ProvideStreamClient(cfg *config.Config) (*stream.Client, error) {
	client, err := stream.NewClient(
		stream.WithAddr(cfg.Stream.Addr),
		stream.WithAuth(cfg.Stream.Password, cfg.Stream.DB),
		stream.WithPool(cfg.Stream.PoolSize, 2),
	)
	if err != nil {
		return nil, fmt.Errorf("stream client: %w", err)
	}
	return client, nil
}

// ProvideStream exposes the client under the domain interface.
func ProvideStream(client *stream.Client) repository.Stream {
	return client
}

// ProvidePollConfig maps the config start mode onto a substrate cursor.
func ProvidePollConfig(cfg *config.Config) stream.PollConfig {
	start := stream.CursorTail
	if cfg.Stream.Start == "earliest" {
		start = stream.CursorEarliest
	}
	return stream.PollConfig{
		Start:        start,
		BlockTimeout: cfg.Stream.BlockTimeout,
		BatchCount:   cfg.Stream.BatchCount,
		IdleSleep:    cfg.Stream.IdleSleep,
		ErrorBackoff: cfg.Stream.ErrorBackoff,
	}
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideGuard creates the Redis-backed idempotency guard.
func ProvideGuard(client *stream.Client) repository.IdempotencyGuard {
	return internalrepo.NewRedisGuard(client.Redis())
}

// ProvideReputation creates the Redis-backed reputation store.
func ProvideReputation(client *stream.Client) repository.Reputation {
	return internalrepo.NewRedisReputation(client.Redis())
}

// ProvideLedger creates the ClickHouse ledger, or nil when disabled.
func ProvideLedger(cfg *config.Config, l *applogger.Logger) (repository.Ledger, error) {
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ledger := internalrepo.NewCHLedger(client)
	ledger.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ledger.Init(ctx); err != nil {
		_ = ledger.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return ledger, nil
}

// ProvideEffectLog opens the execution effect log.
func ProvideEffectLog(cfg *config.Config) (repository.EffectLog, error) {
	return internalrepo.NewFileEffectLog(cfg.Execution.EffectLog)
}

// ProvideAgents builds the agent pool.
func ProvideAgents(cfg *config.Config) []agents.Agent {
	return []agents.Agent{
		agents.NewMarketAgent(cfg.Agents.MarketID),
		agents.NewRiskAgent(cfg.Agents.RiskID),
	}
}

// ProvideRules creates the policy rule set.
func ProvideRules() policy.Rules {
	return policy.NewTypeRules()
}

// ProvideDispatcher creates the agent dispatcher.
func ProvideDispatcher(
	st repository.Stream,
	pool []agents.Agent,
	poll stream.PollConfig,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AgentDispatcher {
	return usecase.NewAgentDispatcher(st, pool, poll, m, l)
}

// ProvideEvaluator creates the policy evaluator.
func ProvideEvaluator(
	cfg *config.Config,
	st repository.Stream,
	rules policy.Rules,
	guard repository.IdempotencyGuard,
	rep repository.Reputation,
	poll stream.PollConfig,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PolicyEvaluator {
	deltas := usecase.ReputationDeltas{
		Approve: cfg.Reputation.ApproveDelta,
		Reject:  cfg.Reputation.RejectDelta,
	}
	return usecase.NewPolicyEvaluator(st, rules, guard, rep, deltas, poll, m, l)
}

// ProvideApplier creates the execution applier.
func ProvideApplier(
	st repository.Stream,
	effects repository.EffectLog,
	guard repository.IdempotencyGuard,
	poll stream.PollConfig,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ExecutionApplier {
	return usecase.NewExecutionApplier(st, effects, guard, poll, m, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when neither export
// nor any producer-side feature is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Export.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideExporter creates the audit exporter, or nil when export is disabled.
func ProvideExporter(cfg *config.Config, producer *pkgkafka.Producer) repository.Exporter {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaExporter(producer, cfg.Kafka.Export.Topic)
}

// ProvideArchiver creates the ledger archiver, or nil when no ledger is
// configured.
func ProvideArchiver(
	cfg *config.Config,
	st repository.Stream,
	ledger repository.Ledger,
	exporter repository.Exporter,
	poll stream.PollConfig,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Archiver {
	if ledger == nil {
		return nil
	}
	// The archiver must not miss records published before it started.
	archPoll := poll
	archPoll.Start = stream.CursorEarliest
	return usecase.NewArchiver(st, ledger, exporter, archPoll, cfg.Ledger.BatchSize, cfg.Ledger.BatchTimeout, m, l)
}

// ProvideHub creates the fan-out gateway hub.
func ProvideHub(
	cfg *config.Config,
	st repository.Stream,
	poll stream.PollConfig,
	m repository.Metrics,
	l *applogger.Logger,
) *gateway.Hub {
	topics := cfg.Gateway.Topics
	if len(topics) == 0 {
		topics = models.DefaultTopics()
	}
	// Live subscribers only ever see new entries.
	hubPoll := poll
	hubPoll.Start = stream.CursorTail
	return gateway.NewHub(st, topics, hubPoll, cfg.Gateway.MaxConnections, m, l)
}

// ProvideKafkaConsumer creates the tick-bridge consumer, or nil when the
// bridge is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Bridge.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideTickBridge creates the Kafka-to-stream tick bridge handler.
func ProvideTickBridge(cfg *config.Config, st repository.Stream, m repository.Metrics) *usecase.KafkaTickBridge {
	if !cfg.Kafka.Bridge.Enabled {
		return nil
	}
	return usecase.NewKafkaTickBridge(cfg.Kafka.Bridge.Topic, st, m)
}

// ProvideReadModel creates the HTTP read model. The leaderboard cache is
// in-process for development and Redis-backed in production so replicas
// share one cache.
func ProvideReadModel(
	cfg *config.Config,
	client *stream.Client,
	ledger repository.Ledger,
	rep repository.Reputation,
	l *applogger.Logger,
) *usecase.ReadModel {
	var c icache.BytesCache = icache.NewTTLCache()
	if cfg.Environment == "production" {
		c = icache.NewRedisCacheFromClient(client.Redis())
	}
	return usecase.NewReadModel(ProvideStream(client), ledger, rep, c, l)
}

// ProvideHTTPHandler bundles the API and websocket handlers into a single
// route registrar.
func ProvideHTTPHandler(
	cfg *config.Config,
	rm *usecase.ReadModel,
	hub *gateway.Hub,
	l *applogger.Logger,
) xhttp.Handler {
	topics := cfg.Gateway.Topics
	if len(topics) == 0 {
		topics = models.DefaultTopics()
	}
	return &compositeHandler{
		api: api.NewPulseEchoHandler(l, rm, topics, server.Version),
		ws:  ws.NewStreamHandler(l, hub, cfg.Gateway.WriteTimeout),
	}
}

type compositeHandler struct {
	api *api.PulseEchoHandler
	ws  *ws.StreamHandler
}

func (h *compositeHandler) RegisterRoutes(e *echo.Echo) {
	h.api.RegisterRoutes(e)
	h.ws.RegisterRoutes(e)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	client *stream.Client,
	dispatcher *usecase.AgentDispatcher,
	evaluator *usecase.PolicyEvaluator,
	applier *usecase.ExecutionApplier,
	archiver *usecase.Archiver,
	hub *gateway.Hub,
	consumer *pkgkafka.Consumer,
	bridge *usecase.KafkaTickBridge,
	effects repository.EffectLog,
	ledger repository.Ledger,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, server.Components{
		Stream:     client,
		Dispatcher: dispatcher,
		Evaluator:  evaluator,
		Applier:    applier,
		Archiver:   archiver,
		Hub:        hub,
		Consumer:   consumer,
		Bridge:     bridge,
		Effects:    effects,
		Ledger:     ledger,
		Producer:   producer,
		Handler:    handler,
	})
}
