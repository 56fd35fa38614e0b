//go:build wireinject
// +build wireinject

package di

import (
	"GovPulse/pkg/config"
	"GovPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Substrate
		ProvideStreamClient,
		ProvideStream,
		ProvidePollConfig,

		// Repositories
		ProvideGuard,
		ProvideReputation,
		ProvideLedger,
		ProvideEffectLog,

		// Kafka
		ProvideKafkaProducer,
		ProvideExporter,
		ProvideKafkaConsumer,
		ProvideTickBridge,

		// Domain services
		ProvideAgents,
		ProvideRules,

		// Use cases
		ProvideDispatcher,
		ProvideEvaluator,
		ProvideApplier,
		ProvideArchiver,
		ProvideReadModel,

		// Surfaces
		ProvideHub,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
