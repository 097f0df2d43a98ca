//go:build wireinject
// +build wireinject

package di

import (
	"PhiTrade/pkg/config"
	"PhiTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Logging and metrics
        ProvideLogger,
        ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,

		// Repositories
		ProvideTickStore,
		ProvideStorage,
		ProvidePriceStore,
		ProvideDecisionStore,
		ProvidePublisher,
		ProvideMarketStream,

		// Decision stack
		ProvideEncoder,
		ProvideEstimator,
		ProvideActionScorer,
		ProvideTrajectorySource,
		ProvideEngine,
		ProvideAuditQueue,
		ProvidePipeline,

        // Use cases and handlers
        ProvideTickProcessor,
        ProvideTickCollector,
        ProvideKafkaTicksHandler,
        ProvideDecisionsHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
