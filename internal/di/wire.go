//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideAWSConfig,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideBlobStore,
		ProvideCatalog,
		ProvideCache,
		ProvideEventPublisher,
		ProvideMarketData,
		ProvideSageMakerSubmitter,

		// Training
		ProvideRunsHub,
		ProvideTrainer,
		ProvideQueue,
		ProvideLocalSubmitter,
		ProvideDispatcher,

		// Use cases
		ProvideIngestor,
		ProvidePredictor,
		ProvideEvaluator,
		ProvideKafkaConsumer,
		ProvideScheduler,

		// Transport
		ProvidePipelineHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
