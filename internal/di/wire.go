//go:build wireinject
// +build wireinject

package di

import (
	"MomentumScreener/pkg/config"
	"MomentumScreener/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Market data
		ProvideProviders,
		ProvideRedisCache,
		ProvideCacheStore,
		ProvidePipeline,

		// Run sinks
		ProvideClickHouseClient,
		ProvideRunStore,
		ProvideKafkaProducer,
		ProvideRunSinks,

		// Use cases and triggers
		ProvideScreeningService,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideScreenRequestHandler,

		// Application server
		ProvideHTTPServer,
		ProvideClosers,
		ProvideApp,
	)
	return &server.App{}, nil
}
