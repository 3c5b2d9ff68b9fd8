//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"RapWatch/pkg/config"
	"RapWatch/pkg/server"
)

// InitializeApp wires every component from cfg.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// storage and caches
		ProvideClickHouseClient,
		ProvideSalesStore,
		ProvideRedisCache,
		ProvideCache,

		// upstream and messaging
		ProvideItemSource,
		ProvideKafkaProducer,
		ProvideReportPublisher,
		ProvideDigest,

		// use cases
		ProvideMarketAnalytics,
		ProvideQueue,
		ProvideSalesPipeline,
		ProvideKafkaConsumer,
		ProvideRateLimiter,
		ProvideScheduler,

		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
