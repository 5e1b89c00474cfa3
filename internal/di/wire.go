//go:build wireinject
// +build wireinject

package di

import (
	"TradePilot/pkg/config"
	"TradePilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideBinanceClient,

		// Repositories
		ProvideExchange,
		ProvideMarketData,
		ProvideCandleStream,
		ProvideHistory,
		ProvideSettingsStore,
		ProvideStateStore,
		ProvidePublisher,
		ProvideLocks,

		// Use cases
		ProvideIndicatorEngine,
		ProvideSignalGenerator,
		ProvideRiskManager,
		ProvideGate,
		ProvideJobQueue,
		ProvideOrderExecutor,
		ProvidePositionMonitor,
		ProvideTradingService,
		ProvideCandlesUseCase,
		ProvideSignalArchiver,
		ProvideCandleCollector,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
