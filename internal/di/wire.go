//go:build wireinject
// +build wireinject

package di

import (
	"PoolWatch/pkg/config"
	"PoolWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvidePool,
		ProvideBreaker,
		ProvideCache,
		ProvideKafkaProducer,

		// Services
		ProvideParser,
		ProvideSolanaClient,
		ProvideStream,

		// Use cases
		ProvideFetcher,
		ProvideDetectors,
		ProvideOrchestrator,
		ProvideEmitter,
		ProvideWatcher,

		// HTTP
		ProvideStatusHandler,

		ProvideApp,
	)
	return nil, nil
}
