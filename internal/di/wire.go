//go:build wireinject
// +build wireinject

package di

import (
	"BreadthPull/pkg/config"
	"BreadthPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvidePacer,
		ProvideNotices,
		ProvideFetcher,
		ProvideMarketDataSource,

		// Use cases
		ProvidePipeline,
		ProvideStreamHub,
		ProvideSinks,
		ProvideBreadthService,

		// Presentation
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
