// Package di provides dependency injection configuration for shelf.
package di

import (
	"github.com/samber/do/v2"

	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/config"
	"bookshelf/src/internal/di/providers"
	"bookshelf/src/internal/logger"
)

// NewContainer creates the DI container around an already loaded and
// validated configuration.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog access
	do.Provide(injector, providers.ProvideHTTPClient)
	do.Provide(injector, providers.ProvideRouter)
	do.Provide(injector, providers.ProvideSRUClient)
	do.Provide(injector, providers.ProvideOpenSearchClient)
	do.Provide(injector, providers.ProvideSearchService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Service resolves the catalog service, building its dependencies.
func Service(injector do.Injector) (*booksearch.Service, error) {
	return do.Invoke[*booksearch.Service](injector)
}

// Logger resolves the shared logger.
func Logger(injector do.Injector) *logger.Logger {
	return do.MustInvoke[*logger.Logger](injector)
}
