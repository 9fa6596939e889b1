package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"bookshelf/src/internal/api"
	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/config"
	"bookshelf/src/internal/logger"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the API server. It is not started here.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	svc := do.MustInvoke[*booksearch.Service](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := api.NewServer(svc, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		ClientRate:     cfg.Server.ClientRate,
		ClientBurst:    cfg.Server.ClientBurst,
	}, log.With("component", "api"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return &HTTPServerHandle{Server: srv}, nil
}
