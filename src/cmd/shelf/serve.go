package main

import (
	"errors"
	"net/http"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"bookshelf/src/internal/di"
	"bookshelf/src/internal/di/providers"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog operations as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			injector := di.NewContainer(a.cfg)
			log := di.Logger(injector)
			srv, err := do.Invoke[*providers.HTTPServerHandle](injector)
			if err != nil {
				return err
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("Starting server", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					log.Error("Server failed", "error", err)
					_ = injector.Shutdown()
					return err
				}
			case <-cmd.Context().Done():
			}

			log.Info("Shutting down server gracefully...")
			if err := injector.Shutdown(); err != nil {
				log.Error("Shutdown error", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
