package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookshelf/src/cmd/shelf/searchcmd"
	"bookshelf/src/internal/book"
	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/config"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/di"
)

// catalog is what the commands need from the search service.
type catalog interface {
	Search(ctx context.Context, q cql.Query) (booksearch.Outcome, []booksearch.Attempt)
	FetchByID(ctx context.Context, id string) (book.Record, error)
	FetchByCategory(ctx context.Context, code string) ([]book.Record, error)
	NewArrivals(ctx context.Context, page int) (booksearch.Page, error)
}

// indirections for testability
var openCatalog = func(cfg *config.Config) (catalog, func(), error) {
	injector := di.NewContainer(cfg)
	svc, err := di.Service(injector)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() { _ = injector.Shutdown() }, nil
}

// app carries the root flags and the configuration they produce.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "shelf",
		Short:         "National Diet Library catalog search (SRU + OpenSearch)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", getEnv("SHELF_CONFIG", ""), "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "text or json")

	root.AddCommand(searchcmd.New(a.searcher))
	root.AddCommand(newBookCmd(a))
	root.AddCommand(newCategoryCmd(a))
	root.AddCommand(newArrivalsCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

// load resolves defaults < file < environment < flags and validates.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// open builds the catalog for a command. Callers defer the returned
// release func.
func (a *app) open(cmd *cobra.Command) (catalog, func(), error) {
	if a.cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	c, release, err := openCatalog(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	if release == nil {
		release = func() {}
	}
	return c, release, nil
}

func (a *app) searcher(cmd *cobra.Command) (searchcmd.Searcher, func(), error) {
	return a.open(cmd)
}

// getEnv returns the environment value for key or def if unset.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
