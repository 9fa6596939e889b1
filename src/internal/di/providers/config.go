package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"bookshelf/src/internal/config"
	"bookshelf/src/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:    cfg.Log.Format,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddSource: logger.ParseLevel(cfg.Log.Level) == slog.LevelDebug,
	})

	log.Debug("Logger ready",
		"log_level", cfg.Log.Level,
		"log_format", cfg.Log.Format,
	)

	return log, nil
}
