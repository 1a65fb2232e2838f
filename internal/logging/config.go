package logging

import (
	"log/slog"
	"path/filepath"

	"conveyor/internal/config"
)

// NewFromConfig creates a logger using application config. Output goes to
// stdout and, when a log directory is configured, to conveyor.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	paths := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		paths = append(paths, filepath.Join(cfg.Paths.LogDir, "conveyor.log"))
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  paths,
	})
}
