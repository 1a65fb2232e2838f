// Package testsupport builds fixtures shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"conveyor/internal/config"
	"conveyor/internal/queue"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and with every directory already created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ScriptDir = filepath.Join(base, "scripts")
	cfg.Paths.CaptionsOutputDir = filepath.Join(base, "output", "captions")
	cfg.Paths.InfoOutputDir = filepath.Join(base, "output", "info")
	cfg.Queues.CaptionsDir = filepath.Join(base, "queues", "captions")
	cfg.Queues.InfoDir = filepath.Join(base, "queues", "info")
	cfg.Queues.RestingDir = filepath.Join(base, "queues", "resting")
	cfg.Kaggle.User = "tester"
	cfg.Discovery.JitterMaxSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithChannels sets the discovery channel list on the test config.
func WithChannels(channels ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Discovery.Channels = channels
	}
}

// WithBatchSize overrides the kaggle batch size on the test config.
func WithBatchSize(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Kaggle.BatchSize = n
	}
}

// OpenQueue opens a queue store rooted at dir, failing the test on error.
func OpenQueue(t testing.TB, dir string) *queue.Store {
	t.Helper()
	store, err := queue.Open(dir)
	if err != nil {
		t.Fatalf("open queue %s: %v", dir, err)
	}
	return store
}
