package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/stage"
	"conveyor/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// stageEnv bundles everything a stage run needs.
type stageEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	queues   workflow.Queues
	notifier notifications.Service
}

// runStage executes one pipeline stage under the global run lock. Stages are
// fired from independent cron entries, so the lock is what keeps two stages
// from draining queues concurrently.
func (c *commandContext) runStage(cmd *cobra.Command, name string, run func(ctx context.Context, env *stageEnv) (stage.Result, error)) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "conveyor.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another conveyor stage is running; lock held at %s", lock.Path())
	}
	defer lock.Unlock()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queues, err := workflow.OpenQueues(cfg)
	if err != nil {
		return err
	}
	env := &stageEnv{
		cfg:      cfg,
		logger:   logger,
		queues:   queues,
		notifier: notifications.NewService(cfg, logger),
	}

	res, err := run(runCtx, env)
	printResult(cmd, name, res)
	if err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

func printResult(cmd *cobra.Command, name string, res stage.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: processed=%d skipped=%d failed=%d requeued=%d\n",
		name, res.Processed, res.Skipped, res.Failed, res.Requeued)
}
