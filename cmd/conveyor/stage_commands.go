package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"conveyor/internal/services/discovery"
	"conveyor/internal/services/kaggle"
	"conveyor/internal/services/llm"
	"conveyor/internal/stage"
	"conveyor/internal/workflow"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Discover new channel videos and enqueue them for captions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd, "fetch", func(runCtx context.Context, env *stageEnv) (stage.Result, error) {
				lister := discovery.NewYtDlpLister(discovery.Config{
					Binary:             env.cfg.Discovery.YtDlpBinary,
					CookiesFromBrowser: env.cfg.Discovery.CookiesFromBrowser,
				}, env.logger)
				d := workflow.NewDiscoverer(env.cfg, lister, env.queues, env.notifier, env.logger)
				return d.Run(runCtx)
			})
		},
	}
}

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "captions",
		Short: "Submit one caption download batch as a remote kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd, "captions", func(runCtx context.Context, env *stageEnv) (stage.Result, error) {
				s := workflow.NewCaptionsSubmitter(env.cfg, env.queues, newLauncher(env), env.notifier, env.logger)
				return s.Run(runCtx)
			})
		},
	}
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Submit one metadata download batch as a remote kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd, "info", func(runCtx context.Context, env *stageEnv) (stage.Result, error) {
				s := workflow.NewInfoSubmitter(env.cfg, env.queues, newLauncher(env), env.notifier, env.logger)
				return s.Run(runCtx)
			})
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the oldest pending transcript with the configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd, "analyze", func(runCtx context.Context, env *stageEnv) (stage.Result, error) {
				client := llm.NewClient(llm.Config{
					APIKey:         env.cfg.LLM.APIKey,
					BaseURL:        env.cfg.LLM.BaseURL,
					Model:          env.cfg.LLM.Model,
					TimeoutSeconds: env.cfg.LLM.TimeoutSeconds,
					MaxRetries:     env.cfg.LLM.MaxRetries,
				}, env.logger)
				a := workflow.NewAnalyzer(env.cfg, env.queues, client, env.notifier, env.logger)
				return a.Run(runCtx)
			})
		},
	}
}

func newLauncher(env *stageEnv) kaggle.Launcher {
	return kaggle.NewCLILauncher(kaggle.CLIConfig{
		User:         env.cfg.Kaggle.User,
		Binary:       env.cfg.Kaggle.Binary,
		PollInterval: time.Duration(env.cfg.Kaggle.PollIntervalSeconds) * time.Second,
	}, env.logger)
}
