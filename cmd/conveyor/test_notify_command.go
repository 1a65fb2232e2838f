package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/logging"
	"conveyor/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Slack.BotToken == "" || cfg.Slack.ChannelID == "" {
				fmt.Fprintln(out, "Notifications are not configured; nothing sent")
				return nil
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			if err := notifications.NewService(cfg, logger).Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
