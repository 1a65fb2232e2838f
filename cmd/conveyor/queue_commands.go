package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"conveyor/internal/queue"
	"conveyor/internal/workflow"
)

var queueNames = []string{"captions", "info", "resting"}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and repair the pipeline queues",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func (c *commandContext) openQueues() (workflow.Queues, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return workflow.Queues{}, err
	}
	return workflow.OpenQueues(cfg)
}

func (c *commandContext) queueByName(name string) (*queue.Store, error) {
	queues, err := c.openQueues()
	if err != nil {
		return nil, err
	}
	switch name {
	case "captions":
		return queues.Captions, nil
	case "info":
		return queues.Info, nil
	case "resting":
		return queues.Resting, nil
	}
	return nil, fmt.Errorf("unknown queue %q (expected captions, info, or resting)", name)
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the size of every queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			queues, err := ctx.openQueues()
			if err != nil {
				return err
			}
			tw := newTable("QUEUE", "SIZE", "ROOT")
			rightAlign(tw, 2)
			for i, store := range queues.All() {
				size, err := store.Size()
				if err != nil {
					return fmt.Errorf("size of %s queue: %w", queueNames[i], err)
				}
				tw.AppendRow(table.Row{queueNames[i], strconv.Itoa(size), store.Root()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return nil
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "list <queue>",
		Short:     "List queued records oldest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: queueNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueByName(args[0])
			if err != nil {
				return err
			}
			items, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			tw := newTable("ID", "ENQUEUED", "TITLE", "STATE")
			for _, item := range items {
				if item.Err != nil {
					tw.AppendRow(table.Row{item.ID, "", "", "unreadable: " + item.Err.Error()})
					continue
				}
				title, _ := item.Payload["title"].(string)
				tw.AppendRow(table.Row{
					item.ID,
					item.EnqueuedAt.UTC().Format(time.RFC3339),
					title,
					"ok",
				})
			}
			fmt.Fprintln(out, tw.Render())
			return nil
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "show <queue> <id>",
		Short:     "Print one record as stored on disk",
		Args:      cobra.ExactArgs(2),
		ValidArgs: queueNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueByName(args[0])
			if err != nil {
				return err
			}
			items, err := store.List()
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.ID != args[1] {
					continue
				}
				if item.Err != nil {
					return fmt.Errorf("record %s is unreadable: %w", item.ID, item.Err)
				}
				data, err := queue.EncodeRecord(item.Record)
				if err != nil {
					return err
				}
				cmd.OutOrStdout().Write(data)
				return nil
			}
			return fmt.Errorf("record %s not found in %s queue", args[1], args[0])
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "remove <queue> <id>",
		Short:     "Remove one record, including damaged ones",
		Args:      cobra.ExactArgs(2),
		ValidArgs: queueNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueByName(args[0])
			if err != nil {
				return err
			}
			_, removed, err := store.Remove(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintf(out, "Record %s not found in %s queue\n", args[1], args[0])
				return nil
			}
			fmt.Fprintf(out, "Removed %s from %s queue\n", args[1], args[0])
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:       "clear <queue>",
		Short:     "Delete every record in a queue",
		Args:      cobra.ExactArgs(1),
		ValidArgs: queueNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear the %s queue without --yes", args[0])
			}
			store, err := ctx.queueByName(args[0])
			if err != nil {
				return err
			}
			removed, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records from %s queue\n", removed, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the destructive clear")
	return cmd
}
