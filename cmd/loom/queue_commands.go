package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/client"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the production queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	for _, action := range []string{"pause", "resume", "retry", "skip", "reset"} {
		queueCmd.AddCommand(newQueueActionCommand(ctx, action))
	}
	queueCmd.AddCommand(newQueueProcessCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				items, err := c.ListQueue(cmd.Context(), listStatuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Silo", "Level", "Status", "Priority", "Retries"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			truncate(item.Title, 48),
			item.SiloName,
			item.Level,
			displayStatus(item.Status),
			fmt.Sprintf("%d", item.Priority),
			fmt.Sprintf("%d", item.RetryCount),
		})
	}
	return rows
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show a queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				item, err := c.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range buildItemLines(item, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func buildItemLines(item *api.QueueItem, colorize bool) []string {
	lines := renderSectionHeader(fmt.Sprintf("Item %d", item.ID), colorize)

	kind := statusInfo
	switch item.Status {
	case "published":
		kind = statusOK
	case "failed":
		kind = statusError
	case "paused":
		kind = statusWarn
	}

	lines = append(lines,
		renderStatusLine("Title", statusInfo, item.Title, colorize),
		renderStatusLine("Slug", statusInfo, item.Slug, colorize),
		renderStatusLine("Status", kind, displayStatus(item.Status), colorize))
	if item.Stage != "" {
		lines = append(lines, renderStatusLine("Stage", statusInfo, item.Stage, colorize))
	}
	if item.SiloName != "" {
		lines = append(lines, renderStatusLine("Silo", statusInfo, item.SiloName, colorize))
	}
	lines = append(lines,
		renderStatusLine("Level", statusInfo, item.Level, colorize),
		renderStatusLine("Priority", statusInfo, fmt.Sprintf("%d", item.Priority), colorize),
		renderStatusLine("Retries", statusInfo, fmt.Sprintf("%d", item.RetryCount), colorize))
	if item.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, item.ErrorMessage, colorize))
	}
	if item.PipelineRunID != "" {
		lines = append(lines, renderStatusLine("Pipeline run", statusInfo, item.PipelineRunID, colorize))
	}
	if item.ArtifactID != "" {
		lines = append(lines, renderStatusLine("Artifact", statusInfo, item.ArtifactID, colorize))
	}
	if item.CompletedAt != "" {
		lines = append(lines, renderStatusLine("Completed", statusInfo, item.CompletedAt, colorize))
	}
	return lines
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var req api.AddItemRequest

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Enqueue an article for production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Title = args[0]
			return ctx.withClient(func(c *client.Client) error {
				item, err := c.AddItem(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d: %s\n", item.ID, item.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Slug, "slug", "", "URL slug (derived from the title when empty)")
	cmd.Flags().StringVar(&req.SiloID, "silo-id", "", "Silo identifier")
	cmd.Flags().StringVar(&req.SiloName, "silo", "", "Silo name")
	cmd.Flags().StringVar(&req.ClusterName, "cluster", "", "Keyword cluster name")
	cmd.Flags().StringVar(&req.Level, "level", "supporting", "Article level (pillar or supporting)")
	cmd.Flags().StringSliceVar(&req.TargetKeywords, "keyword", nil, "Target keyword (repeatable)")
	cmd.Flags().StringVar(&req.ContentSummary, "summary", "", "Content summary for the brief")
	cmd.Flags().IntVar(&req.Priority, "priority", 0, "Scheduling priority (higher runs first)")
	return cmd
}

func newQueueActionCommand(ctx *commandContext, action string) *cobra.Command {
	short := map[string]string{
		"pause":  "Pause a queued item",
		"resume": "Resume a paused item",
		"retry":  "Requeue a failed item with a clean error state",
		"skip":   "Set a queued item aside with a skip note",
		"reset":  "Return an item to queued with a clean slate",
	}[action]
	applied := map[string]string{
		"pause":  "paused",
		"resume": "resumed",
		"retry":  "requeued for retry",
		"skip":   "skipped",
		"reset":  "reset",
	}[action]

	return &cobra.Command{
		Use:   fmt.Sprintf("%s <itemID>", action),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				resp, err := c.Apply(cmd.Context(), id, action)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Applied {
					fmt.Fprintf(out, "Item %d not eligible for %s\n", id, action)
					return nil
				}
				status := ""
				if resp.Item != nil {
					status = displayStatus(resp.Item.Status)
				}
				fmt.Fprintf(out, "Item %d %s (now %s)\n", id, applied, status)
				return nil
			})
		},
	}
}

func newQueueProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <itemID>",
		Short: "Run one production cycle for a specific item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				c.WithTimeout(ctx.processTimeout())
				cycle, err := c.ProcessItem(cmd.Context(), id)
				if err != nil {
					return err
				}
				printCycle(cmd, cycle)
				return nil
			})
		},
	}
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}
