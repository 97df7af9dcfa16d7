package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/client"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range buildStatusLines(status, stats, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func buildStatusLines(status *api.DaemonStatus, stats *api.StatsResponse, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)

	daemonKind := statusError
	if status.Running {
		daemonKind = statusOK
	}
	lines = append(lines,
		renderStatusLine("Daemon", daemonKind, fmt.Sprintf("pid %d", status.PID), colorize))

	engineKind := statusWarn
	engineMessage := "stopped"
	if status.EngineRunning {
		engineKind = statusOK
		engineMessage = "running"
	}
	lines = append(lines,
		renderStatusLine("Engine", engineKind, engineMessage, colorize),
		renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize),
		renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

	if status.DeadDispatches > 0 {
		lines = append(lines, renderStatusLine("Dead dispatches", statusError,
			fmt.Sprintf("%d (inspect with `loom dispatches dead`)", status.DeadDispatches), colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	lines = append(lines, renderTable(
		[]string{"Status", "Count"},
		buildTotalsRows(stats.Totals),
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(stats.ActiveItems) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("In progress", colorize)...)
		lines = append(lines, renderTable(
			[]string{"ID", "Title", "Status", "Stage"},
			buildActiveRows(stats.ActiveItems),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
	}

	if len(stats.NextUp) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Next up", colorize)...)
		lines = append(lines, renderTable(
			[]string{"ID", "Title", "Silo", "Priority"},
			buildNextUpRows(stats.NextUp),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		))
	}

	return lines
}

// buildTotalsRows orders the rollup the way operators scan it: work still to
// do first, terminal states last.
func buildTotalsRows(totals map[string]int) [][]string {
	order := []string{"queued", "paused", "processing", "enriching", "published", "failed"}
	rows := make([][]string, 0, len(order)+1)
	for _, key := range order {
		rows = append(rows, []string{displayStatus(key), fmt.Sprintf("%d", totals[key])})
	}
	rows = append(rows, []string{"Total", fmt.Sprintf("%d", totals["total"])})
	return rows
}

func buildActiveRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		stage := item.Stage
		if stage == "" {
			stage = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			truncate(item.Title, 48),
			displayStatus(item.Status),
			stage,
		})
	}
	return rows
}

func buildNextUpRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			truncate(item.Title, 48),
			item.SiloName,
			fmt.Sprintf("%d", item.Priority),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
