package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/client"
)

func newEngineCommand(ctx *commandContext) *cobra.Command {
	engineCmd := &cobra.Command{
		Use:   "engine",
		Short: "Control the auto-run production engine",
	}

	engineCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start continuous processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				resp, err := c.EngineStart(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	engineCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop after the current article finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				resp, err := c.EngineStop(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	})

	engineCmd.AddCommand(&cobra.Command{
		Use:   "process",
		Short: "Run one production cycle and wait for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				c.WithTimeout(ctx.processTimeout())
				cycle, err := c.ProcessNext(cmd.Context())
				if err != nil {
					return err
				}
				printCycle(cmd, cycle)
				return nil
			})
		},
	})

	return engineCmd
}

func printCycle(cmd *cobra.Command, cycle *api.CycleResponse) {
	out := cmd.OutOrStdout()
	switch cycle.Outcome {
	case "idle":
		fmt.Fprintln(out, "Queue is empty; nothing to process")
	case "not_claimed":
		fmt.Fprintln(out, "Item was not claimable (already taken or not queued)")
	case "published":
		fmt.Fprintf(out, "Published item %d", cycle.Item.ID)
		if cycle.ArtifactURL != "" {
			fmt.Fprintf(out, " at %s", cycle.ArtifactURL)
		}
		fmt.Fprintln(out)
		if cycle.Quality > 0 {
			fmt.Fprintf(out, "Quality score: %.0f\n", cycle.Quality)
		}
		if cycle.DurationSeconds > 0 {
			fmt.Fprintf(out, "Duration: %.1fs\n", cycle.DurationSeconds)
		}
	case "failed":
		fmt.Fprintf(out, "Item %d failed: %s\n", cycle.Item.ID, cycle.Error)
	default:
		fmt.Fprintf(out, "Cycle finished with outcome %q\n", cycle.Outcome)
	}
}
