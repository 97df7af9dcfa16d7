package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/client"
)

func newDispatchesCommand(ctx *commandContext) *cobra.Command {
	dispatchesCmd := &cobra.Command{
		Use:   "dispatches",
		Short: "Inspect continuation dispatches",
	}

	dispatchesCmd.AddCommand(&cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered dispatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				dead, err := c.DeadDispatches(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(dead) == 0 {
					fmt.Fprintln(out, "No dead dispatches")
					return nil
				}
				rows := make([][]string, 0, len(dead))
				for _, d := range dead {
					rows = append(rows, []string{
						fmt.Sprintf("%d", d.ID),
						d.Kind,
						fmt.Sprintf("%d", d.Attempts),
						truncate(d.LastError, 64),
						d.UpdatedAt,
					})
				}
				table := renderTable(
					[]string{"ID", "Kind", "Attempts", "Last error", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	})

	return dispatchesCmd
}
