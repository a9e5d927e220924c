package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"video2audio/internal/ipc"
	"video2audio/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logstream.Options
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				_, err := logstream.Stream(cmd.Context(), client, opts, func(line string) {
					fmt.Fprintln(out, line)
				})
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().StringVar(&opts.Filters.Search, "grep", "", "Only show lines containing this text")
	cmd.Flags().StringVar(&opts.Filters.BatchID, "batch", "", "Only show lines for this batch ID")
	return cmd
}
