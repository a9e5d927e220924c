package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"video2audio/internal/ipc"
)

func newFileCommands(ctx *commandContext) []*cobra.Command {
	incomingCmd := &cobra.Command{
		Use:   "incoming",
		Short: "List uploaded files waiting for conversion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListIncoming()
				if err != nil {
					return err
				}
				printFileList(cmd.OutOrStdout(), resp.Files, "No incoming files")
				return nil
			})
		},
	}

	outgoingCmd := &cobra.Command{
		Use:   "outgoing",
		Short: "List converted audio files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListOutgoing()
				if err != nil {
					return err
				}
				printFileList(cmd.OutOrStdout(), resp.Files, "No outgoing files")
				return nil
			})
		},
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Copy local video files into the incoming directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				paths = append(paths, abs)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Upload(paths)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, name := range resp.Saved {
					fmt.Fprintf(out, "Uploaded %s\n", name)
				}
				for _, path := range resp.Skipped {
					fmt.Fprintf(out, "Skipped %s (no usable file name)\n", path)
				}
				return nil
			})
		},
	}

	return []*cobra.Command{incomingCmd, outgoingCmd, uploadCmd}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete files from the incoming or outgoing directory",
	}

	clearCmd.AddCommand(&cobra.Command{
		Use:   "outgoing",
		Short: "Delete every converted audio file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearOutgoing()
				if err != nil {
					return err
				}
				printDeleted(cmd.OutOrStdout(), resp.Deleted)
				return nil
			})
		},
	})

	clearCmd.AddCommand(&cobra.Command{
		Use:   "incoming [names...]",
		Short: "Delete the named incoming files, or all of them when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				names := args
				if len(names) == 0 {
					listing, err := client.ListIncoming()
					if err != nil {
						return err
					}
					names = listing.Files
				}
				resp, err := client.ClearIncoming(names)
				if err != nil {
					return err
				}
				printDeleted(cmd.OutOrStdout(), resp.Deleted)
				return nil
			})
		},
	})

	return clearCmd
}

func printFileList(w io.Writer, files []string, empty string) {
	if len(files) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, name := range files {
		fmt.Fprintln(w, name)
	}
}

func printDeleted(w io.Writer, deleted []string) {
	if len(deleted) == 0 {
		fmt.Fprintln(w, "Nothing to delete")
		return
	}
	for _, name := range deleted {
		fmt.Fprintf(w, "Deleted %s\n", name)
	}
}
