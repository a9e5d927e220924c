package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"video2audio/internal/ipc"
	"video2audio/internal/textutil"
	"video2audio/internal/transcode"
)

// Selector picks incoming files interactively.
type Selector interface {
	Select(message string, options []string) ([]string, error)
	Interactive() bool
}

// surveySelector prompts on the controlling terminal.
type surveySelector struct{}

func (surveySelector) Select(message string, options []string) ([]string, error) {
	var picked []string
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return nil, err
	}
	return picked, nil
}

func (surveySelector) Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var defaultSelector Selector = surveySelector{}

func newProcessCommand(ctx *commandContext, selector Selector) *cobra.Command {
	var detach bool
	var all bool
	cmd := &cobra.Command{
		Use:   "process [names...]",
		Short: "Convert incoming files to audio with the current settings",
		Long: `Converts the named incoming files. Without names, an interactive terminal
offers a multi-select of the incoming directory; otherwise every incoming file
is converted. Converted sources are removed from incoming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				names := args
				if len(names) == 0 && !all && selector != nil && selector.Interactive() {
					listing, err := client.ListIncoming()
					if err != nil {
						return err
					}
					if len(listing.Files) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No incoming files")
						return nil
					}
					picked, err := selector.Select("Files to convert:", listing.Files)
					if errors.Is(err, terminal.InterruptErr) {
						return nil
					}
					if err != nil {
						return fmt.Errorf("select files: %w", err)
					}
					if len(picked) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected")
						return nil
					}
					names = picked
				}

				resp, err := client.Process(names, detach)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if detach {
					fmt.Fprintf(out, "Batch %s queued (%d files)\n", resp.Batch.ID, len(resp.Batch.Files))
					return nil
				}
				printBatch(out, resp.Batch)
				if failed := resp.Batch.Counts()[transcode.StatusFailed]; failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(resp.Batch.Files))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "Return once the batch is queued instead of waiting")
	cmd.Flags().BoolVar(&all, "all", false, "Convert every incoming file without prompting")
	return cmd
}

func newBatchesCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "batches [id]",
		Short: "List recent batches or show one batch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					resp, err := client.Batch(args[0], wait)
					if err != nil {
						return err
					}
					printBatch(out, resp.Batch)
					return nil
				}
				resp, err := client.Batches()
				if err != nil {
					return err
				}
				if len(resp.Batches) == 0 {
					fmt.Fprintln(out, "No batches")
					return nil
				}
				rows := make([][]string, 0, len(resp.Batches))
				for _, b := range resp.Batches {
					counts := b.Counts()
					rows = append(rows, []string{
						b.ID,
						b.Created.Local().Format(time.DateTime),
						b.Settings.String(),
						textutil.Ternary(b.Done, "done", "running"),
						strconv.Itoa(counts[transcode.StatusSucceeded]),
						strconv.Itoa(counts[transcode.StatusFailed]),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Created", "Settings", "State", "Succeeded", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the batch to finish")
	return cmd
}

func printBatch(w io.Writer, b ipc.Batch) {
	fmt.Fprintf(w, "Batch %s (%s, %s)\n", b.ID, b.Settings.String(), textutil.Ternary(b.Done, "done", "running"))
	if len(b.Files) == 0 {
		fmt.Fprintln(w, "No files requested")
		return
	}
	rows := make([][]string, 0, len(b.Files))
	for _, f := range b.Files {
		detail := f.Output
		if f.Status == transcode.StatusFailed {
			detail = f.Error
		}
		duration := ""
		if f.Duration > 0 {
			duration = f.Duration.Round(10 * time.Millisecond).String()
		}
		rows = append(rows, []string{f.Name, string(f.Status), detail, duration})
	}
	fmt.Fprint(w, renderTable([]string{"File", "Status", "Output / Error", "Time"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
}
