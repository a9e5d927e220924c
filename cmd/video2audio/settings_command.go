package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"video2audio/internal/ipc"
	"video2audio/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the encoding settings used for new batches",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current encoding settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Settings()
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), resp.Settings)
				return nil
			})
		},
	})

	var codec string
	var bitrate, sampleRate, channels int
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Change encoding settings; unset flags keep their current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("codec") && !flags.Changed("bitrate") && !flags.Changed("samplerate") && !flags.Changed("channels") {
				return fmt.Errorf("nothing to apply; set at least one of --codec, --bitrate, --samplerate, --channels")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				current, err := client.Settings()
				if err != nil {
					return err
				}
				next := current.Settings
				if flags.Changed("codec") {
					next.Codec = settings.Codec(codec)
				}
				if flags.Changed("bitrate") {
					next.Bitrate = bitrate
				}
				if flags.Changed("samplerate") {
					next.SampleRate = sampleRate
				}
				if flags.Changed("channels") {
					next.Channels = channels
				}
				resp, err := client.ApplySettings(next)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings applied")
				printSettings(cmd.OutOrStdout(), resp.Settings)
				return nil
			})
		},
	}
	applyCmd.Flags().StringVar(&codec, "codec", "", "Output codec (mp3, aac, flac, wav)")
	applyCmd.Flags().IntVar(&bitrate, "bitrate", 0, "Bitrate in kbps (ignored by flac and wav)")
	applyCmd.Flags().IntVar(&sampleRate, "samplerate", 0, "Sample rate in Hz")
	applyCmd.Flags().IntVar(&channels, "channels", 0, "Number of output channels")
	settingsCmd.AddCommand(applyCmd)

	return settingsCmd
}

func printSettings(w io.Writer, s settings.Settings) {
	bitrate := strconv.Itoa(s.Bitrate) + " kbps"
	if s.Codec.Lossless() {
		bitrate += " (unused)"
	}
	rows := [][]string{
		{"Codec", string(s.Codec)},
		{"Bitrate", bitrate},
		{"Sample rate", strconv.Itoa(s.SampleRate) + " Hz"},
		{"Channels", strconv.Itoa(s.Channels)},
	}
	fmt.Fprint(w, renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
}
