package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"video2audio/internal/config"
	"video2audio/internal/encoder"
	"video2audio/internal/fileutil"
	"video2audio/internal/logging"
	"video2audio/internal/media/ffprobe"
	"video2audio/internal/settings"
)

type convertOptions struct {
	codec      string
	bitrate    int
	sampleRate int
	channels   int
	loudnorm   bool
	auto       bool
	verbose    bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert one local video file to audio without the daemon",
		Long: `Runs ffmpeg directly on a local file. The output may be a file or a
directory; when omitted, the audio is written next to the input. Without
--codec the codec is taken from the output extension, then from the
configured defaults. --auto probes the source with ffprobe and fills any
setting not given on the command line from the source audio stream.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			flags := cmd.Flags()
			overrides := encoder.Overrides{
				Bitrate:    flags.Changed("bitrate"),
				SampleRate: flags.Changed("samplerate"),
				Channels:   flags.Changed("channels"),
			}
			if !flags.Changed("codec") {
				opts.codec = ""
			}
			if !flags.Changed("loudnorm") {
				opts.loudnorm = cfg.Transcoder.Loudnorm
			}
			return runConvert(cmd, cfg, args[0], output, opts, overrides)
		},
	}
	cmd.Flags().StringVar(&opts.codec, "codec", "", "Output codec (mp3, aac, flac, wav)")
	cmd.Flags().IntVar(&opts.bitrate, "bitrate", 0, "Bitrate in kbps (ignored by flac and wav)")
	cmd.Flags().IntVar(&opts.sampleRate, "samplerate", 0, "Sample rate in Hz")
	cmd.Flags().IntVar(&opts.channels, "channels", 0, "Number of output channels")
	cmd.Flags().BoolVar(&opts.loudnorm, "loudnorm", false, "Apply EBU R128 loudness normalization")
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Match unset settings to the source audio via ffprobe")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log the ffmpeg invocation")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, input, output string, opts convertOptions, overrides encoder.Overrides) error {
	if !fileutil.IsRegular(input) {
		return fmt.Errorf("input %s is not a regular file", input)
	}

	s := cfg.InitialSettings()
	switch {
	case opts.codec != "":
		codec, err := settings.ParseCodec(opts.codec)
		if err != nil {
			return err
		}
		s.Codec = codec
	case output != "":
		if codec, ok := codecForExtension(filepath.Ext(output)); ok {
			s.Codec = codec
		}
	}
	if overrides.Bitrate {
		s.Bitrate = opts.bitrate
	}
	if overrides.SampleRate {
		s.SampleRate = opts.sampleRate
	}
	if overrides.Channels {
		s.Channels = opts.channels
	}

	if opts.auto {
		detected, err := encoder.Detect(cmd.Context(), ffprobe.Inspect, cfg.Transcoder.FFprobeBinary, input)
		if err != nil {
			return err
		}
		s = encoder.ApplyDetected(s, detected, overrides)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	target, err := resolveOutput(input, output, s)
	if err != nil {
		return err
	}

	logger := logging.NewNop()
	if opts.verbose {
		logger, err = logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
		if err != nil {
			return err
		}
	}
	ffmpeg := encoder.NewFFmpeg(
		encoder.WithBinary(cfg.Transcoder.FFmpegBinary),
		encoder.WithLogger(logger),
	)

	runCtx := cmd.Context()
	if timeout := cfg.ConversionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	started := time.Now()
	if err := ffmpeg.Encode(runCtx, encoder.Request{Input: input, Output: target, Settings: s, Loudnorm: opts.loudnorm}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s) in %s\n", target, s.String(), time.Since(started).Round(time.Millisecond))
	return nil
}

func resolveOutput(input, output string, s settings.Settings) (string, error) {
	name := s.OutputName(filepath.Base(input))
	if strings.TrimSpace(output) == "" {
		return filepath.Join(filepath.Dir(input), name), nil
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name), nil
	}
	if filepath.Ext(output) == "" {
		output += s.Codec.Extension()
	}
	if abs, err := filepath.Abs(output); err == nil {
		if inAbs, err := filepath.Abs(input); err == nil && abs == inAbs {
			return "", fmt.Errorf("output %s would overwrite the input", output)
		}
	}
	return output, nil
}

func codecForExtension(ext string) (settings.Codec, bool) {
	ext = strings.ToLower(ext)
	if ext == ".aac" {
		return settings.CodecAAC, true
	}
	for _, codec := range settings.Codecs {
		if codec.Extension() == ext {
			return codec, true
		}
	}
	return "", false
}
