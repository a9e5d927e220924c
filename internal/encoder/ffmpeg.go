package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"video2audio/internal/fileutil"
	"video2audio/internal/logging"
	"video2audio/internal/settings"
)

// LoudnormFilter is the EBU R128 normalization applied when Request.Loudnorm is set.
const LoudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// Request describes one conversion.
type Request struct {
	Input    string
	Output   string
	Settings settings.Settings
	Loudnorm bool
}

// Encoder converts one input file to audio. Implementations block until the
// conversion finishes and must leave no file at Output on failure.
type Encoder interface {
	Encode(ctx context.Context, req Request) error
}

// FFmpeg implements Encoder by running the ffmpeg binary.
type FFmpeg struct {
	binary string
	runner CommandRunner
	logger *slog.Logger
}

// Option is a functional option for configuring FFmpeg.
type Option func(*FFmpeg)

// WithBinary sets a custom ffmpeg executable path.
func WithBinary(path string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(path) != "" {
			f.binary = strings.TrimSpace(path)
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner CommandRunner) Option {
	return func(f *FFmpeg) {
		if runner != nil {
			f.runner = runner
		}
	}
}

// WithLogger attaches a logger for per-invocation debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		f.logger = logging.NewComponentLogger(logger, "encoder")
	}
}

// NewFFmpeg creates an ffmpeg-backed encoder.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{
		binary: "ffmpeg",
		runner: ExecCommandRunner{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Binary returns the ffmpeg executable in use.
func (f *FFmpeg) Binary() string { return f.binary }

// Encode runs ffmpeg for req. Any failure, including context expiry, is
// returned as a *ConversionError and the partial output is removed.
func (f *FFmpeg) Encode(ctx context.Context, req Request) error {
	if err := req.Settings.Validate(); err != nil {
		return err
	}
	args := BuildArgs(req)
	logging.WithContext(ctx, f.logger).Debug("ffmpeg invocation",
		logging.String(logging.FieldEventType, "ffmpeg_start"),
		logging.String("command", f.binary+" "+strings.Join(args, " ")),
	)

	started := time.Now()
	stderr, err := f.runner.Run(ctx, f.binary, args...)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		_ = fileutil.RemoveIfExists(req.Output)
		return newConversionError(req.Input, stderr, err)
	}

	logging.WithContext(ctx, f.logger).Debug("ffmpeg finished",
		logging.String(logging.FieldEventType, "ffmpeg_done"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// BuildArgs produces the fixed ffmpeg argument template for req. The bitrate
// flag is emitted only for lossy codecs, so lossless requests that differ only
// in bitrate yield identical arguments.
func BuildArgs(req Request) []string {
	s := req.Settings
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", req.Input,
		"-vn",
	}
	if req.Loudnorm {
		args = append(args, "-af", LoudnormFilter)
	}
	args = append(args, "-c:a", s.Codec.EncoderName())
	if bitrate := s.EffectiveBitrate(); bitrate > 0 {
		args = append(args, "-b:a", strconv.Itoa(bitrate)+"k")
	}
	args = append(args,
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", strconv.Itoa(s.Channels),
		"-f", s.Codec.Muxer(),
		req.Output,
	)
	return args
}

var _ Encoder = (*FFmpeg)(nil)
