package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"video2audio/internal/encoder"
	"video2audio/internal/fileutil"
	"video2audio/internal/logging"
	"video2audio/internal/registry"
	"video2audio/internal/settings"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 2

// Observer receives every state change of every file in a batch. It is called
// from worker goroutines and must be safe for concurrent use.
type Observer func(Outcome)

// Worker converts batches of incoming files into the outgoing area.
type Worker struct {
	registry *registry.Registry
	encoder  encoder.Encoder
	workers  int
	timeout  time.Duration
	loudnorm bool
	logger   *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithWorkers sets the number of concurrent conversions per batch.
func WithWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithTimeout bounds each conversion. Expiry counts as a conversion failure.
// Zero disables the watchdog.
func WithTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithLoudnorm enables loudness normalization on every conversion.
func WithLoudnorm(enabled bool) Option {
	return func(w *Worker) { w.loudnorm = enabled }
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logging.NewComponentLogger(logger, "transcode")
	}
}

// NewWorker builds a worker over reg that converts with enc.
func NewWorker(reg *registry.Registry, enc encoder.Encoder, opts ...Option) *Worker {
	w := &Worker{
		registry: reg,
		encoder:  enc,
		workers:  DefaultWorkers,
		logger:   logging.NewComponentLogger(nil, "transcode"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Workers returns the configured pool size.
func (w *Worker) Workers() int { return w.workers }

// Process converts each distinct name with the settings value s, which stays
// fixed for the whole call. Failures are isolated to their file and never
// abort siblings.
func (w *Worker) Process(ctx context.Context, s settings.Settings, names []string) Result {
	return w.ProcessObserved(ctx, s, names, nil)
}

// ProcessObserved is Process with a callback for each running and terminal
// transition.
func (w *Worker) ProcessObserved(ctx context.Context, s settings.Settings, names []string, observe Observer) Result {
	names = distinct(names)
	result := Result{Outcomes: make([]Outcome, len(names))}
	if len(names) == 0 {
		return result
	}
	if observe == nil {
		observe = func(Outcome) {}
	}
	logger := logging.WithContext(ctx, w.logger)

	if err := s.Validate(); err != nil {
		for i, name := range names {
			result.Outcomes[i] = failed(name, err)
			observe(result.Outcomes[i])
		}
		return result
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("files", len(names)),
		logging.String("settings", s.String()),
		logging.Int("workers", w.workers),
	)
	started := time.Now()

	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup
	for i, name := range names {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			result.Outcomes[i] = failed(name, fmt.Errorf("batch cancelled: %w", ctx.Err()))
			observe(result.Outcomes[i])
			continue
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := w.convert(ctx, s, name, observe)
			result.Outcomes[i] = outcome
			observe(outcome)
		}(i, name)
	}
	wg.Wait()

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("succeeded", len(result.Succeeded())),
		logging.Int("failed", len(result.Failed())),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result
}

func (w *Worker) convert(ctx context.Context, s settings.Settings, name string, observe Observer) Outcome {
	logger := logging.WithContext(ctx, w.logger).With(logging.String(logging.FieldFile, name))

	unlockIn := w.registry.Lock(registry.Incoming, name)
	defer unlockIn()

	inputPath, err := w.registry.Validate(name, registry.Incoming)
	if err != nil {
		logger.Warn("skipping invalid file",
			logging.Error(err),
			logging.String(logging.FieldEventType, "file_rejected"),
			logging.String(logging.FieldErrorHint, "re-list incoming and select an existing file"),
			logging.String(logging.FieldImpact, "file not converted"),
		)
		return failed(name, err)
	}

	outputName := s.OutputName(name)
	unlockOut := w.registry.Lock(registry.Outgoing, outputName)
	defer unlockOut()

	observe(Outcome{Name: name, Output: outputName, Status: StatusRunning})
	started := time.Now()

	finalPath := w.registry.Path(registry.Outgoing, outputName)
	tmpPath := fileutil.TempPath(finalPath)

	encodeCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	err = w.encoder.Encode(encodeCtx, encoder.Request{
		Input:    inputPath,
		Output:   tmpPath,
		Settings: s,
		Loudnorm: w.loudnorm,
	})
	if err == nil && !fileutil.IsRegular(tmpPath) {
		err = &encoder.ConversionError{Input: inputPath, ExitCode: 0, Err: errors.New("encoder reported success but produced no output")}
	}
	if err == nil {
		if renameErr := os.Rename(tmpPath, finalPath); renameErr != nil {
			err = &encoder.ConversionError{Input: inputPath, ExitCode: -1, Err: fmt.Errorf("publish output: %w", renameErr)}
		}
	}
	if err != nil {
		_ = fileutil.RemoveIfExists(tmpPath)
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the source file with ffprobe or retry the file"),
		)
		outcome := failed(name, err)
		outcome.Output = outputName
		outcome.Duration = time.Since(started)
		return outcome
	}

	if err := os.Remove(inputPath); err != nil {
		logging.WarnWithContext(logger, "incoming cleanup failed; converted file kept", "incoming_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check incoming_dir permissions"),
			logging.String(logging.FieldImpact, "source file remains in incoming"),
		)
	}

	elapsed := time.Since(started)
	logger.Info("converted",
		logging.String(logging.FieldEventType, "file_converted"),
		logging.String("output", outputName),
		logging.Duration("elapsed", elapsed),
	)
	return Outcome{Name: name, Output: outputName, Status: StatusSucceeded, Duration: elapsed}
}
