package api

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"video2audio/internal/cleanup"
	"video2audio/internal/config"
	"video2audio/internal/encoder"
	"video2audio/internal/logging"
	"video2audio/internal/notifications"
	"video2audio/internal/registry"
	"video2audio/internal/settings"
	"video2audio/internal/transcode"
)

// Service exposes the conversion operations shared by the HTTP and IPC front
// ends. It owns no state beyond the settings store and the batch tracker; the
// two directories remain the system of record.
type Service struct {
	registry *registry.Registry
	settings *settings.Store
	worker   *transcode.Worker
	tracker  *transcode.Tracker
	logger   *slog.Logger
}

// Option customizes Service construction.
type Option func(*options)

type options struct {
	encoder  encoder.Encoder
	retain   int
	notifier notifications.Service
}

// WithEncoder replaces the ffmpeg encoder, primarily for tests.
func WithEncoder(enc encoder.Encoder) Option {
	return func(o *options) {
		if enc != nil {
			o.encoder = enc
		}
	}
}

// WithNotifier publishes a notification when each background batch finishes.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithRetain sets how many finished batches stay queryable.
func WithRetain(n int) Option {
	return func(o *options) {
		o.retain = n
	}
}

// New wires the registry, settings store, worker, and tracker from cfg.
// Background batches stop when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{retain: transcode.DefaultRetain}
	for _, opt := range opts {
		opt(&o)
	}
	if o.encoder == nil {
		o.encoder = encoder.NewFFmpeg(
			encoder.WithBinary(cfg.Transcoder.FFmpegBinary),
			encoder.WithLogger(logger),
		)
	}

	reg, err := registry.New(cfg.Paths.IncomingDir, cfg.Paths.OutgoingDir)
	if err != nil {
		return nil, err
	}
	store, err := settings.NewStore(cfg.InitialSettings())
	if err != nil {
		return nil, fmt.Errorf("api: initial settings: %w", err)
	}
	worker := transcode.NewWorker(reg, o.encoder,
		transcode.WithWorkers(cfg.Transcoder.Workers),
		transcode.WithTimeout(cfg.ConversionTimeout()),
		transcode.WithLoudnorm(cfg.Transcoder.Loudnorm),
		transcode.WithLogger(logger),
	)
	svc := &Service{
		registry: reg,
		settings: store,
		worker:   worker,
		tracker:  transcode.NewTracker(ctx, worker, o.retain, logger),
		logger:   logging.NewComponentLogger(logger, "service"),
	}
	if notifications.Enabled(o.notifier) {
		notifyCtx := context.WithoutCancel(ctx)
		svc.tracker.OnFinish(func(b transcode.Batch) {
			svc.notifyBatch(notifyCtx, o.notifier, b)
		})
	}
	return svc, nil
}

func (s *Service) notifyBatch(ctx context.Context, notifier notifications.Service, b transcode.Batch) {
	counts := b.Counts()
	err := notifier.Publish(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"batch":     b.ID,
		"succeeded": counts[transcode.StatusSucceeded],
		"failed":    counts[transcode.StatusFailed],
		"duration":  b.Finished.Sub(b.Created),
		"settings":  b.Settings,
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "batch notification failed", "notification_failed",
			logging.String(logging.FieldBatchID, b.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// Registry returns the file registry backing the service.
func (s *Service) Registry() *registry.Registry { return s.registry }

// ListIncoming returns the uploaded files awaiting conversion.
func (s *Service) ListIncoming() ([]string, error) {
	return s.registry.ListIncoming()
}

// ListOutgoing returns the converted files available for download.
func (s *Service) ListOutgoing() ([]string, error) {
	return s.registry.ListOutgoing()
}

// Settings returns the current encoding settings.
func (s *Service) Settings() settings.Settings {
	return s.settings.Current()
}

// ApplySettings replaces the encoding settings. Invalid settings return a
// *settings.ValidationError and leave the current value in place.
func (s *Service) ApplySettings(next settings.Settings) error {
	if err := s.settings.Apply(next); err != nil {
		s.logger.Info("settings rejected",
			logging.String(logging.FieldEventType, "settings_rejected"),
			logging.Error(err),
		)
		return err
	}
	s.logger.Info("settings applied",
		logging.String(logging.FieldEventType, "settings_applied"),
		logging.String("settings", next.String()),
	)
	return nil
}

// Process converts names synchronously with a snapshot of the current settings.
func (s *Service) Process(ctx context.Context, names []string) transcode.Result {
	return s.worker.Process(ctx, s.settings.Current(), names)
}

// StartProcess converts names in the background and returns the new batch.
func (s *Service) StartProcess(names []string) transcode.Batch {
	return s.tracker.Start(s.settings.Current(), names)
}

// Batch returns the current view of a background batch.
func (s *Service) Batch(id string) (transcode.Batch, error) {
	return s.tracker.Get(id)
}

// WaitBatch blocks until the batch finishes or ctx is done.
func (s *Service) WaitBatch(ctx context.Context, id string) (transcode.Batch, error) {
	return s.tracker.Wait(ctx, id)
}

// Batches lists remembered batches, newest first.
func (s *Service) Batches() []transcode.Batch {
	return s.tracker.List()
}

// ActiveBatches reports how many batches are still running.
func (s *Service) ActiveBatches() int {
	return s.tracker.Active()
}

// Drain waits for running batches to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.tracker.Drain(ctx)
}

// ClearOutgoing deletes every converted file and returns the deleted names.
func (s *Service) ClearOutgoing(ctx context.Context) []string {
	return cleanup.ClearOutgoing(ctx, s.registry, s.logger).Deleted
}

// ClearIncoming deletes the selected uploads and returns the deleted names.
func (s *Service) ClearIncoming(ctx context.Context, names []string) []string {
	return cleanup.ClearIncoming(ctx, s.registry, names, s.logger).Deleted
}

// SaveIncoming stores an upload. name must already be a sanitized base name.
func (s *Service) SaveIncoming(name string, src io.Reader) error {
	written, err := s.registry.SaveIncoming(name, src)
	if err != nil {
		return err
	}
	s.logger.Info("upload stored",
		logging.String(logging.FieldEventType, "upload_stored"),
		logging.String(logging.FieldFile, name),
		logging.Int64("bytes", written),
	)
	return nil
}

// OutgoingPath resolves a converted file for download. Missing files return
// an error matching fs.ErrNotExist.
func (s *Service) OutgoingPath(name string) (string, error) {
	if err := registry.CheckName(name); err != nil {
		return "", err
	}
	path, err := s.registry.Validate(name, registry.Outgoing)
	if err != nil {
		return "", fmt.Errorf("outgoing file %q: %w", name, fs.ErrNotExist)
	}
	return path, nil
}
