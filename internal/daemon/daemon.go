package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"video2audio/internal/api"
	"video2audio/internal/config"
	"video2audio/internal/logging"
	"video2audio/internal/preflight"
	"video2audio/internal/watch"
)

// drainTimeout bounds how long Stop waits for running batches.
const drainTimeout = 30 * time.Second

// Daemon coordinates the conversion service, the HTTP API, and the optional
// drop-folder watcher, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *api.Service
	logPath string

	lockPath string
	lock     *flock.Flock

	api      *apiServer
	watcher  *watch.Watcher
	apiAddr  atomic.Value
	watching atomic.Bool

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogPath records the active log file so status output can point at it.
func WithLogPath(path string) Option {
	return func(d *Daemon) {
		d.logPath = path
	}
}

// New constructs a daemon around an initialized service.
func New(cfg *config.Config, svc *api.Service, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || svc == nil || logger == nil {
		return nil, errors.New("daemon requires config, service, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		service:  svc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, then starts the API server and watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another video2audio daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.startComponents(d.ctx); err != nil {
		d.stopComponents()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	for _, result := range preflight.Failed(preflight.RunAll(d.ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "conversions may fail until this is fixed"),
		)
	}

	d.running.Store(true)
	d.logger.Info("video2audio daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	if err := srv.start(ctx); err != nil {
		return err
	}
	d.api = srv
	if srv != nil && srv.listener != nil {
		d.apiAddr.Store(srv.listener.Addr().String())
	}

	if d.cfg.Transcoder.WatchIncoming {
		w, err := watch.New(d.cfg.Paths.IncomingDir, d.cfg.WatchSettle(), d.submitDropped, d.logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		d.watcher = w
		d.watching.Store(true)
	}
	return nil
}

func (d *Daemon) submitDropped(name string) {
	batch := d.service.StartProcess([]string{name})
	d.logger.Info("dropped file queued",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldBatchID, batch.ID),
	)
}

func (d *Daemon) stopComponents() {
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Debug("watcher close failed", logging.Error(err))
		}
		d.watcher = nil
		d.watching.Store(false)
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
		d.apiAddr.Store("")
	}
}

// Stop stops accepting work, waits briefly for running batches, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.stopComponents()
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	if err := d.service.Drain(drainCtx); err != nil {
		logging.WarnWithContext(d.logger, "batches still running at shutdown", "drain_timeout",
			logging.Int("active", d.service.ActiveBatches()),
			logging.String(logging.FieldImpact, "interrupted files stay in incoming"),
		)
	}
	cancel()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("video2audio daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Service returns the conversion service the daemon fronts.
func (d *Daemon) Service() *api.Service {
	return d.service
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound HTTP address, or "" when the API is disabled.
func (d *Daemon) APIAddress() string {
	addr, _ := d.apiAddr.Load().(string)
	return addr
}

// Status returns the current daemon status.
func (d *Daemon) Status(_ context.Context) api.DaemonStatus {
	incoming, _ := d.service.ListIncoming()
	outgoing, _ := d.service.ListOutgoing()

	depStatuses := preflight.CheckSystemDeps(d.cfg)
	dependencies := make([]api.DependencyStatus, len(depStatuses))
	for i, dep := range depStatuses {
		dependencies[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}

	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		SocketPath:    d.cfg.SocketPath(),
		LogPath:       d.logPath,
		APIAddress:    d.APIAddress(),
		IncomingDir:   d.cfg.Paths.IncomingDir,
		OutgoingDir:   d.cfg.Paths.OutgoingDir,
		IncomingCount: len(incoming),
		OutgoingCount: len(outgoing),
		ActiveBatches: d.service.ActiveBatches(),
		Watching:      d.watching.Load(),
		Settings:      d.service.Settings(),
		Dependencies:  dependencies,
	}
}
