package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"video2audio/internal/api"
	"video2audio/internal/config"
	"video2audio/internal/daemon"
	"video2audio/internal/deps"
	"video2audio/internal/ipc"
	"video2audio/internal/logging"
	"video2audio/internal/notifications"
)

const logPointerName = "video2audio.log"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SocketPath overrides the IPC socket location from the config.
	SocketPath string
}

// Run starts the video2audio daemon and blocks until SIGINT, SIGTERM, or an
// IPC shutdown request.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("video2audio-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("session_id", uuid.NewString()))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logPointerName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "video2audio-*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(logger, cfg)

	d, releaseBatches, err := newDaemon(cmdCtx, cfg, logger, logPath,
		api.WithNotifier(notifications.NewService(cfg)))
	if err != nil {
		return err
	}
	defer releaseBatches()
	defer d.Close()

	// The lock must be held before the socket is replaced, otherwise a second
	// instance would steal the running daemon's socket.
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the running instance with video2audio stop"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("video2audio daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// newDaemon builds the service and daemon. Batches run on a context detached
// from signals so Stop can drain them; the returned release func cancels
// whatever is still running and must be called after the daemon is closed.
func newDaemon(parent context.Context, cfg *config.Config, logger *slog.Logger, logPath string, svcOpts ...api.Option) (*daemon.Daemon, context.CancelFunc, error) {
	batchCtx, release := context.WithCancel(context.WithoutCancel(parent))
	svc, err := api.New(batchCtx, cfg, logger, svcOpts...)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("create service: %w", err)
	}
	d, err := daemon.New(cfg, svc, logger, daemon.WithLogPath(logPath))
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, release, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logPointerName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg.Transcoder.FFmpegBinary, cfg.Transcoder.FFprobeBinary))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("workers", cfg.Transcoder.Workers),
		logging.Bool("watch_incoming", cfg.Transcoder.WatchIncoming),
	}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", deps.ResolvePath(status.Command)),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required dependencies missing", "dependency_missing",
			logging.Strings("missing", missing),
			logging.String(logging.FieldImpact, "conversions will fail"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set transcoder.ffmpeg_binary"),
		)
	}
}
