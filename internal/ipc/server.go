package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"sync"
	"time"

	"video2audio/internal/daemon"
	"video2audio/internal/logging"
	"video2audio/internal/logs"
	"video2audio/internal/settings"
	"video2audio/internal/textutil"
)

// ServiceName is the RPC receiver name clients address.
const ServiceName = "Video2Audio"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests the daemon to exit; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun video2audio stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
	once     sync.Once
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this daemon")
	}
	s.log().Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	s.once.Do(s.shutdown)
	resp.Accepted = true
	return nil
}

func (s *service) ListIncoming(_ ListRequest, resp *ListResponse) error {
	files, err := s.daemon.Service().ListIncoming()
	if err != nil {
		return err
	}
	resp.Files = files
	return nil
}

func (s *service) ListOutgoing(_ ListRequest, resp *ListResponse) error {
	files, err := s.daemon.Service().ListOutgoing()
	if err != nil {
		return err
	}
	resp.Files = files
	return nil
}

func (s *service) Upload(req UploadRequest, resp *UploadResponse) error {
	resp.Saved = []string{}
	for _, path := range req.Paths {
		name := textutil.SanitizeUploadName(filepath.Base(path))
		if name == "" {
			resp.Skipped = append(resp.Skipped, path)
			continue
		}
		if err := s.saveLocal(path, name); err != nil {
			return err
		}
		resp.Saved = append(resp.Saved, name)
	}
	s.log().Info("files uploaded via IPC",
		logging.String(logging.FieldEventType, "ipc_upload"),
		logging.Int("saved", len(resp.Saved)),
		logging.Int("skipped", len(resp.Skipped)))
	return nil
}

func (s *service) saveLocal(path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return s.daemon.Service().SaveIncoming(name, file)
}

func (s *service) GetSettings(_ SettingsRequest, resp *SettingsResponse) error {
	resp.Settings = s.daemon.Service().Settings()
	return nil
}

func (s *service) ApplySettings(req ApplySettingsRequest, resp *SettingsResponse) error {
	next := req.Settings
	if codec, err := settings.ParseCodec(string(next.Codec)); err == nil {
		next.Codec = codec
	}
	if err := s.daemon.Service().ApplySettings(next); err != nil {
		return err
	}
	resp.Settings = s.daemon.Service().Settings()
	return nil
}

func (s *service) Process(req ProcessRequest, resp *BatchResponse) error {
	svc := s.daemon.Service()
	names := req.Files
	if len(names) == 0 {
		all, err := svc.ListIncoming()
		if err != nil {
			return err
		}
		names = all
	}
	batch := svc.StartProcess(names)
	if req.Detach {
		resp.Batch = batch
		return nil
	}
	done, err := svc.WaitBatch(s.ctx, batch.ID)
	resp.Batch = done
	return err
}

func (s *service) Batch(req BatchRequest, resp *BatchResponse) error {
	svc := s.daemon.Service()
	if req.Wait {
		batch, err := svc.WaitBatch(s.ctx, req.ID)
		resp.Batch = batch
		return err
	}
	batch, err := svc.Batch(req.ID)
	if err != nil {
		return err
	}
	resp.Batch = batch
	return nil
}

func (s *service) Batches(_ BatchListRequest, resp *BatchListResponse) error {
	resp.Batches = s.daemon.Service().Batches()
	return nil
}

func (s *service) ClearIncoming(req ClearRequest, resp *ClearResponse) error {
	resp.Deleted = s.daemon.Service().ClearIncoming(s.ctx, req.Files)
	return nil
}

func (s *service) ClearOutgoing(_ ClearRequest, resp *ClearResponse) error {
	resp.Deleted = s.daemon.Service().ClearOutgoing(s.ctx)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
