package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"video2audio/internal/api"
	"video2audio/internal/config"
	"video2audio/internal/logging"
	"video2audio/internal/settings"
	"video2audio/internal/textutil"
)

const (
	maxUploadMemory = 32 << 20
	maxWait         = 25 * time.Second
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	service *api.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		service: d.service,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/incoming", s.handleIncoming)
	mux.HandleFunc("/api/incoming/clear", s.handleClearIncoming)
	mux.HandleFunc("/api/outgoing", s.handleOutgoing)
	mux.HandleFunc("/api/outgoing/clear", s.handleClearOutgoing)
	mux.HandleFunc("/api/outgoing/", s.handleDownload)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/batches", s.handleBatches)
	mux.HandleFunc("/api/batches/", s.handleBatch)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleIncoming(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeListing(w, s.service.ListIncoming)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files[]"]
	headers = append(headers, r.MultipartForm.File["files"]...)
	if len(headers) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	resp := api.UploadResponse{Saved: []string{}}
	for _, header := range headers {
		name := textutil.SanitizeUploadName(header.Filename)
		if name == "" {
			resp.Skipped = append(resp.Skipped, header.Filename)
			continue
		}
		file, err := header.Open()
		if err != nil {
			s.writeServiceError(w, fmt.Errorf("open upload %s: %w", header.Filename, err))
			return
		}
		err = s.service.SaveIncoming(name, file)
		_ = file.Close()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		resp.Saved = append(resp.Saved, name)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleClearIncoming(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.FilesRequest
	if !s.decode(w, r, &req) {
		return
	}
	deleted := s.service.ClearIncoming(r.Context(), req.Files)
	s.writeJSON(w, http.StatusOK, api.DeletedResponse{Deleted: deleted})
}

func (s *apiServer) handleOutgoing(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeListing(w, s.service.ListOutgoing)
}

func (s *apiServer) handleClearOutgoing(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	deleted := s.service.ClearOutgoing(r.Context())
	s.writeJSON(w, http.StatusOK, api.DeletedResponse{Deleted: deleted})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/outgoing/")
	path, err := s.service.OutgoingPath(name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	file, err := os.Open(path)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, api.SettingsResponse{Settings: s.service.Settings()})
	case http.MethodPost, http.MethodPut:
		var next settings.Settings
		if !s.decode(w, r, &next) {
			return
		}
		if codec, err := settings.ParseCodec(string(next.Codec)); err == nil {
			next.Codec = codec
		}
		if err := s.service.ApplySettings(next); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.SettingsResponse{Settings: s.service.Settings()})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.FilesRequest
	if !s.decode(w, r, &req) {
		return
	}
	names := req.Files
	if len(names) == 0 {
		all, err := s.service.ListIncoming()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		names = all
	}
	batch := s.service.StartProcess(names)
	s.writeJSON(w, http.StatusAccepted, api.BatchResponse{Batch: batch})
}

func (s *apiServer) handleBatches(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchListResponse{Batches: s.service.Batches()})
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/batches/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	wait := r.URL.Query().Get("wait")
	if wait == "1" || strings.EqualFold(wait, "true") {
		ctx, cancel := context.WithTimeout(r.Context(), maxWait)
		defer cancel()
		batch, err := s.service.WaitBatch(ctx, id)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
		return
	}

	batch, err := s.service.Batch(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
}

func (s *apiServer) writeListing(w http.ResponseWriter, list func() ([]string, error)) {
	files, err := list()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FilesResponse{Files: files})
}

func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := api.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Error(err))
	}
	s.writeJSON(w, status, api.NewErrorResponse(err))
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
