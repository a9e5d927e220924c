package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"video2audio/internal/api"
	"video2audio/internal/logging"
	"video2audio/internal/testsupport"
)

func newTestServer(t *testing.T) (http.Handler, *api.Service) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc, err := api.New(context.Background(), cfg, logging.NewNop(), api.WithEncoder(&testsupport.Encoder{FailOn: "fail"}))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	d, err := New(cfg, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := &apiServer{daemon: d, service: svc}
	return srv.routes(), svc
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func uploadFiles(t *testing.T, h http.Handler, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files[]", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte("video:" + name))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/incoming", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPIServerUploadProcessDownloadClear(t *testing.T) {
	h, _ := newTestServer(t)

	w := uploadFiles(t, h, "clip1.mp4", `C:\videos\clip2.mp4`, "..")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", w.Code, w.Body.String())
	}
	up := decodeBody[api.UploadResponse](t, w)
	if !reflect.DeepEqual(up.Saved, []string{"clip1.mp4", "clip2.mp4"}) || len(up.Skipped) != 1 {
		t.Fatalf("unexpected upload response: %+v", up)
	}

	listing := decodeBody[api.FilesResponse](t, do(t, h, http.MethodGet, "/api/incoming", nil))
	if len(listing.Files) != 2 {
		t.Fatalf("unexpected incoming listing: %v", listing.Files)
	}

	w = do(t, h, http.MethodPost, "/api/process", api.FilesRequest{Files: []string{"clip1.mp4", "clip2.mp4"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("process status %d: %s", w.Code, w.Body.String())
	}
	batch := decodeBody[api.BatchResponse](t, w).Batch

	w = do(t, h, http.MethodGet, "/api/batches/"+batch.ID+"?wait=1", nil)
	done := decodeBody[api.BatchResponse](t, w).Batch
	if !done.Done || len(done.Files) != 2 {
		t.Fatalf("batch should be finished: %+v", done)
	}

	out := decodeBody[api.FilesResponse](t, do(t, h, http.MethodGet, "/api/outgoing", nil))
	if !reflect.DeepEqual(out.Files, []string{"clip1.mp3", "clip2.mp3"}) {
		t.Fatalf("unexpected outgoing: %v", out.Files)
	}

	w = do(t, h, http.MethodGet, "/api/outgoing/clip1.mp3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), `filename=clip1.mp3`) {
		t.Fatalf("missing attachment header: %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(w.Body.String(), "video:clip1.mp4") {
		t.Fatalf("unexpected download body %q", w.Body.String())
	}

	cleared := decodeBody[api.DeletedResponse](t, do(t, h, http.MethodPost, "/api/outgoing/clear", nil))
	if len(cleared.Deleted) != 2 {
		t.Fatalf("unexpected cleared list: %v", cleared.Deleted)
	}
	again := decodeBody[api.DeletedResponse](t, do(t, h, http.MethodPost, "/api/outgoing/clear", nil))
	if len(again.Deleted) != 0 {
		t.Fatalf("second clear should be empty: %v", again.Deleted)
	}
}

func TestAPIServerSettings(t *testing.T) {
	h, svc := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/settings", map[string]any{"codec": "ogg", "bitrate": 128, "sample_rate": 44100, "channels": 2})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported codec, got %d", w.Code)
	}
	if resp := decodeBody[api.ErrorResponse](t, w); resp.Kind != "validation" {
		t.Fatalf("unexpected error kind %q", resp.Kind)
	}

	w = do(t, h, http.MethodPost, "/api/settings", map[string]any{"codec": "FLAC", "bitrate": 192, "sample_rate": 48000, "channels": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("apply status %d: %s", w.Code, w.Body.String())
	}
	if got := svc.Settings(); got.Codec != "flac" || got.SampleRate != 48000 || got.Channels != 1 {
		t.Fatalf("settings not applied: %+v", got)
	}
}

func TestAPIServerErrors(t *testing.T) {
	h, svc := newTestServer(t)

	if w := do(t, h, http.MethodGet, "/api/outgoing/missing.mp3", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing download, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/batches/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown batch, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/settings", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("{"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", w.Code)
	}

	// A failing conversion keeps the upload and reports the failure kind.
	if err := svc.SaveIncoming("bad_fail.mp4", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	batch := decodeBody[api.BatchResponse](t, do(t, h, http.MethodPost, "/api/process", nil)).Batch
	done := decodeBody[api.BatchResponse](t, do(t, h, http.MethodGet, "/api/batches/"+batch.ID+"?wait=1", nil)).Batch
	if len(done.Files) != 1 || done.Files[0].Kind != "conversion" {
		t.Fatalf("unexpected batch: %+v", done)
	}
	if _, err := os.Stat(filepath.Join(svc.Registry().Dir("incoming"), "bad_fail.mp4")); err != nil {
		t.Fatalf("failed upload should remain: %v", err)
	}
}

func TestAPIServerClearIncoming(t *testing.T) {
	h, svc := newTestServer(t)
	for _, name := range []string{"a.mp4", "b.mp4"} {
		if err := svc.SaveIncoming(name, strings.NewReader(name)); err != nil {
			t.Fatal(err)
		}
	}
	resp := decodeBody[api.DeletedResponse](t, do(t, h, http.MethodPost, "/api/incoming/clear", api.FilesRequest{Files: []string{"a.mp4", "../x"}}))
	if !reflect.DeepEqual(resp.Deleted, []string{"a.mp4"}) {
		t.Fatalf("unexpected deleted list: %v", resp.Deleted)
	}
	status := decodeBody[api.DaemonStatus](t, do(t, h, http.MethodGet, "/api/status", nil))
	if status.IncomingCount != 1 || status.Running {
		t.Fatalf("unexpected status: %+v", status)
	}
}
