package api_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"video2audio/internal/api"
	"video2audio/internal/notifications"
	"video2audio/internal/registry"
	"video2audio/internal/settings"
	"video2audio/internal/testsupport"
	"video2audio/internal/transcode"
)

func newService(t *testing.T, enc *testsupport.Encoder) (*api.Service, string, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc, err := api.New(context.Background(), cfg, nil, api.WithEncoder(enc))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return svc, cfg.Paths.IncomingDir, cfg.Paths.OutgoingDir
}

func upload(t *testing.T, svc *api.Service, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := svc.SaveIncoming(name, strings.NewReader("video:"+name)); err != nil {
			t.Fatalf("SaveIncoming(%s): %v", name, err)
		}
	}
}

func TestApplySettingsRejectsUnsupportedCodec(t *testing.T) {
	svc, _, _ := newService(t, &testsupport.Encoder{})
	before := svc.Settings()

	err := svc.ApplySettings(settings.Settings{Codec: "ogg", Bitrate: 128, SampleRate: 44100, Channels: 2})
	if !errors.Is(err, settings.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if api.HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("validation errors should map to 400")
	}
	if svc.Settings() != before {
		t.Fatalf("settings changed after rejected apply: %+v", svc.Settings())
	}
}

func TestProcessClipScenario(t *testing.T) {
	svc, incoming, outgoing := newService(t, &testsupport.Encoder{})
	upload(t, svc, "clip1.mp4", "clip2.mp4")

	if err := svc.ApplySettings(settings.Settings{Codec: settings.CodecMP3, Bitrate: 192, SampleRate: 44100, Channels: 2}); err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	result := svc.Process(context.Background(), []string{"clip1.mp4", "clip2.mp4"})
	if got := result.Succeeded(); !reflect.DeepEqual(got, []string{"clip1.mp4", "clip2.mp4"}) {
		t.Fatalf("unexpected successes: %v (%+v)", got, result.Outcomes)
	}

	in, _ := svc.ListIncoming()
	if len(in) != 0 {
		t.Fatalf("incoming should be empty, got %v", in)
	}
	out, _ := svc.ListOutgoing()
	if !reflect.DeepEqual(out, []string{"clip1.mp3", "clip2.mp3"}) {
		t.Fatalf("unexpected outgoing: %v", out)
	}
	if _, err := os.Stat(filepath.Join(incoming, "clip1.mp4")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("clip1.mp4 should be gone from %s", incoming)
	}

	deleted := svc.ClearOutgoing(context.Background())
	if len(deleted) != 2 {
		t.Fatalf("expected two deletions, got %v", deleted)
	}
	if entries, _ := os.ReadDir(outgoing); len(entries) != 0 {
		t.Fatalf("outgoing directory not empty")
	}
	if again := svc.ClearOutgoing(context.Background()); len(again) != 0 {
		t.Fatalf("second clear should be empty, got %v", again)
	}
}

func TestStartProcessAndWait(t *testing.T) {
	svc, _, _ := newService(t, &testsupport.Encoder{FailOn: "fail"})
	upload(t, svc, "a.mp4", "b_fail.mp4")

	batch := svc.StartProcess([]string{"a.mp4", "b_fail.mp4", "missing.mp4"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := svc.WaitBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("WaitBatch: %v", err)
	}
	counts := done.Counts()
	if counts[transcode.StatusSucceeded] != 1 || counts[transcode.StatusFailed] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	kinds := map[string]string{}
	for _, f := range done.Files {
		kinds[f.Name] = f.Kind
	}
	if kinds["b_fail.mp4"] != "conversion" || kinds["missing.mp4"] != "invalid_name" {
		t.Fatalf("unexpected failure kinds: %v", kinds)
	}

	in, _ := svc.ListIncoming()
	if !reflect.DeepEqual(in, []string{"b_fail.mp4"}) {
		t.Fatalf("failed file should remain in incoming: %v", in)
	}
	if len(svc.Batches()) != 1 || svc.ActiveBatches() != 0 {
		t.Fatalf("unexpected batch bookkeeping")
	}
	if _, err := svc.Batch("unknown"); api.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("unknown batch should map to 404, got %v", err)
	}
}

func TestClearIncomingAndOutgoingPath(t *testing.T) {
	svc, _, _ := newService(t, &testsupport.Encoder{})
	upload(t, svc, "a.mp4", "b.mp4")

	deleted := svc.ClearIncoming(context.Background(), []string{"a.mp4", "../etc/passwd", "nope.mp4"})
	if !reflect.DeepEqual(deleted, []string{"a.mp4"}) {
		t.Fatalf("unexpected deletion: %v", deleted)
	}

	svc.Process(context.Background(), []string{"b.mp4"})
	path, err := svc.OutgoingPath("b.mp3")
	if err != nil {
		t.Fatalf("OutgoingPath: %v", err)
	}
	if filepath.Base(path) != "b.mp3" {
		t.Fatalf("unexpected path %s", path)
	}

	_, err = svc.OutgoingPath("gone.mp3")
	if !errors.Is(err, fs.ErrNotExist) || api.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("missing download should be not found, got %v", err)
	}
	_, err = svc.OutgoingPath("../incoming/b.mp4")
	if !errors.Is(err, registry.ErrInvalidName) || api.HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("traversal should be rejected, got %v", err)
	}
}

func TestSaveIncomingRejectsUnsafeNames(t *testing.T) {
	svc, _, _ := newService(t, &testsupport.Encoder{})
	for _, name := range []string{"", "../x.mp4", ".hidden.mp4", "a/b.mp4"} {
		if err := svc.SaveIncoming(name, strings.NewReader("x")); !errors.Is(err, registry.ErrInvalidName) {
			t.Fatalf("SaveIncoming(%q) = %v, want invalid name", name, err)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &settings.ValidationError{Field: "codec", Value: "ogg", Reason: "unsupported"}, http.StatusBadRequest},
		{"invalid name", &registry.NameError{Name: "..", Reason: "refers to a directory"}, http.StatusBadRequest},
		{"batch", transcode.ErrBatchNotFound, http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := api.HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}

	resp := api.NewErrorResponse(&settings.ValidationError{Field: "codec", Value: "ogg", Reason: "unsupported"})
	if resp.Kind != "validation" || !strings.Contains(resp.Error, "codec") {
		t.Fatalf("unexpected error response: %+v", resp)
	}
}

func TestStartProcessPublishesNotification(t *testing.T) {
	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	svc, err := api.New(context.Background(), cfg, nil,
		api.WithEncoder(&testsupport.Encoder{FailOn: "broken"}),
		api.WithNotifier(notifications.NewService(cfg)),
	)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	upload(t, svc, "clip1.mp4", "broken.mp4")

	svc.StartProcess([]string{"clip1.mp4", "broken.mp4"})
	select {
	case body := <-bodies:
		if !strings.Contains(body, "1 succeeded, 1 failed") {
			t.Fatalf("unexpected notification body %q", body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification delivered")
	}
}
