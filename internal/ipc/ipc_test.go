package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"video2audio/internal/api"
	"video2audio/internal/daemon"
	"video2audio/internal/ipc"
	"video2audio/internal/logging"
	"video2audio/internal/settings"
	"video2audio/internal/testsupport"
	"video2audio/internal/transcode"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()
	svc, err := api.New(context.Background(), cfg, logger, api.WithEncoder(&testsupport.Encoder{FailOn: "broken"}))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	d, err := daemon.New(cfg, svc, logger, daemon.WithLogPath(logPath))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Unix socket paths are length limited, so keep it out of the nested test dir.
	socketDir, err := os.MkdirTemp("", "v2a")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(socketDir) })
	socket := filepath.Join(socketDir, "v2a.sock")

	shutdown := make(chan struct{})
	srv, err := ipc.NewServer(ctx, socket, d, logger, func() { close(shutdown) })
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Status.IncomingDir != cfg.Paths.IncomingDir || status.Status.Settings.Codec != settings.CodecMP3 {
		t.Fatalf("unexpected status: %+v", status.Status)
	}

	localDir := t.TempDir()
	var paths []string
	for _, name := range []string{"clip1.mp4", "broken.mp4", "..."} {
		path := filepath.Join(localDir, name)
		if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	uploaded, err := client.Upload(paths)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !reflect.DeepEqual(uploaded.Saved, []string{"clip1.mp4", "broken.mp4"}) || len(uploaded.Skipped) != 1 {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}

	incoming, err := client.ListIncoming()
	if err != nil {
		t.Fatalf("ListIncoming failed: %v", err)
	}
	if !reflect.DeepEqual(incoming.Files, []string{"broken.mp4", "clip1.mp4"}) {
		t.Fatalf("unexpected incoming listing: %v", incoming.Files)
	}

	if _, err := client.ApplySettings(settings.Settings{Codec: "ogg", Bitrate: 128, SampleRate: 44100, Channels: 2}); err == nil || !strings.Contains(err.Error(), "codec") {
		t.Fatalf("expected codec validation error, got %v", err)
	}
	applied, err := client.ApplySettings(settings.Settings{Codec: "AAC", Bitrate: 256, SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if applied.Settings.Codec != settings.CodecAAC {
		t.Fatalf("codec not normalized: %+v", applied.Settings)
	}
	current, err := client.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if current.Settings != applied.Settings {
		t.Fatalf("settings mismatch: %+v vs %+v", current.Settings, applied.Settings)
	}

	processed, err := client.Process(nil, false)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	counts := processed.Batch.Counts()
	if !processed.Batch.Done || counts[transcode.StatusSucceeded] != 1 || counts[transcode.StatusFailed] != 1 {
		t.Fatalf("unexpected batch: %+v", processed.Batch)
	}

	outgoing, err := client.ListOutgoing()
	if err != nil {
		t.Fatalf("ListOutgoing failed: %v", err)
	}
	if !reflect.DeepEqual(outgoing.Files, []string{"clip1.m4a"}) {
		t.Fatalf("unexpected outgoing listing: %v", outgoing.Files)
	}

	batches, err := client.Batches()
	if err != nil {
		t.Fatalf("Batches failed: %v", err)
	}
	if len(batches.Batches) != 1 || batches.Batches[0].ID != processed.Batch.ID {
		t.Fatalf("unexpected batches: %+v", batches.Batches)
	}
	if _, err := client.Batch("missing", false); err == nil {
		t.Fatal("expected unknown batch error")
	}

	cleared, err := client.ClearOutgoing()
	if err != nil {
		t.Fatalf("ClearOutgoing failed: %v", err)
	}
	if !reflect.DeepEqual(cleared.Deleted, []string{"clip1.m4a"}) {
		t.Fatalf("unexpected cleared files: %v", cleared.Deleted)
	}
	again, err := client.ClearOutgoing()
	if err != nil {
		t.Fatalf("second ClearOutgoing failed: %v", err)
	}
	if len(again.Deleted) != 0 {
		t.Fatalf("second clear should delete nothing, got %v", again.Deleted)
	}

	removed, err := client.ClearIncoming([]string{"broken.mp4", "../escape"})
	if err != nil {
		t.Fatalf("ClearIncoming failed: %v", err)
	}
	if !reflect.DeepEqual(removed.Deleted, []string{"broken.mp4"}) {
		t.Fatalf("unexpected incoming deletion: %v", removed.Deleted)
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	_, _ = f.WriteString("fourth\n")
	_ = f.Close()

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	shut, err := client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !shut.Accepted {
		t.Fatal("expected shutdown to be accepted")
	}
	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not invoked")
	}
	// A repeated request must not close the channel twice.
	if _, err := client.Shutdown(); err != nil {
		t.Fatalf("second Shutdown failed: %v", err)
	}
}
