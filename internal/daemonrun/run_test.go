package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"video2audio/internal/api"
	"video2audio/internal/logging"
	"video2audio/internal/testsupport"
	"video2audio/internal/transcode"
)

func TestEnsureCurrentLogPointerReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "video2audio-1.log")
	second := filepath.Join(dir, "video2audio-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, logPointerName))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "video2audio-2.log" {
		t.Fatalf("pointer should follow the latest log, got %q", data)
	}
	if err := ensureCurrentLogPointer("", second); err != nil {
		t.Fatalf("empty dir should be a no-op: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video2audio.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}

func TestLogDependencySnapshotToleratesMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcoder.FFmpegBinary = "video2audio-missing-ffmpeg"
	logDependencySnapshot(logging.NewNop(), cfg)
	logDependencySnapshot(nil, cfg)
}

func TestShutdownDrainsInFlightConversions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.IncomingDir, "a.mp4"), 16)

	sigCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d, release, err := newDaemon(sigCtx, cfg, logging.NewNop(), "",
		api.WithEncoder(&testsupport.Encoder{Delay: 300 * time.Millisecond}))
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	defer release()
	if err := d.Start(sigCtx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	batch := d.Service().StartProcess([]string{"a.mp4"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := d.Service().Batch(batch.ID)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if got.Counts()[transcode.StatusSucceeded] != 1 {
		t.Fatalf("expected the in-flight file to finish, got %+v", got.Files)
	}
	out, err := d.Service().ListOutgoing()
	if err != nil || len(out) != 1 || out[0] != "a.mp3" {
		t.Fatalf("expected a.mp3 in outgoing, got %v (%v)", out, err)
	}
}
