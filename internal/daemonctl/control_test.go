package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"video2audio/internal/daemonctl"
	"video2audio/internal/ipc"
	"video2audio/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []ipc.DependencyStatus
		severity string
		detail   string
	}{
		{"empty", nil, "info", "No dependency checks configured"},
		{"all available", []ipc.DependencyStatus{{Name: "FFmpeg", Available: true}, {Name: "FFprobe", Available: true, Optional: true}}, "ok", "2/2 available"},
		{"optional missing", []ipc.DependencyStatus{{Name: "FFmpeg", Available: true}, {Name: "FFprobe", Optional: true}}, "warn", "1/2 available (missing: 0 required, 1 optional)"},
		{"required missing", []ipc.DependencyStatus{{Name: "FFmpeg"}, {Name: "FFprobe", Optional: true}}, "error", "0/2 available (missing: 1 required, 1 optional)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := daemonctl.BuildDependencySummary(tt.deps)
			if got.Severity != tt.severity || got.Detail != tt.detail {
				t.Fatalf("summary = %+v, want %s / %s", got, tt.severity, tt.detail)
			}
		})
	}
}

func TestDependencySeverity(t *testing.T) {
	if got := daemonctl.DependencySeverity(ipc.DependencyStatus{Available: true}); got != "ok" {
		t.Fatalf("available = %s", got)
	}
	if got := daemonctl.DependencySeverity(ipc.DependencyStatus{Optional: true}); got != "warn" {
		t.Fatalf("optional = %s", got)
	}
	if got := daemonctl.DependencySeverity(ipc.DependencyStatus{}); got != "error" {
		t.Fatalf("required = %s", got)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.IncomingDir, "clip.mp4"), 16)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutgoingDir, "clip.mp3"), 16)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutgoingDir, "other.mp3"), 16)

	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Status.Running {
		t.Fatal("daemon should be reported as not running")
	}
	if snap.Status.IncomingCount != 1 || snap.Status.OutgoingCount != 2 {
		t.Fatalf("unexpected offline counts: %+v", snap.Status)
	}
	if snap.DependencySummary.Severity != "ok" {
		t.Fatalf("stubbed binaries should be available: %+v", snap.DependencySummary)
	}
	if len(snap.SystemChecks) != 2 || snap.SystemChecks[0].Severity != "warn" || snap.SystemChecks[1].Severity != "ok" {
		t.Fatalf("unexpected system checks: %+v", snap.SystemChecks)
	}
	for _, line := range snap.Directories {
		if line.Severity != "ok" {
			t.Fatalf("directory %s not ready: %s", line.Label, line.Detail)
		}
	}

	if _, err := daemonctl.BuildStatusSnapshot(context.Background(), "", nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestBuildStatusSnapshotOfflineDoesNotCreateDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := t.TempDir()
	cfg.Paths.IncomingDir = filepath.Join(base, "missing-in")
	cfg.Paths.OutgoingDir = filepath.Join(base, "missing-out")

	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Status.IncomingCount != 0 || snap.Status.OutgoingCount != 0 {
		t.Fatalf("unexpected counts: %+v", snap.Status)
	}
	for _, dir := range []string{cfg.Paths.IncomingDir, cfg.Paths.OutgoingDir} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("status created %s: %v", dir, err)
		}
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(filepath.Join(t.TempDir(), "missing.sock"), cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	alive, pid, err := daemonctl.ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if alive || pid != 0 || err != nil {
		t.Fatalf("ProcessInfo = %v %d %v", alive, pid, err)
	}
}

func TestForceKillProcessRefusesUnsafeTargets(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "video2audio.pid")

	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected error without pid")
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := daemonctl.Launch("  ", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}
