package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"video2audio/internal/api"
	"video2audio/internal/config"
	"video2audio/internal/daemon"
	"video2audio/internal/ipc"
	"video2audio/internal/logging"
	"video2audio/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	logPath := filepath.Join(cfg.Paths.LogDir, "video2audio-test.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create log file: %v", err)
	}

	logger := logging.NewNop()
	svc, err := api.New(context.Background(), cfg, logger, api.WithEncoder(&testsupport.Encoder{FailOn: "broken"}))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	d, err := daemon.New(cfg, svc, logger, daemon.WithLogPath(logPath))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}

	socketDir, err := os.MkdirTemp("", "v2a-cli")
	if err != nil {
		cancel()
		t.Fatalf("mkdir socket dir: %v", err)
	}
	socketPath := filepath.Join(socketDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger, cancel)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    logPath,
		cancel:     cancel,
	}
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
		_ = os.RemoveAll(socketDir)
	})
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// useSelector swaps the interactive file picker for the duration of the test.
func useSelector(t *testing.T, selector Selector) {
	t.Helper()
	previous := defaultSelector
	defaultSelector = selector
	t.Cleanup(func() { defaultSelector = previous })
}

type fakeSelector struct {
	interactive bool
	pick        []string
	offered     []string
}

func (f *fakeSelector) Select(_ string, options []string) ([]string, error) {
	f.offered = append([]string(nil), options...)
	return f.pick, nil
}

func (f *fakeSelector) Interactive() bool { return f.interactive }

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
