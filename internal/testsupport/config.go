package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"video2audio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IncomingDir = filepath.Join(base, "incoming")
	cfgVal.Paths.OutgoingDir = filepath.Join(base, "outgoing")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers overrides the transcoder pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoder.Workers = n
	}
}

// WithWatch enables the incoming drop-folder watcher with the given settle time.
func WithWatch(settleSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoder.WatchIncoming = true
		b.cfg.Transcoder.WatchSettleSeconds = settleSeconds
	}
}

// ffmpegStub copies the input file to the last argument, which is where the
// real ffmpeg writes its output. "-version" prints a banner line.
const ffmpegStub = `#!/bin/sh
if [ "$1" = "-version" ]; then
	echo "ffmpeg version stub"
	exit 0
fi
in=""
prev=""
for arg; do
	if [ "$prev" = "-i" ]; then in="$arg"; fi
	prev="$arg"
	out="$arg"
done
case "$(basename "$in")" in
	*fail*) echo "stub: conversion failed for $in" >&2; exit 1 ;;
esac
cat "$in" > "$out"
`

const ffprobeStub = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"audio","codec_name":"aac","sample_rate":"48000","channels":2,"bit_rate":"256000"}],"format":{"duration":"1.0","size":"1024","bit_rate":"256000"}}
JSON
`

// WithStubbedBinaries writes stub executables for the provided names,
// prepends them to PATH, and points the config at them. If names is empty,
// ffmpeg and ffprobe are stubbed. The ffmpeg stub copies its input to its
// output and fails for inputs whose name contains "fail".
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			script := "#!/bin/sh\nexit 0\n"
			switch name {
			case "ffmpeg":
				script = ffmpegStub
			case "ffprobe":
				script = ffprobeStub
			}
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffmpeg":
				b.cfg.Transcoder.FFmpegBinary = target
			case "ffprobe":
				b.cfg.Transcoder.FFprobeBinary = target
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IncomingDir)
}
