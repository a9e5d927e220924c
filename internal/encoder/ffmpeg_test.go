package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"video2audio/internal/media/ffprobe"
	"video2audio/internal/settings"
)

type fakeRunner struct {
	calls  [][]string
	stderr string
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.block {
		<-ctx.Done()
		return []byte(f.stderr), errors.New("signal: killed")
	}
	return []byte(f.stderr), f.err
}

func TestBuildArgsLossy(t *testing.T) {
	req := Request{
		Input:    "/in/clip1.mp4",
		Output:   "/out/clip1.mp3",
		Settings: settings.Settings{Codec: settings.CodecMP3, Bitrate: 192, SampleRate: 44100, Channels: 2},
	}
	want := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", "/in/clip1.mp4",
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		"-f", "mp3",
		"/out/clip1.mp3",
	}
	if got := BuildArgs(req); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", got, want)
	}
}

func TestBuildArgsLoudnormAndAAC(t *testing.T) {
	req := Request{
		Input:    "in.mkv",
		Output:   "out.m4a",
		Settings: settings.Settings{Codec: settings.CodecAAC, Bitrate: 128, SampleRate: 48000, Channels: 1},
		Loudnorm: true,
	}
	args := BuildArgs(req)
	joined := strings.Join(args, " ")
	for _, want := range []string{"-af " + LoudnormFilter, "-c:a aac", "-b:a 128k", "-f ipod"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestBuildArgsLosslessIgnoresBitrate(t *testing.T) {
	for _, codec := range []settings.Codec{settings.CodecFLAC, settings.CodecWAV} {
		t.Run(string(codec), func(t *testing.T) {
			base := Request{Input: "a.mp4", Output: "a" + codec.Extension()}
			low, high := base, base
			low.Settings = settings.Settings{Codec: codec, Bitrate: 96, SampleRate: 44100, Channels: 2}
			high.Settings = settings.Settings{Codec: codec, Bitrate: 320, SampleRate: 44100, Channels: 2}

			lowArgs, highArgs := BuildArgs(low), BuildArgs(high)
			if !reflect.DeepEqual(lowArgs, highArgs) {
				t.Fatalf("lossless args differ by bitrate:\n%v\n%v", lowArgs, highArgs)
			}
			if slices.Contains(lowArgs, "-b:a") {
				t.Fatalf("lossless args carry a bitrate flag: %v", lowArgs)
			}
		})
	}
}

func TestEncodeUsesRunnerAndBinary(t *testing.T) {
	runner := &fakeRunner{}
	enc := NewFFmpeg(WithBinary("/opt/ffmpeg"), WithCommandRunner(runner))
	req := Request{Input: "a.mp4", Output: "a.wav", Settings: settings.Settings{Codec: settings.CodecWAV, Bitrate: 1, SampleRate: 8000, Channels: 1}}
	if err := enc.Encode(context.Background(), req); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0][0] != "/opt/ffmpeg" {
		t.Fatalf("unexpected calls: %v", runner.calls)
	}
}

func TestEncodeRejectsInvalidSettingsWithoutRunning(t *testing.T) {
	runner := &fakeRunner{}
	enc := NewFFmpeg(WithCommandRunner(runner))
	err := enc.Encode(context.Background(), Request{Input: "a", Output: "b", Settings: settings.Settings{Codec: "ogg"}})
	if !errors.Is(err, settings.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("runner should not be invoked")
	}
}

func TestEncodeFailureReturnsConversionErrorAndRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "partial.mp3")
	if err := os.WriteFile(out, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{stderr: "some banner\nInvalid data found when processing input\n", err: errors.New("exit status 1")}
	enc := NewFFmpeg(WithCommandRunner(runner))

	err := enc.Encode(context.Background(), Request{Input: "bad.mp4", Output: out, Settings: settings.Default()})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %T %v", err, err)
	}
	if convErr.Input != "bad.mp4" || convErr.ErrorKind() != "conversion" {
		t.Fatalf("unexpected error details: %+v", convErr)
	}
	if !strings.Contains(err.Error(), "Invalid data found when processing input") {
		t.Fatalf("expected stderr tail in message, got %q", err.Error())
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err = %v", statErr)
	}
}

func TestEncodeTimeoutIsConversionFailure(t *testing.T) {
	runner := &fakeRunner{block: true}
	enc := NewFFmpeg(WithCommandRunner(runner))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := enc.Encode(ctx, Request{Input: "slow.mp4", Output: filepath.Join(t.TempDir(), "slow.mp3"), Settings: settings.Default()})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestExecCommandRunnerReportsExitCode(t *testing.T) {
	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := "#!/bin/sh\necho 'conversion exploded' >&2\nexit 3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	enc := NewFFmpeg(WithBinary(script))
	err := enc.Encode(context.Background(), Request{Input: "x.mp4", Output: filepath.Join(t.TempDir(), "x.mp3"), Settings: settings.Default()})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %v", err)
	}
	if convErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", convErr.ExitCode)
	}
	if convErr.Stderr != "conversion exploded" {
		t.Fatalf("unexpected stderr %q", convErr.Stderr)
	}
}

func TestChooseBitrate(t *testing.T) {
	tests := []struct {
		codec  settings.Codec
		source int64
		want   int
	}{
		{settings.CodecMP3, 0, 192},
		{settings.CodecMP3, 96_000, 192},
		{settings.CodecMP3, 256_000, 256},
		{settings.CodecMP3, 1_500_000, 320},
		{settings.CodecAAC, 0, 128},
		{settings.CodecAAC, 200_000, 200},
		{settings.CodecAAC, 512_000, 256},
		{settings.CodecFLAC, 900_000, 0},
		{settings.CodecWAV, 0, 0},
	}
	for _, tt := range tests {
		if got := ChooseBitrate(tt.codec, tt.source); got != tt.want {
			t.Errorf("ChooseBitrate(%s, %d) = %d, want %d", tt.codec, tt.source, got, tt.want)
		}
	}
}

func TestDetectAndApply(t *testing.T) {
	inspect := func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{CodecType: "video"},
			{CodecType: "audio", BitRate: "384000", SampleRate: "48000", Channels: 6},
		}}, nil
	}
	detected, err := Detect(context.Background(), inspect, "ffprobe", "movie.mkv")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if detected != (Detected{BitRate: 384000, SampleRate: 48000, Channels: 6}) {
		t.Fatalf("unexpected detection: %+v", detected)
	}

	base := settings.Settings{Codec: settings.CodecMP3, Bitrate: 128, SampleRate: 22050, Channels: 2}
	got := ApplyDetected(base, detected, Overrides{Channels: true})
	want := settings.Settings{Codec: settings.CodecMP3, Bitrate: 320, SampleRate: 48000, Channels: 2}
	if got != want {
		t.Fatalf("ApplyDetected = %+v, want %+v", got, want)
	}
}

func TestDetectFallbacksAndMissingAudio(t *testing.T) {
	sparse := func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}, nil
	}
	detected, err := Detect(context.Background(), sparse, "", "a.mp4")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if detected.SampleRate != 44100 || detected.Channels != 2 || detected.BitRate != 0 {
		t.Fatalf("unexpected fallbacks: %+v", detected)
	}

	silent := func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}, nil
	}
	if _, err := Detect(context.Background(), silent, "", "mute.mp4"); err == nil {
		t.Fatal("expected error for source without audio")
	}
}
