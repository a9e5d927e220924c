package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video2audio/internal/encoder"
)

// Encoder is an in-process stand-in for ffmpeg. It writes the input bytes
// followed by the ffmpeg argument list to the output, so tests can compare
// outputs across settings without a real encoder.
type Encoder struct {
	// FailOn makes Encode fail for inputs whose base name contains the substring.
	FailOn string
	// Delay is slept before writing, honoring context cancellation.
	Delay time.Duration

	mu       sync.Mutex
	requests []encoder.Request
}

// Encode implements encoder.Encoder.
func (e *Encoder) Encode(ctx context.Context, req encoder.Request) error {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return &encoder.ConversionError{Input: req.Input, ExitCode: -1, Err: ctx.Err()}
		}
	}
	if e.FailOn != "" && strings.Contains(filepath.Base(req.Input), e.FailOn) {
		return &encoder.ConversionError{Input: req.Input, ExitCode: 1, Stderr: "stub failure", Err: fmt.Errorf("exit status 1")}
	}
	data, err := os.ReadFile(req.Input)
	if err != nil {
		return &encoder.ConversionError{Input: req.Input, ExitCode: 1, Err: err}
	}
	args := encoder.BuildArgs(encoder.Request{Input: "in", Output: "out", Settings: req.Settings, Loudnorm: req.Loudnorm})
	data = append(data, []byte("\n"+strings.Join(args, " "))...)
	return os.WriteFile(req.Output, data, 0o644)
}

// Requests returns the requests seen so far.
func (e *Encoder) Requests() []encoder.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]encoder.Request(nil), e.requests...)
}
