package encoder

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// stderrTailLimit bounds how much ffmpeg stderr is kept on an error.
const stderrTailLimit = 2048

// ConversionError reports a failed or crashed ffmpeg invocation.
type ConversionError struct {
	Input    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("convert %s", e.Input)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(": ffmpeg exited with code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for front-end status mapping.
func (e *ConversionError) ErrorKind() string { return "conversion" }

func newConversionError(input string, stderr []byte, err error) *ConversionError {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ConversionError{
		Input:    input,
		ExitCode: exitCode,
		Stderr:   tail(string(stderr), stderrTailLimit),
		Err:      err,
	}
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
