package encoder

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner runs external commands. Tests substitute a fake.
type CommandRunner interface {
	// Run executes the command and returns what it wrote to stderr.
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

// ExecCommandRunner is the production implementation using os/exec.
type ExecCommandRunner struct{}

// Run executes a command, capturing stderr for error reporting.
func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
