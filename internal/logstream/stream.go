package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"video2audio/internal/ipc"
)

const defaultWaitMillis = 1000

// TailClient captures the IPC log tail contract.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Filters narrow the emitted lines. Matching is case-insensitive.
type Filters struct {
	// Search keeps lines containing the substring.
	Search string
	// BatchID keeps lines tagged with the batch.
	BatchID string
}

func (f Filters) empty() bool {
	return strings.TrimSpace(f.Search) == "" && strings.TrimSpace(f.BatchID) == ""
}

func (f Filters) match(line string) bool {
	if f.empty() {
		return true
	}
	lower := strings.ToLower(line)
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" && !strings.Contains(lower, search) {
		return false
	}
	if id := strings.ToLower(strings.TrimSpace(f.BatchID)); id != "" && !strings.Contains(lower, id) {
		return false
	}
	return true
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// Stream emits daemon log lines through client until ctx ends or, without
// Follow, after the initial tail. With filters set, Lines bounds the lines
// read before filtering. It returns true when at least one line was emitted.
func Stream(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	if client == nil {
		return false, errors.New("log tail client is required")
	}
	limit := opts.Lines
	if limit < 0 {
		limit = 0
	}
	// A negative offset asks for the last limit lines, so Lines == 0 starts
	// at the current end of the file.
	offset := int64(-1)

	printed := false
	first := true
	for {
		req := ipc.LogTailRequest{Offset: offset, Limit: limit}
		if !first {
			req.Follow = true
			req.WaitMillis = defaultWaitMillis
		}
		resp, err := client.LogTail(req)
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if !opts.Filters.match(line) {
				continue
			}
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = resp.Offset
		limit = 0
		first = false
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
