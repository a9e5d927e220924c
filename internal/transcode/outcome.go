package transcode

import (
	"errors"
	"time"
)

// Status is the lifecycle state of one file within a batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Outcome records what happened to one requested name.
type Outcome struct {
	Name     string        `json:"name"`
	Output   string        `json:"output,omitempty"`
	Status   Status        `json:"status"`
	Kind     string        `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

func failed(name string, err error) Outcome {
	return Outcome{Name: name, Status: StatusFailed, Kind: ErrorKind(err), Error: err.Error(), Err: err}
}

// Result is the per-file outcome list of one Process call, in request order
// with duplicates collapsed.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Succeeded returns the names that converted successfully.
func (r Result) Succeeded() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Status == StatusSucceeded {
			names = append(names, o.Name)
		}
	}
	return names
}

// Failed returns the outcomes that did not convert.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Outcome looks up the outcome for name.
func (r Result) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// ErrorClassifier allows errors to declare their classification for status mapping.
type ErrorClassifier interface {
	// ErrorKind returns "validation", "invalid_name", "conversion", or "cleanup".
	ErrorKind() string
}

// ErrorKind returns the classification of err, or "internal" when err does
// not declare one.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "internal"
}

// distinct drops repeated names while keeping first-seen order.
func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
