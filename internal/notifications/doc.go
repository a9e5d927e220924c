// Package notifications pushes batch results to ntfy.
//
// NewService returns a no-op when no topic is configured, so callers publish
// unconditionally. Only batch completion, errors, and test messages are
// delivered; per-file events are accepted and dropped.
package notifications
