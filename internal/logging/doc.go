// Package logging assembles structured slog loggers and formatting helpers used
// across video2audio.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so batch code tags every line with the
// batch ID and request correlation ID. The console handler lifts component,
// batch, and file into a readable prefix. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
