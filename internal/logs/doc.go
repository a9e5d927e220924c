// Package logs tails the daemon log file for the CLI.
//
// Tail supports "last N lines" reads via a negative offset and resumable
// reads from a byte offset, with an optional bounded follow that polls for new
// lines. Memory stays bounded by the requested line count.
package logs
