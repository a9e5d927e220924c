// Package logstream prints the daemon log for the CLI by polling the IPC
// LogTail call, optionally following new lines and filtering them locally.
package logstream
