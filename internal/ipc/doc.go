// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Every
// conversion operation the HTTP API offers is available here too, plus Status,
// LogTail, and Shutdown. Uploads travel as local paths that the daemon reads
// directly, so the socket is only useful on the daemon's host.
package ipc
