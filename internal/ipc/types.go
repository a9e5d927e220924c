package ipc

import (
	"video2audio/internal/api"
	"video2audio/internal/settings"
	"video2audio/internal/transcode"
)

// DaemonStatus mirrors the HTTP status payload for IPC callers.
type DaemonStatus = api.DaemonStatus

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// Batch is the tracked view of a background conversion.
type Batch = transcode.Batch

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps daemon status information.
type StatusResponse struct {
	Status DaemonStatus `json:"status"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// ListRequest fetches a directory listing.
type ListRequest struct{}

// ListResponse contains sorted file names.
type ListResponse struct {
	Files []string `json:"files"`
}

// UploadRequest copies local files into the incoming area. Paths must be
// readable by the daemon process.
type UploadRequest struct {
	Paths []string `json:"paths"`
}

// UploadResponse reports the names files were stored under.
type UploadResponse struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped"`
}

// SettingsRequest fetches the current settings.
type SettingsRequest struct{}

// SettingsResponse carries encoding settings.
type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
}

// ApplySettingsRequest replaces the encoding settings.
type ApplySettingsRequest struct {
	Settings settings.Settings `json:"settings"`
}

// ProcessRequest converts the named incoming files. An empty list converts
// everything in the incoming area. Detach returns as soon as the batch is queued.
type ProcessRequest struct {
	Files  []string `json:"files"`
	Detach bool     `json:"detach"`
}

// BatchRequest fetches a batch, optionally waiting for it to finish.
type BatchRequest struct {
	ID   string `json:"id"`
	Wait bool   `json:"wait"`
}

// BatchResponse carries one batch view.
type BatchResponse struct {
	Batch Batch `json:"batch"`
}

// BatchListRequest fetches the remembered batches.
type BatchListRequest struct{}

// BatchListResponse lists batches newest first.
type BatchListResponse struct {
	Batches []Batch `json:"batches"`
}

// ClearRequest names the incoming files to delete. ClearOutgoing ignores it.
type ClearRequest struct {
	Files []string `json:"files"`
}

// ClearResponse lists the deleted names.
type ClearResponse struct {
	Deleted []string `json:"deleted"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
