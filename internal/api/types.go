package api

import (
	"video2audio/internal/settings"
	"video2audio/internal/transcode"
)

// FilesRequest names files for process and clear operations.
type FilesRequest struct {
	Files []string `json:"files"`
}

// FilesResponse wraps a directory listing.
type FilesResponse struct {
	Files []string `json:"files"`
}

// DeletedResponse lists names removed by a clear operation.
type DeletedResponse struct {
	Deleted []string `json:"deleted"`
}

// UploadResponse lists the names uploads were stored under.
type UploadResponse struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped,omitempty"`
}

// SettingsResponse wraps the current encoding settings.
type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
}

// BatchResponse wraps a background batch view.
type BatchResponse struct {
	Batch transcode.Batch `json:"batch"`
}

// BatchListResponse wraps the remembered batches.
type BatchListResponse struct {
	Batches []transcode.Batch `json:"batches"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	LockFilePath  string             `json:"lockFilePath"`
	SocketPath    string             `json:"socketPath"`
	LogPath       string             `json:"logPath,omitempty"`
	APIAddress    string             `json:"apiAddress,omitempty"`
	IncomingDir   string             `json:"incomingDir"`
	OutgoingDir   string             `json:"outgoingDir"`
	IncomingCount int                `json:"incomingCount"`
	OutgoingCount int                `json:"outgoingCount"`
	ActiveBatches int                `json:"activeBatches"`
	Watching      bool               `json:"watching"`
	Settings      settings.Settings  `json:"settings"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}
