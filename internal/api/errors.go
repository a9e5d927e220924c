package api

import (
	"errors"
	"io/fs"
	"net/http"

	"video2audio/internal/transcode"
)

// HTTPStatus maps a service error onto the status code front ends report.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, transcode.ErrBatchNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	}
	switch transcode.ErrorKind(err) {
	case "validation", "invalid_name":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the wire form of err.
func NewErrorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{Error: err.Error(), Kind: transcode.ErrorKind(err)}
}
