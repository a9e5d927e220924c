package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"video2audio/internal/logging"
	"video2audio/internal/registry"
)

// Result contains the outcome of a clear operation.
type Result struct {
	Deleted []string
	Errors  []Error
}

// Error pairs a file name with the reason it was not deleted.
type Error struct {
	Name string
	Err  error
}

func (e Error) Error() string {
	return fmt.Sprintf("remove %s: %v", e.Name, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// ErrorKind classifies the error for front-end status mapping.
func (e Error) ErrorKind() string { return "cleanup" }

// ClearOutgoing deletes every file currently listed in the outgoing area.
// Files that vanish or cannot be removed are left out of Deleted and recorded
// in Errors; the call itself never fails.
func ClearOutgoing(ctx context.Context, reg *registry.Registry, logger *slog.Logger) Result {
	logger = logging.NewComponentLogger(logger, "cleanup")
	names, err := reg.ListOutgoing()
	if err != nil {
		logging.WarnWithContext(logger, "list outgoing failed", "outgoing_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check outgoing_dir permissions"),
			logging.String(logging.FieldImpact, "no files were cleared"),
		)
		return Result{Errors: []Error{{Name: "", Err: err}}}
	}
	return remove(ctx, reg, registry.Outgoing, names, logger)
}

// ClearIncoming deletes the selected files from the incoming area. Invalid or
// missing names are silently omitted from Deleted.
func ClearIncoming(ctx context.Context, reg *registry.Registry, names []string, logger *slog.Logger) Result {
	logger = logging.NewComponentLogger(logger, "cleanup")
	return remove(ctx, reg, registry.Incoming, names, logger)
}

func remove(ctx context.Context, reg *registry.Registry, area registry.Area, names []string, logger *slog.Logger) Result {
	result := Result{Deleted: []string{}}
	seen := make(map[string]struct{}, len(names))
	logger = logging.WithContext(ctx, logger)

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, Error{Name: name, Err: ctx.Err()})
			continue
		}

		if err := removeOne(reg, area, name); err != nil {
			result.Errors = append(result.Errors, Error{Name: name, Err: err})
			if errors.Is(err, registry.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
				logger.Debug("skipped file during clear",
					logging.String(logging.FieldArea, string(area)),
					logging.String(logging.FieldFile, name),
					logging.Error(err),
				)
				continue
			}
			logging.WarnWithContext(logger, "failed to remove file", "file_remove_failed",
				logging.String(logging.FieldArea, string(area)),
				logging.String(logging.FieldFile, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "file remains listed"),
			)
			continue
		}

		result.Deleted = append(result.Deleted, name)
		logger.Info("removed file",
			logging.String(logging.FieldArea, string(area)),
			logging.String(logging.FieldFile, name),
			logging.String(logging.FieldEventType, "file_removed"),
		)
	}
	return result
}

func removeOne(reg *registry.Registry, area registry.Area, name string) error {
	unlock := reg.Lock(area, name)
	defer unlock()
	if _, err := reg.Validate(name, area); err != nil {
		return err
	}
	return reg.Remove(area, name)
}
