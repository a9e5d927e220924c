package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"video2audio/internal/fileutil"
)

// Area identifies one of the two managed directories.
type Area string

const (
	Incoming Area = "incoming"
	Outgoing Area = "outgoing"
)

// ErrInvalidName is matched by every name rejected by Validate or CheckName.
var ErrInvalidName = errors.New("invalid file name")

// NameError describes why a name was rejected.
type NameError struct {
	Name   string
	Area   Area
	Reason string
}

func (e *NameError) Error() string {
	if e.Area == "" {
		return fmt.Sprintf("%s %q: %s", ErrInvalidName, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s %q in %s: %s", ErrInvalidName, e.Name, e.Area, e.Reason)
}

func (e *NameError) Is(target error) bool { return target == ErrInvalidName }

// ErrorKind classifies the error for front-end status mapping.
func (e *NameError) ErrorKind() string { return "invalid_name" }

// Registry enumerates and guards the incoming and outgoing areas. The
// directories themselves are the only record of state; nothing is cached.
type Registry struct {
	dirs  map[Area]string
	locks *keyedLocks
}

// New prepares both area directories and returns a registry over them.
func New(incomingDir, outgoingDir string) (*Registry, error) {
	reg, err := Open(incomingDir, outgoingDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range reg.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("registry: create %s: %w", dir, err)
		}
	}
	return reg, nil
}

// Open returns a registry over the two areas without touching the
// filesystem. Listing a missing area yields no names.
func Open(incomingDir, outgoingDir string) (*Registry, error) {
	incomingDir = strings.TrimSpace(incomingDir)
	outgoingDir = strings.TrimSpace(outgoingDir)
	if incomingDir == "" || outgoingDir == "" {
		return nil, errors.New("registry: incoming and outgoing directories are required")
	}
	if filepath.Clean(incomingDir) == filepath.Clean(outgoingDir) {
		return nil, errors.New("registry: incoming and outgoing directories must differ")
	}
	return &Registry{
		dirs:  map[Area]string{Incoming: incomingDir, Outgoing: outgoingDir},
		locks: newKeyedLocks(),
	}, nil
}

// Dir returns the directory backing area.
func (r *Registry) Dir(area Area) string {
	return r.dirs[area]
}

// Path joins name onto the area directory without validating it.
func (r *Registry) Path(area Area, name string) string {
	return filepath.Join(r.dirs[area], name)
}

// ListIncoming returns the sorted names of uploaded files.
func (r *Registry) ListIncoming() ([]string, error) {
	return r.List(Incoming)
}

// ListOutgoing returns the sorted names of converted files.
func (r *Registry) ListOutgoing() ([]string, error) {
	return r.List(Outgoing)
}

// List reads area and returns the sorted names of visible regular files.
func (r *Registry) List(area Area) ([]string, error) {
	dir, ok := r.dirs[area]
	if !ok {
		return nil, fmt.Errorf("registry: unknown area %q", area)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("registry: list %s: %w", area, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || hidden(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CheckName validates name syntax only: it must be a non-empty, non-hidden
// base name without path separators.
func CheckName(name string) error {
	switch {
	case name == "":
		return &NameError{Name: name, Reason: "empty"}
	case strings.ContainsAny(name, `/\`):
		return &NameError{Name: name, Reason: "contains a path separator"}
	case name == "." || name == "..":
		return &NameError{Name: name, Reason: "refers to a directory"}
	case hidden(name):
		return &NameError{Name: name, Reason: "hidden files are not managed"}
	case strings.ContainsRune(name, 0):
		return &NameError{Name: name, Reason: "contains a NUL byte"}
	}
	return nil
}

// Validate checks that name is a direct child regular file of area and
// returns its path.
func (r *Registry) Validate(name string, area Area) (string, error) {
	if err := CheckName(name); err != nil {
		var nameErr *NameError
		if errors.As(err, &nameErr) {
			nameErr.Area = area
		}
		return "", err
	}
	dir, ok := r.dirs[area]
	if !ok {
		return "", &NameError{Name: name, Area: area, Reason: "unknown area"}
	}
	path := filepath.Join(dir, name)
	if filepath.Dir(path) != filepath.Clean(dir) {
		return "", &NameError{Name: name, Area: area, Reason: "escapes the area directory"}
	}
	info, err := os.Lstat(path)
	if err != nil {
		return "", &NameError{Name: name, Area: area, Reason: "no such file"}
	}
	if !info.Mode().IsRegular() {
		return "", &NameError{Name: name, Area: area, Reason: "not a regular file"}
	}
	return path, nil
}

// Lock serializes work on one (area, name) pair and returns the release func.
func (r *Registry) Lock(area Area, name string) func() {
	return r.locks.lock(string(area) + "/" + name)
}

// SaveIncoming stores an upload under name, replacing any existing file.
// name must already be a sanitized base name.
func (r *Registry) SaveIncoming(name string, src io.Reader) (int64, error) {
	if err := CheckName(name); err != nil {
		return 0, err
	}
	unlock := r.Lock(Incoming, name)
	defer unlock()
	written, err := fileutil.WriteAtomic(r.dirs[Incoming], name, src, 0o644)
	if err != nil {
		return 0, fmt.Errorf("registry: save %s: %w", name, err)
	}
	return written, nil
}

// Remove deletes name from area after a syntax check. A file that is already
// gone returns an error wrapping os.ErrNotExist.
func (r *Registry) Remove(area Area, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if err := os.Remove(r.Path(area, name)); err != nil {
		return fmt.Errorf("registry: remove %s: %w", name, err)
	}
	return nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
