package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempPrefix marks in-progress files. Names starting with it are hidden from listings.
const TempPrefix = ".v2a-"

// WriteAtomic streams r into dir/name through a hidden temporary file in the
// same directory and renames it into place, so readers never observe a partial
// file. An existing file with the same name is replaced.
func WriteAtomic(dir, name string, r io.Reader, mode os.FileMode) (int64, error) {
	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		cleanup()
		return 0, fmt.Errorf("rename %s: %w", name, err)
	}
	return written, nil
}

// TempPath returns a hidden sibling path for staging dst before a rename.
// The extension of dst is kept so tools that infer format from it still work.
func TempPath(dst string) string {
	dir, base := filepath.Split(dst)
	return filepath.Join(dir, TempPrefix+base)
}

// IsRegular reports whether path exists and is a regular file.
func IsRegular(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// RemoveIfExists deletes path and treats a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
