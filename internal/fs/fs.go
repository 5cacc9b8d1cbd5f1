// Package fs holds the file-system helpers behind save/load: path
// sanitization and atomic writes.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPath is returned for empty or traversal-suspect paths.
var ErrPath = errors.New("invalid path")

// Sanitize normalizes a caller-supplied path: a leading "file://" scheme is
// stripped, and any path containing a ".." segment is rejected. Hosts hand
// the core paths inside their sandbox; traversal out of it is refused here
// rather than left to the platform.
func Sanitize(path string) (string, error) {
	path = strings.TrimPrefix(path, "file://")
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrPath)
	}
	for _, segment := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return "", fmt.Errorf("%w: traversal segment in %q", ErrPath, path)
		}
	}
	return path, nil
}

// WriteAtomic writes data to path via a temp file and rename, so readers
// never observe a partially written snapshot.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pocketvec-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
