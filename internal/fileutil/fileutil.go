package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideBase is returned when a relative path escapes its base directory.
var ErrOutsideBase = errors.New("path escapes base directory")

// NormalizeRel converts a bundle-relative reference into a clean, slash
// separated path. Chart files authored on Windows use backslashes.
func NormalizeRel(rel string) string {
	rel = strings.TrimSpace(strings.ReplaceAll(rel, "\\", "/"))
	if rel == "" {
		return ""
	}
	cleaned := path.Clean(rel)
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "/")
}

// SafeJoin resolves rel beneath base and rejects results outside base.
func SafeJoin(base, rel string) (string, error) {
	normalized := NormalizeRel(rel)
	if normalized == "" {
		return "", fmt.Errorf("empty relative path %q", rel)
	}
	if normalized == ".." || strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("%w: %q", ErrOutsideBase, rel)
	}
	return filepath.Join(base, filepath.FromSlash(normalized)), nil
}

// ReadInside reads the file at rel relative to base.
func ReadInside(base, rel string) ([]byte, error) {
	target, err := SafeJoin(base, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(target)
}

// IsEmptyDir reports whether dir exists and has no entries.
func IsEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// WriteExclusive creates path and writes data, failing if path already exists.
func WriteExclusive(path string, data []byte, mode os.FileMode) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	return out.Close()
}
