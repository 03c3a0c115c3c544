package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"univsrg/internal/errs"
)

// DirPrefix marks directories created by NewScratch.
const DirPrefix = "univsrg-"

// Scratch is a private working directory removed when the operation ends.
type Scratch struct {
	path    string
	removed bool
}

// NewScratch creates a new, empty, uniquely named directory under root.
// purpose labels the directory ("extract", "compile") for easier debugging.
func NewScratch(root, purpose string) (*Scratch, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errs.Wrap(errs.ErrConfiguration, "staging", "new scratch", "staging directory not set", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrIO, "staging", "new scratch", root, err)
	}
	pattern := DirPrefix
	if purpose = strings.TrimSpace(purpose); purpose != "" {
		pattern += purpose + "-"
	}
	dir, err := os.MkdirTemp(root, pattern+"*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "staging", "new scratch", root, err)
	}
	return &Scratch{path: dir}, nil
}

// Path returns the scratch directory.
func (s *Scratch) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Remove deletes the directory and everything in it. Calling it again, or on
// a nil Scratch, is a no-op.
func (s *Scratch) Remove() error {
	if s == nil || s.removed {
		return nil
	}
	if err := os.RemoveAll(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove scratch %s: %w", s.path, err)
	}
	s.removed = true
	return nil
}
