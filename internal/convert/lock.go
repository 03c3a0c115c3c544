package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"univsrg/internal/errs"
)

const lockDirName = "locks"

// lockPath returns the lock file guarding output. The name is derived from
// the absolute output path so every process agrees on it.
func lockPath(stagingDir, output string) string {
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+output)).String() + ".lock"
	return filepath.Join(stagingDir, lockDirName, name)
}

// acquireOutputLock takes the exclusive lock for output without waiting.
func acquireOutputLock(stagingDir, output string) (*flock.Flock, error) {
	path := lockPath(stagingDir, output)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrIO, "convert", "lock", "create lock directory", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "convert", "lock", path, err)
	}
	if !ok {
		return nil, errs.Wrap(errs.ErrLocked, "convert", "lock", fmt.Sprintf("another conversion is writing %s", output), nil)
	}
	return lock, nil
}
