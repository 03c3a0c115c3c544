//go:build unix

package staging

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"univsrg/internal/errs"
)

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding dir.
func FreeSpace(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "staging", "statfs", dir, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// CheckFreeSpace fails with errs.ErrIO when dir's filesystem has fewer than
// need bytes available.
func CheckFreeSpace(dir string, need uint64) error {
	free, err := FreeSpace(dir)
	if err != nil {
		return err
	}
	if free < need {
		return errs.Wrap(errs.ErrIO, "staging", "free space",
			fmt.Sprintf("%s needs %s, %s available", dir, humanize.IBytes(need), humanize.IBytes(free)), nil)
	}
	return nil
}
