//go:build !unix

package staging

import "math"

// FreeSpace is not measured on this platform.
func FreeSpace(string) (uint64, error) {
	return math.MaxUint64, nil
}

// CheckFreeSpace always succeeds on this platform.
func CheckFreeSpace(string, uint64) error {
	return nil
}
