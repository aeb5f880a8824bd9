//go:build !windows

package transfer

import (
	"os"

	"golang.org/x/sys/unix"
)

// TryExclusiveLock takes a non-blocking exclusive advisory lock on file.
func TryExclusiveLock(file *os.File) bool {
	if file == nil {
		return false
	}
	return unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB) == nil
}

func UnlockFile(file *os.File) error {
	if file == nil {
		return nil
	}
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
