//go:build windows

package transfer

import (
	"os"

	"golang.org/x/sys/windows"
)

const maxUint32 = ^uint32(0)

// TryExclusiveLock takes a non-blocking exclusive lock over the whole file.
func TryExclusiveLock(file *os.File) bool {
	if file == nil {
		return false
	}
	h := windows.Handle(file.Fd())
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, maxUint32, maxUint32, ol)
	return err == nil
}

func UnlockFile(file *os.File) error {
	if file == nil {
		return nil
	}
	h := windows.Handle(file.Fd())
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(h, 0, maxUint32, maxUint32, ol)
}
