package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Validate recomputes the digest of the file at path, reading chunkSize bytes
// at a time, and compares it with expected. A file that does not match is
// removed from disk.
func Validate(path, expected string, chunkSize int) (bool, error) {
	actual, err := DigestFile(path, chunkSize)
	if err != nil {
		return false, err
	}
	if actual == expected {
		return true, nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to remove corrupt file %s: %w", path, err)
	}
	return false, nil
}
