package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrFileBusy is returned when another transfer holds the target file.
	ErrFileBusy = errors.New("file is busy")
	// ErrNotRegular is returned when the target exists but is not a regular
	// file, for instance a symlink or a directory.
	ErrNotRegular = errors.New("not a regular file")
)

// Sink is a locked, truncated destination file for an inbound payload.
type Sink struct {
	file *os.File
	path string

	once     sync.Once
	closeErr error
}

// CreateSink opens path for writing and takes an exclusive lock on it before
// truncating, so a file already being written by another session is left intact.
// Symlinks are never followed.
func CreateSink(path string) (*Sink, error) {
	info, err := os.Lstat(path)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// The entry may have been swapped between the check and the open.
	if err := sameRegularFile(file, path); err != nil {
		file.Close()
		return nil, err
	}

	if !TryExclusiveLock(file) {
		file.Close()
		return nil, ErrFileBusy
	}

	if err := file.Truncate(0); err != nil {
		var result *multierror.Error
		result = multierror.Append(result, fmt.Errorf("failed to truncate %s: %w", path, err))
		if err := UnlockFile(file); err != nil {
			result = multierror.Append(result, err)
		}
		if err := file.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		return nil, result.ErrorOrNil()
	}

	return &Sink{file: file, path: path}, nil
}

func sameRegularFile(file *os.File, path string) error {
	opened, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	entry, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !entry.Mode().IsRegular() || !os.SameFile(opened, entry) {
		return fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return nil
}

func (s *Sink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Close releases the lock and closes the file. Only the first call has effect.
func (s *Sink) Close() error {
	s.once.Do(func() {
		var result *multierror.Error
		if err := s.file.Sync(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := UnlockFile(s.file); err != nil {
			result = multierror.Append(result, err)
		}
		if err := s.file.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		s.closeErr = result.ErrorOrNil()
	})
	return s.closeErr
}

// Discard closes the sink and removes the partially written file.
func (s *Sink) Discard() error {
	var result *multierror.Error
	if err := s.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (discardSink) Close() error                { return nil }

// DiscardSink returns a sink that drops everything written to it. It is used
// to consume a payload that will not be stored.
func DiscardSink() io.WriteCloser {
	return discardSink{}
}
