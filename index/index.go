// Package index keeps a point-in-time snapshot of the files a server shares.
//
// A snapshot is never mutated once published: Rebuild reads the directory,
// builds a new snapshot and swaps it in. Between rebuilds the snapshot may
// disagree with the filesystem.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"binxfer/metrics"
	"binxfer/transfer"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FileDescriptor describes one shared file.
type FileDescriptor struct {
	Name    string
	Path    string
	Size    int64
	Digest  string
	ModTime time.Time
}

// Snapshot is an immutable view of the shared directory.
type Snapshot struct {
	files map[string]FileDescriptor
}

// Lookup returns the descriptor for name.
func (s *Snapshot) Lookup(name string) (FileDescriptor, bool) {
	fd, ok := s.files[name]
	return fd, ok
}

// Len returns the number of files in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// Files returns the descriptors sorted by name.
func (s *Snapshot) Files() []FileDescriptor {
	files := make([]FileDescriptor, 0, len(s.files))
	for _, fd := range s.files {
		files = append(files, fd)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// Index owns the current snapshot of a directory.
type Index struct {
	root      string
	chunkSize int
	logger    *zap.Logger

	snapshot atomic.Pointer[Snapshot]
	stale    atomic.Bool
	group    singleflight.Group

	// digests is only read and replaced inside rebuild, which singleflight
	// keeps to one caller at a time.
	digests map[cacheKey]string
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for skipped entries and rebuild timings.
func WithLogger(logger *zap.Logger) Option {
	return func(ix *Index) {
		ix.logger = logger
	}
}

// WithChunkSize sets the read size used when digesting files.
func WithChunkSize(size int) Option {
	return func(ix *Index) {
		ix.chunkSize = size
	}
}

// New creates an index over root. Nothing is read until the first Rebuild or Lookup.
func New(root string, opts ...Option) *Index {
	ix := &Index{
		root:      root,
		chunkSize: transfer.DefaultChunkSize,
		logger:    zap.NewNop(),
		digests:   make(map[cacheKey]string),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Root returns the indexed directory.
func (ix *Index) Root() string {
	return ix.root
}

// Rebuild reads the directory and publishes a fresh snapshot. Concurrent
// callers share a single directory scan.
func (ix *Index) Rebuild() (*Snapshot, error) {
	v, err, _ := ix.group.Do("rebuild", func() (interface{}, error) {
		return ix.rebuild()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (ix *Index) rebuild() (*Snapshot, error) {
	start := time.Now()
	ix.stale.Store(false)

	entries, err := os.ReadDir(ix.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", ix.root, err)
	}

	files := make(map[string]FileDescriptor, len(entries))
	digests := make(map[cacheKey]string, len(entries))

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(ix.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			ix.logger.Debug("skipping entry", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}

		key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
		digest, ok := ix.digests[key]
		if !ok {
			digest, err = transfer.DigestFile(path, ix.chunkSize)
			if err != nil {
				ix.logger.Warn("skipping unreadable file", zap.String("name", entry.Name()), zap.Error(err))
				continue
			}
		}
		digests[key] = digest

		files[entry.Name()] = FileDescriptor{
			Name:    entry.Name(),
			Path:    path,
			Size:    info.Size(),
			Digest:  digest,
			ModTime: info.ModTime(),
		}
	}

	snap := &Snapshot{files: files}
	ix.digests = digests
	ix.snapshot.Store(snap)

	elapsed := time.Since(start)
	metrics.RecordIndexRebuild(elapsed, len(files))
	ix.logger.Debug("index rebuilt", zap.Int("files", len(files)), zap.Duration("took", elapsed))

	return snap, nil
}

// Current returns the published snapshot, or nil if none has been built.
func (ix *Index) Current() *Snapshot {
	return ix.snapshot.Load()
}

// MarkStale forces the next Lookup to rebuild.
func (ix *Index) MarkStale() {
	ix.stale.Store(true)
}

// Lookup finds name in the current snapshot, building one first if the
// index was never built or has been marked stale.
func (ix *Index) Lookup(name string) (FileDescriptor, bool, error) {
	snap := ix.snapshot.Load()
	if snap == nil || ix.stale.Load() {
		var err error
		snap, err = ix.Rebuild()
		if err != nil {
			return FileDescriptor{}, false, err
		}
	}

	fd, ok := snap.Lookup(name)
	return fd, ok, nil
}

// Fresh reports whether fd still matches the file on disk by size and
// modification time.
func (ix *Index) Fresh(fd FileDescriptor) bool {
	info, err := os.Lstat(fd.Path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Size() == fd.Size && info.ModTime().Equal(fd.ModTime)
}
