package protocol

import (
	"binxfer/index"

	"go.uber.org/zap"
)

// FileIndex is the view of the shared directory the handlers need.
type FileIndex interface {
	Rebuild() (*index.Snapshot, error)
	Lookup(name string) (index.FileDescriptor, bool, error)
	Fresh(fd index.FileDescriptor) bool
	MarkStale()
}

type SessionInterface interface {
	// Core session operations
	SendResponse(lines ...string)
	Logger() *zap.Logger
	Close()

	// Server context
	Index() FileIndex
	RootDir() string
	ChunkSize() int

	// Payload transfers
	SendPayload(header Header, fd index.FileDescriptor) error
	BeginUpload(tc *TransferContext) error
}
