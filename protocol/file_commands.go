package protocol

import (
	"errors"
	"fmt"
	"path/filepath"

	"binxfer/index"
	"binxfer/metrics"
	"binxfer/transfer"

	"go.uber.org/zap"
)

// File Transfer Commands

// HandleList rebuilds the index and lists every file with its size.
func (h *CommandHandler) HandleList() {
	snap, err := h.session.Index().Rebuild()
	if err != nil {
		h.session.Logger().Error("failed to list files", zap.Error(err))
		h.session.SendResponse(MsgListFailed)
		return
	}

	files := snap.Files()
	lines := make([]string, 0, len(files)+2)
	lines = append(lines, fmt.Sprintf(MsgListHeader, len(files)), "")
	for _, fd := range files {
		lines = append(lines, fmt.Sprintf(MsgListEntry, fd.Name, transfer.FormatSize(fd.Size)))
	}
	h.session.SendResponse(lines...)
}

// HandleGet streams a shared file: header, payload, end marker, then the
// end-of-response line.
func (h *CommandHandler) HandleGet(name string) {
	h.withValidParam(name, MsgMissingFilename, func() {
		h.withExistingFile(name, func(fd index.FileDescriptor) {
			logger := h.session.Logger().With(zap.String("file", fd.Name))
			logger.Info("sending file", zap.Int64("size", fd.Size))

			header := Header{Name: fd.Name, Digest: fd.Digest, Size: fd.Size}
			if err := h.session.SendPayload(header, fd); err != nil {
				// The peer can no longer tell where the payload ends.
				logger.Error("download failed", zap.Error(err))
				metrics.RecordTransfer(metrics.DirectionDownload, metrics.ResultFailed, 0)
				h.session.Close()
				return
			}

			metrics.RecordTransfer(metrics.DirectionDownload, metrics.ResultSaved, fd.Size)
			h.session.SendResponse()
		})
	})
}

// HandlePut prepares to receive an uploaded file. A header without name or
// digest is answered at once and the session stays in text mode. Names that
// are unsafe, or targets locked by another upload, are still read off the
// wire so framing stays intact, and refused once the payload ends.
func (h *CommandHandler) HandlePut(args []string) {
	header, err := ParseHeader(args)
	if err != nil {
		h.session.SendResponse(MsgMissingPutArgs)
		return
	}

	if !transfer.IsDigest(header.Digest) {
		h.session.Logger().Warn("announced digest is malformed, upload will fail validation",
			zap.String("file", header.Name),
			zap.String("digest", header.Digest),
		)
	}

	tc := &TransferContext{
		Filename:       header.Name,
		ExpectedDigest: header.Digest,
		Size:           header.Size,
	}

	if err := ValidateFilename(header.Name); err != nil {
		tc.Rejected = err
	} else {
		path := filepath.Join(h.session.RootDir(), header.Name)
		sink, err := transfer.CreateSink(path)
		if err != nil {
			tc.Rejected = err
		} else {
			tc.Sink = sink
			tc.Path = path
		}
	}
	if tc.Rejected != nil {
		tc.Sink = transfer.DiscardSink()
	}

	h.session.Logger().Info("receiving file",
		zap.String("file", header.Name),
		zap.Int64("size", header.Size),
		zap.NamedError("rejected", tc.Rejected),
	)

	if err := h.session.BeginUpload(tc); err != nil {
		h.session.Logger().Error("failed to start upload", zap.Error(err))
		tc.Sink.Close()
		h.session.SendResponse(MsgUploadFailed)
	}
}

// HandlePayload finishes an upload once the payload has been consumed.
func (h *CommandHandler) HandlePayload(tc *TransferContext) {
	logger := h.session.Logger().With(zap.String("file", tc.Filename), zap.Int64("bytes", tc.Transferred))

	if tc.Rejected != nil {
		logger.Warn("upload refused", zap.Error(tc.Rejected))
		metrics.RecordTransfer(metrics.DirectionUpload, metrics.ResultRejected, tc.Transferred)
		switch {
		case errors.Is(tc.Rejected, ErrInvalidFilename), errors.Is(tc.Rejected, transfer.ErrNotRegular):
			h.session.SendResponse(fmt.Sprintf(MsgInvalidFilename, tc.Filename))
		case errors.Is(tc.Rejected, transfer.ErrFileBusy):
			h.session.SendResponse(fmt.Sprintf(MsgFileBusy, tc.Filename))
		default:
			h.session.SendResponse(MsgUploadFailed)
		}
		return
	}

	if tc.Err != nil {
		logger.Error("upload could not be written", zap.Error(tc.Err))
		if err := tc.Discard(); err != nil {
			logger.Warn("failed to remove partial upload", zap.Error(err))
		}
		metrics.RecordTransfer(metrics.DirectionUpload, metrics.ResultFailed, tc.Transferred)
		h.session.SendResponse(MsgUploadFailed)
		return
	}

	ok, err := transfer.Validate(tc.Path, tc.ExpectedDigest, h.session.ChunkSize())
	if err != nil {
		logger.Error("failed to validate upload", zap.Error(err))
		metrics.RecordTransfer(metrics.DirectionUpload, metrics.ResultFailed, tc.Transferred)
		h.session.SendResponse(MsgUploadFailed)
		return
	}
	h.session.Index().MarkStale()

	if !ok {
		logger.Warn("upload digest mismatch, file deleted")
		metrics.RecordTransfer(metrics.DirectionUpload, metrics.ResultCorrupt, tc.Transferred)
		h.session.SendResponse(MsgUploadCorrupt)
		return
	}

	logger.Info("upload saved")
	metrics.RecordTransfer(metrics.DirectionUpload, metrics.ResultSaved, tc.Transferred)
	h.session.SendResponse(MsgUploadSaved)
}
