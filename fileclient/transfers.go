package fileclient

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"binxfer/perfmetrics"
	"binxfer/protocol"
	"binxfer/transfer"

	"go.uber.org/zap"
)

// beginDownload switches the framer to payload mode for an announced file.
// Unsafe names and locked targets are drained and reported afterwards.
func (c *Client) beginDownload(line string) error {
	header, err := protocol.ParseHeader(strings.Fields(line)[1:])
	if err != nil {
		return fmt.Errorf("bad payload header %q: %w", line, err)
	}

	tc := &protocol.TransferContext{
		Filename:       header.Name,
		ExpectedDigest: header.Digest,
		Size:           header.Size,
	}

	if err := protocol.ValidateFilename(header.Name); err != nil {
		tc.Rejected = err
	} else {
		path := filepath.Join(c.opts.DownloadDir, header.Name)
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
	if c.opts.Progress != nil {
		tc.Progress = c.opts.Progress("Receiving", header.Name, header.Size)
	}

	c.started = time.Now()
	return c.framer.BeginInbound(tc)
}

func (c *Client) finishDownload(tc *protocol.TransferContext) Output {
	var out Output
	result := perfmetrics.ResultSaved

	switch {
	case tc.Rejected != nil:
		result = perfmetrics.ResultRejected
		out = failure("File %s was not saved: %v", tc.Filename, tc.Rejected)
	case tc.Err != nil:
		result = perfmetrics.ResultFailed
		if err := tc.Discard(); err != nil {
			c.logger.Warn("failed to remove partial download", zap.Error(err))
		}
		out = failure("File %s could not be written: %v", tc.Filename, tc.Err)
	default:
		ok, err := transfer.Validate(tc.Path, tc.ExpectedDigest, c.opts.ChunkSize)
		switch {
		case err != nil:
			result = perfmetrics.ResultFailed
			out = failure("File %s could not be validated: %v", tc.Filename, err)
		case ok:
			out = success(protocol.MsgDownloadSaved, tc.Filename)
		default:
			result = perfmetrics.ResultCorrupt
			out = failure(protocol.MsgDownloadCorrupt, tc.Filename)
		}
	}

	c.record(perfmetrics.Download, tc, result)
	return out
}

// upload announces and streams a local file, then reads the server's verdict.
func (c *Client) upload(localPath, remoteName string, size int64) ([]Output, error) {
	out := []Output{info("Uploading file: %s (%d KB)", remoteName, size/1024)}

	digest, err := transfer.DigestFile(localPath, c.opts.ChunkSize)
	if err != nil {
		return append(out, failure(protocol.MsgLocalFileNotFound)), nil
	}

	tc := &protocol.TransferContext{
		Filename:       remoteName,
		ExpectedDigest: digest,
		Size:           size,
		Path:           localPath,
	}
	if c.opts.Progress != nil {
		tc.Progress = c.opts.Progress("Sending", remoteName, size)
	}

	header := protocol.FormatUploadHeader(protocol.Header{Name: remoteName, Digest: digest, Size: size})
	c.started = time.Now()
	if err := c.framer.SendPayload(header, tc); err != nil {
		// Whatever reached the server cannot be framed any more.
		c.conn.Close()
		return out, c.connectionLost(err)
	}

	reply, err := c.readResponse()
	out = append(out, reply...)

	result := perfmetrics.ResultSaved
	if err != nil {
		result = perfmetrics.ResultFailed
	} else if len(reply) == 0 || reply[len(reply)-1].Text != protocol.MsgUploadSaved {
		result = perfmetrics.ResultCorrupt
	}
	c.record(perfmetrics.Upload, tc, result)
	return out, err
}

func (c *Client) record(direction string, tc *protocol.TransferContext, result string) {
	if c.opts.PerfLog == nil {
		return
	}
	entry := perfmetrics.Entry{
		Direction: direction,
		FileName:  tc.Filename,
		Bytes:     tc.Transferred,
		Duration:  time.Since(c.started),
		Result:    result,
	}
	if err := c.opts.PerfLog.Record(entry); err != nil {
		c.logger.Warn("failed to record transfer timing", zap.Error(err))
	}
}
