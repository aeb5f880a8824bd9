package transfer

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

// DefaultChunkSize is the read size used for payload streaming and digesting.
const DefaultChunkSize = 8100

func normalizeChunkSize(chunkSize int) int {
	if chunkSize <= 0 {
		return DefaultChunkSize
	}
	return chunkSize
}

// Chunks returns a lazy sequence over the bytes of the file at path in chunks
// of at most chunkSize bytes. The file is opened each time the sequence is
// ranged over and closed when iteration stops, so the same sequence can be
// consumed more than once. Each yielded slice is owned by the caller.
func Chunks(path string, chunkSize int) iter.Seq2[[]byte, error] {
	chunkSize = normalizeChunkSize(chunkSize)

	return func(yield func([]byte, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open %s: %w", path, err))
			return
		}
		defer file.Close()

		for {
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(file, buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s: %w", path, err))
				return
			}
		}
	}
}

// StreamChunks copies the file at path to w, issuing exactly one Write per chunk.
func StreamChunks(w io.Writer, path string, chunkSize int) (int64, error) {
	var written int64
	for chunk, err := range Chunks(path, chunkSize) {
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write chunk: %w", err)
		}
		if n != len(chunk) {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
