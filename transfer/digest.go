package transfer

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// DigestLength is the length of a hex encoded digest.
const DigestLength = md5.Size * 2

// Digest folds the hash over r in chunks of chunkSize bytes. The result does
// not depend on the chunk size.
func Digest(r io.Reader, chunkSize int) (string, error) {
	h := md5.New()
	buf := make([]byte, normalizeChunkSize(chunkSize))
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read digest input: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile computes the digest of the file at path, reading it through Chunks.
func DigestFile(path string, chunkSize int) (string, error) {
	h := md5.New()
	for chunk, err := range Chunks(path, chunkSize) {
		if err != nil {
			return "", err
		}
		h.Write(chunk)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsDigest reports whether s is a well formed lowercase hex digest.
func IsDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
