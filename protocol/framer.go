package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"binxfer/transfer"

	"github.com/hashicorp/go-multierror"
)

// Mode is the framing state of a session.
type Mode int

const (
	// ModeText frames the byte stream as newline terminated lines.
	ModeText Mode = iota
	// ModePayload passes raw bytes to the pending transfer until the end marker.
	ModePayload

	modeCount
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "TEXT"
	case ModePayload:
		return "PAYLOAD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Direction tells whether a payload is being received or sent.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// MaxLineLength bounds a single text line.
const MaxLineLength = 64 * 1024

var (
	ErrModeViolation = errors.New("operation not allowed in current mode")
	ErrMissingMarker = errors.New("payload not followed by end marker")
	ErrLineTooLong   = errors.New("line exceeds maximum length")
	ErrShortPayload  = errors.New("payload shorter than announced size")
)

// TransferContext is the state of the one transfer a session may have in flight.
type TransferContext struct {
	Filename       string
	ExpectedDigest string
	Size           int64 // -1 when unknown; the end marker alone terminates the payload
	Path           string
	Direction      Direction

	// Sink receives inbound bytes. It is closed exactly once when the payload ends.
	Sink io.WriteCloser
	// Progress, when set, is fed every payload chunk in either direction.
	Progress io.Writer
	// Rejected is set when the payload is drained instead of stored.
	Rejected error
	// Err records a sink failure seen while the payload was consumed.
	Err error

	Transferred int64
	sinkClosed  bool
}

func (tc *TransferContext) closeSink() error {
	if tc.sinkClosed || tc.Sink == nil {
		return nil
	}
	tc.sinkClosed = true
	return tc.Sink.Close()
}

// Discard closes the sink and removes the file it was writing. A rejected
// transfer only has its sink closed.
func (tc *TransferContext) Discard() error {
	if tc.Rejected != nil || tc.Path == "" {
		return tc.closeSink()
	}
	if sink, ok := tc.Sink.(*transfer.Sink); ok {
		tc.sinkClosed = true
		return sink.Discard()
	}

	var result *multierror.Error
	if err := tc.closeSink(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := os.Remove(tc.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (tc *TransferContext) write(p []byte) {
	tc.Transferred += int64(len(p))
	if tc.Progress != nil {
		tc.Progress.Write(p)
	}
	if tc.Err != nil {
		return
	}
	if _, err := tc.Sink.Write(p); err != nil {
		// Keep consuming so the stream stays framed; the file fails validation.
		tc.Err = err
	}
}

// FrameKind distinguishes the events produced by Framer.Next.
type FrameKind int

const (
	FrameLine FrameKind = iota
	FramePayload
)

// Frame is one event read off the connection: a text line, or a completed
// inbound payload.
type Frame struct {
	Kind     FrameKind
	Line     string
	Transfer *TransferContext
}

type stateFunc func(*Framer) (Frame, error)

// Framer owns the byte stream of a session and interprets it according to
// the current Mode. Each mode has its own consume routine; switching modes
// only swaps which routine reads the next bytes.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	r         *bufio.Reader
	w         *bufio.Writer
	chunkSize int

	mode    Mode
	pending *TransferContext
	states  [modeCount]stateFunc

	// heldCR is set when a delivery ended in '\r' that was not yet passed on.
	heldCR bool
}

// NewFramer wraps rw. chunkSize bounds both payload reads and writes.
func NewFramer(rw io.ReadWriter, chunkSize int) *Framer {
	if chunkSize <= 0 {
		chunkSize = transfer.DefaultChunkSize
	}
	f := &Framer{
		r:         bufio.NewReaderSize(rw, chunkSize),
		w:         bufio.NewWriterSize(rw, chunkSize),
		chunkSize: chunkSize,
		mode:      ModeText,
	}
	f.states[ModeText] = (*Framer).readLine
	f.states[ModePayload] = (*Framer).readPayload
	return f
}

// Mode returns the current framing mode.
func (f *Framer) Mode() Mode {
	return f.mode
}

// Pending returns the transfer in flight, which is non-nil exactly when the
// mode is ModePayload.
func (f *Framer) Pending() *TransferContext {
	return f.pending
}

// Next reads the next frame. In text mode that is one line without its
// terminator. In payload mode the whole payload is consumed into the pending
// sink and a FramePayload is returned after switching back to text mode.
func (f *Framer) Next() (Frame, error) {
	return f.states[f.mode](f)
}

func (f *Framer) enterPayload(tc *TransferContext) {
	f.pending = tc
	f.mode = ModePayload
	f.heldCR = false
}

func (f *Framer) enterText() {
	f.pending = nil
	f.mode = ModeText
	f.heldCR = false
}

func (f *Framer) readLine() (Frame, error) {
	var line []byte
	for {
		part, err := f.r.ReadSlice('\n')
		line = append(line, part...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > MaxLineLength {
				return Frame{}, ErrLineTooLong
			}
			continue
		}
		return Frame{}, err
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return Frame{Kind: FrameLine, Line: string(line)}, nil
}

func (f *Framer) readPayload() (Frame, error) {
	tc := f.pending

	var err error
	if tc.Size >= 0 {
		err = f.readSized(tc)
	} else {
		err = f.readUntilMarker(tc)
	}
	if err != nil {
		return Frame{}, err
	}

	if cerr := tc.closeSink(); cerr != nil && tc.Err == nil {
		tc.Err = cerr
	}
	f.enterText()
	return Frame{Kind: FramePayload, Transfer: tc}, nil
}

// readSized consumes exactly tc.Size bytes followed by the end marker.
func (f *Framer) readSized(tc *TransferContext) error {
	buf := make([]byte, f.chunkSize)
	for remaining := tc.Size - tc.Transferred; remaining > 0; remaining = tc.Size - tc.Transferred {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := f.r.Read(buf[:n])
		if read > 0 {
			tc.write(buf[:read])
		}
		if err != nil {
			return fmt.Errorf("payload interrupted after %d of %d bytes: %w", tc.Transferred, tc.Size, err)
		}
	}

	var marker [len(EndOfPayload)]byte
	if _, err := io.ReadFull(f.r, marker[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingMarker, err)
	}
	if string(marker[:]) != EndOfPayload {
		return ErrMissingMarker
	}
	return nil
}

// readUntilMarker handles peers that do not announce a size. The payload ends
// when a delivery ends with the marker. A trailing '\r' is held back between
// deliveries so a marker split across two reads is still recognised.
func (f *Framer) readUntilMarker(tc *TransferContext) error {
	buf := make([]byte, f.chunkSize)
	for {
		read, err := f.r.Read(buf)
		if read > 0 {
			data := buf[:read]
			if f.heldCR {
				f.heldCR = false
				if read == 1 && data[0] == '\n' {
					return nil
				}
				tc.write([]byte{'\r'})
			}

			switch {
			case bytes.HasSuffix(data, []byte(EndOfPayload)):
				tc.write(data[:len(data)-len(EndOfPayload)])
				return nil
			case data[len(data)-1] == '\r':
				tc.write(data[:len(data)-1])
				f.heldCR = true
			default:
				tc.write(data)
			}
		}
		if err != nil {
			return fmt.Errorf("payload interrupted after %d bytes: %w", tc.Transferred, err)
		}
	}
}

// BeginInbound switches to payload mode so the following bytes are written
// to tc.Sink.
func (f *Framer) BeginInbound(tc *TransferContext) error {
	if f.mode != ModeText {
		return ErrModeViolation
	}
	if tc == nil || tc.Sink == nil {
		return errors.New("inbound transfer needs a sink")
	}
	tc.Direction = Inbound
	f.enterPayload(tc)
	return nil
}

// WriteLine writes one line and flushes. Lines cannot be written while a
// payload is in flight.
func (f *Framer) WriteLine(line string) error {
	return f.WriteLines(line)
}

// WriteLines writes several lines and flushes once.
func (f *Framer) WriteLines(lines ...string) error {
	if f.mode != ModeText {
		return ErrModeViolation
	}
	for _, line := range lines {
		if _, err := f.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return f.w.Flush()
}

// SendPayload writes header, then the file at tc.Path in chunks, then the end
// marker. The session is in payload mode for the duration.
func (f *Framer) SendPayload(header string, tc *TransferContext) error {
	if f.mode != ModeText {
		return ErrModeViolation
	}
	if _, err := f.w.WriteString(header + "\n"); err != nil {
		return err
	}

	tc.Direction = Outbound
	f.enterPayload(tc)

	var dst io.Writer = f.w
	if tc.Progress != nil {
		dst = io.MultiWriter(f.w, tc.Progress)
	}
	n, err := transfer.StreamChunks(dst, tc.Path, f.chunkSize)
	tc.Transferred = n
	if err != nil {
		f.enterText()
		return fmt.Errorf("failed to stream %s: %w", tc.Filename, err)
	}
	if tc.Size >= 0 && n != tc.Size {
		f.enterText()
		return fmt.Errorf("%w: sent %d of %d bytes of %s", ErrShortPayload, n, tc.Size, tc.Filename)
	}

	if _, err := f.w.WriteString(EndOfPayload); err != nil {
		f.enterText()
		return err
	}
	f.enterText()
	return f.w.Flush()
}

// Abort drops the transfer in flight, if any, and returns to text mode. An
// inbound file that was being written is removed.
func (f *Framer) Abort() error {
	tc := f.pending
	f.enterText()
	if tc == nil || tc.Direction != Inbound {
		return nil
	}
	return tc.Discard()
}
