package protocol

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binxfer/transfer"
)

type pipe struct {
	io.Reader
	io.Writer
}

// deliveries returns one element per Read call, like a socket handing over
// whatever arrived in a single segment.
type deliveries struct {
	parts [][]byte
}

func (d *deliveries) Read(p []byte) (int, error) {
	if len(d.parts) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.parts[0])
	if n < len(d.parts[0]) {
		d.parts[0] = d.parts[0][n:]
	} else {
		d.parts = d.parts[1:]
	}
	return n, nil
}

type memSink struct {
	bytes.Buffer
	closes int
}

func (m *memSink) Close() error {
	m.closes++
	return nil
}

func newTestFramer(in io.Reader) (*Framer, *bytes.Buffer) {
	var out bytes.Buffer
	return NewFramer(pipe{Reader: in, Writer: &out}, 16), &out
}

func TestFramerLines(t *testing.T) {
	f, _ := newTestFramer(strings.NewReader("list\nget a.txt\r\n\nhelp\n"))

	want := []string{"list", "get a.txt", "", "help"}
	for _, w := range want {
		frame, err := f.Next()
		if err != nil {
			t.Fatal(err)
		}
		if frame.Kind != FrameLine || frame.Line != w {
			t.Errorf("frame = %+v, want line %q", frame, w)
		}
	}
	if _, err := f.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("error at end = %v, want EOF", err)
	}
}

func TestFramerLongLineAcrossBuffer(t *testing.T) {
	long := strings.Repeat("x", 100)
	f, _ := newTestFramer(strings.NewReader(long + "\n"))
	frame, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Line != long {
		t.Errorf("line length = %d, want %d", len(frame.Line), len(long))
	}
}

func TestFramerLineTooLong(t *testing.T) {
	f, _ := newTestFramer(strings.NewReader(strings.Repeat("y", MaxLineLength+100) + "\n"))
	if _, err := f.Next(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("error = %v, want ErrLineTooLong", err)
	}
}

func TestFramerSizedPayload(t *testing.T) {
	payload := "a\r\nb\r\nc"
	f, _ := newTestFramer(strings.NewReader(payload + EndOfPayload + "list\n"))

	sink := &memSink{}
	tc := &TransferContext{Filename: "x", Size: int64(len(payload)), Sink: sink}
	if err := f.BeginInbound(tc); err != nil {
		t.Fatal(err)
	}
	if f.Mode() != ModePayload || f.Pending() != tc {
		t.Fatalf("after BeginInbound: mode %v pending %v", f.Mode(), f.Pending())
	}

	frame, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Kind != FramePayload || frame.Transfer != tc {
		t.Fatalf("frame = %+v", frame)
	}
	if sink.String() != payload {
		t.Errorf("sink = %q, want %q", sink.String(), payload)
	}
	if sink.closes != 1 {
		t.Errorf("sink closed %d times", sink.closes)
	}
	if f.Mode() != ModeText || f.Pending() != nil {
		t.Errorf("after payload: mode %v pending %v", f.Mode(), f.Pending())
	}

	frame, err = f.Next()
	if err != nil || frame.Line != "list" {
		t.Errorf("next frame = %+v, %v", frame, err)
	}
}

func TestFramerSizedPayloadMissingMarker(t *testing.T) {
	f, _ := newTestFramer(strings.NewReader("abcXY"))
	tc := &TransferContext{Size: 3, Sink: &memSink{}}
	if err := f.BeginInbound(tc); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Next(); !errors.Is(err, ErrMissingMarker) {
		t.Fatalf("error = %v, want ErrMissingMarker", err)
	}
}

func TestFramerMarkerPayload(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"single delivery", []string{"hello\r\n"}, "hello"},
		{"several deliveries", []string{"hel", "lo wor", "ld\r\n"}, "hello world"},
		{"marker split across deliveries", []string{"hello\r", "\n"}, "hello"},
		{"carriage return mid payload", []string{"ab\r", "cd\r\n"}, "ab\rcd"},
		{"crlf inside a delivery", []string{"one\r\ntwo", "\r\n"}, "one\r\ntwo"},
		{"empty payload", []string{"\r\n"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &deliveries{}
			for _, p := range tt.parts {
				d.parts = append(d.parts, []byte(p))
			}
			f, _ := newTestFramer(d)

			sink := &memSink{}
			tc := &TransferContext{Size: -1, Sink: sink}
			if err := f.BeginInbound(tc); err != nil {
				t.Fatal(err)
			}
			frame, err := f.Next()
			if err != nil {
				t.Fatal(err)
			}
			if frame.Kind != FramePayload {
				t.Fatalf("frame kind = %v", frame.Kind)
			}
			if sink.String() != tt.want {
				t.Errorf("payload = %q, want %q", sink.String(), tt.want)
			}
			if tc.Transferred != int64(len(tt.want)) {
				t.Errorf("transferred = %d, want %d", tc.Transferred, len(tt.want))
			}
		})
	}
}

func TestFramerModeViolations(t *testing.T) {
	f, _ := newTestFramer(strings.NewReader(""))
	tc := &TransferContext{Size: 10, Sink: &memSink{}}
	if err := f.BeginInbound(tc); err != nil {
		t.Fatal(err)
	}

	if err := f.WriteLine("hello"); !errors.Is(err, ErrModeViolation) {
		t.Errorf("WriteLine in payload mode = %v", err)
	}
	if err := f.BeginInbound(&TransferContext{Sink: &memSink{}}); !errors.Is(err, ErrModeViolation) {
		t.Errorf("second BeginInbound = %v", err)
	}
	if err := f.SendPayload("HASH x y", &TransferContext{}); !errors.Is(err, ErrModeViolation) {
		t.Errorf("SendPayload in payload mode = %v", err)
	}
	if f.Pending() != tc {
		t.Error("pending transfer replaced")
	}
}

func TestFramerBeginInboundNeedsSink(t *testing.T) {
	f, _ := newTestFramer(strings.NewReader(""))
	if err := f.BeginInbound(&TransferContext{}); err == nil {
		t.Fatal("BeginInbound without sink succeeded")
	}
	if f.Mode() != ModeText {
		t.Errorf("mode = %v", f.Mode())
	}
}

func TestFramerAbortRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.bin")
	sink, err := transfer.CreateSink(path)
	if err != nil {
		t.Fatal(err)
	}

	f, _ := newTestFramer(strings.NewReader("only part of it"))
	tc := &TransferContext{Size: 1000, Sink: sink, Path: path}
	if err := f.BeginInbound(tc); err != nil {
		t.Fatal(err)
	}

	if _, err := f.Next(); err == nil {
		t.Fatal("truncated payload did not fail")
	}
	if f.Mode() != ModePayload {
		t.Fatalf("mode after interrupted payload = %v", f.Mode())
	}

	if err := f.Abort(); err != nil {
		t.Fatal(err)
	}
	if f.Mode() != ModeText || f.Pending() != nil {
		t.Errorf("after Abort: mode %v pending %v", f.Mode(), f.Pending())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial file still present: %v", err)
	}
	if err := f.Abort(); err != nil {
		t.Errorf("second Abort = %v", err)
	}
}

func TestFramerSendPayload(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789\r\n"), 50)
	path := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	f, out := newTestFramer(strings.NewReader(""))
	var progress bytes.Buffer
	tc := &TransferContext{Filename: "src.bin", Size: int64(len(data)), Path: path, Progress: &progress}
	if err := f.SendPayload("HASH src.bin abc 600", tc); err != nil {
		t.Fatal(err)
	}

	want := "HASH src.bin abc 600\n" + string(data) + EndOfPayload
	if out.String() != want {
		t.Errorf("wire bytes differ: got %d bytes, want %d", out.Len(), len(want))
	}
	if progress.Len() != len(data) {
		t.Errorf("progress saw %d bytes", progress.Len())
	}
	if f.Mode() != ModeText || f.Pending() != nil {
		t.Errorf("after SendPayload: mode %v pending %v", f.Mode(), f.Pending())
	}
	if tc.Direction != Outbound || tc.Transferred != int64(len(data)) {
		t.Errorf("transfer context = %+v", tc)
	}
}

func TestFramerSendPayloadSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(path, []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, _ := newTestFramer(strings.NewReader(""))
	err := f.SendPayload("HASH src.bin abc 99", &TransferContext{Size: 99, Path: path})
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("error = %v, want ErrShortPayload", err)
	}
	if f.Mode() != ModeText {
		t.Errorf("mode = %v", f.Mode())
	}
}

func TestFramerRoundTrip(t *testing.T) {
	data := make([]byte, 20000)
	for i := range data {
		data[i] = byte(i % 253)
	}
	data[8099], data[8100] = '\r', '\n'

	src := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}
	digest, err := transfer.DigestFile(src, 0)
	if err != nil {
		t.Fatal(err)
	}

	var wire bytes.Buffer
	sender := NewFramer(pipe{Reader: strings.NewReader(""), Writer: &wire}, transfer.DefaultChunkSize)
	header := FormatUploadHeader(Header{Name: "dst.bin", Digest: digest, Size: int64(len(data))})
	if err := sender.SendPayload(header, &TransferContext{Size: int64(len(data)), Path: src}); err != nil {
		t.Fatal(err)
	}

	receiver := NewFramer(pipe{Reader: &wire, Writer: io.Discard}, transfer.DefaultChunkSize)
	frame, err := receiver.Next()
	if err != nil {
		t.Fatal(err)
	}
	cmd, _ := ParseCommand(frame.Line)
	h, err := ParseHeader(cmd.Args)
	if err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), h.Name)
	sink, err := transfer.CreateSink(dst)
	if err != nil {
		t.Fatal(err)
	}
	if err := receiver.BeginInbound(&TransferContext{Size: h.Size, Sink: sink, Path: dst}); err != nil {
		t.Fatal(err)
	}
	if _, err := receiver.Next(); err != nil {
		t.Fatal(err)
	}

	ok, err := transfer.Validate(dst, h.Digest, transfer.DefaultChunkSize)
	if err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
}

func TestTransferContextDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.bin")
	if err := os.WriteFile(path, []byte("half"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	tc := &TransferContext{Sink: sink, Path: path}
	if err := tc.Discard(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := tc.Discard(); err != nil {
		t.Errorf("second Discard = %v", err)
	}
	if sink.closes != 1 {
		t.Errorf("sink closed %d times", sink.closes)
	}
}

func TestTransferContextDiscardRejectedKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.bin")
	if err := os.WriteFile(path, []byte("owned by someone else"), 0o644); err != nil {
		t.Fatal(err)
	}

	tc := &TransferContext{Sink: &memSink{}, Path: path, Rejected: transfer.ErrFileBusy}
	if err := tc.Discard(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("rejected transfer removed the file: %v", err)
	}
}
