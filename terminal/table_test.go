package terminal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"binxfer/index"
)

func TestRenderFiles(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTableFormatter(&buf)

	files := []index.FileDescriptor{
		{Name: "a.txt", Size: 5, Digest: "5d41402abc4b2a76b9719d911017c592", ModTime: time.Now()},
		{Name: "big.iso", Size: 3 * 1024 * 1024, Digest: "d41d8cd98f00b204e9800998ecf8427e", ModTime: time.Now()},
	}
	if err := tf.RenderFiles(files); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"a.txt", "5 B", "big.iso", "3.0 MB", "5d41402abc4b2a76b9719d911017c592"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFilesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf).RenderFiles(nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("output = %q", buf.String())
	}
}
