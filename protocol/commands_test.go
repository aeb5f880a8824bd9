package protocol

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		verb  string
		nargs int
	}{
		{"", false, "", 0},
		{"   \t ", false, "", 0},
		{"list", true, "list", 0},
		{"LIST", true, "list", 0},
		{"  Get   a.txt  ", true, "get", 1},
		{"PUT a.txt 5d41402abc4b2a76b9719d911017c592 5", true, "put", 3},
		{"dance", true, "dance", 0},
	}
	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.line)
		if ok != tt.ok || cmd.Verb != tt.verb || len(cmd.Args) != tt.nargs {
			t.Errorf("ParseCommand(%q) = %+v, %v", tt.line, cmd, ok)
		}
	}
}

func TestIsCommand(t *testing.T) {
	for _, verb := range []string{"list", "get", "put", "help", "quit"} {
		if !IsCommand(verb) {
			t.Errorf("%s not recognised", verb)
		}
	}
	if IsCommand("delete") {
		t.Error("delete recognised")
	}
}

func TestValidateFilename(t *testing.T) {
	valid := []string{"a.txt", "archive.tar.gz", ".hidden", "name with-dash_1", "notes..v2.txt", "a...b", "..hidden"}
	invalid := []string{"", ".", "..", "../etc/passwd", "sub/file", `sub\file`, "/abs", "..\\x", "nul\x00"}

	for _, name := range valid {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v", name, err)
		}
	}
	for _, name := range invalid {
		if err := ValidateFilename(name); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("ValidateFilename(%q) = %v, want ErrInvalidFilename", name, err)
		}
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		args    []string
		want    Header
		wantErr bool
	}{
		{nil, Header{}, true},
		{[]string{"a.txt"}, Header{}, true},
		{[]string{"a.txt", "ABCDEF"}, Header{Name: "a.txt", Digest: "abcdef", Size: -1}, false},
		{[]string{"a.txt", "abc", "20000"}, Header{Name: "a.txt", Digest: "abc", Size: 20000}, false},
		{[]string{"a.txt", "abc", "-4"}, Header{Name: "a.txt", Digest: "abc", Size: -1}, false},
		{[]string{"a.txt", "abc", "big"}, Header{Name: "a.txt", Digest: "abc", Size: -1}, false},
	}
	for _, tt := range tests {
		got, err := ParseHeader(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHeader(%v) error = %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHeader(%v) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestFormatHeaders(t *testing.T) {
	h := Header{Name: "a.txt", Digest: "5d41402abc4b2a76b9719d911017c592", Size: 5}
	if got := FormatDownloadHeader(h); got != "HASH a.txt 5d41402abc4b2a76b9719d911017c592 5" {
		t.Errorf("download header = %q", got)
	}
	if got := FormatUploadHeader(h); got != "put a.txt 5d41402abc4b2a76b9719d911017c592 5" {
		t.Errorf("upload header = %q", got)
	}

	h.Size = -1
	if got := FormatDownloadHeader(h); got != "HASH a.txt 5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("legacy header = %q", got)
	}

	if !IsDownloadHeader("HASH a.txt abc") || IsDownloadHeader("HASHES are fun") {
		t.Error("IsDownloadHeader misclassified a line")
	}
}
