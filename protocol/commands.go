package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wire markers.
const (
	EndOfResponse = "ENDMSG"
	PayloadHeader = "HASH"
	EndOfPayload  = "\r\n"
)

// Command verbs.
const (
	VerbList = "list"
	VerbGet  = "get"
	VerbPut  = "put"
	VerbHelp = "help"
	VerbQuit = "quit"
)

// CommandInfo documents one command for help output and completion.
type CommandInfo struct {
	Verb        string
	Usage       string
	Description string
}

// Commands is the fixed command vocabulary in display order.
var Commands = []CommandInfo{
	{Verb: VerbList, Usage: "list", Description: "Displays a list of all the available files"},
	{Verb: VerbGet, Usage: "get <remote filename>", Description: "Downloads a file with a given filename"},
	{Verb: VerbPut, Usage: "put <local file path> <remote file name>", Description: "Uploads a file with a given filename"},
	{Verb: VerbHelp, Usage: "help", Description: "Displays a list of all the available commands"},
	{Verb: VerbQuit, Usage: "quit", Description: "Disconnects from the server"},
}

// IsCommand reports whether verb belongs to the vocabulary.
func IsCommand(verb string) bool {
	for _, c := range Commands {
		if c.Verb == verb {
			return true
		}
	}
	return false
}

// Command is a parsed command line.
type Command struct {
	Verb string
	Args []string
}

// Arg returns the i-th argument or "" when absent.
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// ParseCommand splits a line on whitespace and lower-cases the verb.
// A line with no tokens yields ok == false.
func ParseCommand(line string) (Command, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, false
	}
	return Command{Verb: strings.ToLower(parts[0]), Args: parts[1:]}, true
}

// Header announces a payload: the file name, its digest and, when known, its size.
type Header struct {
	Name   string
	Digest string
	Size   int64 // -1 when the peer did not announce a size
}

// FormatDownloadHeader renders the header a server sends before a file.
func FormatDownloadHeader(h Header) string {
	return formatHeader(PayloadHeader, h)
}

// FormatUploadHeader renders the command a client sends before a file.
func FormatUploadHeader(h Header) string {
	return formatHeader(VerbPut, h)
}

func formatHeader(keyword string, h Header) string {
	if h.Size < 0 {
		return fmt.Sprintf("%s %s %s", keyword, h.Name, h.Digest)
	}
	return fmt.Sprintf("%s %s %s %d", keyword, h.Name, h.Digest, h.Size)
}

// ErrMalformedHeader is returned for a payload header missing its name or digest.
var ErrMalformedHeader = errors.New("malformed payload header")

// ParseHeader reads name, digest and the optional size from header arguments.
// A size that is absent or not a non-negative integer is reported as -1.
func ParseHeader(args []string) (Header, error) {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		return Header{}, ErrMalformedHeader
	}
	h := Header{Name: args[0], Digest: strings.ToLower(args[1]), Size: -1}
	if len(args) > 2 {
		if size, err := strconv.ParseInt(args[2], 10, 64); err == nil && size >= 0 {
			h.Size = size
		}
	}
	return h, nil
}

// IsDownloadHeader reports whether a response line announces a payload.
func IsDownloadHeader(line string) bool {
	return line == PayloadHeader || strings.HasPrefix(line, PayloadHeader+" ")
}

// ErrInvalidFilename is returned for names that could escape the shared directory.
var ErrInvalidFilename = errors.New("invalid filename")

// ValidateFilename accepts only plain names inside a single directory.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidFilename
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidFilename
	}
	return nil
}
