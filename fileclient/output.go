package fileclient

import "fmt"

// Kind classifies a line shown to the user.
type Kind int

const (
	KindText Kind = iota
	KindInfo
	KindSuccess
	KindError
)

// Output is one line of feedback from executing a command.
type Output struct {
	Kind Kind
	Text string
}

func text(s string) Output { return Output{Kind: KindText, Text: s} }

func info(format string, args ...interface{}) Output {
	return Output{Kind: KindInfo, Text: fmt.Sprintf(format, args...)}
}

func success(format string, args ...interface{}) Output {
	return Output{Kind: KindSuccess, Text: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...interface{}) Output {
	return Output{Kind: KindError, Text: fmt.Sprintf(format, args...)}
}
