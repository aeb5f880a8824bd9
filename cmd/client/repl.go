package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"binxfer/fileclient"
	"binxfer/protocol"
	"binxfer/terminal"

	"github.com/c-bata/go-prompt"
)

type repl struct {
	client       *fileclient.Client
	themeManager *terminal.ThemeManager
	completer    *terminal.CommandCompleter
	out          io.Writer
	done         bool
}

func newREPL(client *fileclient.Client, tm *terminal.ThemeManager, out io.Writer) *repl {
	return &repl{
		client:       client,
		themeManager: tm,
		completer:    terminal.NewCommandCompleter(client),
		out:          out,
	}
}

// executor handles command execution
func (r *repl) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" || r.done {
		return
	}

	outputs, err := r.client.Execute(input)
	r.show(outputs)

	// A download adds a file to the local directory put completes from.
	if cmd, ok := protocol.ParseCommand(input); ok && cmd.Verb == protocol.VerbGet {
		r.completer.ClearCache()
	}

	switch {
	case errors.Is(err, fileclient.ErrConnectionLost):
		r.themeManager.GetErrorColor().Fprintln(r.out, protocol.MsgConnectionLost)
		r.done = true
	case err != nil:
		r.themeManager.GetErrorColor().Fprintf(r.out, "Error: %v\n", err)
	}
}

func (r *repl) show(outputs []fileclient.Output) {
	for _, o := range outputs {
		switch o.Kind {
		case fileclient.KindInfo:
			r.themeManager.GetInfoColor().Fprintln(r.out, o.Text)
		case fileclient.KindSuccess:
			r.themeManager.GetSuccessColor().Fprintln(r.out, o.Text)
		case fileclient.KindError:
			r.themeManager.GetErrorColor().Fprintln(r.out, o.Text)
		default:
			r.themeManager.GetTextColor().Fprintln(r.out, o.Text)
		}
	}
}

func (r *repl) runPrompt() {
	p := prompt.New(
		r.executor,
		r.completer.Completer,
		prompt.OptionTitle("binxfer"),
		prompt.OptionPrefix("> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return r.done && breakline
		}),
	)
	p.Run()
}

// runScanner reads commands line by line when stdin is not a terminal.
func (r *repl) runScanner(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for !r.done && scanner.Scan() {
		r.executor(scanner.Text())
	}
}
