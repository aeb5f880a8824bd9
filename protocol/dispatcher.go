package protocol

import "binxfer/metrics"

// HandleCommand routes one text line to its handler. Every path except quit
// ends in exactly one response terminated by EndOfResponse.
func (h *CommandHandler) HandleCommand(line string) {
	cmd, ok := ParseCommand(line)
	if !ok {
		return
	}

	if !IsCommand(cmd.Verb) {
		metrics.RecordCommand("invalid")
		h.session.SendResponse(MsgInvalidCommand)
		return
	}
	metrics.RecordCommand(cmd.Verb)

	switch cmd.Verb {
	// File commands
	case VerbList:
		h.HandleList()
	case VerbGet:
		h.HandleGet(cmd.Arg(0))
	case VerbPut:
		h.HandlePut(cmd.Args)

	// Connection commands
	case VerbHelp:
		h.HandleHelp()
	case VerbQuit:
		h.HandleQuit()
	}
}
