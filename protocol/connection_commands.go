package protocol

import "fmt"

// Connection Commands

// HandleHelp lists the command vocabulary.
func (h *CommandHandler) HandleHelp() {
	lines := make([]string, 0, len(Commands)+2)
	lines = append(lines, MsgHelpHeader, "")
	for _, c := range Commands {
		lines = append(lines, fmt.Sprintf(MsgHelpEntry, c.Usage, c.Description))
	}
	h.session.SendResponse(lines...)
}

// HandleQuit ends the session. No response is sent.
func (h *CommandHandler) HandleQuit() {
	h.session.Logger().Info("client requested disconnect")
	h.session.Close()
}
