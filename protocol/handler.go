package protocol

// CommandHandler serves the command vocabulary for one session.
type CommandHandler struct {
	session SessionInterface
}

// NewCommandHandler creates a new command handler with session dependency injection
func NewCommandHandler(session SessionInterface) *CommandHandler {
	return &CommandHandler{session: session}
}
