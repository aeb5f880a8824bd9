package protocol

// Server responses.
const (
	MsgWelcome         = "Welcome"
	MsgWelcomeHint     = "Type help for list of all the available commands"
	MsgInvalidCommand  = "Invalid command"
	MsgMissingFilename = "Missing filename"
	MsgFileNotFound    = "File with filename %s does not exist"
	MsgMissingPutArgs  = "Missing filename or file MD5 hash"
	MsgInvalidFilename = "Invalid filename %s"
	MsgFileBusy        = "File %s is being written by another client"
	MsgUploadSaved     = "File was successfully transfered and saved"
	MsgUploadCorrupt   = "File was successfully transfered but not saved, due to invalid MD5 hash"
	MsgUploadFailed    = "File was transfered but could not be saved"
	MsgListHeader      = "Files (%d): "
	MsgListEntry       = "- %s (%s)"
	MsgListFailed      = "Unable to read the shared directory"
	MsgHelpHeader      = "Available commands:"
	MsgHelpEntry       = "%s - %s"
)

// Client messages.
const (
	MsgMissingPutPaths   = "Missing local file path or remote file name"
	MsgLocalFileNotFound = "This file does not exist"
	MsgDownloadSaved     = "File %s has been successfully transfered and saved"
	MsgDownloadCorrupt   = "File %s has been successfully transfered, but deleted due to invalid MD5 hash"
	MsgConnectionLost    = "Connection to the server has been lost"
)
