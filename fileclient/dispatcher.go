package fileclient

import (
	"os"

	"binxfer/protocol"
)

// Execute runs one command line. Invalid input is reported locally without
// contacting the server. ErrConnectionLost is returned once the server is
// gone, including after quit.
func (c *Client) Execute(line string) ([]Output, error) {
	cmd, ok := protocol.ParseCommand(line)
	if !ok {
		return nil, nil
	}
	if c.lost {
		return nil, ErrConnectionLost
	}

	switch cmd.Verb {
	case protocol.VerbList:
		out, err := c.roundTrip(protocol.VerbList)
		if err == nil {
			c.parseListing(out)
		}
		return out, err

	case protocol.VerbHelp:
		return c.roundTrip(protocol.VerbHelp)

	case protocol.VerbGet:
		name := cmd.Arg(0)
		if name == "" {
			return []Output{failure(protocol.MsgMissingFilename)}, nil
		}
		return c.roundTrip(protocol.VerbGet + " " + name)

	case protocol.VerbPut:
		if len(cmd.Args) < 2 {
			return []Output{failure(protocol.MsgMissingPutPaths)}, nil
		}
		localPath, remoteName := cmd.Args[0], cmd.Args[1]
		info, err := os.Stat(localPath)
		if err != nil || !info.Mode().IsRegular() {
			return []Output{failure(protocol.MsgLocalFileNotFound)}, nil
		}
		return c.upload(localPath, remoteName, info.Size())

	case protocol.VerbQuit:
		if err := c.send(protocol.VerbQuit); err != nil {
			return nil, err
		}
		return c.readResponse()

	default:
		return []Output{failure(protocol.MsgInvalidCommand)}, nil
	}
}

func (c *Client) roundTrip(line string) ([]Output, error) {
	if err := c.send(line); err != nil {
		return nil, err
	}
	return c.readResponse()
}
