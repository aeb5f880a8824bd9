package fileserver

import (
	"errors"
	"io"
	"net"

	"binxfer/index"
	"binxfer/protocol"

	"go.uber.org/zap"
)

// session is the server side of one connection.
type session struct {
	server  *Server
	conn    net.Conn
	framer  *protocol.Framer
	handler *protocol.CommandHandler
	logger  *zap.Logger
	closed  bool
}

func newSession(server *Server, conn net.Conn, logger *zap.Logger) *session {
	s := &session{
		server: server,
		conn:   conn,
		framer: protocol.NewFramer(conn, server.chunkSize),
		logger: logger,
	}
	s.handler = protocol.NewCommandHandler(s)
	return s
}

// serve reads frames until the peer leaves or the session is closed.
func (s *session) serve() {
	s.SendResponse(protocol.MsgWelcome, protocol.MsgWelcomeHint)

	for !s.closed {
		frame, err := s.framer.Next()
		if err != nil {
			if !s.closed && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("connection error", zap.Error(err), zap.Stringer("mode", s.framer.Mode()))
			}
			return
		}

		switch frame.Kind {
		case protocol.FrameLine:
			s.logger.Debug("received line", zap.String("line", frame.Line))
			s.handler.HandleCommand(frame.Line)
		case protocol.FramePayload:
			s.handler.HandlePayload(frame.Transfer)
		}
	}
}

// release drops any half-finished transfer.
func (s *session) release() {
	if s.framer.Pending() == nil {
		return
	}
	if err := s.framer.Abort(); err != nil {
		s.logger.Warn("failed to clean up interrupted transfer", zap.Error(err))
	} else {
		s.logger.Info("interrupted transfer discarded")
	}
}

func (s *session) SendResponse(lines ...string) {
	if s.closed {
		return
	}
	lines = append(lines, protocol.EndOfResponse)
	if err := s.framer.WriteLines(lines...); err != nil {
		s.logger.Warn("failed to send response", zap.Error(err))
		s.Close()
	}
}

func (s *session) Logger() *zap.Logger {
	return s.logger
}

func (s *session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
}

func (s *session) Index() protocol.FileIndex {
	return s.server.index
}

func (s *session) RootDir() string {
	return s.server.index.Root()
}

func (s *session) ChunkSize() int {
	return s.server.chunkSize
}

func (s *session) SendPayload(header protocol.Header, fd index.FileDescriptor) error {
	tc := &protocol.TransferContext{
		Filename:       header.Name,
		ExpectedDigest: header.Digest,
		Size:           header.Size,
		Path:           fd.Path,
	}
	return s.framer.SendPayload(protocol.FormatDownloadHeader(header), tc)
}

func (s *session) BeginUpload(tc *protocol.TransferContext) error {
	return s.framer.BeginInbound(tc)
}
