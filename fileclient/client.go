// Package fileclient is the client side of the line protocol: it validates
// commands locally, sends them, and collects each response up to its end
// marker, receiving any announced payload on the way.
package fileclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"binxfer/perfmetrics"
	"binxfer/protocol"
	"binxfer/transfer"

	"go.uber.org/zap"
)

// ErrConnectionLost is returned once the server has closed the connection.
var ErrConnectionLost = errors.New("connection to the server has been lost")

// ProgressFunc returns a writer fed with every payload chunk, or nil.
type ProgressFunc func(operation, filename string, size int64) io.Writer

// Options configures a Client.
type Options struct {
	DownloadDir string
	ChunkSize   int

	// DialAttempts is how many times Dial tries to connect. Zero means once.
	DialAttempts int
	Progress     ProgressFunc
	PerfLog      *perfmetrics.Logger
	Logger       *zap.Logger
}

// Client runs one command at a time against a server connection.
type Client struct {
	conn   net.Conn
	framer *protocol.Framer
	opts   Options
	logger *zap.Logger

	started time.Time
	lost    bool

	mu          sync.RWMutex
	remoteFiles []string
}

// Dial connects to addr, retrying with backoff up to opts.DialAttempts
// times, and consumes the server greeting.
func Dial(ctx context.Context, addr string, opts Options) (*Client, []Output, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		d    net.Dialer
		conn net.Conn
	)
	err := retryWithBackoff(ctx, logger, "connect to "+addr, opts.DialAttempts, func() error {
		var err error
		conn, err = d.DialContext(ctx, "tcp", addr)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := New(conn, opts)
	greeting, err := c.readResponse()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return c, greeting, nil
}

// New wraps an established connection. The caller reads the greeting.
func New(conn net.Conn, opts Options) *Client {
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = transfer.DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:   conn,
		framer: protocol.NewFramer(conn, opts.ChunkSize),
		opts:   opts,
		logger: logger,
	}
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// RemoteFiles returns the names seen in the last list response.
func (c *Client) RemoteFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.remoteFiles...)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(line string) error {
	if err := c.framer.WriteLine(line); err != nil {
		return c.connectionLost(err)
	}
	return nil
}

func (c *Client) connectionLost(err error) error {
	c.lost = true
	if aerr := c.framer.Abort(); aerr != nil {
		c.logger.Warn("failed to clean up interrupted transfer", zap.Error(aerr))
	}
	c.logger.Debug("connection lost", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrConnectionLost, err)
}

// readResponse collects lines until the end marker. A payload header in the
// middle of a response starts a download.
func (c *Client) readResponse() ([]Output, error) {
	var out []Output
	for {
		frame, err := c.framer.Next()
		if err != nil {
			return out, c.connectionLost(err)
		}

		if frame.Kind == protocol.FramePayload {
			out = append(out, c.finishDownload(frame.Transfer))
			continue
		}

		switch line := frame.Line; {
		case line == protocol.EndOfResponse:
			return out, nil
		case protocol.IsDownloadHeader(line):
			if err := c.beginDownload(line); err != nil {
				c.conn.Close()
				return out, c.connectionLost(err)
			}
		default:
			out = append(out, text(line))
		}
	}
}

// parseListing remembers the names in a list response for completion.
func (c *Client) parseListing(out []Output) {
	var names []string
	for _, o := range out {
		if !strings.HasPrefix(o.Text, "- ") {
			continue
		}
		entry := strings.TrimPrefix(o.Text, "- ")
		if i := strings.LastIndex(entry, " ("); i > 0 {
			entry = entry[:i]
		}
		names = append(names, entry)
	}

	c.mu.Lock()
	c.remoteFiles = names
	c.mu.Unlock()
}
