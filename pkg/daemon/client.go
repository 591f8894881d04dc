package daemon

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nix-community/go-cache-daemon/pkg/wire"
)

// noDeadline is the zero time used to clear connection deadlines.
var noDeadline time.Time //nolint:gochecknoglobals

// Client is a session with a Nix daemon over a Unix-domain socket. It does
// not hold a connection while idle: the first operation after construction,
// or the first operation after a protocol error, dials and re-handshakes.
// At most one operation is ever in flight; callers serialize through the
// client's own mutex, which is the sole piece of shared mutable state.
type Client struct {
	dial func(ctx context.Context) (net.Conn, error)

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	info *HandshakeInfo
	logs chan LogMessage
}

// ConnectOption configures the client.
type ConnectOption func(*Client)

// WithLogChannel sets the channel that will receive log messages forwarded
// from the daemon's logger side-channel. If not set, log messages other than
// LogError are silently discarded.
func WithLogChannel(ch chan LogMessage) ConnectOption {
	return func(c *Client) {
		c.logs = ch
	}
}

// NewClient creates a client bound to socketPath. No connection is made
// until the first operation.
func NewClient(socketPath string, opts ...ConnectOption) *Client {
	var d net.Dialer

	c := &Client{
		dial: func(ctx context.Context) (net.Conn, error) {
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConn builds a client around an already-established
// connection, useful for tests that drive the protocol over net.Pipe. Unlike
// NewClient, the connection cannot be redialed once dropped: a second
// connect attempt after an I/O error returns an error.
func NewClientFromConn(conn net.Conn, opts ...ConnectOption) *Client {
	used := false

	c := &Client{
		dial: func(ctx context.Context) (net.Conn, error) {
			if used {
				return nil, &ProtocolError{Op: "connect", Err: io.ErrClosedPipe}
			}

			used = true

			return conn, nil
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect eagerly dials and handshakes, primarily so callers can surface a
// startup connectivity error immediately rather than on first use.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked(ctx)
}

// connectLocked dials and performs the handshake if the client does not
// currently hold a connection. Callers must hold c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return &ProtocolError{Op: "connect", Err: err}
	}

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	info, err := handshakeWithBufIO(r, w)
	if err != nil {
		conn.Close()

		return err
	}

	c.conn = conn
	c.r = r
	c.w = w
	c.info = info

	return nil
}

// dropLocked closes and discards the current connection so the next
// operation reconnects from scratch. Callers must hold c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}

	c.conn = nil
	c.r = nil
	c.w = nil
	c.info = nil
}

// Close closes the connection to the daemon, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	c.w = nil
	c.info = nil

	return err
}

// Logs returns a read-only channel of log messages from the daemon. Returns
// nil if no log channel was configured via WithLogChannel.
func (c *Client) Logs() <-chan LogMessage {
	return c.logs
}

// Info returns the handshake information from the daemon's current session,
// or nil if no connection is currently held.
func (c *Client) Info() *HandshakeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.info
}

// doOp runs one complete request/response cycle under the client's mutex:
// connect-if-needed, write opcode, write request, flush, drain the logger
// side-channel, read response. Any I/O or protocol error drops the
// connection so the next call reconnects.
func (c *Client) doOp(
	ctx context.Context,
	op Operation,
	writeReq func(w io.Writer) error,
	readResp func(r io.Reader) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}

	cancel := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now()) //nolint:errcheck // break blocked I/O
	})
	defer func() {
		cancel()
		if c.conn != nil {
			c.conn.SetDeadline(noDeadline) //nolint:errcheck // best-effort reset
		}
	}()

	if err := c.runOpLocked(op, writeReq, readResp); err != nil {
		c.dropLocked()

		return err
	}

	return nil
}

func (c *Client) runOpLocked(
	op Operation,
	writeReq func(w io.Writer) error,
	readResp func(r io.Reader) error,
) error {
	if err := wire.WriteUint64(c.w, uint64(op)); err != nil {
		return &ProtocolError{Op: op.String() + " write op", Err: err}
	}

	if writeReq != nil {
		if err := writeReq(c.w); err != nil {
			return &ProtocolError{Op: op.String() + " write request", Err: err}
		}
	}

	if err := c.w.Flush(); err != nil {
		return &ProtocolError{Op: op.String() + " flush", Err: err}
	}

	if err := ProcessStderr(c.r, c.logs); err != nil {
		return err
	}

	if readResp != nil {
		if err := readResp(c.r); err != nil {
			return &ProtocolError{Op: op.String() + " read response", Err: err}
		}
	}

	return nil
}

// IsValidPath checks whether the given store path is valid (exists in the
// store).
func (c *Client) IsValidPath(ctx context.Context, path string) (bool, error) {
	var valid bool

	err := c.doOp(ctx, OpIsValidPath,
		func(w io.Writer) error {
			return wire.WriteString(w, path)
		},
		func(r io.Reader) error {
			v, err := wire.ReadBool(r)
			if err != nil {
				return err
			}

			valid = v

			return nil
		},
	)

	return valid, err
}

// QueryPathInfo retrieves the metadata for the given store path. If the path
// is not known to the daemon, the result is nil with no error.
func (c *Client) QueryPathInfo(ctx context.Context, path string) (*PathInfo, error) {
	var info *PathInfo

	err := c.doOp(ctx, OpQueryPathInfo,
		func(w io.Writer) error {
			return wire.WriteString(w, path)
		},
		func(r io.Reader) error {
			found, err := wire.ReadBool(r)
			if err != nil {
				return err
			}

			if !found {
				return nil
			}

			info, err = ReadPathInfo(r, path)

			return err
		},
	)

	return info, err
}

// QueryPathFromHashPart looks up a store path by its 32-character hash
// prefix. If nothing is found, the result is an empty string with no error.
func (c *Client) QueryPathFromHashPart(ctx context.Context, hashPart string) (string, error) {
	var storePath string

	err := c.doOp(ctx, OpQueryPathFromHashPart,
		func(w io.Writer) error {
			return wire.WriteString(w, hashPart)
		},
		func(r io.Reader) error {
			s, err := wire.ReadString(r, MaxStringSize)
			if err != nil {
				return err
			}

			storePath = s

			return nil
		},
	)

	return storePath, err
}
