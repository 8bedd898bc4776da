package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/wire"
)

// Client defaults.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultCallTimeout    = time.Second
)

// Client errors.
var (
	// ErrConnectionClosed is returned after Close.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrUnexpectedResponse indicates a response that does not answer the
	// outstanding request.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// ClientConfig configures a register client.
type ClientConfig struct {
	// Address of the register server (e.g. "rp-f0a1b2:2222").
	Address string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds dialing (default: 5s).
	ConnectTimeout time.Duration

	// CallTimeout bounds one request/response exchange (default: 1s).
	CallTimeout time.Duration

	// Logger for connection diagnostics (optional).
	Logger *slog.Logger
}

// Client is a bus.Client backed by a remote register server.
// Calls are serialized; it is safe for concurrent use.
type Client struct {
	config ClientConfig
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	framer *Framer
	connID string
	closed bool

	nextID atomic.Uint32
}

var _ bus.Client = (*Client)(nil)

// Dial connects to a register server.
func Dial(ctx context.Context, config ClientConfig) (*Client, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = DefaultCallTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{config: config, logger: logger}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Address returns the server address.
func (c *Client) Address() string {
	return c.config.Address
}

// Reads returns n consecutive words starting at addr.
func (c *Client) Reads(addr uint32, n int) ([]uint32, error) {
	if n <= 0 || n > wire.MaxWords {
		return nil, bus.Wrap("read", addr, fmt.Errorf("%w: %d", bus.ErrInvalidSize, n))
	}
	resp, err := c.call(&wire.Request{Operation: wire.OpRead, Address: addr, Count: uint16(n)})
	if err != nil {
		return nil, bus.Wrap("read", addr, err)
	}
	if len(resp.Values) != n {
		return nil, bus.Wrap("read", addr, fmt.Errorf("%w: got %d words, want %d", ErrUnexpectedResponse, len(resp.Values), n))
	}
	return resp.Values, nil
}

// Writes stores values at consecutive words starting at addr.
func (c *Client) Writes(addr uint32, values []uint32) error {
	_, err := c.call(&wire.Request{Operation: wire.OpWrite, Address: addr, Values: values})
	return bus.Wrap("write", addr, err)
}

// Close closes the connection. Later calls fail with ErrConnectionClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return c.dropLocked()
}

func (c *Client) call(req *wire.Request) (*wire.Response, error) {
	req.MessageID = c.nextMessageID()
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}
	if c.conn == nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		err := c.connectLocked(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.exchangeLocked(req.MessageID, data)
	if err != nil {
		// The stream position is unknown after a failed exchange.
		c.logger.Warn("register call failed, dropping connection",
			"conn", c.connID, "op", req.Operation, "addr", fmt.Sprintf("0x%08x", req.Address), "error", err)
		c.dropLocked()
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) exchangeLocked(id uint32, data []byte) (*wire.Response, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.config.CallTimeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetDeadline(time.Time{})

	if err := c.framer.WriteFrame(data); err != nil {
		return nil, err
	}
	frame, err := c.framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeResponse(frame)
	if err != nil {
		return nil, err
	}
	if resp.MessageID != id {
		return nil, fmt.Errorf("%w: messageId %d, want %d", ErrUnexpectedResponse, resp.MessageID, id)
	}
	return resp, nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = conn
	c.connID = uuid.New().String()
	c.framer = NewFramer(conn, c.config.MaxMessageSize)
	c.framer.SetLogger(c.logger.With("conn", c.connID))

	c.logger.Debug("connected", "conn", c.connID, "remote", conn.RemoteAddr().String())
	return nil
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.framer = nil
	return err
}

// nextMessageID skips 0, which is reserved.
func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextID.Add(1); id != 0 {
			return id
		}
	}
}
