package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/wire"
)

// DefaultAddress is the default listen address of a register server.
const DefaultAddress = ":2222"

// ServerConfig configures a register server.
type ServerConfig struct {
	// Address to listen on (e.g., ":2222" or "127.0.0.1:0").
	Address string

	// Backend executes the register operations.
	Backend bus.Client

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Logger for connection diagnostics (optional).
	Logger *slog.Logger

	// OnError is called when a connection fails (optional).
	OnError func(connID string, err error)
}

// Server exposes a bus.Client to remote clients.
type Server struct {
	config   ServerConfig
	logger   *slog.Logger
	listener net.Listener

	// Backend access is serialized across connections.
	backendMu sync.Mutex

	conns   map[string]net.Conn
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new register server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		config: config,
		logger: logger,
		conns:  make(map[string]net.Conn),
	}, nil
}

// Start starts the server and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("register server listening", "address", listener.Addr().String())
	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.reportError("", fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	logger := s.logger.With("conn", connID)

	s.connsMu.Lock()
	s.conns[connID] = conn
	s.connsMu.Unlock()

	// Stop may have run between Accept and registration.
	if !s.running.Load() {
		conn.Close()
	}

	logger.Debug("client connected", "remote", conn.RemoteAddr().String())

	framer := NewFramer(conn, s.config.MaxMessageSize)
	framer.SetLogger(logger)

	err := s.serve(framer)

	s.connsMu.Lock()
	delete(s.conns, connID)
	s.connsMu.Unlock()
	conn.Close()

	if err != nil && s.running.Load() {
		s.reportError(connID, err)
	}
	logger.Debug("client disconnected")
}

// serve answers requests until the connection ends. A clean EOF returns nil.
func (s *Server) serve(framer *Framer) error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		data, err := framer.ReadFrame()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		resp := s.handle(data)
		out, err := wire.EncodeResponse(resp)
		if err != nil {
			return err
		}
		if err := framer.WriteFrame(out); err != nil {
			return err
		}
	}
}

// handle executes one request against the backend.
func (s *Server) handle(data []byte) *wire.Response {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		resp := &wire.Response{Status: wire.StatusInvalidRequest, Message: err.Error()}
		if req != nil {
			resp.MessageID = req.MessageID
		}
		return resp
	}

	resp := &wire.Response{MessageID: req.MessageID}

	s.backendMu.Lock()
	defer s.backendMu.Unlock()

	switch req.Operation {
	case wire.OpRead:
		resp.Values, err = s.config.Backend.Reads(req.Address, int(req.Count))
	case wire.OpWrite:
		err = s.config.Backend.Writes(req.Address, req.Values)
	}
	if err != nil {
		resp.Status = wire.StatusBusError
		resp.Message = err.Error()
		resp.Values = nil
	}
	return resp
}

func (s *Server) reportError(connID string, err error) {
	s.logger.Warn("register server error", "conn", connID, "error", err)
	if s.config.OnError != nil {
		s.config.OnError(connID, err)
	}
}
