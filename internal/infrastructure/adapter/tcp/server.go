package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// Config holds the line-protocol server settings
type Config struct {
	Host         string
	Port         int
	MaxLineBytes int
	IdleTimeout  time.Duration
}

// errLineTooLong reports a client line exceeding the configured limit
var errLineTooLong = errors.New("line too long")

// Server accepts client connections and serves the line protocol.
// Each connection gets its own goroutine; one command is in flight per
// connection at a time. Ledger consistency across connections is the
// trade engine's responsibility, not the server's.
type Server struct {
	config          Config
	dispatcher      *Dispatcher
	logger          coreport.Logger
	requestShutdown func()

	connWG sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
}

// NewServer creates a line-protocol server.
// requestShutdown is invoked after a SHUTDOWN acknowledgment is written.
func NewServer(config Config, dispatcher *Dispatcher, logger coreport.Logger, requestShutdown func()) *Server {
	if config.MaxLineBytes <= 0 {
		config.MaxLineBytes = 4096
	}
	return &Server{
		config:          config,
		dispatcher:      dispatcher,
		logger:          logger,
		requestShutdown: requestShutdown,
		conns:           make(map[net.Conn]struct{}),
	}
}

// Serve listens and accepts connections until ctx is canceled.
// It returns once the listener is closed and all connections drained.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Server listening", map[string]any{
		"addr": listener.Addr().String(),
	})

	// Close the listener when the context ends so Accept unblocks
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("Accept failed", map[string]any{
				"error": err.Error(),
			})
			continue
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.connWG.Add(1)
		go s.handleConnection(ctx, conn)
	}

	s.connWG.Wait()
	s.logger.Info("Server stopped", nil)
	return nil
}

// Addr reports the bound listener address, nil before Serve listens
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// shutdown stops accepting and closes all open connections
func (s *Server) shutdown() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	listener := s.listener
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// handleConnection reads lines, dispatches them and writes responses
// until the peer disconnects. A failing or malformed command never ends
// the loop; over-long lines are rejected and the stream resyncs at the
// next newline.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.connWG.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	s.logger.Info("Client connected", map[string]any{
		"remote": remote,
	})

	reader := bufio.NewReader(conn)

	for {
		if s.config.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		line, err := readLine(reader, s.config.MaxLineBytes)
		if errors.Is(err, errLineTooLong) {
			if _, werr := fmt.Fprintln(conn, "ERROR invalid input: line too long"); werr != nil {
				break
			}
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("Connection read failed", map[string]any{
					"remote": remote,
					"error":  err.Error(),
				})
			}
			break
		}

		if line == "" {
			continue
		}

		response, shutdownAccepted := s.dispatcher.Dispatch(ctx, line)
		if _, err := fmt.Fprintln(conn, response); err != nil {
			s.logger.Warn("Connection write failed", map[string]any{
				"remote": remote,
				"error":  err.Error(),
			})
			break
		}

		// The acknowledgment is on the wire; now the listener may close
		if shutdownAccepted && s.requestShutdown != nil {
			s.requestShutdown()
		}
	}

	s.logger.Info("Client disconnected", map[string]any{
		"remote": remote,
	})
}

// readLine reads one newline-terminated line of at most maxBytes.
// An over-long line is consumed through its newline and reported as
// errLineTooLong so the connection can keep serving.
func readLine(reader *bufio.Reader, maxBytes int) (string, error) {
	var line []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
		if len(line) > maxBytes {
			if err := discardLine(reader); err != nil {
				return "", err
			}
			return "", errLineTooLong
		}
	}

	line = bytes.TrimRight(line, "\r\n")
	if len(line) > maxBytes {
		return "", errLineTooLong
	}
	return string(line), nil
}

// discardLine consumes the remainder of an over-long line
func discardLine(reader *bufio.Reader) error {
	for {
		_, err := reader.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}
