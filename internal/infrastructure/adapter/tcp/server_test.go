package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The server tests run a real listener on a loopback port against the
// in-memory ledger fixture.

type testServer struct {
	conn     net.Conn
	reader   *bufio.Reader
	done     chan struct{}
	serveErr error
}

func startTestServer(t *testing.T, maxLineBytes int) *testServer {
	t.Helper()

	f := newDispatcherFixture()
	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(Config{
		Host:         "127.0.0.1",
		Port:         0,
		MaxLineBytes: maxLineBytes,
		IdleTimeout:  5 * time.Second,
	}, f.dispatcher, nopLogger{}, cancel)

	ts := &testServer{done: make(chan struct{})}
	go func() {
		ts.serveErr = server.Serve(ctx)
		close(ts.done)
	}()

	require.Eventually(t, func() bool { return server.Addr() != nil },
		2*time.Second, 5*time.Millisecond)

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	ts.conn = conn
	ts.reader = bufio.NewReader(conn)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-ts.done:
			assert.NoError(t, ts.serveErr)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ts
}

func (ts *testServer) send(t *testing.T, line string) string {
	t.Helper()
	_, err := fmt.Fprintln(ts.conn, line)
	require.NoError(t, err)
	response, err := ts.reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(response, "\r\n")
}

func TestServerServesCommands(t *testing.T) {
	ts := startTestServer(t, 4096)

	assert.Equal(t, "OK 1", ts.send(t, "ADD_USER John Doe jdoe secret 100.00"))
	assert.Equal(t, "OK 2 80.00", ts.send(t, "BUY AAPL Apple 2 10.00 1"))
	assert.Equal(t, "OK 80.00", ts.send(t, "GET_BALANCE 1"))

	// A failing command leaves the connection serving
	assert.Equal(t, "ERROR user not found", ts.send(t, "GET_BALANCE 42"))
	assert.Equal(t, "OK 80.00", ts.send(t, "GET_BALANCE 1"))
}

func TestServerSurvivesOverLongLine(t *testing.T) {
	ts := startTestServer(t, 64)

	t.Run("Over-long line within the read buffer", func(t *testing.T) {
		response := ts.send(t, "BUY "+strings.Repeat("A", 500)+" 1 10.00 1")
		assert.Equal(t, "ERROR invalid input: line too long", response)
	})

	t.Run("Over-long line spanning multiple read buffers", func(t *testing.T) {
		response := ts.send(t, strings.Repeat("B", 9000))
		assert.Equal(t, "ERROR invalid input: line too long", response)
	})

	t.Run("Connection keeps serving afterwards", func(t *testing.T) {
		assert.Equal(t, "OK 1", ts.send(t, "ADD_USER John Doe jdoe secret 100.00"))
		assert.Equal(t, "OK 100.00", ts.send(t, "GET_BALANCE 1"))
	})
}

func TestServerShutdownDeliversAcknowledgment(t *testing.T) {
	ts := startTestServer(t, 4096)

	// The acknowledgment must arrive even though the command stops the server
	assert.Equal(t, "OK shutting down", ts.send(t, "SHUTDOWN"))

	select {
	case <-ts.done:
		assert.NoError(t, ts.serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after SHUTDOWN")
	}
}
