package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"matchingengine/engine"
)

func encodeRecord(typ byte, orderID, price, count uint32, instrument string) []byte {
	buf := make([]byte, 28)
	buf[0] = typ
	binary.LittleEndian.PutUint32(buf[4:8], orderID)
	binary.LittleEndian.PutUint32(buf[8:12], price)
	binary.LittleEndian.PutUint32(buf[12:16], count)
	copy(buf[16:25], instrument)
	return buf
}

func startTestListener(t *testing.T) (*Listener, *syncBuffer, string) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "engine.sock")

	out := &syncBuffer{}
	sink := engine.NewOutputSink(out)
	global := engine.NewGlobalBook(sink, engine.NewClock())
	logger := zap.NewNop()

	ln := NewListener(sockPath, 8, global, sink, engine.NewClock(), os.Stdout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- ln.ListenAndServe(ctx) }()

	waitForSocket(t, sockPath)

	t.Cleanup(func() {
		cancel()
		ln.Close()
		ln.Wait()
	})

	return ln, out, sockPath
}

// syncBuffer guards a bytes.Buffer so the test can read it concurrently with
// worker goroutines still writing through OutputSink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

// Two connections trading two different instruments never observe each
// other's fills: each instrument's book is independent.
func TestServer_CrossInstrumentIndependenceAcrossTwoConnections(t *testing.T) {
	_, out, sockPath := startTestListener(t)

	connA, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer connA.Close()
	connB, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer connB.Close()

	_, err = connA.Write(encodeRecord('B', 1, 100, 10, "AAPL"))
	require.NoError(t, err)
	_, err = connA.Write(encodeRecord('S', 2, 100, 10, "AAPL"))
	require.NoError(t, err)

	_, err = connB.Write(encodeRecord('B', 3, 50, 5, "GOOG"))
	require.NoError(t, err)
	_, err = connB.Write(encodeRecord('S', 4, 50, 5, "GOOG"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 4
	}, 2*time.Second, 10*time.Millisecond)

	text := out.String()
	require.Contains(t, text, "AAPL")
	require.Contains(t, text, "GOOG")
	require.True(t, strings.Contains(text, "E 1 2 1 100 10"))
	require.True(t, strings.Contains(text, "E 3 4 1 50 5"))
}

func TestServer_CancelOverSocketEmitsAcceptedThenRejected(t *testing.T) {
	_, out, sockPath := startTestListener(t)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(encodeRecord('B', 1, 10, 1, "MSFT"))
	require.NoError(t, err)
	_, err = conn.Write(encodeRecord('C', 1, 0, 0, ""))
	require.NoError(t, err)
	_, err = conn.Write(encodeRecord('C', 1, 0, 0, ""))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 3
	}, 2*time.Second, 10*time.Millisecond)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.True(t, strings.HasPrefix(lines[1], "X 1 A"))
	require.True(t, strings.HasPrefix(lines[2], "X 1 R"))
}

func TestServer_UnrecognizedCommandByteClosesConnection(t *testing.T) {
	_, _, sockPath := startTestListener(t)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(encodeRecord('Z', 1, 1, 1, "A"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, readErr := conn.Read(buf)
	require.Error(t, readErr)
}
