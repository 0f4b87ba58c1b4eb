package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchingengine/engine"
)

// Listener accepts Unix domain socket connections and spawns one worker
// goroutine per connection. It has no shared event loop: each worker reads,
// matches, and emits independently, contending with the others only inside
// GlobalBook's and OutputSink's brief critical sections.
type Listener struct {
	path    string
	backlog int

	global *engine.GlobalBook
	sink   *engine.OutputSink
	clock  *engine.Clock
	debug  io.Writer
	logger *zap.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewListener builds a Listener bound to path once ListenAndServe runs.
// backlog is advisory — see the comment in ListenAndServe — and debug is
// where Print-command dumps are written (typically os.Stdout).
func NewListener(path string, backlog int, global *engine.GlobalBook, sink *engine.OutputSink, clock *engine.Clock, debug io.Writer, logger *zap.Logger) *Listener {
	return &Listener{
		path:    path,
		backlog: backlog,
		global:  global,
		sink:    sink,
		clock:   clock,
		debug:   debug,
		logger:  logger,
	}
}

// ListenAndServe binds the Unix socket and accepts connections until ctx is
// cancelled or Accept fails. It blocks; callers typically run it in its own
// goroutine and wait on ctx.
//
// Go's net package does not expose the listen(2) backlog argument the way
// the C original's listen(fd, 8) does; the OS default backlog is used
// instead, and backlog is kept only as a documented, unused knob rather
// than silently dropped from the API surface.
func (l *Listener) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("unix", l.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.path, err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		connID := uuid.NewString()
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			w := newWorker(conn, connID, l.global, l.sink, l.clock, l.debug, l.logger)
			w.run()
		}()
	}
}

// Close closes the underlying listener, if open. It is idempotent and safe
// to call from any goroutine, including the ctx-cancellation watcher inside
// ListenAndServe.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}

// Wait blocks until every spawned worker has returned. Call it after the
// listener has stopped accepting to ensure a clean shutdown.
func (l *Listener) Wait() {
	l.wg.Wait()
}
