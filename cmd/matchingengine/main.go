// Command matchingengine runs the concurrent limit-order matching engine.
// It listens on a Unix domain socket given as its sole positional argument,
// accepts one worker goroutine per connection, and writes the engine's
// Added/Executed/Deleted event log to standard output until it receives
// SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matchingengine/engine"
	"matchingengine/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, or error")
	backlog := flag.Int("backlog", 8, "listen backlog (not applied; the OS default is used; see server.Listener)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <socket path>\n", os.Args[0])
		flag.CommandLine.SetOutput(os.Stderr)
		flag.PrintDefaults()
		return 1
	}
	socketPath := flag.Arg(0)

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -log-level: %v\n", err)
		return 1
	}
	defer logger.Sync()

	clock := engine.NewClock()
	sink := engine.NewOutputSink(os.Stdout)
	global := engine.NewGlobalBook(sink, clock)

	ln := server.NewListener(socketPath, *backlog, global, sink, clock, os.Stdout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- ln.ListenAndServe(ctx) }()

	select {
	case <-ctx.Done():
		ln.Close()
		ln.Wait()
		os.Remove(socketPath)
		return 0
	case err := <-serveErr:
		if err != nil {
			logger.Error("listener failed", zap.Error(err))
			return 1
		}
		return 0
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
