package server

import (
	"errors"
	"io"
	"net"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matchingengine/engine"
	"matchingengine/protocol"
)

// worker is the per-connection command loop: read one record, timestamp
// it, resolve the owning InstrumentBook through GlobalBook, and dispatch.
// One worker runs per accepted connection; termination of one never
// affects another.
type worker struct {
	conn   net.Conn
	connID string

	global *engine.GlobalBook
	sink   *engine.OutputSink
	clock  *engine.Clock
	debug  io.Writer

	logger *zap.Logger
}

func newWorker(conn net.Conn, connID string, global *engine.GlobalBook, sink *engine.OutputSink, clock *engine.Clock, debug io.Writer, logger *zap.Logger) *worker {
	return &worker{
		conn:   conn,
		connID: connID,
		global: global,
		sink:   sink,
		clock:  clock,
		debug:  debug,
		logger: logger,
	}
}

// run loops until end-of-stream or a fatal read/framing error, then closes
// the connection. It never panics out to the caller: every error path here
// is either a normal termination or a logged, local one.
func (w *worker) run() {
	defer w.conn.Close()

	dec := protocol.NewDecoder(w.conn)
	for {
		cmd, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			w.logger.Error("framing error, closing connection",
				zap.String("conn_id", w.connID), zap.Error(err))
			return
		}

		inputTS := w.clock.NowMicros()

		switch cmd.Type {
		case protocol.Buy, protocol.Sell:
			if !w.dispatchTrade(cmd, inputTS) {
				return
			}
		case protocol.Cancel:
			w.dispatchCancel(cmd, inputTS)
		case protocol.Print:
			w.global.DumpAll(w.debug)
		default:
			// Strict rejection (§9 open question 3): an unrecognized
			// command byte is a framing error, not a debug-print fallback.
			w.logger.Error("unrecognized command type, closing connection",
				zap.String("conn_id", w.connID), zap.Uint8("type", byte(cmd.Type)))
			return
		}
	}
}

// dispatchTrade handles a Buy or Sell record. It returns false when the
// record is rejected outright (closing the connection), true otherwise.
func (w *worker) dispatchTrade(cmd protocol.Command, inputTS int64) bool {
	if cmd.Price == 0 || cmd.Count == 0 {
		// §9 open question 4: price/count of zero are rejected, not clamped.
		w.logger.Error("rejected order with zero price or count, closing connection",
			zap.String("conn_id", w.connID), zap.Uint32("order_id", cmd.OrderID))
		return false
	}

	side := engine.Buy
	if cmd.Type == protocol.Sell {
		side = engine.Sell
	}

	order := engine.NewOrder(cmd.OrderID, side, decimal.NewFromInt(int64(cmd.Price)), decimal.NewFromInt(int64(cmd.Count)))
	book := w.global.ResolveForTrade(cmd.OrderID, cmd.Instrument)
	book.Match(order, inputTS)
	return true
}

// dispatchCancel handles a Cancel record.
func (w *worker) dispatchCancel(cmd protocol.Command, inputTS int64) {
	book, found := w.global.ResolveForCancel(cmd.OrderID)
	if !found {
		outputTS := w.clock.NowMicros()
		w.sink.Emit(engine.FormatDeleted(cmd.OrderID, false, inputTS, outputTS))
		return
	}
	book.Cancel(cmd.OrderID, inputTS)
}
