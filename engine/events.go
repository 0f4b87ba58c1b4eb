package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The three event line formats from the protocol, produced by
// InstrumentBook (and, for a cancel whose id is unknown to GlobalBook, by the
// server's worker) and handed to OutputSink.Emit. Kept as
// plain formatting functions rather than a richer event type hierarchy
// because nothing downstream of the sink ever inspects a formatted line —
// it is written once and never parsed back.

// FormatAdded renders an order-added line: "<B|S> id symbol price count in out".
func FormatAdded(id uint32, symbol string, price, remaining decimal.Decimal, isSellSide bool, inputTS, outputTS int64) string {
	side := "B"
	if isSellSide {
		side = "S"
	}
	return fmt.Sprintf("%s %d %s %s %s %d %d", side, id, symbol, price.String(), remaining.String(), inputTS, outputTS)
}

// FormatExecuted renders an execution line:
// "E resting_id new_id execution_id price count in out".
func FormatExecuted(restingID, newID uint32, executionID int, price, count decimal.Decimal, inputTS, outputTS int64) string {
	return fmt.Sprintf("E %d %d %d %s %s %d %d", restingID, newID, executionID, price.String(), count.String(), inputTS, outputTS)
}

// FormatDeleted renders a cancel-outcome line: "X id A|R in out".
func FormatDeleted(id uint32, accepted bool, inputTS, outputTS int64) string {
	outcome := "R"
	if accepted {
		outcome = "A"
	}
	return fmt.Sprintf("X %d %s %d %d", id, outcome, inputTS, outputTS)
}
