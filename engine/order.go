package engine

import "github.com/shopspring/decimal"

// Side is the direction of a resting or incoming order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Order is a single resting or in-flight limit order. While it rests on an
// InstrumentBook, prev/next thread it into that book's price-sorted list for
// its side; a freshly decoded order headed into Match has both nil.
//
// Price and Remaining are represented as decimal.Decimal rather than the
// wire's raw uint32 so that fill arithmetic (min, subtraction) never has to
// reason about integer overflow or truncation; the server's per-connection
// worker converts the decoded uint32 fields into decimals when it builds an
// Order, and event lines print the decimals directly.
type Order struct {
	ID            uint32
	Side          Side
	Price         decimal.Decimal
	Remaining     decimal.Decimal
	ExecutedCount int

	prev, next *Order
}

// NewOrder builds a fresh, unlinked order ready to be handed to
// InstrumentBook.Match. price and remaining must both be strictly positive;
// callers are expected to have validated that (the server's worker rejects
// zero price or count before building an Order).
func NewOrder(id uint32, side Side, price, remaining decimal.Decimal) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Remaining: remaining,
	}
}
