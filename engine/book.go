package engine

import (
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"
)

// InstrumentBook is the matching unit for one instrument symbol: two
// price-sorted doubly-linked lists of resting orders (bids descending,
// asks ascending), an index over every order currently resting on either
// side, and the mutex that protects all three. Match and Cancel each hold
// this mutex for their entire duration — within one call, interior steps
// may be non-atomic, but no other goroutine observes them.
type InstrumentBook struct {
	symbol string

	mu       sync.Mutex
	bidHead  *Order // highest bid first, descending
	askHead  *Order // lowest ask first, ascending
	byID     map[uint32]*Order

	sink  *OutputSink
	clock *Clock
}

// NewInstrumentBook creates an empty book for symbol. sink and clock are
// shared with every other book in the process (GlobalBook hands them out
// on creation); the book itself owns no synchronization beyond mu.
func NewInstrumentBook(symbol string, sink *OutputSink, clock *Clock) *InstrumentBook {
	return &InstrumentBook{
		symbol: symbol,
		byID:   make(map[uint32]*Order),
		sink:   sink,
		clock:  clock,
	}
}

// Match walks the opposite side of the book against order in price-time
// priority, emitting one Executed event per fill and — if any quantity
// remains after the walk — inserting the residual and emitting exactly one
// Added event. order must have positive Price and Remaining and must not
// already be linked into any book.
func (b *InstrumentBook) Match(order *Order, inputTS int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var headSlot **Order
	var crosses func(resting *Order) bool
	if order.Side == Buy {
		headSlot = &b.askHead
		crosses = func(resting *Order) bool { return order.Price.GreaterThanOrEqual(resting.Price) }
	} else {
		headSlot = &b.bidHead
		crosses = func(resting *Order) bool { return resting.Price.GreaterThanOrEqual(order.Price) }
	}

	cur := *headSlot
	for cur != nil && order.Remaining.Sign() > 0 && crosses(cur) {
		if cur.Remaining.Sign() <= 0 {
			// Defensive: a zero-sized resting order should never be
			// observable, but skip rather than trade against it.
			cur = cur.next
			continue
		}

		cur.ExecutedCount++
		fill := decimal.Min(cur.Remaining, order.Remaining)
		outputTS := b.clock.NowMicros()
		b.sink.Emit(FormatExecuted(cur.ID, order.ID, cur.ExecutedCount, cur.Price, fill, inputTS, outputTS))

		if cur.Remaining.GreaterThan(order.Remaining) {
			cur.Remaining = cur.Remaining.Sub(fill)
			order.Remaining = decimal.Zero
			break
		}

		order.Remaining = order.Remaining.Sub(fill)
		delete(b.byID, cur.ID)
		consumed := cur
		cur = cur.next
		consumed.next = nil
		consumed.prev = nil
	}

	*headSlot = cur
	if cur != nil {
		cur.prev = nil
	}

	if order.Remaining.Sign() > 0 {
		b.insert(order)
		outputTS := b.clock.NowMicros()
		b.sink.Emit(FormatAdded(order.ID, b.symbol, order.Price, order.Remaining, order.Side == Sell, inputTS, outputTS))
	}
}

// insert registers order in byID and links it into its side's sorted list.
// Equal-priced existing orders remain ahead of the new arrival (FIFO at
// each price level).
func (b *InstrumentBook) insert(order *Order) {
	b.byID[order.ID] = order
	if order.Side == Buy {
		b.insertBuy(order)
	} else {
		b.insertSell(order)
	}
}

// insertBuy links order into the descending-price bid list.
func (b *InstrumentBook) insertBuy(order *Order) {
	if b.bidHead == nil {
		b.bidHead = order
		return
	}
	if order.Price.GreaterThan(b.bidHead.Price) {
		order.next = b.bidHead
		b.bidHead.prev = order
		b.bidHead = order
		return
	}
	cur := b.bidHead
	for cur.next != nil && cur.next.Price.GreaterThanOrEqual(order.Price) {
		cur = cur.next
	}
	order.next = cur.next
	if cur.next != nil {
		cur.next.prev = order
	}
	cur.next = order
	order.prev = cur
}

// insertSell links order into the ascending-price ask list.
func (b *InstrumentBook) insertSell(order *Order) {
	if b.askHead == nil {
		b.askHead = order
		return
	}
	if order.Price.LessThan(b.askHead.Price) {
		order.next = b.askHead
		b.askHead.prev = order
		b.askHead = order
		return
	}
	cur := b.askHead
	for cur.next != nil && cur.next.Price.LessThanOrEqual(order.Price) {
		cur = cur.next
	}
	order.next = cur.next
	if cur.next != nil {
		cur.next.prev = order
	}
	cur.next = order
	order.prev = cur
}

// Cancel removes a resting order by id, if present, and emits exactly one
// Deleted event. It returns true when the cancel was accepted. Absence in
// byID — never resting here, already fully filled, or already cancelled —
// is not an error: it produces a rejected Deleted event.
func (b *InstrumentBook) Cancel(orderID uint32, inputTS int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.byID[orderID]
	if !ok {
		outputTS := b.clock.NowMicros()
		b.sink.Emit(FormatDeleted(orderID, false, inputTS, outputTS))
		return false
	}

	if order.prev == nil {
		if order.Side == Buy {
			b.bidHead = order.next
		} else {
			b.askHead = order.next
		}
	} else {
		order.prev.next = order.next
	}
	if order.next != nil {
		order.next.prev = order.prev
	}
	order.prev = nil
	order.next = nil
	delete(b.byID, orderID)

	outputTS := b.clock.NowMicros()
	b.sink.Emit(FormatDeleted(orderID, true, inputTS, outputTS))
	return true
}

// DumpOrders writes a best-effort debug snapshot of the book's resting
// orders to w: asks first (ascending), then bids (descending). Not part of
// the protocol contract — intended for the Print command only.
func (b *InstrumentBook) DumpOrders(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fmt.Fprintf(w, "[%s]\n", b.symbol)
	for cur := b.askHead; cur != nil; cur = cur.next {
		fmt.Fprintf(w, "S %d %s %s %s\n", cur.ID, b.symbol, cur.Price.String(), cur.Remaining.String())
	}
	for cur := b.bidHead; cur != nil; cur = cur.next {
		fmt.Fprintf(w, "B %d %s %s %s\n", cur.ID, b.symbol, cur.Price.String(), cur.Remaining.String())
	}
}
