package engine

import (
	"fmt"
	"io"
	"sync"
)

// GlobalBook maps instrument symbols to their InstrumentBook and order ids
// to the symbol they currently rest under. Its mutex guards only those two
// maps — lookups and insertions — never the matching work itself, which is
// why cross-instrument traffic only contends briefly here before moving on
// to its own InstrumentBook's mutex.
type GlobalBook struct {
	mu          sync.Mutex
	instruments map[string]*InstrumentBook
	idToSymbol  map[uint32]string

	sink  *OutputSink
	clock *Clock
}

// NewGlobalBook creates an empty GlobalBook. sink and clock are shared with
// every InstrumentBook this GlobalBook creates.
func NewGlobalBook(sink *OutputSink, clock *Clock) *GlobalBook {
	return &GlobalBook{
		instruments: make(map[string]*InstrumentBook),
		idToSymbol:  make(map[uint32]string),
		sink:        sink,
		clock:       clock,
	}
}

// ResolveForTrade records that orderID will belong to symbol and returns
// that symbol's InstrumentBook, creating it on first use. The id→symbol
// entry is written before matching runs: it is the only moment the caller
// is certain which book the id will belong to. If the order never rests
// (fully matched immediately) the entry goes stale, which Cancel's
// missing-in-byID handling tolerates.
func (g *GlobalBook) ResolveForTrade(orderID uint32, symbol string) *InstrumentBook {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idToSymbol[orderID] = symbol

	book, ok := g.instruments[symbol]
	if !ok {
		book = NewInstrumentBook(symbol, g.sink, g.clock)
		g.instruments[symbol] = book
	}
	return book
}

// ResolveForCancel looks up and unconditionally removes orderID from
// idToSymbol. A second cancel of the same id is always rejected because the
// first call already consumed the mapping, regardless of whether the order
// was still resting in its InstrumentBook.
func (g *GlobalBook) ResolveForCancel(orderID uint32) (*InstrumentBook, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	symbol, ok := g.idToSymbol[orderID]
	if !ok {
		return nil, false
	}
	delete(g.idToSymbol, orderID)

	// Invariant: an id_to_symbol entry only exists for a symbol whose
	// InstrumentBook has already been created by ResolveForTrade.
	book := g.instruments[symbol]
	return book, true
}

// DumpAll writes a best-effort debug snapshot of every instrument's book to
// w. The GlobalBook mutex is held only long enough to snapshot the
// instrument list; each book's own mutex guards its own dump.
func (g *GlobalBook) DumpAll(w io.Writer) {
	g.mu.Lock()
	books := make([]*InstrumentBook, 0, len(g.instruments))
	for _, book := range g.instruments {
		books = append(books, book)
	}
	g.mu.Unlock()

	fmt.Fprintln(w, "============================================")
	fmt.Fprintln(w, "[Order Book]")
	for _, book := range books {
		book.DumpOrders(w)
	}
	fmt.Fprintln(w, "============================================")
}
