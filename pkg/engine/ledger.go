package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
)

// Trade is an immutable record of one execution. Created only by the
// matching core, never mutated. Seq is gap-free per instrument.
type Trade struct {
	ID          string            `json:"id"`
	Instrument  market.Instrument `json:"instrument"`
	BuyerID     int64             `json:"buyerId"`
	SellerID    int64             `json:"sellerId"`
	BuyOrderID  string            `json:"buyOrderId"`
	SellOrderID string            `json:"sellOrderId"`
	TakerSide   book.Side         `json:"takerSide"`
	Price       int64             `json:"price"`    // cents
	Quantity    int64             `json:"quantity"` // shares
	Total       int64             `json:"total"`    // cents, Price*Quantity
	Seq         uint64            `json:"seq"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Ledger is the append-only, time-ordered record of executed trades for one
// instrument. Appends happen only while the matching core holds the
// instrument lock, which is what makes the sequence gap-free.
type Ledger struct {
	instrument market.Instrument
	nextSeq    uint64
	trades     []Trade
}

// NewLedger creates an empty trade ledger for one instrument.
func NewLedger(in market.Instrument) *Ledger {
	return &Ledger{instrument: in, nextSeq: 1}
}

// Append stamps the trade with the next sequence number and records it.
func (l *Ledger) Append(t Trade) Trade {
	t.Seq = l.nextSeq
	l.nextSeq++
	l.trades = append(l.trades, t)
	return t
}

// Len returns the number of recorded trades.
func (l *Ledger) Len() int {
	return len(l.trades)
}

// Last returns the most recent n trades, newest first.
func (l *Ledger) Last(n int) []Trade {
	if n <= 0 || n > len(l.trades) {
		n = len(l.trades)
	}
	out := make([]Trade, 0, n)
	for i := len(l.trades) - 1; i >= len(l.trades)-n; i-- {
		out = append(out, l.trades[i])
	}
	return out
}

// Since returns all trades at or after t, oldest first.
func (l *Ledger) Since(t time.Time) []Trade {
	// Trades are appended in time order; find the first index in range.
	lo, hi := 0, len(l.trades)
	for lo < hi {
		mid := (lo + hi) / 2
		if l.trades[mid].Timestamp.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	out := make([]Trade, len(l.trades)-lo)
	copy(out, l.trades[lo:])
	return out
}

// PriceAt returns the last trade price at or before t,
// or false if no trade preceded t.
func (l *Ledger) PriceAt(t time.Time) (int64, bool) {
	for i := len(l.trades) - 1; i >= 0; i-- {
		if !l.trades[i].Timestamp.After(t) {
			return l.trades[i].Price, true
		}
	}
	return 0, false
}

// VWAP computes the volume-weighted average price over the last n trades.
// Returns false when the ledger is empty.
func (l *Ledger) VWAP(n int) (decimal.Decimal, bool) {
	if len(l.trades) == 0 {
		return decimal.Zero, false
	}
	if n <= 0 || n > len(l.trades) {
		n = len(l.trades)
	}

	var totalValue, totalQty int64
	for i := len(l.trades) - 1; i >= len(l.trades)-n; i-- {
		totalValue += l.trades[i].Total
		totalQty += l.trades[i].Quantity
	}
	if totalQty == 0 {
		return decimal.Zero, false
	}
	// Value is in cents; report VWAP in dollars with cent precision kept.
	return decimal.New(totalValue, -2).Div(decimal.NewFromInt(totalQty)), true
}
