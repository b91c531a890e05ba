package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// pricePoint is one (time, price) sample kept for the 24h window.
type pricePoint struct {
	ts    time.Time
	price int64
}

// PriceState holds the derived price statistics for one instrument:
// last trade price, counters, and a trailing 24h window for the change
// figure. It is updated synchronously on every trade by the matching core
// and read under the same instrument lock.
type PriceState struct {
	lastPrice  int64
	tradeCount int64
	volume     int64 // shares
	notional   int64 // cents

	window  []pricePoint // pruned to the trailing 24h plus one older sample
	horizon time.Duration
}

// NewPriceState creates price state with the standard 24h change horizon.
func NewPriceState() *PriceState {
	return &PriceState{horizon: 24 * time.Hour}
}

// Update applies one trade.
func (ps *PriceState) Update(price, qty int64, now time.Time) {
	ps.lastPrice = price
	ps.tradeCount++
	ps.volume += qty
	ps.notional += price * qty
	ps.window = append(ps.window, pricePoint{ts: now, price: price})
	ps.prune(now)
}

// prune drops samples older than the horizon, keeping the newest of them as
// the reference point for the change computation.
func (ps *PriceState) prune(now time.Time) {
	cutoff := now.Add(-ps.horizon)
	i := 0
	for i < len(ps.window) && ps.window[i].ts.Before(cutoff) {
		i++
	}
	if i > 1 {
		ps.window = ps.window[i-1:]
	}
}

// LastPrice returns the most recent trade price, or false before any trade.
func (ps *PriceState) LastPrice() (int64, bool) {
	if ps.tradeCount == 0 {
		return 0, false
	}
	return ps.lastPrice, true
}

// TradeCount returns the number of trades applied.
func (ps *PriceState) TradeCount() int64 { return ps.tradeCount }

// Volume returns total traded shares.
func (ps *PriceState) Volume() int64 { return ps.volume }

// Change24h returns the percent change of the last price versus the price as
// of 24 hours before now, rounded to two decimal places. Zero when there is
// no trade or no reference sample old enough.
func (ps *PriceState) Change24h(now time.Time) decimal.Decimal {
	if ps.tradeCount == 0 || len(ps.window) == 0 {
		return decimal.Zero
	}
	cutoff := now.Add(-ps.horizon)

	// Reference: the newest sample at or before the cutoff; if every sample
	// is younger than 24h, the oldest one stands in (price "since listing").
	ref := ps.window[0].price
	for _, p := range ps.window {
		if p.ts.After(cutoff) {
			break
		}
		ref = p.price
	}
	if ref == 0 {
		return decimal.Zero
	}

	last := decimal.NewFromInt(ps.lastPrice)
	base := decimal.NewFromInt(ref)
	return last.Sub(base).Div(base).Mul(decimal.NewFromInt(100)).Round(2)
}
