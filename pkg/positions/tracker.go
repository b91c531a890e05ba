// Package positions tracks per-user holdings from the engine's trade
// stream. It is a downstream consumer: eventually consistent with the
// in-memory book, never consulted by the matching core.
package positions

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/market"
)

// Position is one user's holding in one instrument. AveragePrice is in
// dollars (cent precision); it reflects buys only, since sells reduce quantity
// at the standing average.
type Position struct {
	UserID       int64             `json:"userId"`
	Instrument   market.Instrument `json:"instrument"`
	Quantity     int64             `json:"quantity"`
	AveragePrice decimal.Decimal   `json:"averagePrice"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type key struct {
	user int64
	in   market.Instrument
}

// Tracker consumes TradeExecuted events and maintains positions.
type Tracker struct {
	log *zap.SugaredLogger

	mu        sync.RWMutex
	positions map[key]*Position
}

func NewTracker(log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		log:       log,
		positions: make(map[key]*Position),
	}
}

// OnEvent implements engine.Subscriber.
func (t *Tracker) OnEvent(ev engine.Event) {
	trade, ok := ev.(engine.TradeExecuted)
	if !ok {
		return
	}
	t.apply(&trade.Trade)
}

func (t *Tracker) apply(tr *engine.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()

	price := decimal.New(tr.Price, -2)
	t.applyChange(tr.BuyerID, tr.Instrument, tr.Quantity, price, tr.Timestamp)
	t.applyChange(tr.SellerID, tr.Instrument, -tr.Quantity, price, tr.Timestamp)
}

func (t *Tracker) applyChange(user int64, in market.Instrument, change int64, price decimal.Decimal, ts time.Time) {
	k := key{user: user, in: in}
	pos, exists := t.positions[k]
	if !exists {
		if change < 0 {
			// Short positions are settled elsewhere; the tracker only
			// follows long share inventory.
			t.log.Warnw("sell_without_position", "user", user, "instrument", in.String(), "quantity", -change)
			return
		}
		t.positions[k] = &Position{
			UserID:       user,
			Instrument:   in,
			Quantity:     change,
			AveragePrice: price,
			UpdatedAt:    ts,
		}
		return
	}

	newQty := pos.Quantity + change
	switch {
	case newQty <= 0:
		// Position closed (or over-sold, clamped flat).
		pos.Quantity = 0
		pos.AveragePrice = decimal.Zero
	case change > 0:
		// Buying: recompute the average entry price.
		oldCost := pos.AveragePrice.Mul(decimal.NewFromInt(pos.Quantity))
		addCost := price.Mul(decimal.NewFromInt(change))
		pos.AveragePrice = oldCost.Add(addCost).Div(decimal.NewFromInt(newQty)).Round(4)
		pos.Quantity = newQty
	default:
		// Selling: quantity shrinks, average price stands.
		pos.Quantity = newQty
	}
	pos.UpdatedAt = ts
}

// Position returns one user's holding in one instrument,
// or false if the user holds nothing there.
func (t *Tracker) Position(user int64, in market.Instrument) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[key{user: user, in: in}]
	if !ok || pos.Quantity == 0 {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns all non-empty holdings of one user.
func (t *Tracker) Positions(user int64) []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Position
	for k, pos := range t.positions {
		if k.user == user && pos.Quantity > 0 {
			out = append(out, *pos)
		}
	}
	return out
}

var _ engine.Subscriber = (*Tracker)(nil)
