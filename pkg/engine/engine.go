package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/util"
)

// snapshotDepth is how many price levels a book delta carries.
const snapshotDepth = 10

// Engine is the matching core. Each instrument's book, ledger and price
// state form one unit of mutual exclusion: all mutating operations against
// one instrument serialize on its lock, while distinct instruments process
// fully in parallel. Acknowledgment is in-memory commit only; persistence
// and notification ride the publisher as a best-effort side channel.
type Engine struct {
	log       *zap.SugaredLogger
	registry  *market.Registry
	validator *Validator
	pub       Publisher
	clock     util.Clock

	mu         sync.RWMutex
	states     map[market.Instrument]*instrumentState
	orderIndex map[string]market.Instrument // order id -> owning instrument
}

// instrumentState is everything one instrument owns. Guarded by mu.
type instrumentState struct {
	mu     sync.Mutex
	halted bool

	book   *book.OrderBook
	orders map[string]*book.Order // all admitted orders, including terminal
	ledger *Ledger
	price  *PriceState
}

// SubmitResult is the outcome of one submission: the order snapshot after
// processing and the trades it produced, in execution order.
type SubmitResult struct {
	Order  *book.Order
	Trades []Trade
}

// BookSnapshot is a consistent view of one instrument's book and derived
// prices. Zero price fields mean "no value" (valid prices are >= 1 cent).
type BookSnapshot struct {
	Instrument market.Instrument `json:"instrument"`
	Bids       []book.PriceLevel `json:"bids"`
	Asks       []book.PriceLevel `json:"asks"`
	LastPrice  int64             `json:"lastPrice"`
	MidPrice   int64             `json:"midPrice"`
	Spread     int64             `json:"spread"`
	Change24h  decimal.Decimal   `json:"change24h"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewEngine creates a matching engine over the given market catalog.
func NewEngine(log *zap.SugaredLogger, registry *market.Registry, pub Publisher, clock util.Clock) *Engine {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Engine{
		log:        log,
		registry:   registry,
		validator:  NewValidator(registry, clock),
		pub:        pub,
		clock:      clock,
		states:     make(map[market.Instrument]*instrumentState),
		orderIndex: make(map[string]market.Instrument),
	}
}

// state returns the instrument's state, creating it on first use.
func (e *Engine) state(in market.Instrument) *instrumentState {
	e.mu.RLock()
	st, ok := e.states[in]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.states[in]; ok {
		return st
	}
	st = &instrumentState{
		book:   book.NewOrderBook(),
		orders: make(map[string]*book.Order),
		ledger: NewLedger(in),
		price:  NewPriceState(),
	}
	e.states[in] = st
	return st
}

// Submit validates, matches and commits one order. Every call resolves to
// exactly one terminal decision before returning: accepted-resting, filled,
// partially-filled, or rejected.
func (e *Engine) Submit(req SubmitRequest) (*SubmitResult, error) {
	order, err := e.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	st := e.state(order.Instrument)

	st.mu.Lock()
	if st.halted {
		st.mu.Unlock()
		return nil, ErrInstrumentHalted
	}

	// FOK: verify total opposing liquidity at acceptable prices covers the
	// full quantity before committing anything. Runs under the same lock as
	// the matching below, so no cancel can slip between check and execute.
	if order.TIF == book.FOK {
		avail := st.book.AvailableWithin(order.Side.Opposite(), order.Price, order.Quantity)
		if avail < order.Quantity {
			order.Reject(e.clock.Now())
			e.recordOrder(st, order)
			st.mu.Unlock()
			return nil, ErrInsufficientLiquidity
		}
	}

	trades, err := e.match(st, order)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}

	mutated := len(trades) > 0

	// Time-in-force policy for any quantity still unfilled.
	now := e.clock.Now()
	if order.Remaining() > 0 {
		switch {
		case order.TIF == book.FOK:
			// Pre-checked above; a shortfall here means the check lied.
			err := e.halt(st, order.Instrument, fmt.Sprintf("FOK order %s passed liquidity check but filled %d/%d", order.ID, order.Filled, order.Quantity))
			st.mu.Unlock()
			return nil, err
		case order.Type == book.Limit && order.TIF == book.GTC:
			st.book.Insert(order)
			mutated = true
		default:
			// IOC and market orders: the remainder is discarded, never rests.
			if order.Filled == 0 {
				order.Cancel(now)
			}
		}
	}

	if st.book.Crossed() {
		err := e.halt(st, order.Instrument, "book crossed after matching completed")
		st.mu.Unlock()
		return nil, err
	}

	e.recordOrder(st, order)

	var delta *BookDelta
	if mutated {
		delta = e.bookDelta(st, order.Instrument, now)
	}
	var priceUpd *PriceUpdate
	if len(trades) > 0 {
		last, _ := st.price.LastPrice()
		priceUpd = &PriceUpdate{
			Instrument: order.Instrument,
			LastPrice:  last,
			Change24h:  st.price.Change24h(now),
			Volume:     st.price.Volume(),
			Timestamp:  now,
		}
	}
	result := &SubmitResult{Order: order.Clone(), Trades: trades}
	st.mu.Unlock()

	// Notify after the whole order finished processing: one book delta,
	// then the trades in commit order, then the price update.
	if delta != nil {
		e.pub.Publish(*delta)
	}
	for _, t := range trades {
		e.pub.Publish(TradeExecuted{Trade: t})
	}
	if priceUpd != nil {
		e.pub.Publish(*priceUpd)
	}
	return result, nil
}

// match crosses the incoming order against the opposite side until it is
// filled, the opposite side is exhausted, or prices no longer cross.
// Caller holds st.mu.
func (e *Engine) match(st *instrumentState, taker *book.Order) ([]Trade, error) {
	var trades []Trade

	for taker.Remaining() > 0 {
		maker := st.book.Best(taker.Side.Opposite())
		if maker == nil {
			break
		}
		if taker.Type == book.Limit && !crosses(taker.Side, taker.Price, maker.Price) {
			break
		}

		qty := min(taker.Remaining(), maker.Remaining())
		if qty <= 0 {
			return trades, e.halt(st, taker.Instrument, fmt.Sprintf("non-positive match quantity %d between %s and %s", qty, taker.ID, maker.ID))
		}

		// The taker executes at the price the maker posted, never better
		// and never worse.
		price := maker.Price
		now := e.clock.Now()
		taker.Fill(qty, now)
		maker.Fill(qty, now)

		trade := Trade{
			ID:         uuid.NewString(),
			Instrument: taker.Instrument,
			TakerSide:  taker.Side,
			Price:      price,
			Quantity:   qty,
			Total:      price * qty,
			Timestamp:  now,
		}
		if taker.Side == book.Buy {
			trade.BuyerID, trade.SellerID = taker.UserID, maker.UserID
			trade.BuyOrderID, trade.SellOrderID = taker.ID, maker.ID
		} else {
			trade.BuyerID, trade.SellerID = maker.UserID, taker.UserID
			trade.BuyOrderID, trade.SellOrderID = maker.ID, taker.ID
		}
		trade = st.ledger.Append(trade)
		st.price.Update(price, qty, now)
		trades = append(trades, trade)

		if maker.IsFilled() {
			st.book.Remove(maker.ID)
		}
		// A partially filled maker keeps its queue position.
	}
	return trades, nil
}

// crosses reports whether a limit taker at limitPrice crosses a maker
// resting at makerPrice.
func crosses(takerSide book.Side, limitPrice, makerPrice int64) bool {
	if takerSide == book.Buy {
		return limitPrice >= makerPrice
	}
	return limitPrice <= makerPrice
}

// Cancel removes a resting order. requesterID must be the order's owner;
// requester 0 is the system override used by settlement and admin tooling.
// Absent, terminal and foreign orders all fail with ErrNotCancellable.
func (e *Engine) Cancel(orderID string, requesterID int64) (*book.Order, error) {
	e.mu.RLock()
	in, ok := e.orderIndex[orderID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNotCancellable
	}

	st := e.state(in)
	st.mu.Lock()
	if st.halted {
		st.mu.Unlock()
		return nil, ErrInstrumentHalted
	}

	order, ok := st.orders[orderID]
	if !ok || !order.IsOpen() {
		st.mu.Unlock()
		return nil, ErrNotCancellable
	}
	if requesterID != 0 && order.UserID != requesterID {
		st.mu.Unlock()
		return nil, ErrNotCancellable
	}
	if _, resting := st.book.Remove(orderID); !resting {
		// Open but not resting can only be a just-admitted order mid-flight,
		// which the lock excludes.
		err := e.halt(st, in, fmt.Sprintf("open order %s missing from book", orderID))
		st.mu.Unlock()
		return nil, err
	}

	now := e.clock.Now()
	order.Cancel(now)
	delta := e.bookDelta(st, in, now)
	cp := order.Clone()
	st.mu.Unlock()

	e.pub.Publish(*delta)
	return cp, nil
}

// halt poisons the instrument's processor after an invariant violation.
// Caller holds st.mu.
func (e *Engine) halt(st *instrumentState, in market.Instrument, detail string) error {
	st.halted = true
	err := &InvariantError{Instrument: in.String(), Detail: detail}
	e.log.Errorw("instrument_halted", "instrument", in.String(), "detail", detail)
	return err
}

// recordOrder indexes an admitted order for later queries and cancellation.
// Caller holds st.mu.
func (e *Engine) recordOrder(st *instrumentState, o *book.Order) {
	st.orders[o.ID] = o
	e.mu.Lock()
	e.orderIndex[o.ID] = o.Instrument
	e.mu.Unlock()
}

// bookDelta builds the depth snapshot published after a mutation.
// Caller holds st.mu.
func (e *Engine) bookDelta(st *instrumentState, in market.Instrument, now time.Time) *BookDelta {
	return &BookDelta{
		Instrument: in,
		Bids:       st.book.Depth(book.Buy, snapshotDepth),
		Asks:       st.book.Depth(book.Sell, snapshotDepth),
		Timestamp:  now,
	}
}

// Snapshot returns a consistent view of the instrument's book and prices.
func (e *Engine) Snapshot(in market.Instrument, depth int) (*BookSnapshot, error) {
	if !e.registry.Exists(in) {
		return nil, fmt.Errorf("market %s not found", in)
	}
	if depth <= 0 {
		depth = snapshotDepth
	}

	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock.Now()
	snap := &BookSnapshot{
		Instrument: in,
		Bids:       st.book.Depth(book.Buy, depth),
		Asks:       st.book.Depth(book.Sell, depth),
		Change24h:  st.price.Change24h(now),
		Timestamp:  now,
	}
	if last, ok := st.price.LastPrice(); ok {
		snap.LastPrice = last
	}
	if mid, ok := st.book.MidPrice(); ok {
		snap.MidPrice = mid
	}
	if spread, ok := st.book.Spread(); ok {
		snap.Spread = spread
	}
	return snap, nil
}

// Trades returns the most recent trades for an instrument, newest first.
func (e *Engine) Trades(in market.Instrument, limit int) []Trade {
	if !e.registry.Exists(in) {
		return nil
	}
	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ledger.Last(limit)
}

// TradesSince returns all trades at or after t, oldest first.
func (e *Engine) TradesSince(in market.Instrument, t time.Time) []Trade {
	if !e.registry.Exists(in) {
		return nil
	}
	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ledger.Since(t)
}

// UserOrders returns copies of every order the user submitted on the
// instrument, including terminal ones.
func (e *Engine) UserOrders(in market.Instrument, userID int64) []*book.Order {
	if !e.registry.Exists(in) {
		return nil
	}
	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()

	var out []*book.Order
	for _, o := range st.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out
}

// Order returns a copy of one order by id.
func (e *Engine) Order(orderID string) (*book.Order, error) {
	e.mu.RLock()
	in, ok := e.orderIndex[orderID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}

	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()
	o, ok := st.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return o.Clone(), nil
}

// Halted reports whether the instrument's processor was poisoned by an
// invariant violation.
func (e *Engine) Halted(in market.Instrument) bool {
	if !e.registry.Exists(in) {
		return false
	}
	st := e.state(in)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.halted
}
