package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
)

// Event is one notification emitted by the matching core after an order has
// finished processing: a book delta, an executed trade, or a price update.
type Event interface {
	EventInstrument() market.Instrument
}

// BookDelta carries the top-of-book depth snapshot after a submission or
// cancellation mutated the book. One delta per submission, not per fill.
type BookDelta struct {
	Instrument market.Instrument `json:"instrument"`
	Bids       []book.PriceLevel `json:"bids"`
	Asks       []book.PriceLevel `json:"asks"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (e BookDelta) EventInstrument() market.Instrument { return e.Instrument }

// TradeExecuted carries one executed trade.
type TradeExecuted struct {
	Trade Trade `json:"trade"`
}

func (e TradeExecuted) EventInstrument() market.Instrument { return e.Trade.Instrument }

// PriceUpdate carries the derived price state after trades executed.
type PriceUpdate struct {
	Instrument market.Instrument `json:"instrument"`
	LastPrice  int64             `json:"lastPrice"`
	Change24h  decimal.Decimal   `json:"change24h"`
	Volume     int64             `json:"volume"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (e PriceUpdate) EventInstrument() market.Instrument { return e.Instrument }

// Publisher receives events from the matching core. Publish must never
// block: the match result is committed before, and independently of, any
// downstream delivery.
type Publisher interface {
	Publish(Event)
}

// Subscriber consumes the ordered event stream of the dispatcher.
type Subscriber interface {
	OnEvent(Event)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Dispatcher fans events out to subscribers from a single goroutine, so
// every subscriber observes events in exactly the order the matching core
// committed them. Publish is non-blocking: when the buffer is full the
// event is dropped and counted, never stalling a match.
type Dispatcher struct {
	log     *zap.SugaredLogger
	events  chan Event
	dropped atomic.Uint64

	mu   sync.RWMutex
	subs []Subscriber
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(log *zap.SugaredLogger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Dispatcher{
		log:    log,
		events: make(chan Event, buffer),
	}
}

// Subscribe registers a consumer. Must be called before Run.
func (d *Dispatcher) Subscribe(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, s)
}

// Publish enqueues an event without blocking.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.events <- ev:
	default:
		n := d.dropped.Add(1)
		if n%1000 == 1 {
			d.log.Warnw("event_dropped", "instrument", ev.EventInstrument().String(), "total_dropped", n)
		}
	}
}

// Dropped returns the number of events discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is cancelled. Run in a single goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Infow("dispatcher_started", "buffer", cap(d.events))
	for {
		select {
		case <-ctx.Done():
			d.log.Infow("dispatcher_stopped", "dropped", d.dropped.Load())
			return
		case ev := <-d.events:
			d.mu.RLock()
			subs := d.subs
			d.mu.RUnlock()
			for _, s := range subs {
				s.OnEvent(ev)
			}
		}
	}
}
