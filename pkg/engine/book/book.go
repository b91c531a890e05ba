package book

import (
	"container/heap"
	"sort"
)

// PriceLevel is the aggregated resting quantity at one price.
type PriceLevel struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

// OrderBook holds the resting limit orders for one instrument.
//
// Bids are matched highest price first, asks lowest price first; within a
// price level orders keep strict FIFO arrival order. Only the matching core
// touches the book, always under the instrument's exclusive lock, so the
// book itself carries no synchronization.
type OrderBook struct {
	// Heap-based best price tracking (O(1) peek)
	bidHeap *maxPriceHeap
	askHeap *minPriceHeap

	// Price level queues (FIFO within each price)
	bids map[int64][]*Order
	asks map[int64][]*Order

	// Order index for O(1) cancellation
	byID map[string]*Order
}

// NewOrderBook creates an empty book.
func NewOrderBook() *OrderBook {
	bidHeap := &maxPriceHeap{}
	askHeap := &minPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[int64][]*Order),
		asks:    make(map[int64][]*Order),
		byID:    make(map[string]*Order),
	}
}

func (ob *OrderBook) levels(side Side) map[int64][]*Order {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

// Insert adds a resting order at the back of its price level queue.
// The order must be an open limit order with remaining quantity.
func (ob *OrderBook) Insert(o *Order) {
	lv := ob.levels(o.Side)
	if len(lv[o.Price]) == 0 {
		// New price level - add to heap
		if o.Side == Buy {
			heap.Push(ob.bidHeap, o.Price)
		} else {
			heap.Push(ob.askHeap, o.Price)
		}
	}
	lv[o.Price] = append(lv[o.Price], o)
	ob.byID[o.ID] = o
}

// Remove takes an order out of the book. Returns the order and true if it
// was resting, nil and false otherwise.
func (ob *OrderBook) Remove(id string) (*Order, bool) {
	o, ok := ob.byID[id]
	if !ok {
		return nil, false
	}

	lv := ob.levels(o.Side)
	queue := lv[o.Price]
	for i, q := range queue {
		if q.ID == id {
			lv[o.Price] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(lv[o.Price]) == 0 {
		delete(lv, o.Price)
		ob.removeFromHeap(o.Side, o.Price)
	}
	delete(ob.byID, id)
	return o, true
}

// removeFromHeap removes a price level from a side's heap
// (O(N) worst case, but level churn is rare relative to matches).
func (ob *OrderBook) removeFromHeap(side Side, price int64) {
	if side == Buy {
		for i := 0; i < ob.bidHeap.Len(); i++ {
			if (*ob.bidHeap)[i] == price {
				heap.Remove(ob.bidHeap, i)
				return
			}
		}
		return
	}
	for i := 0; i < ob.askHeap.Len(); i++ {
		if (*ob.askHeap)[i] == price {
			heap.Remove(ob.askHeap, i)
			return
		}
	}
}

// Get returns a resting order by ID.
func (ob *OrderBook) Get(id string) (*Order, bool) {
	o, ok := ob.byID[id]
	return o, ok
}

// BestBid returns the highest bid price, or false if the bid side is empty.
func (ob *OrderBook) BestBid() (int64, bool) {
	if ob.bidHeap.Len() == 0 {
		return 0, false
	}
	return ob.bidHeap.Peek(), true
}

// BestAsk returns the lowest ask price, or false if the ask side is empty.
func (ob *OrderBook) BestAsk() (int64, bool) {
	if ob.askHeap.Len() == 0 {
		return 0, false
	}
	return ob.askHeap.Peek(), true
}

// Best returns the top-of-book order for the given side: best price,
// earliest arrival. Returns nil if the side is empty.
func (ob *OrderBook) Best(side Side) *Order {
	var price int64
	var ok bool
	if side == Buy {
		price, ok = ob.BestBid()
	} else {
		price, ok = ob.BestAsk()
	}
	if !ok {
		return nil
	}
	queue := ob.levels(side)[price]
	if len(queue) == 0 {
		return nil
	}
	return queue[0]
}

// Depth returns aggregated quantity per price level for one side,
// best price first, up to max levels (0 = all).
func (ob *OrderBook) Depth(side Side, max int) []PriceLevel {
	lv := ob.levels(side)
	prices := make([]int64, 0, len(lv))
	for p := range lv {
		prices = append(prices, p)
	}
	if side == Buy {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	}
	if max > 0 && len(prices) > max {
		prices = prices[:max]
	}

	out := make([]PriceLevel, 0, len(prices))
	for _, p := range prices {
		var total int64
		for _, o := range lv[p] {
			total += o.Remaining()
		}
		out = append(out, PriceLevel{Price: p, Quantity: total, Orders: len(lv[p])})
	}
	return out
}

// AvailableWithin sums the resting quantity on one side at prices acceptable
// to an incoming order with the given limit (limit 0 means any price, i.e. a
// market order). For side == Sell the acceptable prices are <= limit, for
// side == Buy they are >= limit. Stops counting once want is covered.
func (ob *OrderBook) AvailableWithin(side Side, limit int64, want int64) int64 {
	lv := ob.levels(side)
	var total int64
	for p, queue := range lv {
		if limit > 0 {
			if side == Sell && p > limit {
				continue
			}
			if side == Buy && p < limit {
				continue
			}
		}
		for _, o := range queue {
			total += o.Remaining()
			if total >= want {
				return total
			}
		}
	}
	return total
}

// Len returns the number of resting orders on one side.
func (ob *OrderBook) Len(side Side) int {
	var n int
	for _, queue := range ob.levels(side) {
		n += len(queue)
	}
	return n
}

// MidPrice returns the average of best bid and best ask,
// or false if either side is empty.
func (ob *OrderBook) MidPrice() (int64, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns best ask minus best bid, or false if either side is empty.
func (ob *OrderBook) Spread() (int64, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask - bid, true
}

// Crossed reports whether the book contains a crossable pair
// (best bid >= best ask). Must never hold after matching completes.
func (ob *OrderBook) Crossed() bool {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	return okB && okA && bid >= ask
}
