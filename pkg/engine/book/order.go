package book

import (
	"time"

	"github.com/eventbook/eventbook/pkg/market"
)

// Side of an order: Buy (bid) or Sell (ask)
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return "Unknown"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType distinguishes price-limited orders from marketable sweeps.
type OrderType int8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "Limit"
	case Market:
		return "Market"
	default:
		return "Unknown"
	}
}

// TimeInForce controls what happens to unfilled quantity after matching.
type TimeInForce int8

const (
	GTC TimeInForce = iota // Good Till Cancelled: remainder rests in the book
	IOC                    // Immediate Or Cancel: remainder is discarded
	FOK                    // Fill Or Kill: all-or-nothing, checked before any fill
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "Unknown"
	}
}

// Status of an order. Cancelled, Rejected and Filled are terminal.
type Status int8

const (
	Pending Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Filled:
		return "Filled"
	case Cancelled:
		return "Cancelled"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Order is a request to buy or sell shares of one event option.
// Prices are integer cents, quantities integer shares.
// Only the matching core mutates an order after admission.
type Order struct {
	ID         string            `json:"id"`
	UserID     int64             `json:"userId"`
	Instrument market.Instrument `json:"instrument"`
	Side       Side              `json:"side"`
	Type       OrderType         `json:"type"`
	TIF        TimeInForce       `json:"timeInForce"`
	Price      int64             `json:"price"` // cents; 0 for market orders
	Quantity   int64             `json:"quantity"`
	Filled     int64             `json:"filled"`
	Status     Status            `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.Filled
}

// IsFilled reports whether the order is completely executed.
func (o *Order) IsFilled() bool {
	return o.Filled >= o.Quantity
}

// IsOpen reports whether the order can still trade or be cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == Pending || o.Status == PartiallyFilled
}

// IsTerminal reports whether the order can never transition again.
func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled || o.Status == Rejected
}

// Fill records an execution of qty shares and advances the status machine.
// Filled is monotonically non-decreasing; the caller guarantees
// qty <= Remaining().
func (o *Order) Fill(qty int64, now time.Time) {
	o.Filled += qty
	if o.IsFilled() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	o.UpdatedAt = now
}

// Cancel moves the order to its terminal Cancelled state.
func (o *Order) Cancel(now time.Time) {
	o.Status = Cancelled
	o.UpdatedAt = now
}

// Reject moves the order to its terminal Rejected state.
func (o *Order) Reject(now time.Time) {
	o.Status = Rejected
	o.UpdatedAt = now
}

// Clone returns a copy safe to hand outside the matching core.
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}
