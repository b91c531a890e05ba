package market

import (
	"fmt"
	"time"
)

// Instrument identifies a tradeable (event, option) pair.
// Every order book, trade ledger and price feed is scoped to one Instrument.
type Instrument struct {
	EventID  int64
	OptionID int64
}

func (in Instrument) String() string {
	return fmt.Sprintf("%d:%d", in.EventID, in.OptionID)
}

// Status defines the trading status of a market
type Status int8

const (
	Active  Status = iota // Trading enabled
	Paused                // Trading halted (emergency)
	Settled               // Event resolved, market closed (terminal)
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Paused:
		return "Paused"
	case Settled:
		return "Settled"
	default:
		return "Unknown"
	}
}

// Params is a helper struct for creating markets with all parameters.
// This separates config from the runtime Market struct.
type Params struct {
	TickSize     int64
	MinPrice     int64
	MaxPrice     int64
	MinOrderSize int64
	MaxOrderSize int64
}

// DefaultBinary returns parameters for a standard binary event option:
// contracts priced 1 to 9999 cents ($0.01 to $99.99), penny ticks.
var DefaultBinary = Params{
	TickSize:     1,
	MinPrice:     1,
	MaxPrice:     9999,
	MinOrderSize: 1,
	MaxOrderSize: 1_000_000,
}

// Market defines all parameters for one tradeable event option.
// Prices are integer cents, quantities integer shares.
type Market struct {
	Instrument Instrument
	Title      string // e.g. "Will it rain tomorrow? YES"
	Status     Status

	// TickSize: minimum price increment in cents
	TickSize int64

	// Price bounds in cents. For binary options the contract can never be
	// worth less than MinPrice or more than MaxPrice.
	MinPrice int64
	MaxPrice int64

	// Order size limits in shares
	MinOrderSize int64
	MaxOrderSize int64

	CreatedAt time.Time
}

// New creates a market with validation.
func New(in Instrument, title string, p Params) (*Market, error) {
	if in.EventID <= 0 || in.OptionID <= 0 {
		return nil, fmt.Errorf("invalid instrument %s", in)
	}
	if p.TickSize <= 0 {
		return nil, fmt.Errorf("tick size must be positive, got %d", p.TickSize)
	}
	if p.MinPrice <= 0 || p.MaxPrice <= p.MinPrice {
		return nil, fmt.Errorf("invalid price bounds [%d, %d]", p.MinPrice, p.MaxPrice)
	}
	if p.MinOrderSize <= 0 || p.MaxOrderSize < p.MinOrderSize {
		return nil, fmt.Errorf("invalid order size bounds [%d, %d]", p.MinOrderSize, p.MaxOrderSize)
	}
	return &Market{
		Instrument:   in,
		Title:        title,
		Status:       Active,
		TickSize:     p.TickSize,
		MinPrice:     p.MinPrice,
		MaxPrice:     p.MaxPrice,
		MinOrderSize: p.MinOrderSize,
		MaxOrderSize: p.MaxOrderSize,
		CreatedAt:    time.Now(),
	}, nil
}

// NewWithDefaults creates a market using the standard binary-option parameters.
func NewWithDefaults(in Instrument, title string) (*Market, error) {
	return New(in, title, DefaultBinary)
}

// ValidatePrice checks a limit price against market rules.
func (m *Market) ValidatePrice(price int64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %d", price)
	}
	if price < m.MinPrice || price > m.MaxPrice {
		return fmt.Errorf("price %d outside bounds [%d, %d]", price, m.MinPrice, m.MaxPrice)
	}
	if price%m.TickSize != 0 {
		return fmt.Errorf("price %d not aligned to tick size %d", price, m.TickSize)
	}
	return nil
}

// ValidateQuantity checks an order quantity against market rules.
func (m *Market) ValidateQuantity(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if qty < m.MinOrderSize {
		return fmt.Errorf("quantity %d below minimum order size %d", qty, m.MinOrderSize)
	}
	if qty > m.MaxOrderSize {
		return fmt.Errorf("quantity %d above maximum order size %d", qty, m.MaxOrderSize)
	}
	return nil
}

// IsOpen reports whether the market accepts new orders.
func (m *Market) IsOpen() bool {
	return m.Status == Active
}
