package engine

import (
	"github.com/google/uuid"

	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/util"
)

// SubmitRequest is a raw order request as received from a caller.
// Price is in cents and must be zero for market orders.
type SubmitRequest struct {
	UserID      int64
	EventID     int64
	OptionID    int64
	Side        book.Side
	Type        book.OrderType
	TimeInForce book.TimeInForce
	Price       int64
	Quantity    int64
}

// Validator checks structural and business constraints on incoming order
// requests before they reach the book. It has no side effects beyond
// producing the admitted order.
type Validator struct {
	registry *market.Registry
	clock    util.Clock
}

// NewValidator creates a validator backed by the market catalog.
func NewValidator(registry *market.Registry, clock util.Clock) *Validator {
	return &Validator{registry: registry, clock: clock}
}

// Validate returns an admitted order (Pending, zero filled, engine-assigned
// id) or an error: *ValidationError for malformed requests, ErrMarketClosed
// when the instrument is not open for trading.
func (v *Validator) Validate(req SubmitRequest) (*book.Order, error) {
	if req.UserID <= 0 {
		return nil, &ValidationError{Field: "userId", Reason: "must be positive"}
	}
	if req.Side != book.Buy && req.Side != book.Sell {
		return nil, &ValidationError{Field: "side", Reason: "must be Buy or Sell"}
	}
	if req.Type != book.Limit && req.Type != book.Market {
		return nil, &ValidationError{Field: "type", Reason: "must be Limit or Market"}
	}
	if req.TimeInForce != book.GTC && req.TimeInForce != book.IOC && req.TimeInForce != book.FOK {
		return nil, &ValidationError{Field: "timeInForce", Reason: "must be GTC, IOC or FOK"}
	}

	in := market.Instrument{EventID: req.EventID, OptionID: req.OptionID}
	mkt, err := v.registry.Get(in)
	if err != nil {
		return nil, &ValidationError{Field: "instrument", Reason: err.Error()}
	}
	if !mkt.IsOpen() {
		return nil, ErrMarketClosed
	}

	if err := mkt.ValidateQuantity(req.Quantity); err != nil {
		return nil, &ValidationError{Field: "quantity", Reason: err.Error()}
	}

	switch req.Type {
	case book.Limit:
		if err := mkt.ValidatePrice(req.Price); err != nil {
			return nil, &ValidationError{Field: "price", Reason: err.Error()}
		}
	case book.Market:
		if req.Price != 0 {
			return nil, &ValidationError{Field: "price", Reason: "must be zero for market orders"}
		}
		// Market orders are implicitly immediate: there is no price to rest
		// at, and an all-or-nothing sweep is expressed as Limit FOK.
		if req.TimeInForce == book.FOK {
			return nil, &ValidationError{Field: "timeInForce", Reason: "FOK is not supported for market orders"}
		}
	}

	now := v.clock.Now()
	return &book.Order{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Instrument: in,
		Side:       req.Side,
		Type:       req.Type,
		TIF:        req.TimeInForce,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Filled:     0,
		Status:     book.Pending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
