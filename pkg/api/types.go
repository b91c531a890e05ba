package api

// API request/response types for REST endpoints and WebSocket messages.
// Prices cross the wire as decimal strings ("50.00"); internally the engine
// works in integer cents.

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/positions"
)

// ==============================
// REST Response Types
// ==============================

// MarketInfo represents one tradeable event option
type MarketInfo struct {
	EventID      int64  `json:"eventId"`
	OptionID     int64  `json:"optionId"`
	Title        string `json:"title"`
	Status       string `json:"status"` // "Active", "Paused", "Settled"
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
	MinOrderSize int64  `json:"minOrderSize"`
	MaxOrderSize int64  `json:"maxOrderSize"`
}

// PriceLevel represents aggregated depth at one price
type PriceLevel struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
	Orders   int    `json:"orders"`
}

// OrderbookResponse represents current book state for one instrument
type OrderbookResponse struct {
	EventID   int64        `json:"eventId"`
	OptionID  int64        `json:"optionId"`
	Bids      []PriceLevel `json:"bids"` // sorted high to low
	Asks      []PriceLevel `json:"asks"` // sorted low to high
	LastPrice string       `json:"lastPrice,omitempty"`
	MidPrice  string       `json:"midPrice,omitempty"`
	Spread    string       `json:"spread,omitempty"`
	Change24h string       `json:"change24h"`
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

// TradeInfo represents one executed trade
type TradeInfo struct {
	ID        string `json:"id"`
	EventID   int64  `json:"eventId"`
	OptionID  int64  `json:"optionId"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
	TakerSide string `json:"takerSide"` // "buy" or "sell"
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// OrderInfo represents an order (open or historical)
type OrderInfo struct {
	ID          string `json:"id"`
	UserID      int64  `json:"userId"`
	EventID     int64  `json:"eventId"`
	OptionID    int64  `json:"optionId"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"timeInForce"`
	Price       string `json:"price,omitempty"` // empty for market orders
	Quantity    int64  `json:"quantity"`
	Filled      int64  `json:"filled"`
	Remaining   int64  `json:"remaining"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"` // Unix milliseconds
}

// PositionInfo represents one user holding
type PositionInfo struct {
	EventID      int64  `json:"eventId"`
	OptionID     int64  `json:"optionId"`
	Quantity     int64  `json:"quantity"`
	AveragePrice string `json:"averagePrice"`
}

// SubmitOrderResponse is the outcome of one submission
type SubmitOrderResponse struct {
	Order  OrderInfo   `json:"order"`
	Trades []TradeInfo `json:"trades"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// SubmitOrderRequest is the payload for POST /api/v1/orders
type SubmitOrderRequest struct {
	UserID      int64  `json:"userId"`
	EventID     int64  `json:"eventId"`
	OptionID    int64  `json:"optionId"`
	Side        string `json:"side"`                  // "buy" | "sell"
	Type        string `json:"type"`                  // "limit" | "market"
	TimeInForce string `json:"timeInForce,omitempty"` // "GTC" (default) | "IOC" | "FOK"
	Price       string `json:"price,omitempty"`       // decimal string, omitted for market
	Quantity    int64  `json:"quantity"`
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel
type CancelOrderRequest struct {
	OrderID string `json:"orderId"`
	UserID  int64  `json:"userId"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the base structure for all WebSocket messages
type WSMessage struct {
	Type    string      `json:"type"` // "orderbook", "trade", "price"
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}

// WSSubscribeRequest is sent by clients to manage channel subscriptions
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["orderbook:7:3", "trades:7:3", "prices:7:3"]
}

// ==============================
// Conversions
// ==============================

// cents renders an engine cent amount as a decimal string; zero means
// "no value" and renders empty.
func cents(v int64) string {
	if v == 0 {
		return ""
	}
	return decimal.New(v, -2).StringFixed(2)
}

// parseCents parses a decimal price string into cents, rejecting sub-cent
// precision. Empty input parses to zero (no price).
func parseCents(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	c := d.Mul(decimal.NewFromInt(100))
	if !c.IsInteger() {
		return 0, fmt.Errorf("price %q has sub-cent precision", s)
	}
	return c.IntPart(), nil
}

func parseSide(s string) (book.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return book.Buy, nil
	case "sell":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

func parseType(s string) (book.OrderType, error) {
	switch strings.ToLower(s) {
	case "limit", "":
		return book.Limit, nil
	case "market":
		return book.Market, nil
	default:
		return 0, fmt.Errorf("invalid order type %q", s)
	}
}

func parseTIF(s string) (book.TimeInForce, error) {
	switch strings.ToUpper(s) {
	case "GTC", "":
		return book.GTC, nil
	case "IOC":
		return book.IOC, nil
	case "FOK":
		return book.FOK, nil
	default:
		return 0, fmt.Errorf("invalid time in force %q", s)
	}
}

func toMarketInfo(m *market.Market) MarketInfo {
	return MarketInfo{
		EventID:      m.Instrument.EventID,
		OptionID:     m.Instrument.OptionID,
		Title:        m.Title,
		Status:       m.Status.String(),
		MinPrice:     decimal.New(m.MinPrice, -2).StringFixed(2),
		MaxPrice:     decimal.New(m.MaxPrice, -2).StringFixed(2),
		MinOrderSize: m.MinOrderSize,
		MaxOrderSize: m.MaxOrderSize,
	}
}

func toPriceLevels(levels []book.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, lv := range levels {
		out[i] = PriceLevel{
			Price:    decimal.New(lv.Price, -2).StringFixed(2),
			Quantity: lv.Quantity,
			Orders:   lv.Orders,
		}
	}
	return out
}

func toTradeInfo(t engine.Trade) TradeInfo {
	return TradeInfo{
		ID:        t.ID,
		EventID:   t.Instrument.EventID,
		OptionID:  t.Instrument.OptionID,
		Price:     decimal.New(t.Price, -2).StringFixed(2),
		Quantity:  t.Quantity,
		TakerSide: strings.ToLower(t.TakerSide.String()),
		Seq:       t.Seq,
		Timestamp: t.Timestamp.UnixMilli(),
	}
}

func toOrderInfo(o *book.Order) OrderInfo {
	return OrderInfo{
		ID:          o.ID,
		UserID:      o.UserID,
		EventID:     o.Instrument.EventID,
		OptionID:    o.Instrument.OptionID,
		Side:        strings.ToLower(o.Side.String()),
		Type:        strings.ToLower(o.Type.String()),
		TimeInForce: o.TIF.String(),
		Price:       cents(o.Price),
		Quantity:    o.Quantity,
		Filled:      o.Filled,
		Remaining:   o.Remaining(),
		Status:      o.Status.String(),
		CreatedAt:   o.CreatedAt.UnixMilli(),
	}
}

func toPositionInfo(p positions.Position) PositionInfo {
	return PositionInfo{
		EventID:      p.Instrument.EventID,
		OptionID:     p.Instrument.OptionID,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice.StringFixed(2),
	}
}
