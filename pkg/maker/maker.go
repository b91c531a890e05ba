// Package maker seeds fresh markets with resting liquidity. It is an
// ordinary order-submitting client of the engine with no privileged access
// to the book.
package maker

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
)

// Config controls the shape of the seeded ladder.
type Config struct {
	// UserID the maker's orders are submitted under (the house account).
	UserID int64
	// InitialPrice in cents, typically 5000 ($50.00) for a fresh binary market.
	InitialPrice int64
	// Spread between best bid and best ask as a fraction of the initial
	// price (e.g. 0.02 = 2%).
	Spread decimal.Decimal
	// Levels per side.
	Levels int
	// LevelQty shares at each price level.
	LevelQty int64
	// PriceStep between adjacent levels, in cents.
	PriceStep int64
}

// DefaultConfig seeds five 100-share levels per side around $50.00 with a
// 2% spread and $1.00 steps.
func DefaultConfig(userID int64) Config {
	return Config{
		UserID:       userID,
		InitialPrice: 5000,
		Spread:       decimal.NewFromFloat(0.02),
		Levels:       5,
		LevelQty:     100,
		PriceStep:    100,
	}
}

// Maker submits GTC limit ladders through the engine.
type Maker struct {
	log    *zap.SugaredLogger
	engine *engine.Engine
	cfg    Config
}

func New(log *zap.SugaredLogger, eng *engine.Engine, cfg Config) *Maker {
	return &Maker{log: log, engine: eng, cfg: cfg}
}

// Seed places the initial ladder on one instrument: Levels bids below the
// initial price and Levels asks above it, separated by the configured
// spread, clamped to the market's price bounds. Returns the number of
// resting orders placed.
func (m *Maker) Seed(mkt *market.Market) (int, error) {
	if m.cfg.Levels <= 0 || m.cfg.LevelQty <= 0 {
		return 0, fmt.Errorf("invalid maker config: levels=%d qty=%d", m.cfg.Levels, m.cfg.LevelQty)
	}

	half := decimal.NewFromInt(m.cfg.InitialPrice).Mul(m.cfg.Spread).Div(decimal.NewFromInt(2))
	halfSpread := half.Ceil().IntPart()
	if halfSpread < mkt.TickSize {
		halfSpread = mkt.TickSize
	}

	bestBid := m.cfg.InitialPrice - halfSpread
	bestAsk := m.cfg.InitialPrice + halfSpread

	placed := 0
	for i := 0; i < m.cfg.Levels; i++ {
		step := int64(i) * m.cfg.PriceStep

		if price := bestBid - step; price >= mkt.MinPrice {
			if err := m.place(mkt.Instrument, book.Buy, price); err != nil {
				return placed, err
			}
			placed++
		}
		if price := bestAsk + step; price <= mkt.MaxPrice {
			if err := m.place(mkt.Instrument, book.Sell, price); err != nil {
				return placed, err
			}
			placed++
		}
	}

	m.log.Infow("market_seeded",
		"instrument", mkt.Instrument.String(),
		"orders", placed,
		"best_bid", bestBid,
		"best_ask", bestAsk,
	)
	return placed, nil
}

func (m *Maker) place(in market.Instrument, side book.Side, price int64) error {
	_, err := m.engine.Submit(engine.SubmitRequest{
		UserID:      m.cfg.UserID,
		EventID:     in.EventID,
		OptionID:    in.OptionID,
		Side:        side,
		Type:        book.Limit,
		TimeInForce: book.GTC,
		Price:       price,
		Quantity:    m.cfg.LevelQty,
	})
	if err != nil {
		return fmt.Errorf("seed %s %s at %d: %w", in, side, price, err)
	}
	return nil
}
