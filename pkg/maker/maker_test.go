package maker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/util"
)

var testInstrument = market.Instrument{EventID: 1, OptionID: 1}

func newTestSetup(t *testing.T) (*engine.Engine, *market.Market) {
	t.Helper()
	registry := market.NewRegistry()
	mkt, err := market.NewWithDefaults(testInstrument, "Test Market")
	if err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(mkt); err != nil {
		t.Fatal(err)
	}
	clock := util.NewManualClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	return engine.NewEngine(zap.NewNop().Sugar(), registry, nil, clock), mkt
}

func TestSeedLadder(t *testing.T) {
	eng, mkt := newTestSetup(t)
	m := New(zap.NewNop().Sugar(), eng, DefaultConfig(42))

	placed, err := m.Seed(mkt)
	if err != nil {
		t.Fatal(err)
	}
	if placed != 10 {
		t.Errorf("placed = %d, want 10", placed)
	}

	snap, err := eng.Snapshot(testInstrument, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Bids) != 5 || len(snap.Asks) != 5 {
		t.Fatalf("levels = %d bids %d asks, want 5 each", len(snap.Bids), len(snap.Asks))
	}

	// 2% spread on 5000 is a 50-cent half spread.
	if snap.Bids[0].Price != 4950 {
		t.Errorf("best bid = %d, want 4950", snap.Bids[0].Price)
	}
	if snap.Asks[0].Price != 5050 {
		t.Errorf("best ask = %d, want 5050", snap.Asks[0].Price)
	}
	for _, lv := range append(snap.Bids, snap.Asks...) {
		if lv.Quantity != 100 {
			t.Errorf("level %d quantity = %d, want 100", lv.Price, lv.Quantity)
		}
	}
}

func TestSeedClampsToPriceBounds(t *testing.T) {
	eng, mkt := newTestSetup(t)
	cfg := DefaultConfig(42)
	cfg.InitialPrice = 200 // deep ladders would go below MinPrice
	cfg.PriceStep = 100
	m := New(zap.NewNop().Sugar(), eng, cfg)

	placed, err := m.Seed(mkt)
	if err != nil {
		t.Fatal(err)
	}
	// Bids at 198 and 98 fit; deeper bids fall below MinPrice. All 5 asks fit.
	if placed != 7 {
		t.Errorf("placed = %d, want 7", placed)
	}

	snap, _ := eng.Snapshot(testInstrument, 0)
	for _, lv := range snap.Bids {
		if lv.Price < mkt.MinPrice {
			t.Errorf("bid %d below market minimum", lv.Price)
		}
	}
}

func TestSeedInvalidConfig(t *testing.T) {
	eng, mkt := newTestSetup(t)
	cfg := DefaultConfig(42)
	cfg.Levels = 0
	m := New(zap.NewNop().Sugar(), eng, cfg)

	if _, err := m.Seed(mkt); err == nil {
		t.Error("zero levels should fail")
	}
}

func TestSeededLiquidityIsTradeable(t *testing.T) {
	eng, mkt := newTestSetup(t)
	m := New(zap.NewNop().Sugar(), eng, DefaultConfig(42))
	if _, err := m.Seed(mkt); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Submit(engine.SubmitRequest{
		UserID:      7,
		EventID:     testInstrument.EventID,
		OptionID:    testInstrument.OptionID,
		Side:        book.Buy,
		Type:        book.Market,
		TimeInForce: book.IOC,
		Quantity:    150,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Order.Status != book.Filled {
		t.Errorf("status = %s, want Filled against seeded asks", res.Order.Status)
	}
	// Sweeps the 100 at 5050 then 50 at 5150.
	if len(res.Trades) != 2 || res.Trades[0].Price != 5050 || res.Trades[1].Price != 5150 {
		t.Errorf("trades = %+v", res.Trades)
	}
}

func TestCustomSpread(t *testing.T) {
	eng, mkt := newTestSetup(t)
	cfg := DefaultConfig(42)
	cfg.Spread = decimal.NewFromFloat(0.10)
	m := New(zap.NewNop().Sugar(), eng, cfg)

	if _, err := m.Seed(mkt); err != nil {
		t.Fatal(err)
	}
	snap, _ := eng.Snapshot(testInstrument, 0)
	// 10% of 5000 is a 250-cent half spread.
	if snap.Bids[0].Price != 4750 || snap.Asks[0].Price != 5250 {
		t.Errorf("best bid/ask = %d/%d, want 4750/5250", snap.Bids[0].Price, snap.Asks[0].Price)
	}
}
