package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/engine/book"
	"github.com/eventbook/eventbook/pkg/market"
)

var testInstrument = market.Instrument{EventID: 1, OptionID: 1}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTrade(seq uint64, price int64) engine.Trade {
	return engine.Trade{
		ID:         fmt.Sprintf("trade-%d", seq),
		Instrument: testInstrument,
		BuyerID:    1,
		SellerID:   2,
		TakerSide:  book.Buy,
		Price:      price,
		Quantity:   10,
		Total:      price * 10,
		Seq:        seq,
		Timestamp:  time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
	}
}

func TestSaveAndLoadTrades(t *testing.T) {
	s := newTestStore(t)

	for seq := uint64(1); seq <= 5; seq++ {
		tr := testTrade(seq, 5000+int64(seq))
		if err := s.SaveTrade(&tr); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentTrades(testInstrument, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("trades = %d, want 3", len(got))
	}
	// Newest first.
	for i, tr := range got {
		want := uint64(5 - i)
		if tr.Seq != want {
			t.Errorf("trades[%d].Seq = %d, want %d", i, tr.Seq, want)
		}
	}

	// limit <= 0 means all, matching the ledger convention.
	if all, err := s.RecentTrades(testInstrument, 0); err != nil || len(all) != 5 {
		t.Errorf("RecentTrades(0) = %d trades, %v, want all 5", len(all), err)
	}
	if all, err := s.RecentTrades(testInstrument, -1); err != nil || len(all) != 5 {
		t.Errorf("RecentTrades(-1) = %d trades, %v, want all 5", len(all), err)
	}
}

func TestRecentTradesScopedToInstrument(t *testing.T) {
	s := newTestStore(t)

	tr := testTrade(1, 5000)
	if err := s.SaveTrade(&tr); err != nil {
		t.Fatal(err)
	}
	other := testTrade(1, 3000)
	other.Instrument = market.Instrument{EventID: 2, OptionID: 1}
	if err := s.SaveTrade(&other); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentTrades(testInstrument, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Price != 5000 {
		t.Errorf("got %d trades, want only the one on %s", len(got), testInstrument)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	s := newTestStore(t)

	if snap, err := s.LoadSnapshot(testInstrument); err != nil || snap != nil {
		t.Fatalf("LoadSnapshot on empty store = %v, %v, want nil, nil", snap, err)
	}

	delta := engine.BookDelta{
		Instrument: testInstrument,
		Bids:       []book.PriceLevel{{Price: 4900, Quantity: 100, Orders: 2}},
		Asks:       []book.PriceLevel{{Price: 5100, Quantity: 50, Orders: 1}},
		Timestamp:  time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSnapshot(&delta); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadSnapshot(testInstrument)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got.Bids) != 1 || got.Bids[0].Price != 4900 || len(got.Asks) != 1 {
		t.Errorf("snapshot = %+v", got)
	}

	// A second save replaces the first.
	delta.Bids = nil
	if err := s.SaveSnapshot(&delta); err != nil {
		t.Fatal(err)
	}
	got, _ = s.LoadSnapshot(testInstrument)
	if len(got.Bids) != 0 {
		t.Errorf("replaced snapshot still has bids: %+v", got.Bids)
	}
}

func TestPriceRoundtrip(t *testing.T) {
	s := newTestStore(t)

	if p, err := s.LoadPrice(testInstrument); err != nil || p != nil {
		t.Fatalf("LoadPrice on empty store = %v, %v, want nil, nil", p, err)
	}

	upd := engine.PriceUpdate{
		Instrument: testInstrument,
		LastPrice:  5200,
		Change24h:  decimal.NewFromFloat(4.25),
		Volume:     1234,
		Timestamp:  time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SavePrice(&upd); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadPrice(testInstrument)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastPrice != 5200 || got.Volume != 1234 {
		t.Errorf("price = %+v", got)
	}
	if !got.Change24h.Equal(upd.Change24h) {
		t.Errorf("change = %s, want %s", got.Change24h, upd.Change24h)
	}
}

func TestOnEventDispatch(t *testing.T) {
	s := newTestStore(t)

	tr := testTrade(1, 5000)
	s.OnEvent(engine.TradeExecuted{Trade: tr})
	s.OnEvent(engine.BookDelta{Instrument: testInstrument, Timestamp: tr.Timestamp})
	s.OnEvent(engine.PriceUpdate{Instrument: testInstrument, LastPrice: 5000, Timestamp: tr.Timestamp})

	if got, _ := s.RecentTrades(testInstrument, 10); len(got) != 1 {
		t.Errorf("trades persisted = %d, want 1", len(got))
	}
	if snap, _ := s.LoadSnapshot(testInstrument); snap == nil {
		t.Error("snapshot not persisted")
	}
	if p, _ := s.LoadPrice(testInstrument); p == nil || p.LastPrice != 5000 {
		t.Errorf("price not persisted: %+v", p)
	}
}
