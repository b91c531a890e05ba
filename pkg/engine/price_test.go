package engine

import (
	"testing"
	"time"
)

func TestPriceStateBasics(t *testing.T) {
	ps := NewPriceState()
	if _, ok := ps.LastPrice(); ok {
		t.Fatal("fresh state should have no last price")
	}

	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	ps.Update(5000, 10, t0)
	ps.Update(5200, 20, t0.Add(time.Minute))

	if last, ok := ps.LastPrice(); !ok || last != 5200 {
		t.Errorf("last price = %d %v, want 5200 true", last, ok)
	}
	if ps.TradeCount() != 2 {
		t.Errorf("trade count = %d, want 2", ps.TradeCount())
	}
	if ps.Volume() != 30 {
		t.Errorf("volume = %d, want 30", ps.Volume())
	}
}

func TestChange24h(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no trades", func(t *testing.T) {
		ps := NewPriceState()
		if got := ps.Change24h(t0); !got.IsZero() {
			t.Errorf("change = %s, want 0", got)
		}
	})

	t.Run("reference older than 24h", func(t *testing.T) {
		ps := NewPriceState()
		ps.Update(5000, 10, t0)
		ps.Update(6000, 10, t0.Add(25*time.Hour))
		// 5000 -> 6000 = +20%
		if got := ps.Change24h(t0.Add(25 * time.Hour)); got.String() != "20" {
			t.Errorf("change = %s, want 20", got)
		}
	})

	t.Run("young market uses oldest sample", func(t *testing.T) {
		ps := NewPriceState()
		ps.Update(4000, 10, t0)
		ps.Update(5000, 10, t0.Add(time.Hour))
		// No sample is 24h old yet; first trade stands in: +25%.
		if got := ps.Change24h(t0.Add(2 * time.Hour)); got.String() != "25" {
			t.Errorf("change = %s, want 25", got)
		}
	})

	t.Run("negative change", func(t *testing.T) {
		ps := NewPriceState()
		ps.Update(5000, 10, t0)
		ps.Update(4000, 10, t0.Add(25*time.Hour))
		if got := ps.Change24h(t0.Add(25 * time.Hour)); got.String() != "-20" {
			t.Errorf("change = %s, want -20", got)
		}
	})

	t.Run("rounded to two places", func(t *testing.T) {
		ps := NewPriceState()
		ps.Update(3000, 10, t0)
		ps.Update(4000, 10, t0.Add(25*time.Hour))
		// 1000/3000 = 33.333...%
		if got := ps.Change24h(t0.Add(25 * time.Hour)); got.String() != "33.33" {
			t.Errorf("change = %s, want 33.33", got)
		}
	})
}

func TestWindowPruneKeepsReference(t *testing.T) {
	ps := NewPriceState()
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// Many old samples, then a recent one. The newest old sample must
	// survive pruning as the change reference.
	for i := 0; i < 10; i++ {
		ps.Update(4000+int64(i)*100, 10, t0.Add(time.Duration(i)*time.Minute))
	}
	now := t0.Add(30 * time.Hour)
	ps.Update(9800, 10, now)

	// Reference is the last pre-cutoff sample, 4900.
	// (9800-4900)/4900 = +100%
	if got := ps.Change24h(now); got.String() != "100" {
		t.Errorf("change = %s, want 100", got)
	}
}
