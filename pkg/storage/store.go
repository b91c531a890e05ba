// Package storage is the durable side channel of the engine. It consumes
// the notification stream and writes trades, book snapshots and price marks
// to Pebble; the engine never waits on it. Matching state stays
// authoritative in memory; this store exists for audit and warm restarts.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/market"
)

type Store struct {
	db  *pebble.DB
	log *zap.SugaredLogger
}

func NewStore(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// OnEvent implements engine.Subscriber. Write failures are logged, never
// propagated: downstream durability is best-effort by contract.
func (s *Store) OnEvent(ev engine.Event) {
	var err error
	switch e := ev.(type) {
	case engine.TradeExecuted:
		err = s.SaveTrade(&e.Trade)
	case engine.BookDelta:
		err = s.SaveSnapshot(&e)
	case engine.PriceUpdate:
		err = s.SavePrice(&e)
	}
	if err != nil {
		s.log.Errorw("storage_write_failed", "instrument", ev.EventInstrument().String(), "err", err)
	}
}

// SaveTrade persists one trade. Trades are written NoSync: the in-memory
// ledger is authoritative and a tail loss on crash is acceptable.
func (s *Store) SaveTrade(t *engine.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	if err := s.db.Set(tradeKey(t.Instrument, t.Seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// RecentTrades loads the most recent N trades for an instrument,
// newest first. limit <= 0 returns all, same as Ledger.Last.
func (s *Store) RecentTrades(in market.Instrument, limit int) ([]*engine.Trade, error) {
	prefix := tradePrefix(in)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []*engine.Trade
	for iter.Last(); iter.Valid() && (limit <= 0 || len(trades) < limit); iter.Prev() {
		var t engine.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue // skip invalid entries
		}
		trades = append(trades, &t)
	}
	return trades, nil
}

// SaveSnapshot persists the latest depth snapshot, replacing the previous
// one. Snapshots are synced: they are the restart seed.
func (s *Store) SaveSnapshot(d *engine.BookDelta) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.db.Set(snapshotKey(d.Instrument), data, pebble.Sync); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the last persisted depth snapshot,
// or nil if none exists.
func (s *Store) LoadSnapshot(in market.Instrument) (*engine.BookDelta, error) {
	data, closer, err := s.db.Get(snapshotKey(in))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer closer.Close()

	var d engine.BookDelta
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &d, nil
}

// SavePrice persists the latest derived price state.
func (s *Store) SavePrice(p *engine.PriceUpdate) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal price: %w", err)
	}
	if err := s.db.Set(priceKey(p.Instrument), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save price: %w", err)
	}
	return nil
}

// LoadPrice returns the last persisted price state, or nil if none exists.
func (s *Store) LoadPrice(in market.Instrument) (*engine.PriceUpdate, error) {
	data, closer, err := s.db.Get(priceKey(in))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price: %w", err)
	}
	defer closer.Close()

	var p engine.PriceUpdate
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal price: %w", err)
	}
	return &p, nil
}

var _ engine.Subscriber = (*Store)(nil)
