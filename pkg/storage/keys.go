package storage

import (
	"fmt"

	"github.com/eventbook/eventbook/pkg/market"
)

// Pebble key schema. Trades sort by sequence number inside their
// instrument so range scans return them in commit order:
//
//   trade:<event>:<option>:<seq>  → Trade
//   book:<event>:<option>         → latest depth snapshot
//   px:<event>:<option>           → last price + 24h change

const (
	prefixTrade    = "trade:"
	prefixSnapshot = "book:"
	prefixPrice    = "px:"
)

// tradeKey formats a trade key. Seq is zero-padded (20 digits) so
// lexicographic order equals commit order.
func tradeKey(in market.Instrument, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%020d", prefixTrade, in.EventID, in.OptionID, seq))
}

// tradePrefix returns the prefix for all trades of one instrument.
func tradePrefix(in market.Instrument) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:", prefixTrade, in.EventID, in.OptionID))
}

// snapshotKey returns the key holding the latest book snapshot.
func snapshotKey(in market.Instrument) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", prefixSnapshot, in.EventID, in.OptionID))
}

// priceKey returns the key holding the latest price state.
func priceKey(in market.Instrument) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", prefixPrice, in.EventID, in.OptionID))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
