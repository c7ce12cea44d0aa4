package memorystore

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the cached market state of one asset. All fields come from
// the same refresh pass; a Snapshot is only ever replaced as a whole.
type Snapshot struct {
	Asset       string              `json:"asset"`        // Asset in slash form (e.g., "BTC/USDT")
	Trailing24h decimal.Decimal     `json:"trailing_24h"` // Volume traded in [now-24h, now)
	Prior24h    decimal.Decimal     `json:"prior_24h"`    // Volume traded in [now-48h, now-24h)
	Price       decimal.NullDecimal `json:"price"`        // Last price; Valid is false when the exchange had none
	RefreshID   string              `json:"refresh_id"`   // Identifier of the refresh pass that produced it
	RefreshedAt time.Time           `json:"refreshed_at"`
}

// StreamPrice is the last price seen on a push stream for one symbol.
type StreamPrice struct {
	Symbol     string          `json:"symbol"` // Exchange symbol (e.g., "BTCUSDT")
	Price      decimal.Decimal `json:"price"`
	ReceivedAt time.Time       `json:"received_at"`
}
