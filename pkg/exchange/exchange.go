// Package exchange defines the market-data boundary the bot polls.
package exchange

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Interval string

const (
	Interval1h Interval = "1h"
	Interval1d Interval = "1d"
)

// ErrUnsupportedInterval is returned by adapters for intervals they cannot map.
var ErrUnsupportedInterval = errors.New("unsupported interval")

// Kline is the part of a candle the bot cares about.
type Kline struct {
	OpenTime time.Time
	Volume   decimal.Decimal // base asset volume
}

// Client is implemented by every exchange adapter. Any call may fail
// transiently; callers treat errors as non-fatal.
type Client interface {
	Name() string
	// FetchVolume sums the traded volume of candles opened in [since, until).
	FetchVolume(ctx context.Context, asset string, since, until time.Time, interval Interval) (decimal.Decimal, error)
	// FetchPrice returns the last traded price; Valid is false when the
	// exchange has no price for the asset.
	FetchPrice(ctx context.Context, asset string) (decimal.NullDecimal, error)
	Ping(ctx context.Context) error
}

// Symbol converts "BTC/USDT" into the exchange form "BTCUSDT".
func Symbol(asset string) string {
	return strings.ToUpper(strings.ReplaceAll(asset, "/", ""))
}

// SumVolume adds up the volume of klines opened in [since, until).
func SumVolume(klines []Kline, since, until time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, k := range klines {
		if k.OpenTime.Before(since) || !k.OpenTime.Before(until) {
			continue
		}
		total = total.Add(k.Volume)
	}
	return total
}
