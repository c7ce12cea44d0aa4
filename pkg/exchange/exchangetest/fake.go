// Package exchangetest provides an in-memory exchange.Client for tests.
package exchangetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"volumebot/pkg/exchange"

	"github.com/shopspring/decimal"
)

var ErrNotConfigured = errors.New("exchangetest: no data configured")

// VolumeCall records the arguments of one FetchVolume call.
type VolumeCall struct {
	Asset    string
	Since    time.Time
	Until    time.Time
	Interval exchange.Interval
}

// Fake answers from the configured functions. Unset functions fail with
// ErrNotConfigured.
type Fake struct {
	VolumeFunc func(asset string, since, until time.Time, interval exchange.Interval) (decimal.Decimal, error)
	PriceFunc  func(asset string) (decimal.NullDecimal, error)

	mu          sync.Mutex
	pingErr     error
	pings       int
	volumeCalls []VolumeCall
}

var _ exchange.Client = (*Fake)(nil)

func (f *Fake) Name() string { return "fake" }

func (f *Fake) FetchVolume(ctx context.Context, asset string, since, until time.Time, interval exchange.Interval) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	f.mu.Lock()
	f.volumeCalls = append(f.volumeCalls, VolumeCall{Asset: asset, Since: since, Until: until, Interval: interval})
	f.mu.Unlock()

	if f.VolumeFunc == nil {
		return decimal.Zero, ErrNotConfigured
	}
	return f.VolumeFunc(asset, since, until, interval)
}

func (f *Fake) FetchPrice(ctx context.Context, asset string) (decimal.NullDecimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.NullDecimal{}, err
	}
	if f.PriceFunc == nil {
		return decimal.NullDecimal{}, ErrNotConfigured
	}
	return f.PriceFunc(asset)
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.pingErr
}

// SetPingError makes subsequent pings fail with err, or succeed when nil.
func (f *Fake) SetPingError(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func (f *Fake) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *Fake) VolumeCalls() []VolumeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]VolumeCall, len(f.volumeCalls))
	copy(out, f.volumeCalls)
	return out
}

// Price is a convenience for building a valid NullDecimal.
func Price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
