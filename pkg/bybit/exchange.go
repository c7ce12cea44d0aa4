package bybit

import (
	"context"
	"fmt"
	"time"

	"volumebot/pkg/exchange"

	"github.com/shopspring/decimal"
)

var _ exchange.Client = (*Exchange)(nil)

// PriceSource serves prices pushed by a stream.
type PriceSource interface {
	Fresh(symbol string, maxAge time.Duration, now time.Time) (decimal.Decimal, bool)
}

// Exchange adapts the Bybit V5 REST API to exchange.Client.
type Exchange struct {
	rest     *RESTClient
	category string

	prices PriceSource
	maxAge time.Duration
	now    func() time.Time
}

type Option func(e *Exchange)

// WithStreamPrices serves FetchPrice from src while its price is younger
// than maxAge; older or missing prices go to REST.
func WithStreamPrices(src PriceSource, maxAge time.Duration) Option {
	return func(e *Exchange) {
		e.prices = src
		e.maxAge = maxAge
	}
}

func NewExchange(rest *RESTClient, category string, opts ...Option) *Exchange {
	e := &Exchange{
		rest:     rest,
		category: category,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exchange) Name() string {
	return "bybit"
}

func (e *Exchange) FetchVolume(ctx context.Context, asset string, since, until time.Time,
	interval exchange.Interval) (decimal.Decimal, error) {
	iv, err := FromGeneric(interval)
	if err != nil {
		return decimal.Zero, err
	}

	// the end bound is inclusive on Bybit
	klines, err := e.rest.GetKlines(ctx, e.category, exchange.Symbol(asset), iv, since, until.Add(-time.Millisecond))
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch %s klines for %s: %w", interval, asset, err)
	}
	return exchange.SumVolume(klines, since, until), nil
}

func (e *Exchange) FetchPrice(ctx context.Context, asset string) (decimal.NullDecimal, error) {
	symbol := exchange.Symbol(asset)
	if e.prices != nil {
		if price, ok := e.prices.Fresh(symbol, e.maxAge, e.now()); ok {
			return decimal.NewNullDecimal(price), nil
		}
	}

	price, err := e.rest.GetLastPrice(ctx, e.category, symbol)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("fetch price for %s: %w", asset, err)
	}
	return price, nil
}

func (e *Exchange) Ping(ctx context.Context) error {
	if _, err := e.rest.GetServerTime(ctx); err != nil {
		return fmt.Errorf("bybit ping: %w", err)
	}
	return nil
}
