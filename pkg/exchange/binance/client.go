package binance

import (
	"context"
	"fmt"
	"time"

	"volumebot/pkg/exchange"

	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ exchange.Client = (*Client)(nil)

// klineLimit is the largest page the spot klines endpoint serves.
const klineLimit = 1000

type Client struct {
	cli *binance.Client
}

func NewClient(cli *binance.Client) *Client {
	return &Client{cli: cli}
}

// New builds a spot client; empty credentials are fine for public market data.
func New(apiKey, apiSecret string) *Client {
	return NewClient(binance.NewClient(apiKey, apiSecret))
}

func (c *Client) Name() string {
	return "binance"
}

func (c *Client) FetchVolume(ctx context.Context, asset string, since, until time.Time,
	interval exchange.Interval) (decimal.Decimal, error) {
	res, err := c.cli.NewKlinesService().
		Symbol(exchange.Symbol(asset)).
		Interval(string(interval)).
		StartTime(since.UnixMilli()).
		EndTime(until.UnixMilli() - 1).
		Limit(klineLimit).
		Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch %s klines for %s: %w", interval, asset, err)
	}

	klines, err := convertKlines(res)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse klines for %s: %w", asset, err)
	}
	return exchange.SumVolume(klines, since, until), nil
}

func (c *Client) FetchPrice(ctx context.Context, asset string) (decimal.NullDecimal, error) {
	prices, err := c.cli.NewListPricesService().Symbol(exchange.Symbol(asset)).Do(ctx)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("fetch price for %s: %w", asset, err)
	}
	if len(prices) == 0 || prices[0].Price == "" {
		return decimal.NullDecimal{}, nil
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse price %q for %s: %w", prices[0].Price, asset, err)
	}
	return decimal.NewNullDecimal(price), nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.cli.NewPingService().Do(ctx)
}

func convertKlines(klines []*binance.Kline) ([]exchange.Kline, error) {
	var parseErr error
	out := lo.Map(klines, func(k *binance.Kline, _ int) exchange.Kline {
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("volume %q: %w", k.Volume, err)
		}
		return exchange.Kline{
			OpenTime: time.UnixMilli(k.OpenTime),
			Volume:   volume,
		}
	})
	return out, parseErr
}
