package stream

import (
	"testing"
	"time"

	"volumebot/internal/memorystore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestTickerHandler
func TestTickerHandler(t *testing.T) {
	store := memorystore.NewPriceStore()
	handle := MakeTickerHandler(zap.NewNop(), store)

	ts := time.Now().Add(-5 * time.Second)
	handle([]byte(`{"success":true,"op":"subscribe"}`))
	handle([]byte(`not json`))
	handle([]byte(`{"topic":"tickers.ETHUSDT","ts":1,"data":{"symbol":"ETHUSDT"}}`)) // no price
	handle([]byte(`{"topic":"tickers.BTCUSDT","ts":` + decimal.NewFromInt(ts.UnixMilli()).String() +
		`,"type":"snapshot","data":{"lastPrice":"64000.5"}}`))

	price, ok := store.Fresh("BTCUSDT", time.Minute, time.Now())
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("64000.5").Equal(price))

	_, ok = store.Fresh("ETHUSDT", time.Hour, time.Now())
	assert.False(t, ok)
}

// go test -v --run TestExtractSymbolFromTopic
func TestExtractSymbolFromTopic(t *testing.T) {
	assert.Equal(t, "BTCUSDT", extractSymbolFromTopic("tickers.BTCUSDT"))
	assert.Equal(t, "", extractSymbolFromTopic("tickers"))
	assert.True(t, isTickerTopic("tickers.X"))
	assert.False(t, isTickerTopic("kline.1.X"))
}
