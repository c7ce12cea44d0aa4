package stream

import (
	"encoding/json"
	"strings"
	"time"

	"volumebot/internal/memorystore"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MakeTickerHandler returns a function that handles incoming WebSocket
// messages by parsing ticker data and storing the last price in memory.
func MakeTickerHandler(logger *zap.Logger, store *memorystore.MemoryPriceStore) func(msg []byte) {
	return func(msg []byte) {
		// Step 1: Extract topic string for early filtering
		var meta struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			logger.Warn("failed to extract topic", zap.Error(err))
			return
		}
		if !isTickerTopic(meta.Topic) {
			return // Ignore non-ticker messages (e.g., subscription responses, pongs)
		}

		// Step 2: Fully parse the ticker payload
		var parsed TickerMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse ticker payload", zap.Error(err))
			return
		}
		if parsed.Data.LastPrice == "" {
			return
		}

		price, err := decimal.NewFromString(parsed.Data.LastPrice)
		if err != nil {
			logger.Warn("failed to parse last price", zap.String("topic", parsed.Topic), zap.Error(err))
			return
		}

		symbol := parsed.Data.Symbol
		if symbol == "" {
			symbol = extractSymbolFromTopic(parsed.Topic) // e.g., "tickers.BTCUSDT" → "BTCUSDT"
		}

		at := time.Now()
		if parsed.Ts > 0 {
			at = time.UnixMilli(parsed.Ts)
		}

		// Step 3: Store the price
		store.Set(symbol, price, at)
	}
}

// isTickerTopic returns true if the topic string indicates a ticker stream.
func isTickerTopic(topic string) bool {
	return strings.HasPrefix(topic, "tickers.")
}

// extractSymbolFromTopic parses the symbol from a topic like "tickers.BTCUSDT".
func extractSymbolFromTopic(topic string) string {
	parts := strings.Split(topic, ".")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
