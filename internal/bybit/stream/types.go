package stream

// TickerMessage represents a WebSocket message from Bybit containing ticker data.
type TickerMessage struct {
	Topic string     `json:"topic"` // Topic string indicating the subscription stream, e.g., "tickers.BTCUSDT"
	Data  TickerData `json:"data"`
	Ts    int64      `json:"ts"`   // Timestamp (in milliseconds) when the message was produced
	Type  string     `json:"type"` // Message type, e.g., "snapshot" or "delta"
}

type TickerData struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"` // absent in deltas that do not move the price
}
