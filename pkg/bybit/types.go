package bybit

import "encoding/json"

// BybitResponse represents a generic response from Bybit's V5 REST API.
// This structure covers the standard response envelope used across all endpoints.
type BybitResponse struct {
	RetCode    int                    `json:"retCode"`    // 0 means success; non-zero indicates an error code
	RetMsg     string                 `json:"retMsg"`     // Human-readable message describing the result or error
	Result     json.RawMessage        `json:"result"`     // Delay decoding // Main response payload (varies per endpoint)
	RetExtInfo map[string]interface{} `json:"retExtInfo"` // Optional extra info (e.g. rate limits, error hints)
	Time       int64                  `json:"time"`       // Server timestamp (in milliseconds since epoch)
}

type KlinesResponse struct {
	Category string     `json:"category"` // e.g., "linear", "spot"
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"` // [startTime, open, high, low, close, volume, turnover], newest first
}

type TickersResponse struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`    // e.g., "BTCUSDT"
		LastPrice string `json:"lastPrice"` // empty when the market has not traded
	} `json:"list"`
}

type ServerTimeResponse struct {
	TimeSecond string `json:"timeSecond"`
	TimeNano   string `json:"timeNano"`
}
