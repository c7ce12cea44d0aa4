package bybit

import (
	"strconv"
	"time"

	"volumebot/pkg/exchange"

	"github.com/shopspring/decimal"
)

// ParseKlineList converts Bybit REST API kline rows to []exchange.Kline.
// It safely skips invalid rows.
func ParseKlineList(raw [][]string) []exchange.Kline {
	var out []exchange.Kline

	for _, row := range raw {
		if len(row) < 6 {
			continue // skip incomplete row
		}

		start, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		volume, err := decimal.NewFromString(row[5])
		if err != nil {
			continue
		}

		out = append(out, exchange.Kline{
			OpenTime: time.UnixMilli(start),
			Volume:   volume,
		})
	}
	return out
}
