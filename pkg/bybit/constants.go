package bybit

import (
	"fmt"

	"volumebot/pkg/exchange"
)

// KlineInterval is the interval type used for API requests
type KlineInterval string

// KlineIntervalMeta holds the API value and the generic interval name for a Kline interval
type KlineIntervalMeta struct {
	APIValue string
	Generic  exchange.Interval
	Minutes  int
}

const (
	Interval1Min   KlineInterval = "1"
	Interval5Min   KlineInterval = "5"
	Interval15Min  KlineInterval = "15"
	Interval60Min  KlineInterval = "60"
	Interval240Min KlineInterval = "240"
	IntervalDaily  KlineInterval = "D"
	IntervalWeekly KlineInterval = "W"
)

// validKlineIntervals maps KlineInterval to its API and generic representations
var validKlineIntervals = map[KlineInterval]KlineIntervalMeta{
	Interval1Min:   {APIValue: "1", Generic: "1m", Minutes: 1},
	Interval5Min:   {APIValue: "5", Generic: "5m", Minutes: 5},
	Interval15Min:  {APIValue: "15", Generic: "15m", Minutes: 15},
	Interval60Min:  {APIValue: "60", Generic: exchange.Interval1h, Minutes: 60},
	Interval240Min: {APIValue: "240", Generic: "4h", Minutes: 240},
	IntervalDaily:  {APIValue: "D", Generic: exchange.Interval1d, Minutes: 1440},
	IntervalWeekly: {APIValue: "W", Generic: "1w", Minutes: 10080},
}

// IsValid checks if the KlineInterval is a valid predefined interval
func (k KlineInterval) IsValid() bool {
	_, ok := validKlineIntervals[k]
	return ok
}

// ParseKlineInterval parses a string into a valid KlineIntervalMeta
func ParseKlineInterval(s string) (KlineIntervalMeta, error) {
	interval := KlineInterval(s)
	meta, ok := validKlineIntervals[interval]
	if !ok {
		return KlineIntervalMeta{}, fmt.Errorf("invalid KlineInterval: %s", s)
	}
	return meta, nil
}

// FromGeneric maps an exchange.Interval such as "1h" onto the Bybit value "60".
func FromGeneric(i exchange.Interval) (KlineInterval, error) {
	for k, meta := range validKlineIntervals {
		if meta.Generic == i {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %s", exchange.ErrUnsupportedInterval, i)
}
