package memorystore

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryPriceStore keeps the most recent streamed price per symbol.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	prices map[string]StreamPrice
}

func NewPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{
		prices: make(map[string]StreamPrice),
	}
}

func (s *MemoryPriceStore) Set(symbol string, price decimal.Decimal, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// out-of-order frames must not roll the price back
	if cur, ok := s.prices[symbol]; ok && cur.ReceivedAt.After(at) {
		return
	}
	s.prices[symbol] = StreamPrice{Symbol: symbol, Price: price, ReceivedAt: at}
}

// Fresh returns the price of symbol if it was received within maxAge of now.
func (s *MemoryPriceStore) Fresh(symbol string, maxAge time.Duration, now time.Time) (decimal.Decimal, bool) {
	s.mu.RLock()
	p, ok := s.prices[symbol]
	s.mu.RUnlock()

	if !ok || now.Sub(p.ReceivedAt) > maxAge {
		return decimal.Zero, false
	}
	return p.Price, true
}
