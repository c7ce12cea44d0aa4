// Package health periodically checks that the exchange is reachable.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"volumebot/internal/notify"
	"volumebot/pkg/exchange"

	"go.uber.org/zap"
)

// Status is the outcome of the latest check.
type Status struct {
	Exchange  string    `json:"exchange"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Failures  int       `json:"consecutive_failures"`
}

type Monitor struct {
	client   exchange.Client
	timeout  time.Duration
	reporter notify.Reporter
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.RWMutex
	last Status
	seen bool
}

func New(client exchange.Client, timeout time.Duration, reporter notify.Reporter, logger *zap.Logger) *Monitor {
	return &Monitor{
		client:   client,
		timeout:  timeout,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *Monitor) Name() string { return "health" }

// Run pings the exchange once. A failed ping is reported, never returned,
// so the loop keeps going.
func (m *Monitor) Run(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.client.Ping(pingCtx)
	cancel()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	prev := m.last
	next := Status{Exchange: m.client.Name(), Healthy: err == nil, CheckedAt: m.now().UTC()}
	if err != nil {
		next.Error = err.Error()
		next.Failures = prev.Failures + 1
	}
	m.last = next
	m.seen = true
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("exchange health check failed",
			zap.String("exchange", next.Exchange), zap.Int("consecutive_failures", next.Failures), zap.Error(err))
		m.reporter.Report(ctx, fmt.Sprintf("Health check failed for %s: %v", next.Exchange, err))
		return nil
	}

	if prev.Failures > 0 {
		m.logger.Info("exchange recovered",
			zap.String("exchange", next.Exchange), zap.Int("after_failures", prev.Failures))
	} else {
		m.logger.Debug("exchange healthy", zap.String("exchange", next.Exchange))
	}
	return nil
}

// LastStatus returns the latest check, or false before the first one.
func (m *Monitor) LastStatus() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.seen
}
