// Package detector compares cached volumes against the previous cycle and
// alerts subscribed users when the increase is above their threshold.
package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"volumebot/internal/market"
	"volumebot/internal/memorystore"
	"volumebot/internal/notify"
	"volumebot/internal/subscription"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SnapshotReader interface {
	Get(asset string) (memorystore.Snapshot, bool)
}

type SubscriberSource interface {
	Subscribers(asset string) []subscription.UserSubscription
}

// Baseline is what the detector saw for an asset on its previous cycle.
type Baseline struct {
	Trailing24h decimal.Decimal
	Prior24h    decimal.Decimal
}

type Detector struct {
	snapshots SnapshotReader
	subs      SubscriberSource
	sender    notify.Sender
	reporter  notify.Reporter
	assets    []string
	timeout   time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	baselines map[string]Baseline
}

func New(snapshots SnapshotReader, subs SubscriberSource, sender notify.Sender, reporter notify.Reporter, assets []string, timeout time.Duration, logger *zap.Logger) *Detector {
	return &Detector{
		snapshots: snapshots,
		subs:      subs,
		sender:    sender,
		reporter:  reporter,
		assets:    assets,
		timeout:   timeout,
		logger:    logger,
		baselines: make(map[string]Baseline),
	}
}

func (d *Detector) Name() string { return "detector" }

// AlertMessage is the text a subscriber receives.
func AlertMessage(asset string, change decimal.Decimal) string {
	return fmt.Sprintf("Significant increase in transactions for %s: %s%%", asset, change.StringFixed(2))
}

// Run evaluates every asset once. The baseline of each asset with a
// snapshot is replaced whether or not an alert went out.
func (d *Detector) Run(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sent, failed int
	for _, asset := range d.assets {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, ok := d.snapshots.Get(asset)
		if !ok {
			d.logger.Warn("no cached data yet, skipping", zap.String("asset", asset))
			continue
		}

		var baseline decimal.NullDecimal
		if prev, has := d.baselines[asset]; has {
			baseline = decimal.NewNullDecimal(prev.Trailing24h)
		}

		change, available := market.ChangePercent(snap.Trailing24h, baseline)
		if available {
			s, f := d.dispatch(ctx, asset, change)
			sent += s
			failed += f
		}

		d.baselines[asset] = Baseline{Trailing24h: snap.Trailing24h, Prior24h: snap.Prior24h}
	}

	if sent > 0 || failed > 0 {
		d.logger.Info("alerts dispatched", zap.Int("sent", sent), zap.Int("failed", failed))
	}
	return nil
}

func (d *Detector) dispatch(ctx context.Context, asset string, change decimal.Decimal) (sent, failed int) {
	text := AlertMessage(asset, change)

	for _, sub := range d.subs.Subscribers(asset) {
		if !market.Exceeds(change, true, sub.Threshold) {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.sender.Send(sendCtx, sub.UserID, text)
		cancel()
		if err != nil {
			failed++
			d.logger.Error("failed to send alert",
				zap.Int64("user_id", sub.UserID), zap.String("asset", asset), zap.Error(err))
			d.reporter.Report(ctx, fmt.Sprintf("Failed to send message to user %d: %v", sub.UserID, err))
			continue
		}
		sent++
		d.logger.Info("alert sent",
			zap.Int64("user_id", sub.UserID), zap.String("asset", asset), zap.String("change", change.StringFixed(2)))
	}
	return sent, failed
}

// Baseline returns the stored baseline of an asset.
func (d *Detector) Baseline(asset string) (Baseline, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.baselines[asset]
	return b, ok
}
