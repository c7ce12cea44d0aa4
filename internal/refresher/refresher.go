// Package refresher keeps the snapshot cache filled with the latest
// exchange volumes and prices.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volumebot/internal/memorystore"
	"volumebot/internal/notify"
	"volumebot/pkg/exchange"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const day = 24 * time.Hour

// ErrAllFailed is returned when no asset could be refreshed in a pass.
var ErrAllFailed = errors.New("every asset failed to refresh")

// SnapshotWriter is the part of the cache the refresher writes to.
type SnapshotWriter interface {
	Put(snap memorystore.Snapshot)
}

type Refresher struct {
	client   exchange.Client
	store    SnapshotWriter
	assets   []string
	timeout  time.Duration
	reporter notify.Reporter
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

func New(client exchange.Client, store SnapshotWriter, assets []string, timeout time.Duration, reporter notify.Reporter, logger *zap.Logger) *Refresher {
	return &Refresher{
		client:   client,
		store:    store,
		assets:   assets,
		timeout:  timeout,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (r *Refresher) Name() string { return "refresher" }

// Run performs one refresh pass over every asset in configured order. An
// asset whose fetch fails keeps its previous snapshot.
func (r *Refresher) Run(ctx context.Context) error {
	refreshID := r.newID()
	now := r.now().UTC()

	var refreshed int
	for _, asset := range r.assets {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := r.fetchSnapshot(ctx, asset, now)
		if err != nil {
			r.logger.Warn("failed to refresh asset",
				zap.String("asset", asset), zap.String("refresh_id", refreshID), zap.Error(err))
			r.reporter.Report(ctx, fmt.Sprintf("Error updating cache for %s: %v", asset, err))
			continue
		}

		snap.RefreshID = refreshID
		r.store.Put(snap)
		refreshed++
	}

	r.logger.Info("cache refreshed",
		zap.String("refresh_id", refreshID),
		zap.Int("refreshed", refreshed),
		zap.Int("assets", len(r.assets)))

	if refreshed == 0 && len(r.assets) > 0 {
		return ErrAllFailed
	}
	return nil
}

func (r *Refresher) fetchSnapshot(ctx context.Context, asset string, now time.Time) (memorystore.Snapshot, error) {
	trailing, err := r.fetchVolume(ctx, asset, now.Add(-day), now)
	if err != nil {
		return memorystore.Snapshot{}, fmt.Errorf("trailing 24h volume: %w", err)
	}

	prior, err := r.fetchVolume(ctx, asset, now.Add(-2*day), now.Add(-day))
	if err != nil {
		return memorystore.Snapshot{}, fmt.Errorf("prior 24h volume: %w", err)
	}

	priceCtx, cancel := context.WithTimeout(ctx, r.timeout)
	price, err := r.client.FetchPrice(priceCtx, asset)
	cancel()
	if err != nil {
		return memorystore.Snapshot{}, fmt.Errorf("price: %w", err)
	}

	return memorystore.Snapshot{
		Asset:       asset,
		Trailing24h: trailing,
		Prior24h:    prior,
		Price:       price,
		RefreshedAt: now,
	}, nil
}

func (r *Refresher) fetchVolume(ctx context.Context, asset string, since, until time.Time) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.FetchVolume(ctx, asset, since, until, exchange.Interval1h)
}
