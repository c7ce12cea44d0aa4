// Package report renders the on-demand status of a user's assets.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"volumebot/internal/market"
	"volumebot/internal/memorystore"
	"volumebot/internal/notify"
	"volumebot/pkg/exchange"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Header starts every status message.
	Header = "Current status of monitored cryptocurrencies:"
	// MaxMessageLen is the chat transport's limit per message.
	MaxMessageLen = 4000

	historyDays   = 10
	fetchParallel = 4
	day           = 24 * time.Hour
	dateLayout    = "2006-01-02"
)

var (
	ErrNotCached = errors.New("no cached data yet")
	ErrNoPrice   = errors.New("current price is unavailable")
)

type SnapshotReader interface {
	Get(asset string) (memorystore.Snapshot, bool)
}

type Builder struct {
	client    exchange.Client
	snapshots SnapshotReader
	timeout   time.Duration
	reporter  notify.Reporter
	logger    *zap.Logger
}

func NewBuilder(client exchange.Client, snapshots SnapshotReader, timeout time.Duration, reporter notify.Reporter, logger *zap.Logger) *Builder {
	return &Builder{
		client:    client,
		snapshots: snapshots,
		timeout:   timeout,
		reporter:  reporter,
		logger:    logger,
	}
}

// Build returns the status of assets as one or more messages, each at most
// MaxMessageLen characters unless a single asset block is longer.
func (b *Builder) Build(ctx context.Context, assets []string, now time.Time) []string {
	now = now.UTC()
	blocks := make([]string, 0, len(assets))

	for _, asset := range assets {
		block, err := b.assetBlock(ctx, asset, now)
		if err != nil {
			b.logger.Warn("failed to build status", zap.String("asset", asset), zap.Error(err))
			if !errors.Is(err, ErrNotCached) && !errors.Is(err, ErrNoPrice) {
				b.reporter.Report(ctx, fmt.Sprintf("Error generating status for %s: %v", asset, err))
			}
			block = fmt.Sprintf("%s:\nError: %v\n\n", asset, err)
		}
		blocks = append(blocks, block)
	}

	return Chunk(Header, blocks, MaxMessageLen)
}

func (b *Builder) assetBlock(ctx context.Context, asset string, now time.Time) (string, error) {
	snap, ok := b.snapshots.Get(asset)
	if !ok {
		return "", ErrNotCached
	}
	if !snap.Price.Valid {
		return "", ErrNoPrice
	}

	daily, err := b.dailyVolumes(ctx, asset, now)
	if err != nil {
		return "", err
	}

	prior, err := b.fetch(ctx, asset, now.Add(-2*day), now.Add(-day), exchange.Interval1h)
	if err != nil {
		return "", fmt.Errorf("prior 24h volume: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", asset)
	for i := 0; i < historyDays-1; i++ {
		change, ok := market.ChangePercent(daily[i], decimal.NewNullDecimal(daily[i+1]))
		fmt.Fprintf(&sb, "From %s to %s:\n", now.Add(-time.Duration(i+1)*day).Format(dateLayout), now.Add(-time.Duration(i)*day).Format(dateLayout))
		fmt.Fprintf(&sb, "  Transactions Volume Change: %s\n", percent(change, ok))
		fmt.Fprintf(&sb, "  Volume: %s\n", market.FormatLargeNumber(daily[i]))
	}

	change24h, ok := market.ChangePercent(snap.Trailing24h, decimal.NewNullDecimal(prior))
	sb.WriteString("\nPercentage changes for the last 24 hours:\n")
	fmt.Fprintf(&sb, "%s Transactions Volume Change: %s\n", asset, percent(change24h, ok))
	fmt.Fprintf(&sb, "Current Price: $%s\n\n", snap.Price.Decimal.String())

	return sb.String(), nil
}

// dailyVolumes returns the volume of each of the last historyDays days,
// most recent first.
func (b *Builder) dailyVolumes(ctx context.Context, asset string, now time.Time) ([]decimal.Decimal, error) {
	volumes := make([]decimal.Decimal, historyDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallel)
	for i := 0; i < historyDays; i++ {
		i := i
		g.Go(func() error {
			since := now.Add(-time.Duration(i+1) * day)
			until := now.Add(-time.Duration(i) * day)
			v, err := b.fetch(gctx, asset, since, until, exchange.Interval1d)
			if err != nil {
				return fmt.Errorf("volume for %s: %w", since.Format(dateLayout), err)
			}
			volumes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return volumes, nil
}

func (b *Builder) fetch(ctx context.Context, asset string, since, until time.Time, interval exchange.Interval) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.FetchVolume(ctx, asset, since, until, interval)
}

func percent(change decimal.Decimal, ok bool) string {
	if !ok {
		return market.NotAvailable
	}
	return market.FormatChange(change, ok) + "%"
}

// Chunk joins blocks into messages that start with header and stay within
// limit characters. Blocks are never split; one that does not fit on its
// own is sent as a message by itself.
func Chunk(header string, blocks []string, limit int) []string {
	header += "\n"
	headerLen := utf8.RuneCountInString(header)

	var (
		msgs   []string
		cur    strings.Builder
		curLen int
		count  int
	)
	cur.WriteString(header)
	curLen = headerLen

	for _, block := range blocks {
		n := utf8.RuneCountInString(block)
		if count > 0 && curLen+n > limit {
			msgs = append(msgs, cur.String())
			cur.Reset()
			cur.WriteString(header)
			curLen = headerLen
			count = 0
		}
		cur.WriteString(block)
		curLen += n
		count++
	}
	return append(msgs, cur.String())
}
