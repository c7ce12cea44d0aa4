package detector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"volumebot/internal/asset"
	"volumebot/internal/memorystore"
	"volumebot/internal/subscription"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMsg struct {
	userID int64
	text   string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMsg
	failOn map[int64]bool
}

func (s *fakeSender) Send(_ context.Context, userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[userID] {
		return errors.New("blocked by user")
	}
	s.sent = append(s.sent, sentMsg{userID: userID, text: text})
	return nil
}

type fakeReporter struct{ msgs []string }

func (r *fakeReporter) Report(_ context.Context, text string) { r.msgs = append(r.msgs, text) }

type fakeSubs map[string][]subscription.UserSubscription

func (f fakeSubs) Subscribers(asset string) []subscription.UserSubscription { return f[asset] }

func user(id int64, threshold float64, assets ...string) subscription.UserSubscription {
	return subscription.UserSubscription{UserID: id, Subscription: subscription.Subscription{Assets: assets, Threshold: threshold}}
}

func putVolume(store *memorystore.MemorySnapshotStore, asset string, v int64) {
	store.Put(memorystore.Snapshot{Asset: asset, Trailing24h: decimal.NewFromInt(v), Prior24h: decimal.NewFromInt(v)})
}

// go test -v --run TestDetectorThresholdBoundary
func TestDetectorThresholdBoundary(t *testing.T) {
	store := memorystore.NewSnapshotStore()
	subs := fakeSubs{"BTC/USDT": {
		user(1, 49.9, "BTC/USDT"),
		user(2, 50, "BTC/USDT"),
		user(3, 40, "BTC/USDT"),
	}}
	sender := &fakeSender{}
	d := New(store, subs, sender, &fakeReporter{}, []string{"BTC/USDT"}, time.Second, zap.NewNop())
	ctx := context.Background()

	putVolume(store, "BTC/USDT", 100)
	require.NoError(t, d.Run(ctx))
	assert.Empty(t, sender.sent, "first cycle has no baseline")

	putVolume(store, "BTC/USDT", 150)
	require.NoError(t, d.Run(ctx))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(1), sender.sent[0].userID)
	assert.Equal(t, int64(3), sender.sent[1].userID)
	assert.Equal(t, "Significant increase in transactions for BTC/USDT: 50.00%", sender.sent[0].text)

	// unchanged volume on the next cycle is a 0% change
	require.NoError(t, d.Run(ctx))
	assert.Len(t, sender.sent, 2)
}

// go test -v --run TestDetectorUserThresholdBelowDefault
func TestDetectorUserThresholdBelowDefault(t *testing.T) {
	u, err := asset.NewUniverse([]string{"BTC/USDT"})
	require.NoError(t, err)
	subs, err := subscription.NewStore(nopRepo{}, u, subscription.Subscription{
		Assets:    []string{"BTC/USDT"},
		Threshold: 10,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = subs.SetThreshold(ctx, 1, 5)
	require.NoError(t, err)
	_, _, err = subs.Start(ctx, 2)
	require.NoError(t, err)

	store := memorystore.NewSnapshotStore()
	sender := &fakeSender{}
	d := New(store, subs, sender, &fakeReporter{}, []string{"BTC/USDT"}, time.Second, zap.NewNop())

	putVolume(store, "BTC/USDT", 100)
	require.NoError(t, d.Run(ctx))
	putVolume(store, "BTC/USDT", 106)
	require.NoError(t, d.Run(ctx))

	// 6% clears the user's own 5% even though the default is 10%
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1), sender.sent[0].userID)
	assert.Equal(t, "Significant increase in transactions for BTC/USDT: 6.00%", sender.sent[0].text)
}

type nopRepo struct{}

func (nopRepo) LoadAll(context.Context) (map[int64]subscription.Subscription, error) { return nil, nil }

func (nopRepo) Save(context.Context, int64, subscription.Subscription) error { return nil }

// go test -v --run TestDetectorSkipsMissingSnapshot
func TestDetectorSkipsMissingSnapshot(t *testing.T) {
	store := memorystore.NewSnapshotStore()
	sender := &fakeSender{}
	d := New(store, fakeSubs{"ETH/USDT": {user(1, 0, "ETH/USDT")}}, sender, &fakeReporter{},
		[]string{"ETH/USDT"}, time.Second, zap.NewNop())

	require.NoError(t, d.Run(context.Background()))
	_, ok := d.Baseline("ETH/USDT")
	assert.False(t, ok)
	assert.Empty(t, sender.sent)
}

// go test -v --run TestDetectorZeroBaseline
func TestDetectorZeroBaseline(t *testing.T) {
	store := memorystore.NewSnapshotStore()
	sender := &fakeSender{}
	d := New(store, fakeSubs{"ETH/USDT": {user(1, 0, "ETH/USDT")}}, sender, &fakeReporter{},
		[]string{"ETH/USDT"}, time.Second, zap.NewNop())
	ctx := context.Background()

	putVolume(store, "ETH/USDT", 0)
	require.NoError(t, d.Run(ctx))
	putVolume(store, "ETH/USDT", 500)
	require.NoError(t, d.Run(ctx))
	assert.Empty(t, sender.sent, "change against zero is not available")

	b, ok := d.Baseline("ETH/USDT")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(500).Equal(b.Trailing24h))
}

// go test -v --run TestDetectorDeliveryFailure
func TestDetectorDeliveryFailure(t *testing.T) {
	store := memorystore.NewSnapshotStore()
	sender := &fakeSender{failOn: map[int64]bool{1: true}}
	rep := &fakeReporter{}
	subs := fakeSubs{"DOGE/USDT": {user(1, 10, "DOGE/USDT"), user(2, 10, "DOGE/USDT")}}
	d := New(store, subs, sender, rep, []string{"DOGE/USDT"}, time.Second, zap.NewNop())
	ctx := context.Background()

	putVolume(store, "DOGE/USDT", 100)
	require.NoError(t, d.Run(ctx))
	putVolume(store, "DOGE/USDT", 200)
	require.NoError(t, d.Run(ctx))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(2), sender.sent[0].userID)
	require.Len(t, rep.msgs, 1)
	assert.Contains(t, rep.msgs[0], "user 1")
}

// go test -v --run TestDetectorDecrease
func TestDetectorDecrease(t *testing.T) {
	store := memorystore.NewSnapshotStore()
	sender := &fakeSender{}
	d := New(store, fakeSubs{"BTC/USDT": {user(1, 0, "BTC/USDT")}}, sender, &fakeReporter{},
		[]string{"BTC/USDT"}, time.Second, zap.NewNop())
	ctx := context.Background()

	putVolume(store, "BTC/USDT", 200)
	require.NoError(t, d.Run(ctx))
	putVolume(store, "BTC/USDT", 100)
	require.NoError(t, d.Run(ctx))
	assert.Empty(t, sender.sent)
}
