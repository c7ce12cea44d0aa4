package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"volumebot/internal/asset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu      sync.Mutex
	stored  map[int64]Subscription
	saves   int
	failErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: make(map[int64]Subscription)}
}

func (r *fakeRepo) LoadAll(context.Context) (map[int64]Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]Subscription, len(r.stored))
	for k, v := range r.stored {
		out[k] = v.Clone()
	}
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, userID int64, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.saves++
	r.stored[userID] = sub.Clone()
	return nil
}

func newTestStore(t *testing.T, repo Repository) *Store {
	t.Helper()
	u, err := asset.NewUniverse([]string{"BTC/USDT", "ETH/USDT", "DOGE/USDT", "SOL/USDT"})
	require.NoError(t, err)

	s, err := NewStore(repo, u, Subscription{
		Assets:    []string{"BTC/USDT", "ETH/USDT", "NOPE/USDT"},
		Threshold: 10,
	}, zap.NewNop())
	require.NoError(t, err)
	return s
}

// go test -v --run TestStoreDefaults
func TestStoreDefaults(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, s.Defaults().Assets)

	got := s.Get(7)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, got.Assets)
	assert.Equal(t, 10.0, got.Threshold)
	assert.Equal(t, 0, repo.saves, "reading must not persist")
	assert.Equal(t, 0, s.Len())

	// mutating a returned copy leaves the store untouched
	got.Assets[0] = "XXX"
	assert.Equal(t, "BTC/USDT", s.Get(7).Assets[0])
}

// go test -v --run TestStoreStart
func TestStoreStart(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	sub, created, err := s.Start(ctx, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, sub.Assets)
	assert.Equal(t, 1, repo.saves)

	_, created, err = s.Start(ctx, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, repo.saves)
}

// go test -v --run TestStoreToggleAsset
func TestStoreToggleAsset(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	sub, added, err := s.ToggleAsset(ctx, 5, "sol/usdt")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, sub.Assets)
	assert.Equal(t, sub.Assets, repo.stored[5].Assets, "first touch persists")

	sub, added, err = s.ToggleAsset(ctx, 5, "SOL/USDT")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, sub.Assets)

	// toggling twice restores the original selection
	_, _, err = s.ToggleAsset(ctx, 5, "BTC/USDT")
	require.NoError(t, err)
	sub, _, err = s.ToggleAsset(ctx, 5, "BTC/USDT")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC/USDT", "ETH/USDT"}, sub.Assets)

	_, _, err = s.ToggleAsset(ctx, 5, "NOPE/USDT")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

// go test -v --run TestStoreSetThreshold
func TestStoreSetThreshold(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	sub, err := s.SetThreshold(ctx, 3, 25.5)
	require.NoError(t, err)
	assert.Equal(t, 25.5, sub.Threshold)
	assert.Equal(t, 25.5, repo.stored[3].Threshold)

	for _, bad := range []float64{-1, 100.01, 1000} {
		_, err := s.SetThreshold(ctx, 3, bad)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", bad)
	}
	assert.Equal(t, 25.5, s.Get(3).Threshold)

	for _, edge := range []float64{0, 100} {
		_, err := s.SetThreshold(ctx, 3, edge)
		assert.NoError(t, err, "threshold %v", edge)
	}
}

// go test -v --run TestStoreSaveFailureKeepsState
func TestStoreSaveFailureKeepsState(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	_, err := s.SetThreshold(ctx, 9, 30)
	require.NoError(t, err)

	repo.failErr = errors.New("disk full")

	_, err = s.SetThreshold(ctx, 9, 60)
	require.Error(t, err)
	assert.Equal(t, 30.0, s.Get(9).Threshold)

	_, _, err = s.ToggleAsset(ctx, 9, "DOGE/USDT")
	require.Error(t, err)
	assert.NotContains(t, s.Get(9).Assets, "DOGE/USDT")

	_, _, err = s.Start(ctx, 10)
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

// go test -v --run TestStoreSubscribers
func TestStoreSubscribers(t *testing.T) {
	repo := newFakeRepo()
	s := newTestStore(t, repo)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		_, _, err := s.Start(ctx, id)
		require.NoError(t, err)
	}
	_, _, err := s.ToggleAsset(ctx, 20, "BTC/USDT")
	require.NoError(t, err)

	subs := s.Subscribers("BTC/USDT")
	require.Len(t, subs, 2)
	assert.Equal(t, int64(10), subs[0].UserID)
	assert.Equal(t, int64(30), subs[1].UserID)

	assert.Empty(t, s.Subscribers("SOL/USDT"))
}

// go test -v --run TestStoreLoad
func TestStoreLoad(t *testing.T) {
	repo := newFakeRepo()
	repo.stored[1] = Subscription{Assets: []string{"BTC/USDT", "GONE/USDT"}, Threshold: 15}
	repo.stored[2] = Subscription{Assets: []string{"ETH/USDT"}, Threshold: 250}

	s := newTestStore(t, repo)
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"BTC/USDT"}, s.Get(1).Assets)
	assert.Equal(t, 15.0, s.Get(1).Threshold)
	assert.Equal(t, 10.0, s.Get(2).Threshold)
}

// go test -v --run TestNewStoreRejectsBadDefault
func TestNewStoreRejectsBadDefault(t *testing.T) {
	u, err := asset.NewUniverse([]string{"BTC/USDT"})
	require.NoError(t, err)

	_, err = NewStore(newFakeRepo(), u, Subscription{Threshold: -5}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}
