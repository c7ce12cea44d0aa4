package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"volumebot/internal/health"
	"volumebot/internal/memorystore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedStatus struct {
	st health.Status
	ok bool
}

func (f fixedStatus) LastStatus() (health.Status, bool) { return f.st, f.ok }

type fixedStorage bool

func (f fixedStorage) IsHealthy(context.Context) bool { return bool(f) }

func newTestServer(status StatusSource) (*Server, *memorystore.MemorySnapshotStore) {
	return newTestServerWithStorage(status, fixedStorage(true))
}

func newTestServerWithStorage(status StatusSource, storage StorageChecker) (*Server, *memorystore.MemorySnapshotStore) {
	store := memorystore.NewSnapshotStore()
	store.Put(memorystore.Snapshot{
		Asset:       "BTC/USDT",
		Trailing24h: decimal.NewFromInt(1500),
		Price:       decimal.NewNullDecimal(decimal.RequireFromString("65000.5")),
		RefreshID:   "r1",
		RefreshedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	})
	return NewServer(":0", store, status, storage, func() int { return 3 }, zap.NewNop()), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// go test -v --run TestHealthz
func TestHealthz(t *testing.T) {
	s, _ := newTestServer(fixedStatus{st: health.Status{Exchange: "binance", Healthy: true}, ok: true})
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["snapshots"])
	assert.Equal(t, float64(3), body["users"])

	s, _ = newTestServer(fixedStatus{st: health.Status{Exchange: "binance", Error: "timeout"}, ok: true})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/healthz").Code)

	s, _ = newTestServer(fixedStatus{})
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code, "not checked yet")

	s, _ = newTestServerWithStorage(fixedStatus{}, fixedStorage(false))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/healthz").Code)
}

// go test -v --run TestSnapshots
func TestSnapshots(t *testing.T) {
	s, _ := newTestServer(fixedStatus{})

	rec := get(t, s, "/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []memorystore.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "r1", all[0].RefreshID)
	assert.True(t, decimal.NewFromInt(1500).Equal(all[0].Trailing24h))

	rec = get(t, s, "/snapshots?asset=btc/usdt")
	require.Equal(t, http.StatusOK, rec.Code)
	var one memorystore.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "BTC/USDT", one.Asset)
	assert.Equal(t, "65000.5", one.Price.Decimal.String())

	assert.Equal(t, http.StatusNotFound, get(t, s, "/snapshots?asset=XRP/USDT").Code)
}

// go test -v --run TestRunStopsOnCancel
func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(fixedStatus{})
	s.addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
