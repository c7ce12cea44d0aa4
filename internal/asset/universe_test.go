package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestLoad
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coins.txt")
	body := "# monitored pairs\n'BTC/USDT',\n  'eth/usdt',\nDOGE/USDT\n'BTC/USDT',\n\n'SOL/USDT'\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	u, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, u.Assets())
	assert.True(t, u.Contains("ETH/USDT"))
	assert.False(t, u.Contains("DOGE/USDT"))
	assert.Equal(t, 3, u.Len())
}

// go test -v --run TestLoadFailures
func TestLoadFailures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "coins.txt")
	require.NoError(t, os.WriteFile(path, []byte("BTC/USDT\n"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

// go test -v --run TestFilter
func TestFilter(t *testing.T) {
	u, err := NewUniverse([]string{"BTC/USDT", "ETH/USDT"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ETH/USDT", "BTC/USDT"}, u.Filter([]string{"ETH/USDT", "XRP/USDT", "BTC/USDT"}))

	assets := u.Assets()
	assets[0] = "mutated"
	assert.Equal(t, "BTC/USDT", u.Assets()[0])
}
