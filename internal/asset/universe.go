// Package asset holds the fixed set of trading pairs the bot monitors.
package asset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

var ErrEmptyUniverse = errors.New("no assets configured")

// Universe is the ordered, immutable asset list loaded at startup.
type Universe struct {
	assets []string
	index  map[string]struct{}
}

// NewUniverse normalizes and de-duplicates assets, keeping first-seen order.
func NewUniverse(assets []string) (*Universe, error) {
	normalized := lo.Uniq(lo.FilterMap(assets, func(a string, _ int) (string, bool) {
		n := Normalize(a)
		return n, n != ""
	}))
	if len(normalized) == 0 {
		return nil, ErrEmptyUniverse
	}

	return &Universe{
		assets: normalized,
		index:  lo.Keyify(normalized),
	}, nil
}

// Load reads a coin file. Only lines starting with a single quote are
// entries, e.g. `'BTC/USDT',`; everything else is ignored.
func Load(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coins file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "'") {
			continue
		}
		entries = append(entries, strings.Trim(line, "',"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read coins file: %w", err)
	}

	u, err := NewUniverse(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// Normalize turns user input such as " btc/usdt " into "BTC/USDT".
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (u *Universe) Contains(asset string) bool {
	_, ok := u.index[asset]
	return ok
}

// Assets returns the universe in configured order.
func (u *Universe) Assets() []string {
	out := make([]string, len(u.assets))
	copy(out, u.assets)
	return out
}

// Filter keeps the assets that belong to the universe, preserving order.
func (u *Universe) Filter(assets []string) []string {
	return lo.Filter(assets, func(a string, _ int) bool {
		return u.Contains(a)
	})
}

func (u *Universe) Len() int {
	return len(u.assets)
}
