// Package subscription keeps every chat user's asset selection and alert
// threshold in memory and writes each change through to the repository.
package subscription

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"volumebot/internal/asset"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Store is the only writer of subscriptions. Every mutation is persisted
// before it becomes visible; a failed save leaves memory unchanged.
type Store struct {
	mu   sync.Mutex
	subs map[int64]Subscription

	repo     Repository
	universe *asset.Universe
	defaults Subscription
	logger   *zap.Logger
}

// NewStore builds an empty store. Default assets outside the universe are
// dropped.
func NewStore(repo Repository, universe *asset.Universe, defaults Subscription, logger *zap.Logger) (*Store, error) {
	if !ValidThreshold(defaults.Threshold) {
		return nil, fmt.Errorf("default %w", ErrInvalidThreshold)
	}

	kept := universe.Filter(lo.Uniq(defaults.Assets))
	if dropped, _ := lo.Difference(defaults.Assets, kept); len(dropped) > 0 {
		logger.Warn("default coins not in coin list", zap.Strings("dropped", dropped))
	}

	return &Store{
		subs:     make(map[int64]Subscription),
		repo:     repo,
		universe: universe,
		defaults: Subscription{Assets: kept, Threshold: defaults.Threshold},
		logger:   logger,
	}, nil
}

// ValidThreshold reports whether v is a usable alert threshold.
func ValidThreshold(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// Load replaces the in-memory state with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	stored, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	subs := make(map[int64]Subscription, len(stored))
	for userID, sub := range stored {
		kept := s.universe.Filter(lo.Uniq(sub.Assets))
		if len(kept) != len(sub.Assets) {
			s.logger.Warn("dropping unknown coins from stored subscription",
				zap.Int64("user_id", userID), zap.Strings("stored", sub.Assets))
		}

		threshold := sub.Threshold
		if !ValidThreshold(threshold) {
			s.logger.Warn("stored threshold out of range, using default",
				zap.Int64("user_id", userID), zap.Float64("threshold", threshold))
			threshold = s.defaults.Threshold
		}
		subs[userID] = Subscription{Assets: kept, Threshold: threshold}
	}

	s.mu.Lock()
	s.subs = subs
	s.mu.Unlock()

	s.logger.Info("loaded subscriptions", zap.Int("count", len(subs)))
	return nil
}

// Defaults returns a copy of the subscription new users start with.
func (s *Store) Defaults() Subscription {
	return s.defaults.Clone()
}

// Get returns the user's subscription, or the defaults without persisting
// anything when the user is unknown.
func (s *Store) Get(userID int64) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[userID]; ok {
		return sub.Clone()
	}
	return s.defaults.Clone()
}

// Start materializes and persists the defaults on a user's first contact.
// created is false when the user already had a subscription.
func (s *Store) Start(ctx context.Context, userID int64) (sub Subscription, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.subs[userID]; ok {
		return cur.Clone(), false, nil
	}

	next := s.defaults.Clone()
	if err := s.commit(ctx, userID, next); err != nil {
		return Subscription{}, false, err
	}
	return next.Clone(), true, nil
}

// ToggleAsset adds the asset to the user's selection, or removes it when
// already selected.
func (s *Store) ToggleAsset(ctx context.Context, userID int64, a string) (sub Subscription, added bool, err error) {
	a = asset.Normalize(a)
	if !s.universe.Contains(a) {
		return Subscription{}, false, fmt.Errorf("%w: %s", ErrUnknownAsset, a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current(userID)
	if lo.Contains(next.Assets, a) {
		next.Assets = lo.Without(next.Assets, a)
	} else {
		next.Assets = append(next.Assets, a)
		added = true
	}

	if err := s.commit(ctx, userID, next); err != nil {
		return Subscription{}, false, err
	}
	return next.Clone(), added, nil
}

// SetThreshold stores a new alert threshold in percent.
func (s *Store) SetThreshold(ctx context.Context, userID int64, value float64) (Subscription, error) {
	if !ValidThreshold(value) {
		return Subscription{}, ErrInvalidThreshold
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current(userID)
	next.Threshold = value

	if err := s.commit(ctx, userID, next); err != nil {
		return Subscription{}, err
	}
	return next.Clone(), nil
}

// Subscribers lists users whose selection contains the asset, ordered by
// user id.
func (s *Store) Subscribers(a string) []UserSubscription {
	s.mu.Lock()
	out := make([]UserSubscription, 0)
	for userID, sub := range s.subs {
		if lo.Contains(sub.Assets, a) {
			out = append(out, UserSubscription{UserID: userID, Subscription: sub.Clone()})
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// current returns a private copy of the user's subscription or the defaults.
// Callers hold s.mu.
func (s *Store) current(userID int64) Subscription {
	if sub, ok := s.subs[userID]; ok {
		return sub.Clone()
	}
	return s.defaults.Clone()
}

// commit persists next and then publishes it. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, userID int64, next Subscription) error {
	if err := s.repo.Save(ctx, userID, next); err != nil {
		return fmt.Errorf("save subscription for %d: %w", userID, err)
	}
	s.subs[userID] = next
	return nil
}
