package subscription

import (
	"context"
	"errors"
)

var (
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
	ErrUnknownAsset     = errors.New("asset is not in the monitored list")
)

// Subscription is what one chat user monitors. Assets keep insertion order.
type Subscription struct {
	Assets    []string
	Threshold float64 // percent
}

// Clone returns a deep copy safe to hand out of the store.
func (s Subscription) Clone() Subscription {
	assets := make([]string, len(s.Assets))
	copy(assets, s.Assets)
	return Subscription{Assets: assets, Threshold: s.Threshold}
}

// UserSubscription pairs a user with their subscription.
type UserSubscription struct {
	UserID int64
	Subscription
}

// Repository persists subscriptions. Save must upsert the whole record.
type Repository interface {
	LoadAll(ctx context.Context) (map[int64]Subscription, error)
	Save(ctx context.Context, userID int64, sub Subscription) error
}
