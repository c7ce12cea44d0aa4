package subscription

import (
	"context"

	"volumebot/pkg/storage"
)

// SettingsStore is the user-settings API of the storage client.
type SettingsStore interface {
	LoadAll(ctx context.Context) (map[int64]storage.UserSettings, error)
	Save(ctx context.Context, userID int64, settings storage.UserSettings) error
}

type storageRepository struct {
	db SettingsStore
}

// NewStorageRepository persists subscriptions as user_settings rows.
func NewStorageRepository(db SettingsStore) Repository {
	return storageRepository{db: db}
}

func (r storageRepository) LoadAll(ctx context.Context) (map[int64]Subscription, error) {
	rows, err := r.db.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Subscription, len(rows))
	for userID, row := range rows {
		out[userID] = Subscription{Assets: row.Coins, Threshold: row.Threshold}
	}
	return out, nil
}

func (r storageRepository) Save(ctx context.Context, userID int64, sub Subscription) error {
	return r.db.Save(ctx, userID, storage.UserSettings{Coins: sub.Assets, Threshold: sub.Threshold})
}
