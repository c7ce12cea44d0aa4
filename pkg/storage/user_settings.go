package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// LoadAll returns every stored row keyed by user id.
func (c *Client) LoadAll(ctx context.Context) (map[int64]UserSettings, error) {
	var records []UserSettingsRecord
	if err := c.DB.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load user settings: %w", err)
	}

	out := make(map[int64]UserSettings, len(records))
	for _, r := range records {
		out[r.UserID] = r.Settings()
	}
	return out, nil
}

// Save inserts or replaces the user's row.
func (c *Client) Save(ctx context.Context, userID int64, settings UserSettings) error {
	record := ToUserSettingsRecord(userID, settings)

	tx := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"coins", "threshold", "updated_at"}),
	}).Create(record)
	if tx.Error != nil {
		return fmt.Errorf("save user settings %d: %w", userID, tx.Error)
	}
	return nil
}

// Count returns the number of stored rows.
func (c *Client) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.DB.WithContext(ctx).Model(&UserSettingsRecord{}).Count(&n).Error
	return n, err
}
