package storage

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// coinSeparator joins the coin list stored in a single column.
const coinSeparator = ","

// UserSettingsRecord is one user's persisted subscription.
type UserSettingsRecord struct {
	UserID    int64   `gorm:"primaryKey;autoIncrement:false"`
	Coins     string  `gorm:"type:text;not null;default:''"`
	Threshold float64 `gorm:"not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (UserSettingsRecord) TableName() string {
	return "user_settings"
}

// UserSettings is the decoded content of one row.
type UserSettings struct {
	Coins     []string
	Threshold float64
}

// ToUserSettingsRecord converts settings into a row for upsert.
func ToUserSettingsRecord(userID int64, s UserSettings) *UserSettingsRecord {
	return &UserSettingsRecord{
		UserID:    userID,
		Coins:     strings.Join(s.Coins, coinSeparator),
		Threshold: s.Threshold,
	}
}

// Settings decodes the row, dropping empty coin entries.
func (r UserSettingsRecord) Settings() UserSettings {
	coins := lo.Compact(lo.Map(strings.Split(r.Coins, coinSeparator), func(c string, _ int) string {
		return strings.TrimSpace(c)
	}))
	return UserSettings{
		Coins:     coins,
		Threshold: r.Threshold,
	}
}
