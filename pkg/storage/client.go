package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"volumebot/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Client struct {
	DB *gorm.DB
}

func NewClient(dialector gorm.Dialector) (*Client, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialector.Name(), err)
	}

	return &Client{DB: db}, nil
}

// NewSQLiteClient opens (creating if needed) the sqlite file at path.
func NewSQLiteClient(path string) (*Client, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	client, err := NewClient(sqlite.Open(path))
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
	db, err := client.DB.DB()
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return client, nil
}

func NewPostgresClient(cfg config.PostgresConfig, env string) (*Client, error) {
	client, err := NewClient(postgres.Open(cfg.DSN(env)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db, err := client.DB.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return client, nil
}

// InitializeAndMigrate connects to the configured backend, creating the
// postgres database first when createDB is set, and runs AutoMigrate.
func InitializeAndMigrate(ctx context.Context, cfg config.StorageConfig, env string, createDB bool) (*Client, error) {
	var (
		client *Client
		err    error
	)

	switch cfg.Driver {
	case "postgres":
		if createDB {
			if _, err := CreateDatabase(ctx, cfg.Postgres, env); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		client, err = NewPostgresClient(cfg.Postgres, env)
	case "sqlite":
		client, err = NewSQLiteClient(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.AutoMigrateUserSettings(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (c *Client) AutoMigrateUserSettings() error {
	if err := c.DB.AutoMigrate(&UserSettingsRecord{}); err != nil {
		return fmt.Errorf("auto-migrate user_settings table: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
