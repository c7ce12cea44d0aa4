package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"volumebot/config"

	_ "github.com/lib/pq"
)

const createDBTimeout = 10 * time.Second

// CreateDatabase connects to the postgres server and creates the configured
// database if it doesn't exist. created reports whether it had to.
func CreateDatabase(ctx context.Context, cfg config.PostgresConfig, env string) (created bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, createDBTimeout)
	defer cancel()

	// Connect to the maintenance 'postgres' DB
	db, err := sql.Open("postgres", cfg.AdminDSN(env))
	if err != nil {
		return false, fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, cfg.DBName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return false, nil
	}

	// identifiers cannot be bound as parameters
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(cfg.DBName)); err != nil {
		return false, fmt.Errorf("create db %s failed: %w", cfg.DBName, err)
	}
	return true, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
