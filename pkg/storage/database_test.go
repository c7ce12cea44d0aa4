package storage

import (
	"context"
	"os"
	"testing"

	"volumebot/config"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestQuoteIdentifier
func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"volumebot"`, quoteIdentifier("volumebot"))
	assert.Equal(t, `"we""ird"`, quoteIdentifier(`we"ird`))
}

// POSTGRES_TEST_HOST=localhost go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	host := os.Getenv("POSTGRES_TEST_HOST")
	if host == "" {
		t.Skip("POSTGRES_TEST_HOST not set")
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("POSTGRES_TEST_PASSWORD"),
		DBName:   "volumebot_test",
		SSLMode:  "disable",
	}

	if _, err := CreateDatabase(context.Background(), cfg, "dev"); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	// second call sees the existing database
	created, err := CreateDatabase(context.Background(), cfg, "dev")
	if err != nil {
		t.Fatalf("create database is not idempotent: %v", err)
	}
	assert.False(t, created)
}
