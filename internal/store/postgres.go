// ABOUTME: Postgres constructor for the SQL store, used against the managed Supabase database
// ABOUTME: Assumes the schema already exists; schema management stays with the hosting platform

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// NewPostgresStore connects to Postgres using a lib/pq DSN.
// Unlike NewSQLiteStore it never creates tables.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	logger.Info("Postgres store initialized")
	return &SQLStore{
		db:      db,
		dialect: dialectPostgres,
		logger:  logger,
	}, nil
}
