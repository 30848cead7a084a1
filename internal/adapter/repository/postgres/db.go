package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DefaultConnectTimeout bounds how long NewDB waits for Postgres to come up
const DefaultConnectTimeout = 30 * time.Second

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection, retrying the ping with exponential
// backoff until Postgres answers or maxWait elapses.
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=replay sslmode=disable"
func NewDB(ctx context.Context, connectionString string, maxWait time.Duration) (*DB, error) {
	if maxWait <= 0 {
		maxWait = DefaultConnectTimeout
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxWait),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
