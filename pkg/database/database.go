// Package database holds the feed database client. The database is the
// only shared mutable state between ingest workers; every write here is
// idempotent or append-only so that a re-dispatched volume cannot corrupt
// state left by a dead worker.
package database

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/dlps/feed/pkg/load"
)

// Client wraps the feed database handle.
type Client struct {
	db *sqlx.DB
}

// New wraps an existing handle; used by tests.
func New(db *sqlx.DB) *Client {
	return &Client{db: db}
}

// Connect opens the feed database from the global configuration.
func Connect(cfg load.DatabaseConfig) (*Client, error) {
	db, err := sqlx.Connect("postgres", cfg.Datasource)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to the feed database")
	}
	return &Client{db: db}, nil
}

// Close releases the underlying handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// sqlxIn expands an IN clause and rebinds placeholders for postgres.
func sqlxIn(query string, args ...interface{}) (string, []interface{}, error) {
	expanded, bound, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, expanded), bound, nil
}
