package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrorRow is one entry in the error journal.
type ErrorRow struct {
	Namespace string `db:"namespace"`
	ID        string `db:"id"`
	Stage     string `db:"stage"`
	Operation string `db:"operation"`
	Detail    string `db:"detail"`
	Date      string `db:"date"`
}

// LogError appends a row to the error journal.
func (c *Client) LogError(ctx context.Context, row *ErrorRow) error {
	if row.Date == "" {
		row.Date = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO feed_errors (namespace, id, stage, operation, detail, date) VALUES ($1, $2, $3, $4, $5, $6)`,
		row.Namespace, row.ID, row.Stage, row.Operation, row.Detail, row.Date); err != nil {
		return errors.Wrapf(err, "could not journal error for %s.%s", row.Namespace, row.ID)
	}
	return nil
}

// LogIngestSuccess records a completed collation, noting whether the object
// was already in the repository.
func (c *Client) LogIngestSuccess(ctx context.Context, namespace, id string, isRepeat bool) error {
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO feed_ingest_log (namespace, id, is_repeat, date) VALUES ($1, $2, $3, $4)`,
		namespace, id, isRepeat, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return errors.Wrapf(err, "could not log ingest for %s.%s", namespace, id)
	}
	return nil
}
