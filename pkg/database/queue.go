package database

import (
	"context"

	"github.com/pkg/errors"
)

// QueueRow is one schedulable item in the feed queue.
type QueueRow struct {
	Namespace    string `db:"namespace"`
	ID           string `db:"id"`
	PkgType      string `db:"pkg_type"`
	Status       string `db:"status"`
	Node         string `db:"node"`
	FailureCount int    `db:"failure_count"`
	Priority     int    `db:"priority"`
}

// UpdateQueue records a volume's new status after a stage, incrementing the
// failure count when the stage failed. This is the runner callback's
// persistence half; the external scheduler re-dispatches non-release rows.
func (c *Client) UpdateQueue(ctx context.Context, namespace, id string, status string, failed bool) error {
	increment := 0
	if failed {
		increment = 1
	}
	if _, err := c.db.ExecContext(ctx,
		`UPDATE feed_queue SET status = $1, failure_count = failure_count + $2 WHERE namespace = $3 AND id = $4`,
		status, increment, namespace, id); err != nil {
		return errors.Wrapf(err, "could not update queue for %s.%s", namespace, id)
	}
	return nil
}

// PendingJobs fetches queue rows whose status is not a release state, in
// priority order, up to limit.
func (c *Client) PendingJobs(ctx context.Context, releaseStates []string, limit int) ([]QueueRow, error) {
	query, args, err := buildPendingQuery(releaseStates, limit)
	if err != nil {
		return nil, err
	}
	var rows []QueueRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "could not fetch pending jobs")
	}
	return rows, nil
}

func buildPendingQuery(releaseStates []string, limit int) (string, []interface{}, error) {
	query, args, err := sqlxIn(
		`SELECT namespace, id, pkg_type, status, node, failure_count, priority FROM feed_queue WHERE status NOT IN (?) ORDER BY priority DESC, id LIMIT ?`,
		releaseStates, limit)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not build pending job query")
	}
	return query, args, nil
}
