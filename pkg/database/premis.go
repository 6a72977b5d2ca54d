package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// PremisEvent is one row of provenance for an object. The primary key is
// (namespace, id, eventtype_id): at most one event of each type per object.
type PremisEvent struct {
	Namespace   string `db:"namespace"`
	ID          string `db:"id"`
	EventID     string `db:"eventid"`
	EventtypeID string `db:"eventtype_id"`
	Outcome     string `db:"outcome"`
	Date        string `db:"date"`
}

const replaceEventQuery = `
INSERT INTO premis_events (namespace, id, eventid, eventtype_id, outcome, date)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (namespace, id, eventtype_id)
DO UPDATE SET eventid = EXCLUDED.eventid, outcome = EXCLUDED.outcome, date = EXCLUDED.date`

// ReplaceEvent idempotently records a PREMIS event, overwriting any prior
// event of the same type for the object.
func (c *Client) ReplaceEvent(ctx context.Context, event *PremisEvent) error {
	if _, err := c.db.ExecContext(ctx, replaceEventQuery,
		event.Namespace, event.ID, event.EventID, event.EventtypeID, event.Outcome, event.Date); err != nil {
		return errors.Wrapf(err, "could not record %s event for %s.%s", event.EventtypeID, event.Namespace, event.ID)
	}
	return nil
}

// GetEvent fetches the recorded event of one type for an object, or nil
// when none exists.
func (c *Client) GetEvent(ctx context.Context, namespace, id, eventtypeID string) (*PremisEvent, error) {
	event := &PremisEvent{}
	err := c.db.GetContext(ctx, event,
		`SELECT namespace, id, eventid, eventtype_id, outcome, date FROM premis_events WHERE namespace = $1 AND id = $2 AND eventtype_id = $3`,
		namespace, id, eventtypeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch %s event for %s.%s", eventtypeID, namespace, id)
	}
	return event, nil
}

// ClearEvents drops all recorded events for an object; run after a
// successful collation, once the events live in the AIP METS.
func (c *Client) ClearEvents(ctx context.Context, namespace, id string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM premis_events WHERE namespace = $1 AND id = $2`, namespace, id); err != nil {
		return errors.Wrapf(err, "could not clear events for %s.%s", namespace, id)
	}
	return nil
}
