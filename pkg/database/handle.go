package database

import (
	"context"

	"github.com/pkg/errors"
)

// BindHandle enqueues a persistent-handle binding for the external handle
// service emitter. The bind is keyed on the handle so a reingest rewrites
// rather than duplicates it.
func (c *Client) BindHandle(ctx context.Context, handle, url, rootAdmin, localAdmin string) error {
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO handles (handle, url, root_admin, local_admin)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (handle) DO UPDATE SET url = EXCLUDED.url`,
		handle, url, rootAdmin, localAdmin); err != nil {
		return errors.Wrapf(err, "could not bind handle %s", handle)
	}
	return nil
}
