package job

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/database"
)

// Queue is the scheduling slice of the database client.
type Queue interface {
	PendingJobs(ctx context.Context, releaseStates []string, limit int) ([]database.QueueRow, error)
	UpdateQueue(ctx context.Context, namespace, id string, status string, failed bool) error
}

// Runner drives pending volumes through one stage each, dataset.threads at
// a time. Volumes run concurrently; stages within one volume run serially
// because a volume only ever holds one queue row.
type Runner struct {
	Engine *Engine
	Queue  Queue
	// BatchSize bounds one scheduling pass; zero means 100.
	BatchSize int
}

// RunOnce fetches one batch of pending jobs and runs each runnable job's
// next stage, persisting the transition through the queue.
func (r *Runner) RunOnce(ctx context.Context) error {
	limit := r.BatchSize
	if limit == 0 {
		limit = 100
	}
	var releaseStates []string
	for _, status := range r.Engine.Resolver.Global().Daemon.ReleaseStates {
		releaseStates = append(releaseStates, string(status))
	}
	rows, err := r.Queue.PendingJobs(ctx, releaseStates, limit)
	if err != nil {
		return err
	}

	threads := r.Engine.Resolver.Global().Dataset.Threads
	if threads <= 0 {
		threads = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)
	for _, row := range rows {
		row := row
		group.Go(func() error {
			r.runRow(groupCtx, row)
			return nil
		})
	}
	return group.Wait()
}

// runRow executes one queue row's next stage. Errors are logged, not
// propagated: one broken volume must not stall the batch.
func (r *Runner) runRow(ctx context.Context, row database.QueueRow) {
	logger := logrus.WithFields(logrus.Fields{
		"namespace": row.Namespace,
		"objid":     row.ID,
		"status":    row.Status,
	})
	j := New(r.Engine, Params{
		ID:           api.Identifier{Namespace: row.Namespace, ObjID: row.ID},
		PkgType:      row.PkgType,
		Status:       api.Status(row.Status),
		FailureCount: row.FailureCount,
		Callback: func(namespace, id string, newStatus api.Status, release, failed bool) {
			if err := r.Queue.UpdateQueue(ctx, namespace, id, string(newStatus), failed); err != nil {
				logger.WithError(err).Error("could not persist status transition")
				return
			}
			logger.WithFields(logrus.Fields{
				"new_status": newStatus,
				"release":    release,
				"failed":     failed,
			}).Info("stage complete")
		},
	})
	if !j.Runnable() {
		logger.Warn("no stage mapped for status; skipping")
		return
	}
	if err := j.Run(ctx); err != nil {
		logger.WithError(err).Error("job did not run")
	}
}
