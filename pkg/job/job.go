// Package job wraps one volume at one status: it resolves the stage the
// package type's stage map assigns to that status, runs it, and reports
// the resulting transition through a callback. Jobs are single-use; a
// volume's continuation is always a new job at the new status.
package job

import (
	"context"
	"fmt"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/config"
	"github.com/dlps/feed/pkg/database"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

// Callback receives the outcome of one stage run, exactly once per job.
type Callback func(namespace, id string, newStatus api.Status, release, failed bool)

// Journal is the error-journal slice of the database client.
type Journal interface {
	LogError(ctx context.Context, row *database.ErrorRow) error
}

// Engine bundles the shared collaborators jobs are built against.
type Engine struct {
	Registry *registry.Registry
	Resolver *config.Resolver
	Events   volume.EventStore
	Backend  volume.Backend
	Journal  Journal
}

// Params describes one schedulable unit of work.
type Params struct {
	ID           api.Identifier
	PkgType      string
	Status       api.Status
	FailureCount int
	Callback     Callback
}

// Job is one volume at one status. The job's own status never mutates;
// Run reports the successor status through the callback instead.
type Job struct {
	engine *Engine
	params Params

	vol  *volume.Volume
	used bool
}

func New(engine *Engine, params Params) *Job {
	if params.Status == "" {
		params.Status = api.StatusReady
	}
	return &Job{engine: engine, params: params}
}

func (j *Job) ID() api.Identifier { return j.params.ID }
func (j *Job) Status() api.Status { return j.params.Status }
func (j *Job) FailureCount() int  { return j.params.FailureCount }

// Volume materializes the job's volume on first use.
func (j *Job) Volume() (*volume.Volume, error) {
	if j.vol != nil {
		return j.vol, nil
	}
	ns, err := j.engine.Registry.Namespace(j.params.ID.Namespace)
	if err != nil {
		return nil, err
	}
	pt, err := j.engine.Registry.PackageType(j.params.PkgType)
	if err != nil {
		return nil, err
	}
	vol, err := volume.New(volume.Params{
		ID:          j.params.ID,
		Namespace:   ns,
		PackageType: pt,
		Resolver:    j.engine.Resolver,
		Events:      j.engine.Events,
		Backend:     j.engine.Backend,
	})
	if err != nil {
		return nil, err
	}
	j.vol = vol
	return vol, nil
}

// stageRecord resolves the stage the stage map assigns to the job's
// status; the second return is false when the status has no mapping.
func (j *Job) stageRecord() (*registry.StageRecord, bool, error) {
	vol, err := j.Volume()
	if err != nil {
		return nil, false, err
	}
	stageID, ok := vol.PackageType().StageFor(j.params.Status)
	if !ok {
		return nil, false, nil
	}
	record, err := j.engine.Registry.Stage(stageID)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Runnable reports whether the stage map assigns a registered stage to the
// job's status.
func (j *Job) Runnable() bool {
	_, ok, err := j.stageRecord()
	return err == nil && ok
}

// Run executes the job's stage, runs the clean hooks, journals any
// failure, and invokes the callback with the computed transition. A job
// may run at most once.
func (j *Job) Run(ctx context.Context) error {
	if j.used {
		return fmt.Errorf("job for %s already ran", j.params.ID)
	}
	j.used = true

	vol, err := j.Volume()
	if err != nil {
		return err
	}
	record, ok, err := j.stageRecord()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stage mapped for %s at status %s", j.params.ID, j.params.Status)
	}

	stage := record.Build(vol)
	succeeded := stage.Run(ctx)
	observeStage(stage.Name(), succeeded)

	info := stage.Info()
	newStatus := info.SuccessState
	if !succeeded {
		newStatus = info.FailureState
	}
	release := j.engine.Resolver.Global().IsReleaseState(newStatus)

	j.runCleanHooks(vol, stage, succeeded, release)
	if !succeeded {
		j.journalFailure(ctx, stage)
	}
	if j.params.Callback != nil {
		j.params.Callback(j.params.ID.Namespace, j.params.ID.ObjID, newStatus, release, !succeeded)
	}
	return nil
}

func (j *Job) runCleanHooks(vol *volume.Volume, stage api.Stage, succeeded, release bool) {
	if err := stage.CleanAlways(); err != nil {
		vol.Logger().WithError(err).Warn("clean hook failed")
	}
	if succeeded {
		if err := stage.CleanSuccess(); err != nil {
			vol.Logger().WithError(err).Warn("clean hook failed")
		}
	} else {
		if err := stage.CleanFailure(); err != nil {
			vol.Logger().WithError(err).Warn("clean hook failed")
		}
		if release {
			// the volume will not be redispatched; tear its staging down
			if err := vol.CleanAll(); err != nil {
				vol.Logger().WithError(err).Warn("could not clean punted volume")
			}
		}
	}
}

func (j *Job) journalFailure(ctx context.Context, stage api.Stage) {
	if j.engine.Journal == nil {
		return
	}
	err := stage.Err()
	row := &database.ErrorRow{
		Namespace: j.params.ID.Namespace,
		ID:        j.params.ID.ObjID,
		Stage:     stage.Name(),
		Operation: string(results.ReasonFor(err)),
		Detail:    errDetail(err),
	}
	if logErr := j.engine.Journal.LogError(ctx, row); logErr != nil && j.vol != nil {
		j.vol.Logger().WithError(logErr).Error("could not journal stage failure")
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	if summary := results.FieldSummary(err); summary != "" {
		return fmt.Sprintf("%s (%s)", err.Error(), summary)
	}
	return err.Error()
}
