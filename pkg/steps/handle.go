package steps

import (
	"context"
	"fmt"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "Handle",
		Description: handleDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewHandle(v) },
	})
}

const handleDescription = "binds the volume's persistent handle to its repository URL"

// defaultHandlePrefix is used when no layer configures handle_prefix.
const defaultHandlePrefix = "2027"

// Handle enqueues the persistent-handle binding for the external handle
// service and records the handle_assignment event when the catalog defines
// one.
type Handle struct {
	stage
}

func NewHandle(v *volume.Volume) *Handle {
	return &Handle{stage: newStage(v, "Handle", handleDescription, api.StageInfo{
		SuccessState: api.StatusHandled,
		FailureState: api.StatusPunted,
	})}
}

func (s *Handle) Run(ctx context.Context) bool {
	v := s.volume
	backend := v.Backend()
	if backend == nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "bind_handle").
			Errorf("no backend available for handle binding"))
	}
	prefix, err := v.ResolveString("handle_prefix")
	if err != nil {
		if results.ReasonFor(err) != results.ReasonUnknownKey {
			return s.fail(err)
		}
		prefix = defaultHandlePrefix
	}
	global := v.Resolver().Global()
	handle := fmt.Sprintf("%s/%s", prefix, v.ID())
	url := fmt.Sprintf("%s/%s", global.RepoURLBase, v.ID())
	if err := backend.BindHandle(ctx, handle, url, global.Handle.RootAdmin, global.Handle.LocalAdmin); err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "bind_handle").WithField("detail", handle).
			WithError(err).Errorf("could not bind handle"))
	}
	if _, err := v.EventConfiguration("handle_assignment"); err == nil {
		if err := v.RecordPremisEvent(ctx, "handle_assignment"); err != nil {
			return s.fail(err)
		}
	}
	s.setInfo(fmt.Sprintf("bound %s to %s", handle, url))
	return s.succeed()
}

var _ api.Stage = (*Handle)(nil)
