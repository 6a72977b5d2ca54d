package steps

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "Unpack",
		Description: unpackDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewUnpack(v) },
	})
}

const unpackDescription = "extracts the inbound SIP into the staging directory"

// Unpack extracts the SIP zip into the volume's staging directory with the
// external unzip tool.
type Unpack struct {
	stage
}

func NewUnpack(v *volume.Volume) *Unpack {
	return &Unpack{stage: newStage(v, "Unpack", unpackDescription, api.StageInfo{
		SuccessState: api.StatusUnpacked,
		FailureState: api.StatusPunted,
	})}
}

func (s *Unpack) Run(ctx context.Context) bool {
	v := s.volume
	sip, err := v.LocateSIP()
	if err != nil {
		return s.fail(err)
	}
	if err := v.MkStagingDirectory(v.PackageType().DownloadToDisk); err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "mkdir").WithField("file", v.StagingDirectory()).
			WithError(err).Errorf("could not create staging directory"))
	}
	// -j flattens provider-specific directory nesting inside the SIP
	out, err := exec.CommandContext(ctx, "unzip", "-o", "-q", "-j", sip, "-d", v.StagingDirectory()).CombinedOutput()
	if err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "unzip").WithField("file", sip).
			WithField("detail", strings.TrimSpace(string(out))).
			WithError(err).Errorf("could not extract SIP"))
	}
	v.InvalidateDirectoryCache()
	return s.succeed()
}

// CleanFailure removes the partially extracted staging directory so a
// redispatch starts clean.
func (s *Unpack) CleanFailure() error {
	if err := os.RemoveAll(s.volume.StagingDirectory()); err != nil {
		return err
	}
	s.volume.InvalidateDirectoryCache()
	return nil
}

var _ api.Stage = (*Unpack)(nil)
