package steps

import (
	"context"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "ImageRemediate",
		Description: imageRemediateDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewImageRemediate(v) },
	})
}

const imageRemediateDescription = "normalizes page images to the repository's profile"

// ImageRemediate runs the configured image remediation tool over the
// staging directory, rewriting page images in place. Packages whose images
// already conform configure no tool.
type ImageRemediate struct {
	stage
}

func NewImageRemediate(v *volume.Volume) *ImageRemediate {
	return &ImageRemediate{stage: newStage(v, "ImageRemediate", imageRemediateDescription, api.StageInfo{
		SuccessState: api.StatusRemediated,
		FailureState: api.StatusPunted,
	})}
}

func (s *ImageRemediate) Run(ctx context.Context) bool {
	v := s.volume
	command, err := v.ResolveString("image_remediate_command")
	if err != nil {
		if results.ReasonFor(err) == results.ReasonUnknownKey {
			s.setInfo("no image remediation configured; passing through")
			return s.succeed()
		}
		return s.fail(err)
	}
	if err := runTool(ctx, command, v.StagingDirectory()); err != nil {
		return s.fail(err)
	}
	v.InvalidateDirectoryCache()
	return s.succeed()
}

var _ api.Stage = (*ImageRemediate)(nil)
