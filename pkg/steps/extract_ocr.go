package steps

import (
	"context"
	"os/exec"
	"strings"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "ExtractOCR",
		Description: extractOCRDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewExtractOCR(v) },
	})
}

const extractOCRDescription = "derives plain-text OCR from the package's native text format"

// ExtractOCR runs the package type's configured OCR extraction tool over
// the staging directory. Formats that ship plain-text OCR configure no
// tool and pass through.
type ExtractOCR struct {
	stage
}

func NewExtractOCR(v *volume.Volume) *ExtractOCR {
	return &ExtractOCR{stage: newStage(v, "ExtractOCR", extractOCRDescription, api.StageInfo{
		SuccessState: api.StatusOCRExtracted,
		FailureState: api.StatusPunted,
	})}
}

func (s *ExtractOCR) Run(ctx context.Context) bool {
	v := s.volume
	command, err := v.ResolveString("ocr_extraction_command")
	if err != nil {
		if results.ReasonFor(err) == results.ReasonUnknownKey {
			s.setInfo("no OCR extraction configured; passing through")
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

// runTool invokes an external tool with the staging directory as its final
// argument. Exit 0 is a pass; combined output is the failure detail.
func runTool(ctx context.Context, command, dir string) error {
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return results.ForReason(results.ReasonMissingField).
			WithField("field", "command").Errorf("empty tool invocation")
	}
	args := append(tokens[1:], dir)
	out, err := exec.CommandContext(ctx, tokens[0], args...).CombinedOutput()
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", tokens[0]).
			WithField("detail", strings.TrimSpace(string(out))).
			WithError(err).Errorf("tool invocation failed")
	}
	return nil
}

var _ api.Stage = (*ExtractOCR)(nil)
