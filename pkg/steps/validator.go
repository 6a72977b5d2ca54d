package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "VolumeValidator",
		Description: volumeValidatorDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewVolumeValidator(v) },
	})
}

const volumeValidatorDescription = "runs format and encoding validation over the SIP's content files"

// VolumeValidator runs format validation (JHOVE) over the filegroups
// flagged for it and well-formedness checks over the UTF-8 filegroups,
// then records the package_validation event.
type VolumeValidator struct {
	stage
}

func NewVolumeValidator(v *volume.Volume) *VolumeValidator {
	return &VolumeValidator{stage: newStage(v, "VolumeValidator", volumeValidatorDescription, api.StageInfo{
		SuccessState: api.StatusValidated,
		FailureState: api.StatusPunted,
	})}
}

func (s *VolumeValidator) Run(ctx context.Context) bool {
	if err := s.validateUTF8(); err != nil {
		return s.fail(err)
	}
	if err := s.validateFormats(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.volume.RecordPremisEvent(ctx, "package_validation"); err != nil {
		return s.fail(err)
	}
	return s.succeed()
}

func (s *VolumeValidator) validateUTF8() error {
	files, err := s.volume.UTF8Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(s.volume.StagingDirectory(), file))
		if err != nil {
			return results.ForReason(results.ReasonOperationFailed).
				WithField("operation", "read").WithField("file", file).
				WithError(err).Errorf("could not read %s", file)
		}
		if !utf8.Valid(data) {
			return results.ForReason(results.ReasonBadField).
				WithField("field", "encoding").WithField("file", file).
				Errorf("%s is not well-formed UTF-8", file)
		}
	}
	return nil
}

// validateFormats runs the configured JHOVE invocation once per file in
// the jhove-flagged filegroups. The effective validation overrides for
// JHOVE are appended as key=value arguments so namespace and package type
// tune the validator without changing the stage.
func (s *VolumeValidator) validateFormats(ctx context.Context) error {
	v := s.volume
	files, err := v.JhoveFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	command, err := v.ResolveString("jhove")
	if err != nil {
		if results.ReasonFor(err) == results.ReasonUnknownKey {
			s.setInfo("no format validator configured; skipping")
			return nil
		}
		return err
	}
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return results.ForReason(results.ReasonMissingField).
			WithField("field", "jhove").Errorf("empty format validator invocation")
	}
	overrides := v.Resolver().ValidationOverrides(v.Namespace(), v.PackageType(), "JHOVE")
	params := make([]string, 0, len(overrides))
	for key, value := range overrides {
		params = append(params, fmt.Sprintf("%s=%v", key, value))
	}
	sort.Strings(params)
	for _, file := range files {
		args := append(append([]string{}, tokens[1:]...), params...)
		args = append(args, filepath.Join(v.StagingDirectory(), file))
		out, err := exec.CommandContext(ctx, tokens[0], args...).CombinedOutput()
		if err != nil {
			return results.ForReason(results.ReasonBadField).
				WithField("field", "format").WithField("file", file).
				WithField("detail", strings.TrimSpace(string(out))).
				WithError(err).Errorf("%s failed format validation", file)
		}
	}
	return nil
}

var _ api.Stage = (*VolumeValidator)(nil)
