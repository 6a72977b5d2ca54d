package steps

import (
	"context"
	"os"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "METS",
		Description: metsDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewMETS(v) },
	})
}

const metsDescription = "assembles and validates the AIP METS document"

// METS assembles the AIP METS for the volume, merging repository, source
// and generated provenance.
type METS struct {
	stage
	// Validator overrides the configured XML validator; tests inject one.
	Validator mets.Validator
}

func NewMETS(v *volume.Volume) *METS {
	return &METS{stage: newStage(v, "METS", metsDescription, api.StageInfo{
		SuccessState: api.StatusMETSed,
		FailureState: api.StatusPunted,
	})}
}

func (s *METS) Run(ctx context.Context) bool {
	validator := s.Validator
	if validator == nil {
		if command := s.volume.Resolver().Global().Xerces; command != "" {
			validator = &mets.CommandValidator{Command: command}
		}
	}
	assembler := &mets.Assembler{Volume: s.volume, Validator: validator}
	if err := assembler.Assemble(ctx); err != nil {
		return s.fail(err)
	}
	return s.succeed()
}

// CleanFailure removes the partial METS so reassembly starts clean.
func (s *METS) CleanFailure() error {
	return os.RemoveAll(s.volume.METSPath())
}

var _ api.Stage = (*METS)(nil)
