package steps

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "VerifyManifest",
		Description: verifyManifestDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewVerifyManifest(v) },
	})
}

const verifyManifestDescription = "checks the unpacked SIP against the package type's manifest"

// VerifyManifest checks the structural expectations on an unpacked SIP:
// every file is accounted for, every required filegroup is populated, the
// sequence is gapless unless the package type allows gaps, and every
// content file's checksum matches the manifest.
type VerifyManifest struct {
	stage
}

func NewVerifyManifest(v *volume.Volume) *VerifyManifest {
	return &VerifyManifest{stage: newStage(v, "VerifyManifest", verifyManifestDescription, api.StageInfo{
		SuccessState: api.StatusVerified,
		FailureState: api.StatusPunted,
	})}
}

func (s *VerifyManifest) Run(ctx context.Context) bool {
	if err := s.checkFilenames(); err != nil {
		return s.fail(err)
	}
	if err := s.checkRequiredGroups(); err != nil {
		return s.fail(err)
	}
	if err := s.checkSequence(); err != nil {
		return s.fail(err)
	}
	if err := s.checkChecksums(ctx); err != nil {
		return s.fail(err)
	}
	return s.succeed()
}

// checkFilenames requires every file in the SIP to match the valid file
// pattern, the source METS pattern or the checksum file pattern.
func (s *VerifyManifest) checkFilenames() error {
	pt := s.volume.PackageType()
	files, err := s.volume.AllDirectoryFiles()
	if err != nil {
		return err
	}
	valid := pt.ValidFileMatcher()
	sourceMETS := pt.SourceMETSMatcher()
	checksum := pt.ChecksumFileMatcher()
	for _, file := range files {
		if valid != nil && valid.MatchString(file) {
			continue
		}
		if sourceMETS != nil && sourceMETS.MatchString(file) {
			continue
		}
		if checksum != nil && checksum.MatchString(file) {
			continue
		}
		return results.ForReason(results.ReasonBadField).
			WithField("field", "file").WithField("file", file).
			Errorf("unexpected file in SIP for %s", s.volume.ID())
	}
	return nil
}

func (s *VerifyManifest) checkRequiredGroups() error {
	for _, named := range s.volume.PackageType().OrderedFilegroups() {
		if !named.Spec.Required {
			continue
		}
		group, err := s.volume.Filegroup(named.Name)
		if err != nil {
			return err
		}
		if group == nil || len(group.Files) == 0 {
			return results.ForReason(results.ReasonMissingField).
				WithField("field", "filegroup").WithField("filegroup", named.Name).
				Errorf("required filegroup %s is empty for %s", named.Name, s.volume.ID())
		}
	}
	return nil
}

// checkSequence requires the page sequence to start at 1 and be gapless
// unless the package type allows gaps.
func (s *VerifyManifest) checkSequence() error {
	if s.volume.PackageType().AllowSequenceGaps {
		return nil
	}
	byPage, err := s.volume.FilesByPage()
	if err != nil {
		return err
	}
	sequences := make([]int, 0, len(byPage))
	for seq := range byPage {
		sequences = append(sequences, seq)
	}
	sort.Ints(sequences)
	for i, seq := range sequences {
		if seq != i+1 {
			return results.ForReason(results.ReasonBadField).
				WithField("field", "sequence_number").
				WithField("actual", fmt.Sprintf("%d", seq)).
				Errorf("sequence gap before page %d for %s", seq, s.volume.ID())
		}
	}
	return nil
}

func (s *VerifyManifest) checkChecksums(ctx context.Context) error {
	sums, err := s.volume.Checksums()
	if err != nil {
		return err
	}
	files, err := s.volume.AllContentFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results.ForReason(results.ReasonOperationFailed).
				WithField("operation", "checksum").ForError(err)
		}
		expected, ok := sums[file]
		if !ok {
			return results.ForReason(results.ReasonMissingField).
				WithField("field", "checksum").WithField("file", file).
				Errorf("no checksum recorded for %s", file)
		}
		actual, err := fileMD5(filepath.Join(s.volume.StagingDirectory(), file))
		if err != nil {
			return results.ForReason(results.ReasonOperationFailed).
				WithField("operation", "checksum").WithField("file", file).
				WithError(err).Errorf("could not checksum %s", file)
		}
		if actual != expected {
			return results.ForReason(results.ReasonBadField).
				WithField("field", "checksum").WithField("file", file).
				WithField("actual", actual).
				Errorf("checksum mismatch for %s: expected %s", file, expected)
		}
	}
	return nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var _ api.Stage = (*VerifyManifest)(nil)
