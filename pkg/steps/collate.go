package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "Collate",
		Description: collateDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewCollate(v) },
	})
}

const collateDescription = "installs the AIP into the pairtree object store"

// Collate atomically installs the staged METS and zip at the object's
// pairtree path, maintaining the symlink layer when one is configured. A
// pre-existing object directory marks the ingest as a repeat; the stage
// still succeeds.
type Collate struct {
	stage
	isRepeat bool
}

func NewCollate(v *volume.Volume) *Collate {
	return &Collate{stage: newStage(v, "Collate", collateDescription, api.StageInfo{
		SuccessState: api.StatusCollated,
		FailureState: api.StatusPunted,
	})}
}

// IsRepeat reports whether the object was already in the repository.
func (s *Collate) IsRepeat() bool {
	return s.isRepeat
}

func (s *Collate) Run(ctx context.Context) bool {
	v := s.volume
	sources := map[string]string{
		v.PtObjID() + ".mets.xml": v.METSPath(),
		v.ZipName():               v.ZipPath(),
	}
	var missing []string
	for _, path := range sources {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "collate").
			WithField("detail", strings.Join(missing, ", ")).
			Errorf("AIP artifacts are missing for %s", v.ID()))
	}

	target := v.RepositoryObjectDir()
	if _, err := os.Stat(target); err == nil {
		s.isRepeat = true
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "mkdir").WithField("file", target).
			WithError(err).Errorf("could not create object directory"))
	}
	for name, source := range sources {
		if err := installFile(source, filepath.Join(target, name)); err != nil {
			return s.fail(err)
		}
	}
	if err := s.linkObject(target); err != nil {
		return s.fail(err)
	}
	if backend := v.Backend(); backend != nil {
		if err := backend.LogIngestSuccess(ctx, v.ID().Namespace, v.ObjID(), s.isRepeat); err != nil {
			return s.fail(results.ForReason(results.ReasonOperationFailed).
				WithField("operation", "ingest_log").
				WithError(err).Errorf("could not log ingest"))
		}
	}
	if s.isRepeat {
		s.setInfo(fmt.Sprintf("reingested %s", v.ID()))
	}
	return s.succeed()
}

// linkObject maintains the symlink layer: when a separate link root is
// configured, the link path points at the canonical object directory.
func (s *Collate) linkObject(target string) error {
	link := s.volume.RepositorySymlink()
	if link == target {
		return nil
	}
	if _, err := os.Lstat(link); err == nil {
		s.isRepeat = true
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "mkdir").WithField("file", filepath.Dir(link)).
			WithError(err).Errorf("could not create link directory")
	}
	if err := os.Symlink(target, link); err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "symlink").WithField("file", link).
			WithError(err).Errorf("could not link object directory")
	}
	return nil
}

// installFile copies source into place via a temporary name and rename, so
// a reader never observes a half-written AIP artifact.
func installFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "open").WithField("file", source).
			WithError(err).Errorf("could not open %s", source)
	}
	defer in.Close()
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "create").WithField("file", dest).
			WithError(err).Errorf("could not stage %s", dest)
	}
	_, copyErr := io.Copy(tmp, in)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		err := copyErr
		if err == nil {
			err = closeErr
		}
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "copy").WithField("file", dest).
			WithError(err).Errorf("could not copy %s", source)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "rename").WithField("file", dest).
			WithError(err).Errorf("could not install %s", dest)
	}
	return nil
}

// CleanAlways removes the staged METS, zip and staging directory.
func (s *Collate) CleanAlways() error {
	return s.volume.CleanAll()
}

// CleanSuccess clears the volume's recorded events, now preserved in the
// collated METS, and removes the inbound SIP.
func (s *Collate) CleanSuccess() error {
	if err := s.volume.ClearPremisEvents(context.Background()); err != nil {
		return err
	}
	return s.volume.CleanDownload()
}

var _ api.Stage = (*Collate)(nil)
