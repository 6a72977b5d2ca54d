package steps

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "Pack",
		Description: packDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewPack(v) },
	})
}

const packDescription = "builds the AIP zip from the volume's content files"

// Pack writes the AIP zip: every content file, deflated unless its
// extension is listed as uncompressed for the package type. On success it
// records the zip_compression and zip_md5_create events, the latter
// carrying the zip's digest as its outcome.
type Pack struct {
	stage
}

func NewPack(v *volume.Volume) *Pack {
	return &Pack{stage: newStage(v, "Pack", packDescription, api.StageInfo{
		SuccessState: api.StatusPacked,
		FailureState: api.StatusPunted,
	})}
}

func (s *Pack) Run(ctx context.Context) bool {
	v := s.volume
	files, err := v.AllContentFiles()
	if err != nil {
		return s.fail(err)
	}
	path := v.ZipPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "mkdir").WithField("file", filepath.Dir(path)).
			WithError(err).Errorf("could not create zip staging directory"))
	}
	if err := s.writeZip(ctx, path, files); err != nil {
		return s.fail(err)
	}
	if err := v.RecordPremisEvent(ctx, "zip_compression"); err != nil {
		return s.fail(err)
	}
	digest, err := fileMD5(path)
	if err != nil {
		return s.fail(results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "checksum").WithField("file", path).
			WithError(err).Errorf("could not checksum AIP zip"))
	}
	date := time.Now().UTC().Format("2006-01-02T15:04:05")
	if err := v.RecordPremisEventAt(ctx, "zip_md5_create", date, digest); err != nil {
		return s.fail(err)
	}
	return s.succeed()
}

func (s *Pack) writeZip(ctx context.Context, path string, files []string) error {
	out, err := os.Create(path)
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "create").WithField("file", path).
			WithError(err).Errorf("could not create AIP zip")
	}
	archive := zip.NewWriter(out)
	writeErr := func() error {
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return results.ForReason(results.ReasonOperationFailed).
					WithField("operation", "zip").ForError(err)
			}
			if err := s.addFile(archive, file); err != nil {
				return err
			}
		}
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "zip").WithField("file", path).
			ForError(archive.Close())
	}()
	closeErr := out.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "zip").WithField("file", path).
			WithError(closeErr).Errorf("could not finalize AIP zip")
	}
	return nil
}

func (s *Pack) addFile(archive *zip.Writer, file string) error {
	method := zip.Deflate
	if s.storeUncompressed(file) {
		method = zip.Store
	}
	writer, err := archive.CreateHeader(&zip.FileHeader{Name: file, Method: method})
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "zip").WithField("file", file).
			WithError(err).Errorf("could not add %s to AIP zip", file)
	}
	in, err := os.Open(filepath.Join(s.volume.StagingDirectory(), file))
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "open").WithField("file", file).
			WithError(err).Errorf("could not read %s", file)
	}
	defer in.Close()
	if _, err := io.Copy(writer, in); err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "zip").WithField("file", file).
			WithError(err).Errorf("could not compress %s", file)
	}
	return nil
}

// storeUncompressed reports whether a file's extension is listed as
// already-compressed for the package type.
func (s *Pack) storeUncompressed(file string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	for _, uncompressed := range s.volume.PackageType().StoredExtensions() {
		if strings.ToLower(uncompressed) == ext {
			return true
		}
	}
	return false
}

// CleanFailure removes the partial zip.
func (s *Pack) CleanFailure() error {
	return os.RemoveAll(s.volume.ZipPath())
}

var _ api.Stage = (*Pack)(nil)
