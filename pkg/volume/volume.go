// Package volume holds the runtime object for one item being ingested. A
// Volume is created by the job builder, mutated only by the stages it
// passes through, and torn down once the job reaches a release state. All
// parsed artifacts (directory listing, METS contexts, filegroups,
// checksums) are cached after first use.
package volume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/config"
	"github.com/dlps/feed/pkg/database"
	"github.com/dlps/feed/pkg/pairtree"
	"github.com/dlps/feed/pkg/results"
)

// EventStore is the slice of the database client the volume writes
// provenance through.
type EventStore interface {
	ReplaceEvent(ctx context.Context, event *database.PremisEvent) error
	GetEvent(ctx context.Context, namespace, id, eventtypeID string) (*database.PremisEvent, error)
	ClearEvents(ctx context.Context, namespace, id string) error
}

// Backend is the slice of the database client the terminal stages write
// through: the ingest log and the handle-binding queue. Nil when running
// without a database, e.g. in dry runs.
type Backend interface {
	LogIngestSuccess(ctx context.Context, namespace, id string, isRepeat bool) error
	BindHandle(ctx context.Context, handle, url, rootAdmin, localAdmin string) error
}

// Params collects everything needed to materialize a volume.
type Params struct {
	ID          api.Identifier
	Namespace   *api.Namespace
	PackageType *api.PackageType
	Resolver    *config.Resolver
	Events      EventStore
	Backend     Backend
}

// Volume is one ingestable item within a namespace.
type Volume struct {
	id       api.Identifier
	ns       *api.Namespace
	pt       *api.PackageType
	resolver *config.Resolver
	events   EventStore
	backend  Backend
	logger   *logrus.Entry

	// caches, parsed at most once per volume
	dirFiles         []string
	fileGroups       map[string]*Filegroup
	sourceMETS       *etree.Document
	reposMETS        *etree.Document
	reposMETSChecked bool
	reposMETSPath    string
	checksums        map[string]string
	pageData         map[string]pageInfo
}

type pageInfo struct {
	orderLabel string
	label      string
}

// New materializes a volume from its descriptors.
func New(params Params) (*Volume, error) {
	if params.Namespace == nil || params.PackageType == nil {
		return nil, fmt.Errorf("volume for %s requires namespace and package type descriptors", params.ID)
	}
	return &Volume{
		id:       params.ID,
		ns:       params.Namespace,
		pt:       params.PackageType,
		resolver: params.Resolver,
		events:   params.Events,
		backend:  params.Backend,
		logger: logrus.WithFields(logrus.Fields{
			"namespace": params.ID.Namespace,
			"objid":     params.ID.ObjID,
			"pkg_type":  params.PackageType.Identifier,
		}),
	}, nil
}

func (v *Volume) ID() api.Identifier            { return v.id }
func (v *Volume) Namespace() *api.Namespace     { return v.ns }
func (v *Volume) PackageType() *api.PackageType { return v.pt }
func (v *Volume) ObjID() string                 { return v.id.ObjID }
func (v *Volume) Logger() *logrus.Entry         { return v.logger }
func (v *Volume) Backend() Backend              { return v.backend }

// PtObjID is the stable pairtree encoding of the object identifier.
func (v *Volume) PtObjID() string {
	return pairtree.Escape(v.id.ObjID)
}

// Resolver exposes the layered configuration resolver for stages.
func (v *Volume) Resolver() *config.Resolver {
	return v.resolver
}

// ResolveString is a convenience over the layered resolver for this
// volume's namespace and package type.
func (v *Volume) ResolveString(key string) (string, error) {
	return v.resolver.ResolveString(v.ns, v.pt, key)
}

// StagingDirectory is the per-volume working directory. Package types
// flagged for preingest stage under the preingest root, where remediation
// runs before packaging; everything else stages under the ingest root.
func (v *Volume) StagingDirectory() string {
	if v.pt.UsePreingest {
		return v.PreingestDirectory()
	}
	return filepath.Join(v.resolver.Global().Staging.Ingest, v.PtObjID())
}

// PreingestDirectory is the per-volume remediation working directory.
func (v *Volume) PreingestDirectory() string {
	return filepath.Join(v.resolver.Global().Staging.Preingest, v.PtObjID())
}

// DownloadDirectory holds the inbound SIP.
func (v *Volume) DownloadDirectory() string {
	root := v.resolver.Global().Staging.Download
	return filepath.Join(root, v.id.Namespace)
}

// SIPFilename resolves the package type's SIP filename template.
func (v *Volume) SIPFilename() string {
	return v.pt.SIPFilename(v.id.ObjID)
}

// SIPPath is the full path of the inbound SIP.
func (v *Volume) SIPPath() string {
	return filepath.Join(v.DownloadDirectory(), v.SIPFilename())
}

// LocateSIP finds the inbound SIP, preferring the download area and
// falling back to the fetch area when one is configured.
func (v *Volume) LocateSIP() (string, error) {
	candidates := []string{v.SIPPath()}
	if fetch := v.resolver.Global().Staging.Fetch; fetch != "" {
		candidates = append(candidates, filepath.Join(fetch, v.id.Namespace, v.SIPFilename()))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", results.ForReason(results.ReasonMissingField).
		WithField("field", "sip").
		Errorf("no SIP for %s under %s", v.id, strings.Join(candidates, ", "))
}

// METSPath is where the assembled AIP METS is staged.
func (v *Volume) METSPath() string {
	return filepath.Join(v.resolver.Global().Staging.Ingest, v.PtObjID()+".mets.xml")
}

// ZipName is the AIP zip's filename.
func (v *Volume) ZipName() string {
	return v.PtObjID() + ".zip"
}

// ZipPath is where the AIP zip is staged.
func (v *Volume) ZipPath() string {
	return filepath.Join(v.resolver.Global().Staging.Zipfile, v.ZipName())
}

// MkStagingDirectory creates the staging directory. With useDisk, the
// directory is created under the disk staging root and symlinked into the
// RAM staging root, for volumes too large to stage in memory.
func (v *Volume) MkStagingDirectory(useDisk bool) error {
	target := v.StagingDirectory()
	if !useDisk {
		return os.MkdirAll(target, 0o755)
	}
	diskRoot := v.resolver.Global().Staging.Disk.Ingest
	if v.pt.UsePreingest {
		diskRoot = v.resolver.Global().Staging.Disk.Preingest
	}
	disk := filepath.Join(diskRoot, v.PtObjID())
	if err := os.MkdirAll(disk, 0o755); err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		return nil
	}
	return os.Symlink(disk, target)
}

// AllDirectoryFiles lists the SIP's current files in the staging
// directory, sorted; cached after the first call.
func (v *Volume) AllDirectoryFiles() ([]string, error) {
	if v.dirFiles != nil {
		return v.dirFiles, nil
	}
	entries, err := os.ReadDir(v.StagingDirectory())
	if err != nil {
		return nil, results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "readdir").WithField("file", v.StagingDirectory()).
			WithError(err).Errorf("could not list staging directory")
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	v.dirFiles = files
	return files, nil
}

// InvalidateDirectoryCache drops the cached listing and filegroup
// partition after a stage adds or removes files.
func (v *Volume) InvalidateDirectoryCache() {
	v.dirFiles = nil
	v.fileGroups = nil
}

// RepositoryObjectDir is the canonical pairtree directory for this object.
func (v *Volume) RepositoryObjectDir() string {
	return pairtree.ObjectDir(v.resolver.Global().Repository.ObjDir, v.id.Namespace, v.id.ObjID)
}

// RepositorySymlink is the symlink-layer path for this object, or the
// canonical directory when no separate link root is configured.
func (v *Volume) RepositorySymlink() string {
	repo := v.resolver.Global().Repository
	if repo.LinkDir == "" || repo.LinkDir == repo.ObjDir {
		return v.RepositoryObjectDir()
	}
	return pairtree.ObjectDir(repo.LinkDir, v.id.Namespace, v.id.ObjID)
}

// RepositoryMETSPath returns the repository copy of the METS when the
// object is already in the repository, else the empty string.
func (v *Volume) RepositoryMETSPath() string {
	if v.reposMETSChecked {
		return v.reposMETSPath
	}
	v.reposMETSChecked = true
	dir := v.RepositorySymlink()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	path := filepath.Join(resolved, v.PtObjID()+".mets.xml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	v.reposMETSPath = path
	return path
}

// RepositoryZipPath returns the repository copy of the AIP zip, or the
// empty string when the object is not in the repository.
func (v *Volume) RepositoryZipPath() string {
	dir := v.RepositorySymlink()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	path := filepath.Join(resolved, v.ZipName())
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Artist resolves the digitization artist for VOLUME_ARTIST event
// executors; empty when unconfigured.
func (v *Volume) Artist() string {
	artist, err := v.ResolveString("artist")
	if err != nil {
		return ""
	}
	return artist
}

// Stages walks the stage map from a starting status, chasing each stage's
// declared success state, and returns the ordered stage identifiers until
// a status with no mapping is reached. The info callback resolves a stage
// identifier to its declared transitions.
func (v *Volume) Stages(start api.Status, info func(stageID string) (api.StageInfo, bool)) ([]string, error) {
	var out []string
	seen := map[api.Status]bool{}
	for status := start; ; {
		if seen[status] {
			return nil, fmt.Errorf("stage map for %s cycles at status %s", v.pt.Identifier, status)
		}
		seen[status] = true
		stageID, ok := v.pt.StageFor(status)
		if !ok {
			return out, nil
		}
		stageInfo, ok := info(stageID)
		if !ok {
			return nil, results.ForReason(results.ReasonUnknownSubclass).Errorf("stage map for %s references unregistered stage %s", v.pt.Identifier, stageID)
		}
		out = append(out, stageID)
		status = stageInfo.SuccessState
	}
}

// CleanAll removes the staging directory, the staged METS and the staged
// zip.
func (v *Volume) CleanAll() error {
	var firstErr error
	for _, path := range []string{v.StagingDirectory(), v.METSPath(), v.ZipPath()} {
		if err := os.RemoveAll(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	v.InvalidateDirectoryCache()
	return firstErr
}

// CleanDownload removes the inbound SIP after a successful ingest.
func (v *Volume) CleanDownload() error {
	return os.RemoveAll(v.SIPPath())
}
