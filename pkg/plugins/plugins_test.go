package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/config"
	"github.com/dlps/feed/pkg/database"
	"github.com/dlps/feed/pkg/load"
	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/testhelper"
	"github.com/dlps/feed/pkg/volume"

	_ "github.com/dlps/feed/pkg/steps"
)

// TestStageWalksTerminate drives every registered package type's stage map
// from ready and requires the walk to visit each stage once and end at a
// stage that collates.
func TestStageWalksTerminate(t *testing.T) {
	reg := registry.Default()
	for _, pt := range reg.PackageTypes() {
		ns, err := reg.Namespace("mdp")
		if err != nil {
			t.Fatalf("mdp namespace is not registered: %v", err)
		}
		v, err := volume.New(volume.Params{
			ID:          api.Identifier{Namespace: ns.Identifier, ObjID: "obj1"},
			Namespace:   ns,
			PackageType: pt,
			Resolver:    config.NewResolver(&load.Config{}),
		})
		if err != nil {
			t.Fatalf("could not build volume for %s: %v", pt.Identifier, err)
		}
		stages, err := v.Stages(api.StatusReady, func(id string) (api.StageInfo, bool) {
			record, err := reg.Stage(id)
			if err != nil {
				return api.StageInfo{}, false
			}
			return record.Build(v).Info(), true
		})
		if err != nil {
			t.Errorf("stage walk for %s failed: %v", pt.Identifier, err)
			continue
		}
		if len(stages) == 0 {
			t.Errorf("package type %s has no stages from ready", pt.Identifier)
			continue
		}
		seen := map[string]bool{}
		for _, stage := range stages {
			if seen[stage] {
				t.Errorf("package type %s visits %s twice", pt.Identifier, stage)
			}
			seen[stage] = true
		}
		if last := stages[len(stages)-1]; last != "Collate" {
			t.Errorf("package type %s ends at %s, not Collate", pt.Identifier, last)
		}
	}
}

// TestIngestRecipes pins the full stage sequence of every registered
// package type against a golden fixture.
func TestIngestRecipes(t *testing.T) {
	reg := registry.Default()
	ns, err := reg.Namespace("mdp")
	if err != nil {
		t.Fatalf("mdp namespace is not registered: %v", err)
	}
	recipes := map[string][]string{}
	for _, pt := range reg.PackageTypes() {
		v, err := volume.New(volume.Params{
			ID:          api.Identifier{Namespace: ns.Identifier, ObjID: "obj1"},
			Namespace:   ns,
			PackageType: pt,
			Resolver:    config.NewResolver(&load.Config{}),
		})
		if err != nil {
			t.Fatalf("could not build volume for %s: %v", pt.Identifier, err)
		}
		stages, err := v.Stages(api.StatusReady, func(id string) (api.StageInfo, bool) {
			record, err := reg.Stage(id)
			if err != nil {
				return api.StageInfo{}, false
			}
			return record.Build(v).Info(), true
		})
		if err != nil {
			t.Fatalf("stage walk for %s failed: %v", pt.Identifier, err)
		}
		recipes[pt.Identifier] = stages
	}
	testhelper.CompareWithFixture(t, recipes)
}

// TestDescriptorComposition checks that child descriptors inherit through
// their parent where they are silent and shadow where they are not.
func TestDescriptorComposition(t *testing.T) {
	if name, ok := Yale.StageFor(api.StatusVerified); !ok || name != "SourceMETS" {
		t.Errorf("yale must shadow verified with SourceMETS, got %s", name)
	}
	if name, ok := Yale.StageFor(api.StatusReady); !ok || name != "Unpack" {
		t.Errorf("yale must inherit ready from simple, got %s", name)
	}
	if Google.SIPFilename("123") != "123.zip" {
		t.Errorf("google must inherit the SIP filename pattern, got %s", Google.SIPFilename("123"))
	}
	if spec := EPUB.Filegroup("epub"); spec == nil || !spec.Content {
		t.Error("epub must declare its own epub filegroup")
	}
	if spec := Google.Filegroup("image"); spec == nil || spec.Prefix != "IMG" {
		t.Error("google must inherit the image filegroup from simple")
	}
}

type fakeEventStore struct {
	events map[string]*database.PremisEvent
}

func (s *fakeEventStore) key(namespace, id, code string) string {
	return fmt.Sprintf("%s/%s/%s", namespace, id, code)
}

func (s *fakeEventStore) ReplaceEvent(_ context.Context, event *database.PremisEvent) error {
	s.events[s.key(event.Namespace, event.ID, event.EventtypeID)] = event
	return nil
}

func (s *fakeEventStore) GetEvent(_ context.Context, namespace, id, code string) (*database.PremisEvent, error) {
	return s.events[s.key(namespace, id, code)], nil
}

func (s *fakeEventStore) ClearEvents(_ context.Context, namespace, id string) error {
	for key := range s.events {
		if strings.HasPrefix(key, s.key(namespace, id, "")) {
			delete(s.events, key)
		}
	}
	return nil
}

const yaleSourceMETS = `<?xml version="1.0" encoding="UTF-8"?>
<METS:mets xmlns:METS="http://www.loc.gov/METS/" xmlns:MARC="http://www.loc.gov/MARC21/slim" xmlns:PREMIS="info:lc/xmlns/premis-v2" xmlns:xlink="http://www.w3.org/1999/xlink" OBJID="39002001">
  <METS:dmdSec ID="DMD1">
    <METS:mdWrap MDTYPE="MARC">
      <METS:xmlData>
        <MARC:record><MARC:leader>00000nam</MARC:leader></MARC:record>
      </METS:xmlData>
    </METS:mdWrap>
  </METS:dmdSec>
  <METS:amdSec>
    <METS:digiprovMD ID="PREMIS1">
      <METS:mdWrap MDTYPE="PREMIS">
        <METS:xmlData>
          <PREMIS:event>
            <PREMIS:eventIdentifier>
              <PREMIS:eventIdentifierType>Yale</PREMIS:eventIdentifierType>
              <PREMIS:eventIdentifierValue>cap-0001</PREMIS:eventIdentifierValue>
            </PREMIS:eventIdentifier>
            <PREMIS:eventType>capture</PREMIS:eventType>
            <PREMIS:eventDateTime>2020-05-01T12:00:00</PREMIS:eventDateTime>
          </PREMIS:event>
        </METS:xmlData>
      </METS:mdWrap>
    </METS:digiprovMD>
  </METS:amdSec>
</METS:mets>`

// TestYaleProvenanceAssembly runs the METS assembler over a volume built
// from the registered yale descriptor and requires the generated and
// migrated events to land in the output.
func TestYaleProvenanceAssembly(t *testing.T) {
	ctx := context.Background()
	store := &fakeEventStore{events: map[string]*database.PremisEvent{}}
	global := &load.Config{
		Staging: load.StagingConfig{
			Ingest:  filepath.Join(t.TempDir(), "ingest"),
			Zipfile: filepath.Join(t.TempDir(), "zipfile"),
		},
		Repository: load.RepositoryConfig{ObjDir: filepath.Join(t.TempDir(), "obj")},
		Premis: map[string]*api.EventConfiguration{
			"package_validation": {Type: "validation", Detail: "Package validation", Executor: "DLPS", ExecutorType: "Institution ID"},
			"zip_compression":    {Type: "compression", Detail: "Zip file compression", Executor: "DLPS", ExecutorType: "Institution ID"},
			"zip_md5_create":     {Type: "message digest calculation", Detail: "Zip checksum", Executor: "DLPS", ExecutorType: "Institution ID"},
			"ingestion":          {Type: "ingestion", Detail: "Moved to repository", Executor: "DLPS", ExecutorType: "Institution ID"},
			"capture":            {Type: "capture", Detail: "Image capture", Executor: "Yale", ExecutorType: "Institution ID"},
		},
	}
	v, err := volume.New(volume.Params{
		ID:          api.Identifier{Namespace: "yale", ObjID: "39002001"},
		Namespace:   YaleNS,
		PackageType: Yale,
		Resolver:    config.NewResolver(global),
		Events:      store,
	})
	if err != nil {
		t.Fatalf("could not build volume: %v", err)
	}
	if err := os.MkdirAll(v.StagingDirectory(), 0o755); err != nil {
		t.Fatalf("could not create staging directory: %v", err)
	}
	for _, file := range []string{"39002001_000001.jp2", "39002001_000001.txt", "39002001_000001.xml"} {
		if err := os.WriteFile(filepath.Join(v.StagingDirectory(), file), []byte("data"), 0o644); err != nil {
			t.Fatalf("could not stage %s: %v", file, err)
		}
	}
	if err := os.WriteFile(filepath.Join(v.StagingDirectory(), "Yale_39002001.xml"), []byte(yaleSourceMETS), 0o644); err != nil {
		t.Fatalf("could not stage source METS: %v", err)
	}
	for _, code := range []string{"package_validation", "zip_compression", "zip_md5_create"} {
		if err := v.RecordPremisEventAt(ctx, code, "2026-01-02T03:04:05", ""); err != nil {
			t.Fatalf("could not record %s: %v", code, err)
		}
	}

	if err := (&mets.Assembler{Volume: v}).Assemble(ctx); err != nil {
		t.Fatalf("could not assemble METS: %v", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(v.METSPath()); err != nil {
		t.Fatalf("could not parse assembled METS: %v", err)
	}
	present := map[string]bool{}
	for _, event := range mets.Events(doc) {
		present[mets.EventType(event)] = true
	}
	for _, etype := range []string{"validation", "compression", "message digest calculation", "ingestion", "capture"} {
		if !present[etype] {
			t.Errorf("assembled METS is missing the %s event, have %v", etype, present)
		}
	}
	for _, event := range mets.Events(doc) {
		if mets.EventType(event) != "capture" {
			continue
		}
		if id := mets.EventIdentifierValue(event); id != "capture1" {
			t.Errorf("migrated capture event must carry the deterministic identifier, got %s", id)
		}
	}
}

// TestYaleCoordinateOCRGroup checks that the coordinate OCR pattern admits
// per-page files for any objid shape and never the source METS.
func TestYaleCoordinateOCRGroup(t *testing.T) {
	pattern := Yale.Filegroup("hocr").FilePattern
	for _, file := range []string{"39002001_000001.xml", "b1234567x_000001.xml"} {
		if !pattern.MatchString(file) {
			t.Errorf("coordinate OCR pattern must match %s", file)
		}
	}
	if pattern.MatchString("Yale_b1234567x.xml") {
		t.Error("coordinate OCR pattern must not match the source METS")
	}
}

// TestEPUBInheritsSourceMETSPattern guards the epub descriptor's reliance
// on simple's source METS pattern.
func TestEPUBInheritsSourceMETSPattern(t *testing.T) {
	m := EPUB.SourceMETSMatcher()
	if m == nil {
		t.Fatal("epub must resolve a source METS pattern through simple")
	}
	if !m.MatchString("obj1.mets.xml") {
		t.Errorf("inherited pattern must match obj1.mets.xml, got %s", m)
	}
	if codes := EPUB.PremisEventCodes(); len(codes) == 0 {
		t.Error("epub must inherit simple's generated event codes")
	}
}

// TestValidationOverrideWindow exercises the namespace-over-packagetype
// validation merge.
func TestValidationOverrideWindow(t *testing.T) {
	resolver := config.NewResolver(&load.Config{})
	overrides := resolver.ValidationOverrides(YaleNS, Yale, "JPEG2000")
	if overrides["decomposition_levels_max"] != 8 {
		t.Errorf("namespace bound not applied: %v", overrides)
	}
}
