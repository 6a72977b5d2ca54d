package api

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentifierString(t *testing.T) {
	id := Identifier{Namespace: "mdp", ObjID: "39015012345678"}
	if actual, expected := id.String(), "mdp.39015012345678"; actual != expected {
		t.Errorf("expected %s, got %s", expected, actual)
	}
}

func TestEventConfigurationMerge(t *testing.T) {
	base := &EventConfiguration{
		Type:         "validation",
		Detail:       "Package validation",
		Executor:     "DLPS",
		ExecutorType: "Institution ID",
	}
	merged := base.Merge(&EventConfiguration{Executor: "UM", Tools: []string{"JHOVE"}})
	expected := &EventConfiguration{
		Type:         "validation",
		Detail:       "Package validation",
		Executor:     "UM",
		ExecutorType: "Institution ID",
		Tools:        []string{"JHOVE"},
	}
	if diff := cmp.Diff(expected, merged); diff != "" {
		t.Errorf("unexpected merge result: %s", diff)
	}
	if base.Executor != "DLPS" {
		t.Error("merge must not mutate the receiver")
	}
	if diff := cmp.Diff(base, base.Merge(nil)); diff != "" {
		t.Errorf("nil override must be a no-op: %s", diff)
	}
	var absent *EventConfiguration
	if merged := absent.Merge(&EventConfiguration{Type: "capture"}); merged.Type != "capture" {
		t.Errorf("nil receiver must act as an empty base, got %+v", merged)
	}
}

func TestPackageTypeComposition(t *testing.T) {
	parent := &PackageType{
		Identifier: "parent",
		Filegroups: map[string]*FilegroupSpec{
			"image": {Prefix: "IMG", Use: "image", FilePattern: regexp.MustCompile(`\.jp2$`)},
			"ocr":   {Prefix: "OCR", Use: "ocr", FilePattern: regexp.MustCompile(`\.txt$`)},
		},
		FilegroupOrder: []string{"image", "ocr"},
		StageMap: map[Status]string{
			StatusReady:    "Unpack",
			StatusUnpacked: "VerifyManifest",
		},
		PremisOverrides: map[string]*EventConfiguration{
			"ingestion": {Executor: "DLPS"},
		},
		SIPFilenamePattern: "%s.zip",
	}
	child := &PackageType{
		Identifier: "child",
		Filegroups: map[string]*FilegroupSpec{
			"image": {Prefix: "TIF", Use: "image", FilePattern: regexp.MustCompile(`\.tif$`)},
		},
		StageMap: map[Status]string{
			StatusUnpacked: "SourceMETS",
		},
		Parent: parent,
	}

	if name, ok := child.StageFor(StatusReady); !ok || name != "Unpack" {
		t.Errorf("child must inherit the ready mapping, got %s", name)
	}
	if name, ok := child.StageFor(StatusUnpacked); !ok || name != "SourceMETS" {
		t.Errorf("child must shadow the unpacked mapping, got %s", name)
	}
	if _, ok := child.StageFor(StatusMETSed); ok {
		t.Error("an unmapped status must report no stage")
	}
	if actual := child.SIPFilename("obj1"); actual != "obj1.zip" {
		t.Errorf("child must inherit the SIP filename pattern, got %s", actual)
	}
	if o := child.EventOverride("ingestion"); o == nil || o.Executor != "DLPS" {
		t.Errorf("child must inherit the event override, got %+v", o)
	}

	groups := child.OrderedFilegroups()
	if len(groups) != 2 || groups[0].Name != "image" || groups[1].Name != "ocr" {
		t.Fatalf("unexpected filegroup order: %+v", groups)
	}
	if groups[0].Spec.Prefix != "TIF" {
		t.Errorf("ordered filegroups must see the child's image spec, got %s", groups[0].Spec.Prefix)
	}
	if groups[1].Spec.Prefix != "OCR" {
		t.Errorf("ordered filegroups must fall back to the parent's ocr spec, got %s", groups[1].Spec.Prefix)
	}
}

func TestPackageTypeEventCodeInheritance(t *testing.T) {
	parent := &PackageType{
		Identifier:             "parent",
		PremisEvents:           []string{"package_validation", "ingestion"},
		UncompressedExtensions: []string{"jp2"},
	}
	child := &PackageType{
		Identifier:         "child",
		SourcePremisEvents: []string{"capture"},
		Parent:             parent,
	}
	grandchild := &PackageType{
		Identifier:   "grandchild",
		PremisEvents: []string{"ingestion"},
		Parent:       child,
	}

	if diff := cmp.Diff([]string{"package_validation", "ingestion"}, child.PremisEventCodes()); diff != "" {
		t.Errorf("child must inherit the parent's generated events: %s", diff)
	}
	if diff := cmp.Diff([]string{"ingestion"}, grandchild.PremisEventCodes()); diff != "" {
		t.Errorf("grandchild must shadow the generated events: %s", diff)
	}
	if diff := cmp.Diff([]string{"capture"}, grandchild.SourcePremisEventCodes()); diff != "" {
		t.Errorf("grandchild must inherit the migrated events through child: %s", diff)
	}
	if codes := parent.SourcePremisEventCodes(); codes != nil {
		t.Errorf("parent declares no migrated events, got %v", codes)
	}
	if codes := parent.SourcePremisExtractCodes(); codes != nil {
		t.Errorf("parent declares no captured events, got %v", codes)
	}
	if diff := cmp.Diff([]string{"jp2"}, grandchild.StoredExtensions()); diff != "" {
		t.Errorf("grandchild must inherit the stored extensions: %s", diff)
	}
}

func TestPackageTypeMatcherInheritance(t *testing.T) {
	parent := &PackageType{
		Identifier:        "parent",
		ValidFilePattern:  regexp.MustCompile(`\.(jp2|txt)$`),
		SourceMETSPattern: regexp.MustCompile(`^\w+\.mets\.xml$`),
	}
	child := &PackageType{
		Identifier:        "child",
		SourceMETSPattern: regexp.MustCompile(`^SRC_\w+\.xml$`),
		Parent:            parent,
	}

	if m := child.ValidFileMatcher(); m == nil || !m.MatchString("p1.jp2") {
		t.Error("child must inherit the valid file pattern")
	}
	if m := child.SourceMETSMatcher(); m == nil || !m.MatchString("SRC_obj1.xml") || m.MatchString("obj1.mets.xml") {
		t.Error("child must shadow the source METS pattern")
	}
	if m := parent.ChecksumFileMatcher(); m != nil {
		t.Errorf("no ancestor declares a checksum pattern, got %v", m)
	}
	if m := (&PackageType{Parent: parent}).SourceMETSMatcher(); m == nil || !m.MatchString("obj1.mets.xml") {
		t.Error("a silent child must inherit the parent's source METS pattern")
	}
}
