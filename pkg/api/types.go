package api

import (
	"fmt"
	"regexp"
)

// Status is the position of a volume in its package type's ingest state
// machine. Statuses are opaque to the runner; only the package type's stage
// map and the configured release states give them meaning.
type Status string

const (
	StatusReady        Status = "ready"
	StatusUnpacked     Status = "unpacked"
	StatusVerified     Status = "verified"
	StatusSourceMETS   Status = "src_metsed"
	StatusRemediated   Status = "remediated"
	StatusOCRExtracted Status = "ocr_extracted"
	StatusValidated    Status = "validated"
	StatusPacked       Status = "packed"
	StatusMETSed       Status = "metsed"
	StatusHandled      Status = "handled"
	StatusCollated     Status = "collated"
	StatusPunted       Status = "punted"
)

// Identifier names one ingestable item: a namespace for the contributing
// institution and an opaque object identifier within it.
type Identifier struct {
	Namespace string
	ObjID     string
}

func (i Identifier) String() string {
	return fmt.Sprintf("%s.%s", i.Namespace, i.ObjID)
}

// FilegroupSpec describes one logical group of files inside a SIP: which
// filenames belong to it, how the group is labeled in the METS filesec, and
// which validation passes its members are subject to.
type FilegroupSpec struct {
	// Prefix is used to build METS file IDs, e.g. IMG or OCR.
	Prefix string
	// Use is the value of the USE attribute on the METS fileGrp.
	Use string
	// FilePattern selects the members of this group from the SIP listing.
	FilePattern *regexp.Regexp
	// Required marks groups whose absence fails manifest verification.
	Required bool
	// Content marks groups whose members are preserved in the AIP zip.
	Content bool
	// Jhove marks groups whose members get format validation.
	Jhove bool
	// UTF8 marks groups whose members must be well-formed UTF-8.
	UTF8 bool
	// StructMap marks groups that participate in the physical struct map.
	StructMap bool
}

// EventConfiguration describes how one PREMIS event type is rendered into
// the AIP METS. The global catalog supplies defaults; package types and
// namespaces may override individual fields.
type EventConfiguration struct {
	Type            string   `json:"type"`
	Detail          string   `json:"detail"`
	Executor        string   `json:"executor"`
	ExecutorType    string   `json:"executor_type"`
	Tools           []string `json:"tools"`
	EventIDOverride string   `json:"eventid_override"`
}

// Merge returns a copy of e with any non-empty field of o layered on top.
func (e *EventConfiguration) Merge(o *EventConfiguration) *EventConfiguration {
	if e == nil {
		e = &EventConfiguration{}
	}
	out := *e
	if o == nil {
		return &out
	}
	if o.Type != "" {
		out.Type = o.Type
	}
	if o.Detail != "" {
		out.Detail = o.Detail
	}
	if o.Executor != "" {
		out.Executor = o.Executor
	}
	if o.ExecutorType != "" {
		out.ExecutorType = o.ExecutorType
	}
	if len(o.Tools) > 0 {
		out.Tools = append([]string{}, o.Tools...)
	}
	if o.EventIDOverride != "" {
		out.EventIDOverride = o.EventIDOverride
	}
	return &out
}

// PackageType is the immutable descriptor for one content provider's SIP
// format and ingest recipe. Descriptors compose: a descriptor with a Parent
// inherits any field it leaves at its zero value through the accessors
// below rather than by copying.
type PackageType struct {
	Identifier  string
	Description string

	// VolumeModule selects the volume behavior for this package type.
	VolumeModule string

	// ValidFilePattern must match every filename in the SIP.
	ValidFilePattern *regexp.Regexp

	// Filegroups maps logical group names to their specs; FilegroupOrder
	// preserves declaration order for METS filesec assembly.
	Filegroups     map[string]*FilegroupSpec
	FilegroupOrder []string

	// SourceMETSPattern identifies the source METS inside the SIP; exactly
	// one file may match.
	SourceMETSPattern *regexp.Regexp

	// ChecksumFilePattern identifies the checksum manifest, if the package
	// format carries one. When nil, checksums come from the source METS.
	ChecksumFilePattern *regexp.Regexp

	// StageMap drives the state machine: the stage to run at each status.
	StageMap map[Status]string

	// Config holds free-form package-type configuration consulted by the
	// layered resolver.
	Config map[string]interface{}

	// Validation maps validator identifiers to parameter overrides.
	Validation map[string]map[string]interface{}

	// PremisEvents are the event codes generated during this ingest;
	// SourcePremisEvents are migrated from the source METS;
	// SourcePremisEventsExtract are additionally captured for reuse.
	PremisEvents              []string
	SourcePremisEvents        []string
	SourcePremisEventsExtract []string

	// PremisOverrides customizes the global event catalog per event code.
	PremisOverrides map[string]*EventConfiguration

	// SIPFilenamePattern is a printf-style template over the objid.
	SIPFilenamePattern string

	// UncompressedExtensions lists extensions stored rather than deflated
	// in the AIP zip.
	UncompressedExtensions []string

	AllowSequenceGaps bool
	UsePreingest      bool
	DownloadToDisk    bool

	Parent *PackageType
}

// SIPFilename resolves the SIP filename template for an object identifier.
func (p *PackageType) SIPFilename(objid string) string {
	for pt := p; pt != nil; pt = pt.Parent {
		if pt.SIPFilenamePattern != "" {
			return fmt.Sprintf(pt.SIPFilenamePattern, objid)
		}
	}
	return objid
}

// StageFor returns the stage identifier mapped to a status and whether the
// mapping exists. Lookup walks up the descriptor's parent chain.
func (p *PackageType) StageFor(status Status) (string, bool) {
	for pt := p; pt != nil; pt = pt.Parent {
		if pt.StageMap != nil {
			if name, ok := pt.StageMap[status]; ok {
				return name, true
			}
		}
	}
	return "", false
}

// Filegroup resolves a filegroup spec through the parent chain.
func (p *PackageType) Filegroup(name string) *FilegroupSpec {
	for pt := p; pt != nil; pt = pt.Parent {
		if spec, ok := pt.Filegroups[name]; ok {
			return spec
		}
	}
	return nil
}

// OrderedFilegroups returns (name, spec) pairs in declaration order.
func (p *PackageType) OrderedFilegroups() []NamedFilegroup {
	var pt *PackageType
	for pt = p; pt != nil && len(pt.FilegroupOrder) == 0; pt = pt.Parent {
	}
	if pt == nil {
		return nil
	}
	out := make([]NamedFilegroup, 0, len(pt.FilegroupOrder))
	for _, name := range pt.FilegroupOrder {
		out = append(out, NamedFilegroup{Name: name, Spec: p.Filegroup(name)})
	}
	return out
}

// NamedFilegroup pairs a filegroup's logical name with its spec.
type NamedFilegroup struct {
	Name string
	Spec *FilegroupSpec
}

// EventOverride resolves a PREMIS override through the parent chain.
func (p *PackageType) EventOverride(code string) *EventConfiguration {
	for pt := p; pt != nil; pt = pt.Parent {
		if o, ok := pt.PremisOverrides[code]; ok {
			return o
		}
	}
	return nil
}

// PremisEventCodes resolves the generated-event codes through the parent
// chain: a descriptor that declares any wholly replaces its parent's.
func (p *PackageType) PremisEventCodes() []string {
	for pt := p; pt != nil; pt = pt.Parent {
		if len(pt.PremisEvents) > 0 {
			return pt.PremisEvents
		}
	}
	return nil
}

// SourcePremisEventCodes resolves the migrated-event codes through the
// parent chain.
func (p *PackageType) SourcePremisEventCodes() []string {
	for pt := p; pt != nil; pt = pt.Parent {
		if len(pt.SourcePremisEvents) > 0 {
			return pt.SourcePremisEvents
		}
	}
	return nil
}

// SourcePremisExtractCodes resolves the captured-event codes through the
// parent chain.
func (p *PackageType) SourcePremisExtractCodes() []string {
	for pt := p; pt != nil; pt = pt.Parent {
		if len(pt.SourcePremisEventsExtract) > 0 {
			return pt.SourcePremisEventsExtract
		}
	}
	return nil
}

// ValidFileMatcher resolves the valid-file pattern through the parent
// chain; nil when no ancestor declares one.
func (p *PackageType) ValidFileMatcher() *regexp.Regexp {
	for pt := p; pt != nil; pt = pt.Parent {
		if pt.ValidFilePattern != nil {
			return pt.ValidFilePattern
		}
	}
	return nil
}

// SourceMETSMatcher resolves the source METS pattern through the parent
// chain; nil when no ancestor declares one.
func (p *PackageType) SourceMETSMatcher() *regexp.Regexp {
	for pt := p; pt != nil; pt = pt.Parent {
		if pt.SourceMETSPattern != nil {
			return pt.SourceMETSPattern
		}
	}
	return nil
}

// ChecksumFileMatcher resolves the checksum manifest pattern through the
// parent chain; nil when no ancestor declares one.
func (p *PackageType) ChecksumFileMatcher() *regexp.Regexp {
	for pt := p; pt != nil; pt = pt.Parent {
		if pt.ChecksumFilePattern != nil {
			return pt.ChecksumFilePattern
		}
	}
	return nil
}

// StoredExtensions resolves the extensions stored uncompressed in the AIP
// zip through the parent chain.
func (p *PackageType) StoredExtensions() []string {
	for pt := p; pt != nil; pt = pt.Parent {
		if len(pt.UncompressedExtensions) > 0 {
			return pt.UncompressedExtensions
		}
	}
	return nil
}

// Namespace is the immutable descriptor for a contributing institution.
type Namespace struct {
	Identifier  string
	Description string

	// Config holds namespace-wide configuration consulted by the layered
	// resolver.
	Config map[string]interface{}

	// PackagetypeOverrides layers per-package-type configuration on top of
	// Config for that package type only.
	PackagetypeOverrides map[string]map[string]interface{}

	// Validation maps validator identifiers to namespace-level parameter
	// overrides; these take precedence over package-type overrides.
	Validation map[string]map[string]interface{}

	// EventOverrides customizes the global event catalog per event code at
	// the namespace layer, above package-type overrides.
	EventOverrides map[string]*EventConfiguration
}
