// Package plugins defines the namespace and package type descriptors
// loaded into this deployment. Each descriptor registers itself at init
// time; importing this package for side effects is what "loads the
// plugins". Descriptors compose through Parent references instead of
// inheritance: a child's stage map only carries the entries it changes.
package plugins

import (
	"regexp"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
)

// Simple is the generic single-volume package type the provider-specific
// descriptors compose over: page images plus plain-text OCR, checksums
// from the source METS, and the default ingest recipe.
var Simple = &api.PackageType{
	Identifier:   "simple",
	Description:  "generic paged volume with plain-text OCR",
	VolumeModule: "volume",

	ValidFilePattern: regexp.MustCompile(`\.(jp2|tif|txt)$`),
	Filegroups: map[string]*api.FilegroupSpec{
		"image": {Prefix: "IMG", Use: "image", FilePattern: regexp.MustCompile(`\.(jp2|tif)$`), Required: true, Content: true, Jhove: true, StructMap: true},
		"ocr":   {Prefix: "OCR", Use: "ocr", FilePattern: regexp.MustCompile(`\.txt$`), Required: true, Content: true, UTF8: true, StructMap: true},
	},
	FilegroupOrder:    []string{"image", "ocr"},
	SourceMETSPattern: regexp.MustCompile(`^\w+\.mets\.xml$`),

	StageMap: map[api.Status]string{
		api.StatusReady:     "Unpack",
		api.StatusUnpacked:  "VerifyManifest",
		api.StatusVerified:  "VolumeValidator",
		api.StatusValidated: "Pack",
		api.StatusPacked:    "METS",
		api.StatusMETSed:    "Handle",
		api.StatusHandled:   "Collate",
	},

	PremisEvents:           []string{"package_validation", "zip_compression", "zip_md5_create", "ingestion"},
	SIPFilenamePattern:     "%s.zip",
	UncompressedExtensions: []string{"jp2", "tif"},
}

// Google packages arrive with GROOVE source METS, need image remediation
// and OCR extraction, and carry their own capture provenance.
var Google = &api.PackageType{
	Identifier:   "google",
	Description:  "Google-digitized volume",
	VolumeModule: "volume",

	ValidFilePattern:    regexp.MustCompile(`\.(jp2|tif|txt|html|xml)$`),
	SourceMETSPattern:   regexp.MustCompile(`^UCM\w*\.xml$`),
	ChecksumFilePattern: regexp.MustCompile(`^checksum\.md5$`),

	StageMap: map[api.Status]string{
		api.StatusVerified:     "ImageRemediate",
		api.StatusRemediated:   "ExtractOCR",
		api.StatusOCRExtracted: "VolumeValidator",
	},

	SourcePremisEvents:        []string{"capture"},
	SourcePremisEventsExtract: []string{"capture"},
	UsePreingest:              true,

	Parent: Simple,
}

// IA packages are large enough to stage on disk and ship OCR in a native
// format that needs extraction.
var IA = &api.PackageType{
	Identifier:   "ia",
	Description:  "Internet Archive-digitized volume",
	VolumeModule: "volume",

	ValidFilePattern:    regexp.MustCompile(`\.(jp2|txt|djvu|xml)$`),
	SourceMETSPattern:   regexp.MustCompile(`^IA_\w+\.xml$`),
	ChecksumFilePattern: regexp.MustCompile(`_files\.md5$`),

	StageMap: map[api.Status]string{
		api.StatusVerified:     "ExtractOCR",
		api.StatusOCRExtracted: "VolumeValidator",
	},

	DownloadToDisk: true,

	Parent: Simple,
}

// Yale packages carry coordinate OCR and a Yale-produced source METS that
// is validated and whose provenance is migrated into the AIP.
var Yale = &api.PackageType{
	Identifier:   "yale",
	Description:  "Yale-digitized volume",
	VolumeModule: "volume",

	ValidFilePattern: regexp.MustCompile(`\.(jp2|txt|xml)$`),
	Filegroups: map[string]*api.FilegroupSpec{
		"image": {Prefix: "IMG", Use: "image", FilePattern: regexp.MustCompile(`\.jp2$`), Required: true, Content: true, Jhove: true, StructMap: true},
		"ocr":   {Prefix: "OCR", Use: "ocr", FilePattern: regexp.MustCompile(`\.txt$`), Required: true, Content: true, UTF8: true, StructMap: true},
		"hocr":  {Prefix: "XML", Use: "coordOCR", FilePattern: regexp.MustCompile(`_\d+\.xml$`), Required: true, Content: true, UTF8: true, StructMap: true},
	},
	FilegroupOrder:    []string{"image", "ocr", "hocr"},
	SourceMETSPattern: regexp.MustCompile(`^Yale_\w+\.xml$`),

	StageMap: map[api.Status]string{
		api.StatusVerified:   "SourceMETS",
		api.StatusSourceMETS: "VolumeValidator",
	},

	SourcePremisEvents: []string{"capture"},

	Parent: Simple,
}

// EPUB packages preserve the EPUB container itself; the optional page
// images only feed the struct map.
var EPUB = &api.PackageType{
	Identifier:   "epub",
	Description:  "publisher-submitted EPUB",
	VolumeModule: "volume",

	ValidFilePattern: regexp.MustCompile(`\.(epub|jp2|txt)$`),
	Filegroups: map[string]*api.FilegroupSpec{
		"epub":  {Prefix: "EPUB", Use: "epub", FilePattern: regexp.MustCompile(`\.epub$`), Required: true, Content: true},
		"image": {Prefix: "IMG", Use: "image", FilePattern: regexp.MustCompile(`\.jp2$`), Content: true, Jhove: true, StructMap: true},
		"ocr":   {Prefix: "OCR", Use: "ocr", FilePattern: regexp.MustCompile(`\.txt$`), Content: true, UTF8: true, StructMap: true},
	},
	FilegroupOrder: []string{"epub", "image", "ocr"},

	AllowSequenceGaps:      true,
	UncompressedExtensions: []string{"epub", "jp2"},

	Parent: Simple,
}

func init() {
	for _, pt := range []*api.PackageType{Simple, Google, IA, Yale, EPUB} {
		registry.RegisterPackageType(pt)
	}
}
