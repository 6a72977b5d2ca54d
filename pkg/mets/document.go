// Package mets builds and dissects METS documents: the document skeleton,
// the PREMIS provenance section, and the assembler that merges historical,
// source and freshly generated events into the canonical AIP METS.
package mets

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// Document is an AIP METS under construction. Sections must be added in
// document order: header, dmdSecs, amdSec (PREMIS), fileSec, structMap.
type Document struct {
	doc  *etree.Document
	root *etree.Element

	dmdCount  int
	premis    *etree.Element
	fileSec   *etree.Element
	fileCount map[string]int
}

// NewDocument opens a METS document for an object and declares the PREMIS
// and MARC schemas.
func NewDocument(objid string) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("METS:mets")
	root.CreateAttr("xmlns:METS", MetsNS)
	root.CreateAttr("xmlns:PREMIS", PremisNS)
	root.CreateAttr("xmlns:MARC", MarcNS)
	root.CreateAttr("xmlns:xlink", XlinkNS)
	root.CreateAttr("xmlns:xsi", XsiNS)
	root.CreateAttr("xsi:schemaLocation", premisSchema+" "+marcSchema)
	root.CreateAttr("OBJID", objid)
	return &Document{doc: doc, root: root, fileCount: map[string]int{}}
}

// SetHeader adds the metsHdr with the creating agent.
func (d *Document) SetHeader(createdate, recordStatus, agentName string) {
	hdr := d.root.CreateElement("METS:metsHdr")
	hdr.CreateAttr("CREATEDATE", createdate)
	hdr.CreateAttr("RECORDSTATUS", recordStatus)
	agent := hdr.CreateElement("METS:agent")
	agent.CreateAttr("ROLE", "CREATOR")
	agent.CreateAttr("TYPE", "ORGANIZATION")
	agent.CreateElement("METS:name").SetText(agentName)
}

// AddMARCRef adds a dmdSec referencing the item-scoped bibliographic
// record rather than embedding it.
func (d *Document) AddMARCRef(href string) {
	d.dmdCount++
	dmd := d.root.CreateElement("METS:dmdSec")
	dmd.CreateAttr("ID", fmt.Sprintf("DMD%d", d.dmdCount))
	ref := dmd.CreateElement("METS:mdRef")
	ref.CreateAttr("LOCTYPE", "OTHER")
	ref.CreateAttr("OTHERLOCTYPE", "Item ID stored as second call number in item record")
	ref.CreateAttr("MDTYPE", "MARC")
	ref.CreateAttr("xlink:href", href)
}

// AddMARCXML embeds a MARCXML record in a dmdSec. The record element is
// deep-copied into the document.
func (d *Document) AddMARCXML(record *etree.Element) {
	d.dmdCount++
	dmd := d.root.CreateElement("METS:dmdSec")
	dmd.CreateAttr("ID", fmt.Sprintf("DMD%d", d.dmdCount))
	wrap := dmd.CreateElement("METS:mdWrap")
	wrap.CreateAttr("MDTYPE", "MARC")
	wrap.CreateAttr("LABEL", "MARC record")
	data := wrap.CreateElement("METS:xmlData")
	data.AddChild(record.Copy())
}

// PremisParent returns (creating on first use) the amdSec xmlData element
// that PREMIS events and objects are appended beneath.
func (d *Document) PremisParent() *etree.Element {
	if d.premis == nil {
		amd := d.root.CreateElement("METS:amdSec")
		amd.CreateAttr("ID", "AMD1")
		digiprov := amd.CreateElement("METS:digiprovMD")
		digiprov.CreateAttr("ID", "premis1")
		wrap := digiprov.CreateElement("METS:mdWrap")
		wrap.CreateAttr("MDTYPE", "PREMIS")
		d.premis = wrap.CreateElement("METS:xmlData")
	}
	return d.premis
}

func (d *Document) fileSecElement() *etree.Element {
	if d.fileSec == nil {
		d.fileSec = d.root.CreateElement("METS:fileSec")
	}
	return d.fileSec
}

// AddZipFilegroup adds the single-member filegroup holding the AIP zip.
func (d *Document) AddZipFilegroup(zipName string) {
	d.AddFilegroup("zip", "zip archive", "ZIP", []string{zipName})
}

// AddFilegroup adds one fileGrp with sequential prefix-derived file IDs and
// returns the filename to file ID mapping for struct map assembly.
func (d *Document) AddFilegroup(name, use, prefix string, files []string) map[string]string {
	grp := d.fileSecElement().CreateElement("METS:fileGrp")
	grp.CreateAttr("ID", "FG"+name)
	grp.CreateAttr("USE", use)
	ids := make(map[string]string, len(files))
	for _, filename := range files {
		d.fileCount[prefix]++
		id := fmt.Sprintf("%s%08d", prefix, d.fileCount[prefix])
		file := grp.CreateElement("METS:file")
		file.CreateAttr("ID", id)
		locat := file.CreateElement("METS:FLocat")
		locat.CreateAttr("LOCTYPE", "OTHER")
		locat.CreateAttr("OTHERLOCTYPE", "SYSTEM")
		locat.CreateAttr("xlink:href", filename)
		ids[filename] = id
	}
	return ids
}

// PageDiv is one page entry in the physical struct map.
type PageDiv struct {
	Order      int
	OrderLabel string
	Label      string
	FileIDs    []string
}

// AddStructMap adds the physical struct map: one volume div containing the
// page divs in ascending order.
func (d *Document) AddStructMap(pages []PageDiv) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].Order < pages[j].Order })
	sm := d.root.CreateElement("METS:structMap")
	sm.CreateAttr("ID", "SM1")
	sm.CreateAttr("TYPE", "physical")
	volume := sm.CreateElement("METS:div")
	volume.CreateAttr("TYPE", "volume")
	for _, page := range pages {
		div := volume.CreateElement("METS:div")
		div.CreateAttr("TYPE", "page")
		div.CreateAttr("ORDER", fmt.Sprintf("%d", page.Order))
		if page.OrderLabel != "" {
			div.CreateAttr("ORDERLABEL", page.OrderLabel)
		}
		if page.Label != "" {
			div.CreateAttr("LABEL", page.Label)
		}
		for _, id := range page.FileIDs {
			fptr := div.CreateElement("METS:fptr")
			fptr.CreateAttr("FILEID", id)
		}
	}
}

// WriteToFile serializes the document, indented, to path.
func (d *Document) WriteToFile(path string) error {
	d.doc.Indent(2)
	if err := d.doc.WriteToFile(path); err != nil {
		return errors.Wrapf(err, "could not write METS to %s", path)
	}
	return nil
}

// Root exposes the document root for tests and callers that post-process.
func (d *Document) Root() *etree.Element {
	return d.root
}
