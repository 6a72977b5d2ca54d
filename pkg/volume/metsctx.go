package volume

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/results"
)

// SourceMETSFile locates the source METS inside the SIP. Exactly one file
// may match the package type's pattern.
func (v *Volume) SourceMETSFile() (string, error) {
	pattern := v.pt.SourceMETSMatcher()
	if pattern == nil {
		return "", results.ForReason(results.ReasonMissingField).
			WithField("field", "source_mets_file").
			Errorf("package type %s declares no source METS pattern", v.pt.Identifier)
	}
	files, err := v.AllDirectoryFiles()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, file := range files {
		if pattern.MatchString(file) {
			matches = append(matches, file)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", results.ForReason(results.ReasonMissingField).
			WithField("field", "source_mets_file").
			Errorf("no file matches the source METS pattern for %s", v.id)
	default:
		return "", results.ForReason(results.ReasonBadField).
			WithField("field", "source_mets_file").
			Errorf("%d files match the source METS pattern for %s", len(matches), v.id)
	}
}

// SourceMETS parses the source METS on first use; cached.
func (v *Volume) SourceMETS() (*etree.Document, error) {
	if v.sourceMETS != nil {
		return v.sourceMETS, nil
	}
	file, err := v.SourceMETSFile()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(v.StagingDirectory(), file)
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, results.ForReason(results.ReasonBadField).
			WithField("field", "source_mets").WithField("file", file).
			WithError(err).Errorf("could not parse source METS")
	}
	v.sourceMETS = doc
	return doc, nil
}

// RepositoryMETS parses the repository copy of the METS on first use, or
// returns nil when the object is not yet in the repository.
func (v *Volume) RepositoryMETS() (*etree.Document, error) {
	if v.reposMETS != nil {
		return v.reposMETS, nil
	}
	path := v.RepositoryMETSPath()
	if path == "" {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, results.ForReason(results.ReasonInvalidRepositoryPREMIS).
			WithField("file", path).WithError(err).Errorf("could not parse repository METS")
	}
	v.reposMETS = doc
	return doc, nil
}

// MARCXML locates the MARC record embedded in the source METS: the first
// element child of a MARC mdWrap's xmlData, skipping whitespace and other
// non-element nodes.
func (v *Volume) MARCXML() (*etree.Element, error) {
	doc, err := v.SourceMETS()
	if err != nil {
		return nil, err
	}
	for _, dmd := range mets.Descendants(doc.Root(), "dmdSec") {
		for _, wrap := range mets.Descendants(dmd, "mdWrap") {
			if mets.Attr(wrap, "MDTYPE") != "MARC" {
				continue
			}
			data := mets.Child(wrap, "xmlData")
			if data == nil {
				continue
			}
			if record := mets.FirstElementChild(data); record != nil {
				return record, nil
			}
		}
	}
	return nil, results.ForReason(results.ReasonMissingMARC).
		Errorf("source METS for %s carries no MARC dmdSec", v.id)
}

// Checksums reads the SIP's checksum table: from the checksum manifest
// when the package format carries one, else from the source METS file
// section. Cached.
func (v *Volume) Checksums() (map[string]string, error) {
	if v.checksums != nil {
		return v.checksums, nil
	}
	if v.pt.ChecksumFileMatcher() != nil {
		if file, ok, err := v.checksumFile(); err != nil {
			return nil, err
		} else if ok {
			sums, err := v.parseChecksumFile(file)
			if err != nil {
				return nil, err
			}
			v.checksums = sums
			return sums, nil
		}
	}
	sums, err := v.checksumsFromMETS()
	if err != nil {
		return nil, err
	}
	v.checksums = sums
	return sums, nil
}

func (v *Volume) checksumFile() (string, bool, error) {
	files, err := v.AllDirectoryFiles()
	if err != nil {
		return "", false, err
	}
	pattern := v.pt.ChecksumFileMatcher()
	for _, file := range files {
		if pattern.MatchString(file) {
			return file, true, nil
		}
	}
	return "", false, nil
}

// parseChecksumFile reads md5sum format: one "checksum filename" pair per
// line.
func (v *Volume) parseChecksumFile(file string) (map[string]string, error) {
	path := filepath.Join(v.StagingDirectory(), file)
	f, err := os.Open(path)
	if err != nil {
		return nil, results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "open").WithField("file", file).
			WithError(err).Errorf("could not open checksum file")
	}
	defer f.Close()
	sums := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		// md5sum marks binary-mode entries with a leading asterisk
		name := strings.TrimPrefix(fields[1], "*")
		sums[filepath.Base(name)] = strings.ToLower(fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, results.ForReason(results.ReasonOperationFailed).
			WithField("operation", "read").WithField("file", file).
			WithError(err).Errorf("could not read checksum file")
	}
	return sums, nil
}

func (v *Volume) checksumsFromMETS() (map[string]string, error) {
	doc, err := v.SourceMETS()
	if err != nil {
		return nil, err
	}
	sums := map[string]string{}
	for _, file := range mets.Descendants(doc.Root(), "file") {
		checksum := mets.Attr(file, "CHECKSUM")
		if checksum == "" {
			continue
		}
		locat := mets.Child(file, "FLocat")
		if locat == nil {
			continue
		}
		if href := mets.Attr(locat, "href"); href != "" {
			sums[filepath.Base(href)] = strings.ToLower(checksum)
		}
	}
	return sums, nil
}

// PageData returns the order label and label recorded for a file in the
// source METS physical struct map, when present.
func (v *Volume) PageData(file string) (string, string) {
	if v.pageData == nil {
		v.pageData = v.loadPageData()
	}
	info := v.pageData[file]
	return info.orderLabel, info.label
}

// loadPageData correlates fptr FILEIDs in the source struct map with
// FLocat hrefs in the source file section. Absence of either is not an
// error; pages simply carry no labels.
func (v *Volume) loadPageData() map[string]pageInfo {
	out := map[string]pageInfo{}
	doc, err := v.SourceMETS()
	if err != nil || doc.Root() == nil {
		return out
	}
	hrefByID := map[string]string{}
	for _, file := range mets.Descendants(doc.Root(), "file") {
		id := mets.Attr(file, "ID")
		locat := mets.Child(file, "FLocat")
		if id == "" || locat == nil {
			continue
		}
		if href := mets.Attr(locat, "href"); href != "" {
			hrefByID[id] = filepath.Base(href)
		}
	}
	for _, div := range mets.Descendants(doc.Root(), "div") {
		orderLabel := mets.Attr(div, "ORDERLABEL")
		label := mets.Attr(div, "LABEL")
		if orderLabel == "" && label == "" {
			continue
		}
		for _, fptr := range mets.Descendants(div, "fptr") {
			if href, ok := hrefByID[mets.Attr(fptr, "FILEID")]; ok {
				out[href] = pageInfo{orderLabel: orderLabel, label: label}
			}
		}
	}
	return out
}
