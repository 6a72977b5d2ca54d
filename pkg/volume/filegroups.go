package volume

import (
	"regexp"
	"strconv"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/results"
)

// Filegroup is one logical group materialized from the directory listing.
type Filegroup struct {
	Name  string
	Spec  *api.FilegroupSpec
	Files []string
}

var sequenceSuffix = regexp.MustCompile(`(\d+)\.\w+$`)

// fileGroupMap partitions the directory files by the package type's
// filegroup patterns at first call; cached.
func (v *Volume) fileGroupMap() (map[string]*Filegroup, error) {
	if v.fileGroups != nil {
		return v.fileGroups, nil
	}
	all, err := v.AllDirectoryFiles()
	if err != nil {
		return nil, err
	}
	// the source METS and checksum manifest are never content, even when a
	// filegroup pattern happens to match them
	sourceMETS := v.pt.SourceMETSMatcher()
	checksum := v.pt.ChecksumFileMatcher()
	files := make([]string, 0, len(all))
	for _, file := range all {
		if sourceMETS != nil && sourceMETS.MatchString(file) {
			continue
		}
		if checksum != nil && checksum.MatchString(file) {
			continue
		}
		files = append(files, file)
	}
	groups := map[string]*Filegroup{}
	for _, named := range v.pt.OrderedFilegroups() {
		group := &Filegroup{Name: named.Name, Spec: named.Spec}
		for _, file := range files {
			if named.Spec.FilePattern != nil && named.Spec.FilePattern.MatchString(file) {
				group.Files = append(group.Files, file)
			}
		}
		groups[named.Name] = group
	}
	v.fileGroups = groups
	return groups, nil
}

// FileGroups returns the filegroups in declaration order for filesec
// assembly.
func (v *Volume) FileGroups() ([]mets.FileGroup, error) {
	groups, err := v.fileGroupMap()
	if err != nil {
		return nil, err
	}
	var out []mets.FileGroup
	for _, named := range v.pt.OrderedFilegroups() {
		group := groups[named.Name]
		out = append(out, mets.FileGroup{
			Name:   group.Name,
			Use:    group.Spec.Use,
			Prefix: group.Spec.Prefix,
			Files:  group.Files,
		})
	}
	return out, nil
}

// Filegroup returns one materialized group by logical name, or nil.
func (v *Volume) Filegroup(name string) (*Filegroup, error) {
	groups, err := v.fileGroupMap()
	if err != nil {
		return nil, err
	}
	return groups[name], nil
}

func (v *Volume) filesWhere(include func(*api.FilegroupSpec) bool) ([]string, error) {
	groups, err := v.fileGroupMap()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, named := range v.pt.OrderedFilegroups() {
		group := groups[named.Name]
		if include(group.Spec) {
			out = append(out, group.Files...)
		}
	}
	return out, nil
}

// AllContentFiles lists the files preserved in the AIP zip.
func (v *Volume) AllContentFiles() ([]string, error) {
	return v.filesWhere(func(s *api.FilegroupSpec) bool { return s.Content })
}

// JhoveFiles lists the files subject to format validation.
func (v *Volume) JhoveFiles() ([]string, error) {
	return v.filesWhere(func(s *api.FilegroupSpec) bool { return s.Jhove })
}

// UTF8Files lists the files that must be well-formed UTF-8.
func (v *Volume) UTF8Files() ([]string, error) {
	return v.filesWhere(func(s *api.FilegroupSpec) bool { return s.UTF8 })
}

// FileCount is the number of content files.
func (v *Volume) FileCount() (int, error) {
	files, err := v.AllContentFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// PageCount is the size of the image filegroup; a package with no image
// group has no page count.
func (v *Volume) PageCount() (int, error) {
	groups, err := v.fileGroupMap()
	if err != nil {
		return 0, err
	}
	image, ok := groups["image"]
	if !ok {
		return 0, results.ForReason(results.ReasonMissingImageGroup).
			Errorf("package type %s has no image filegroup", v.pt.Identifier)
	}
	return len(image.Files), nil
}

// FilesByPage groups each filegroup's files by trailing numeric sequence
// number. A file without a numeric sequence before its extension fails
// with a bad sequence_number field.
func (v *Volume) FilesByPage() (map[int]map[string][]string, error) {
	groups, err := v.fileGroupMap()
	if err != nil {
		return nil, err
	}
	out := map[int]map[string][]string{}
	for _, named := range v.pt.OrderedFilegroups() {
		if !named.Spec.StructMap {
			continue
		}
		for _, file := range groups[named.Name].Files {
			m := sequenceSuffix.FindStringSubmatch(file)
			if m == nil {
				return nil, results.ForReason(results.ReasonBadField).
					WithField("field", "sequence_number").WithField("file", file).
					Errorf("file has no trailing sequence number")
			}
			seq, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, results.ForReason(results.ReasonBadField).
					WithField("field", "sequence_number").WithField("file", file).
					WithError(err).Errorf("file has an unparseable sequence number")
			}
			if out[seq] == nil {
				out[seq] = map[string][]string{}
			}
			out[seq][named.Name] = append(out[seq][named.Name], file)
		}
	}
	return out, nil
}
