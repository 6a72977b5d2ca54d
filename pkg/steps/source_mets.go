package steps

import (
	"context"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/bib"
	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

func init() {
	registry.RegisterStage(&registry.StageRecord{
		Identifier:  "SourceMETS",
		Description: sourceMETSDescription,
		Build:       func(v *volume.Volume) api.Stage { return NewSourceMETS(v) },
	})
}

const sourceMETSDescription = "locates and validates the source METS inside the SIP"

// SourceMETS checks that exactly one source METS exists, parses, carries a
// MARC record, and is schema-valid when a validator is configured. When the
// source METS lacks MARC and a record service is configured, the record is
// fetched and grafted into the staged document.
type SourceMETS struct {
	stage
	// Validator overrides the configured XML validator; tests inject one.
	Validator mets.Validator
	// Fetcher overrides the configured record service; tests inject one.
	Fetcher bib.RecordFetcher
}

func NewSourceMETS(v *volume.Volume) *SourceMETS {
	return &SourceMETS{stage: newStage(v, "SourceMETS", sourceMETSDescription, api.StageInfo{
		SuccessState: api.StatusSourceMETS,
		FailureState: api.StatusPunted,
	})}
}

func (s *SourceMETS) Run(ctx context.Context) bool {
	v := s.volume
	file, err := v.SourceMETSFile()
	if err != nil {
		return s.fail(err)
	}
	if _, err := v.SourceMETS(); err != nil {
		return s.fail(err)
	}
	if _, err := v.MARCXML(); err != nil {
		fetcher := s.fetcher()
		if fetcher == nil || results.ReasonFor(err) != results.ReasonMissingMARC {
			return s.fail(err)
		}
		if err := s.attachRecord(ctx, fetcher, file); err != nil {
			return s.fail(err)
		}
	}
	validator := s.Validator
	if validator == nil {
		if command := v.Resolver().Global().Xerces; command != "" {
			validator = &mets.CommandValidator{Command: command}
		}
	}
	if validator != nil {
		path := filepath.Join(v.StagingDirectory(), file)
		if err := validator.Validate(ctx, path); err != nil {
			return s.fail(results.ForReason(results.ReasonBadField).
				WithField("field", "source_mets").WithField("file", file).
				WithError(err).Errorf("source METS failed validation"))
		}
	}
	return s.succeed()
}

func (s *SourceMETS) fetcher() bib.RecordFetcher {
	if s.Fetcher != nil {
		return s.Fetcher
	}
	if base := s.volume.Resolver().Global().RecordService; base != "" {
		return bib.NewRecordFetcher(base)
	}
	return nil
}

// attachRecord fetches the bibliographic record and grafts it into the
// staged source METS as a MARC dmdSec, before any existing amdSec or
// fileSec so the document stays schema-valid.
func (s *SourceMETS) attachRecord(ctx context.Context, fetcher bib.RecordFetcher, file string) error {
	v := s.volume
	data, err := fetcher.MARCXML(ctx, v.ID().Namespace, v.ID().ObjID)
	if err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("field", "marcxml").WithError(err).
			Errorf("could not fetch the bibliographic record for %s", v.ID())
	}
	record := etree.NewDocument()
	if err := record.ReadFromBytes(data); err != nil {
		return results.ForReason(results.ReasonBadField).
			WithField("field", "marcxml").WithError(err).
			Errorf("record service returned unparseable MARCXML for %s", v.ID())
	}
	if record.Root() == nil {
		return results.ForReason(results.ReasonBadField).
			WithField("field", "marcxml").
			Errorf("record service returned an empty document for %s", v.ID())
	}
	doc, err := v.SourceMETS()
	if err != nil {
		return err
	}
	root := doc.Root()
	dmd := etree.NewElement("METS:dmdSec")
	dmd.CreateAttr("ID", "DMDMARC")
	wrap := dmd.CreateElement("METS:mdWrap")
	wrap.CreateAttr("MDTYPE", "MARC")
	xmlData := wrap.CreateElement("METS:xmlData")
	xmlData.AddChild(record.Root().Copy())

	index := len(root.Child)
	for _, child := range root.ChildElements() {
		if child.Tag == "metsHdr" || child.Tag == "dmdSec" {
			continue
		}
		index = child.Index()
		break
	}
	root.InsertChildAt(index, dmd)

	path := filepath.Join(v.StagingDirectory(), file)
	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return results.ForReason(results.ReasonOperationFailed).
			WithField("file", file).WithError(err).
			Errorf("could not write the updated source METS")
	}
	return nil
}

var _ api.Stage = (*SourceMETS)(nil)
