package mets

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/results"
)

// EventInfo is one recorded PREMIS event as stored for a volume.
type EventInfo struct {
	EventID string
	Date    string
	Outcome string
}

// FileGroup is one logical filegroup materialized for filesec assembly.
type FileGroup struct {
	Name   string
	Use    string
	Prefix string
	Files  []string
}

// Volume is the slice of volume behavior the assembler consumes.
type Volume interface {
	ID() api.Identifier
	PackageType() *api.PackageType

	MARCXML() (*etree.Element, error)
	SourceMETS() (*etree.Document, error)
	// RepositoryMETSPath is empty when the object is not yet in the
	// repository.
	RepositoryMETSPath() string

	EventConfiguration(code string) (*api.EventConfiguration, error)
	EventInfo(ctx context.Context, code string) (*EventInfo, error)
	RecordPremisEvent(ctx context.Context, code string) error
	SaveSourceEvent(ctx context.Context, code, date, outcome string) error
	Artist() string

	FileGroups() ([]FileGroup, error)
	FilesByPage() (map[int]map[string][]string, error)
	PageData(file string) (orderlabel, label string)
	FileCount() (int, error)
	PageCount() (int, error)
	ZipName() string
	METSPath() string
}

// executorVolumeArtist in an event configuration substitutes the volume's
// digitization artist for the executor.
const executorVolumeArtist = "VOLUME_ARTIST"

var eventIDSuffix = regexp.MustCompile(`^(.*?)(\d+)$`)

// Assembler produces the canonical AIP METS for one volume, merging
// provenance from the repository copy, the source METS and this run
// without duplication. Reingest at unchanged event times is a no-op per
// event type.
type Assembler struct {
	Volume    Volume
	Validator Validator
	// Now is the header clock; tests pin it.
	Now func() time.Time

	// eventids tracks the numeric high-water mark per identifier prefix
	// seen in the repository METS, so new per-type identifiers continue
	// the old sequence.
	eventids map[string]int
	// stored groups events already present in the repository METS by
	// type, for duplicate suppression.
	stored map[string][]storedEvent
}

type storedEvent struct {
	date string
	node *etree.Element
}

// Assemble writes the AIP METS to the volume's METS path and validates it.
func (a *Assembler) Assemble(ctx context.Context) error {
	if a.Now == nil {
		a.Now = time.Now
	}
	a.eventids = map[string]int{}
	a.stored = map[string][]storedEvent{}

	volume := a.Volume
	doc := NewDocument(volume.ID().String())
	doc.SetHeader(a.Now().UTC().Format("2006-01-02T15:04:05"), "NEW", "DLPS")

	marc, err := volume.MARCXML()
	if err != nil {
		return err
	}
	doc.AddMARCRef(volume.ID().ObjID)
	doc.AddMARCXML(marc)

	premis := doc.PremisParent()
	if err := a.extractOldPremis(premis); err != nil {
		return err
	}
	if err := a.migrateSourceEvents(ctx, premis); err != nil {
		return err
	}

	// The ingestion event must be recorded before the generated-event
	// sweep so that it lands in this same METS.
	if err := volume.RecordPremisEvent(ctx, "ingestion"); err != nil {
		return err
	}
	if err := a.emitGeneratedEvents(ctx, premis); err != nil {
		return err
	}

	fileCount, err := volume.FileCount()
	if err != nil {
		return err
	}
	pageCount, err := volume.PageCount()
	if err != nil {
		return err
	}
	AppendObject(premis, volume.ID().String(), fileCount, pageCount)

	fileIDs, err := a.buildFileSec(doc)
	if err != nil {
		return err
	}
	if err := a.buildStructMap(doc, fileIDs); err != nil {
		return err
	}

	path := volume.METSPath()
	if err := doc.WriteToFile(path); err != nil {
		return results.ForReason(results.ReasonOperationFailed).WithField("file", path).WithError(err).Errorf("could not write METS")
	}
	if a.Validator != nil {
		if err := a.Validator.Validate(ctx, path); err != nil {
			return results.ForReason(results.ReasonInvalidMETS).WithField("file", path).WithError(err).Errorf("assembled METS failed validation")
		}
	}
	return nil
}

// extractOldPremis re-emits the events already in the repository METS,
// stashing them by type for duplicate suppression and advancing the
// per-prefix identifier high-water marks.
func (a *Assembler) extractOldPremis(premis *etree.Element) error {
	path := a.Volume.RepositoryMETSPath()
	if path == "" {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return results.ForReason(results.ReasonInvalidRepositoryPREMIS).WithField("file", path).WithError(err).Errorf("could not parse repository METS")
	}
	for _, event := range Events(doc) {
		etype := EventType(event)
		idValue := EventIdentifierValue(event)
		if etype == "" || idValue == "" {
			return results.ForReason(results.ReasonInvalidRepositoryPREMIS).
				WithField("file", path).
				Errorf("repository METS event missing type or identifier: %s", nodeSummary(event))
		}
		if m := eventIDSuffix.FindStringSubmatch(idValue); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil && n > a.eventids[m[1]] {
				a.eventids[m[1]] = n
			}
		}
		a.stored[etype] = append(a.stored[etype], storedEvent{date: EventDate(event), node: event})
		premis.AddChild(event.Copy())
	}
	return nil
}

// migrateSourceEvents rewrites qualifying events from the source METS into
// the AIP METS under deterministic UM identifiers.
func (a *Assembler) migrateSourceEvents(ctx context.Context, premis *etree.Element) error {
	pt := a.Volume.PackageType()
	migrateCodes := pt.SourcePremisEventCodes()
	extractCodes := pt.SourcePremisExtractCodes()
	if len(migrateCodes) == 0 && len(extractCodes) == 0 {
		return nil
	}
	doc, err := a.Volume.SourceMETS()
	if err != nil {
		return err
	}
	byType := map[string][]*etree.Element{}
	for _, event := range Events(doc) {
		if etype := EventType(event); etype != "" {
			byType[etype] = append(byType[etype], event)
		}
	}

	for _, code := range extractCodes {
		etype := a.eventTypeFor(code)
		for _, event := range byType[etype] {
			serialized := serializeNode(event)
			if err := a.Volume.SaveSourceEvent(ctx, code, EventDate(event), serialized); err != nil {
				return err
			}
		}
	}

	for _, code := range migrateCodes {
		etype := a.eventTypeFor(code)
		for _, event := range byType[etype] {
			date := EventDate(event)
			if !a.needToUpdateEvent(etype, date) {
				continue
			}
			migrated := event.Copy()
			if err := a.rewriteIdentifier(migrated, etype); err != nil {
				return err
			}
			a.stored[etype] = append(a.stored[etype], storedEvent{date: date, node: migrated})
			premis.AddChild(migrated)
		}
	}
	return nil
}

// rewriteIdentifier replaces a migrated event's identifier with the next
// deterministic per-type identifier of type UM. Exactly one identifier
// node with one type and one value child is expected.
func (a *Assembler) rewriteIdentifier(event *etree.Element, etype string) error {
	ids := EventIdentifiers(event)
	if len(ids) != 1 {
		return results.ForReason(results.ReasonInvalidSourcePREMIS).
			Errorf("expected exactly one eventIdentifier for %s event, found %d", etype, len(ids))
	}
	types := Descendants(ids[0], "eventIdentifierType")
	values := Descendants(ids[0], "eventIdentifierValue")
	if len(types) != 1 || len(values) != 1 {
		return results.ForReason(results.ReasonInvalidSourcePREMIS).
			Errorf("malformed eventIdentifier for %s event: %d types, %d values", etype, len(types), len(values))
	}
	types[0].SetText("UM")
	values[0].SetText(a.nextEventID(etype))
	return nil
}

// emitGeneratedEvents renders the events produced during this ingest.
func (a *Assembler) emitGeneratedEvents(ctx context.Context, premis *etree.Element) error {
	volume := a.Volume
	for _, code := range volume.PackageType().PremisEventCodes() {
		info, err := volume.EventInfo(ctx, code)
		if err != nil {
			return err
		}
		if info == nil || info.Date == "" {
			return results.ForReason(results.ReasonMissingField).
				WithField("field", "premis_event").
				Errorf("no %s event recorded for %s", code, volume.ID())
		}
		eventConfig, err := volume.EventConfiguration(code)
		if err != nil {
			return err
		}
		if eventConfig.Type == "" || eventConfig.Detail == "" || eventConfig.Executor == "" {
			return results.ForReason(results.ReasonMissingField).
				WithField("field", "event_configuration").
				Errorf("incomplete configuration for event %s", code)
		}
		executor := eventConfig.Executor
		if executor == executorVolumeArtist {
			executor = volume.Artist()
		}
		if !a.needToUpdateEvent(eventConfig.Type, info.Date) {
			continue
		}
		eventID, idType := info.EventID, "UUID"
		if eventConfig.EventIDOverride != "" {
			eventID, idType = eventConfig.EventIDOverride, "UM"
		}
		AppendEvent(premis, EventParams{
			ID:           eventID,
			IDType:       idType,
			Type:         eventConfig.Type,
			Date:         info.Date,
			Detail:       eventConfig.Detail,
			Outcome:      info.Outcome,
			Executor:     executor,
			ExecutorType: eventConfig.ExecutorType,
			Tools:        eventConfig.Tools,
		})
		a.stored[eventConfig.Type] = append(a.stored[eventConfig.Type], storedEvent{date: info.Date})
	}
	return nil
}

func (a *Assembler) buildFileSec(doc *Document) (map[string]string, error) {
	doc.AddZipFilegroup(a.Volume.ZipName())
	groups, err := a.Volume.FileGroups()
	if err != nil {
		return nil, err
	}
	fileIDs := map[string]string{}
	for _, group := range groups {
		for file, id := range doc.AddFilegroup(group.Name, group.Use, group.Prefix, group.Files) {
			fileIDs[file] = id
		}
	}
	return fileIDs, nil
}

func (a *Assembler) buildStructMap(doc *Document, fileIDs map[string]string) error {
	byPage, err := a.Volume.FilesByPage()
	if err != nil {
		return err
	}
	groups, err := a.Volume.FileGroups()
	if err != nil {
		return err
	}
	sequences := make([]int, 0, len(byPage))
	for seq := range byPage {
		sequences = append(sequences, seq)
	}
	sort.Ints(sequences)

	var pages []PageDiv
	for _, seq := range sequences {
		page := PageDiv{Order: seq}
		// files appear in filegroup declaration order within a page
		for _, group := range groups {
			for _, file := range byPage[seq][group.Name] {
				if id, ok := fileIDs[file]; ok {
					page.FileIDs = append(page.FileIDs, id)
				}
				if page.OrderLabel == "" && page.Label == "" {
					page.OrderLabel, page.Label = a.Volume.PageData(file)
				}
			}
		}
		pages = append(pages, page)
	}
	doc.AddStructMap(pages)
	return nil
}

// needToUpdateEvent reports whether a new event of this type at this
// datetime must be added: false when a stored event of the type is at
// least as new.
func (a *Assembler) needToUpdateEvent(etype, date string) bool {
	when := parseEventTime(date)
	for _, stored := range a.stored[etype] {
		if !parseEventTime(stored.date).Before(when) {
			return false
		}
	}
	return true
}

// nextEventID mints the next deterministic per-type identifier, continuing
// past the repository METS high-water mark.
func (a *Assembler) nextEventID(etype string) string {
	a.eventids[etype]++
	return fmt.Sprintf("%s%d", etype, a.eventids[etype])
}

// eventTypeFor maps an event code to its catalog type, falling back to the
// code itself when no configuration resolves.
func (a *Assembler) eventTypeFor(code string) string {
	if cfg, err := a.Volume.EventConfiguration(code); err == nil && cfg != nil && cfg.Type != "" {
		return cfg.Type
	}
	return code
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseEventTime(date string) time.Time {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t
		}
	}
	return time.Time{}
}

func serializeNode(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.AddChild(el.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

func nodeSummary(el *etree.Element) string {
	if s := serializeNode(el); len(s) > 200 {
		return s[:200]
	} else if s != "" {
		return s
	}
	return el.Tag
}
