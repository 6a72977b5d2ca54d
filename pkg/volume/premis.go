package volume

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/database"
	"github.com/dlps/feed/pkg/mets"
	"github.com/dlps/feed/pkg/results"
)

// htNamespaceUUID seeds the deterministic v5 event identifiers.
var htNamespaceUUID = uuid.FromStringOrNil("09A5DAD6-3484-11E0-9D45-077BD5215A96")

// eventDateFormat is the wall-clock format stored with events.
const eventDateFormat = "2006-01-02T15:04:05"

// EventConfiguration resolves the effective configuration for an event
// code: the global catalog overlaid by the package type's overrides, then
// the namespace's.
func (v *Volume) EventConfiguration(code string) (*api.EventConfiguration, error) {
	base := v.resolver.Global().EventConfiguration(code)
	if base == nil && v.pt.EventOverride(code) == nil {
		return nil, results.ForReason(results.ReasonMissingField).
			WithField("field", "premis_event").
			Errorf("event code %s exists in no catalog layer", code)
	}
	merged := base.Merge(v.pt.EventOverride(code))
	if v.ns.EventOverrides != nil {
		merged = merged.Merge(v.ns.EventOverrides[code])
	}
	return merged, nil
}

// MakePremisUUID derives the deterministic event identifier: UUIDv5 over
// the namespace, object, event type and wall-clock time. Reingests at the
// same time for the same event type mint identical identifiers.
func (v *Volume) MakePremisUUID(eventtype, date string) string {
	name := fmt.Sprintf("%s-%s-%s-%s", v.id.Namespace, v.id.ObjID, eventtype, date)
	return uuid.NewV5(htNamespaceUUID, name).String()
}

// RecordPremisEvent records an event of the given code at the current
// wall-clock time with no outcome.
func (v *Volume) RecordPremisEvent(ctx context.Context, code string) error {
	return v.RecordPremisEventAt(ctx, code, time.Now().UTC().Format(eventDateFormat), "")
}

// RecordPremisEventAt idempotently records an event: the row is keyed by
// event type, so recording the same code twice replaces rather than
// duplicates, and the identifier is stable for a given time.
func (v *Volume) RecordPremisEventAt(ctx context.Context, code, date, outcome string) error {
	eventConfig, err := v.EventConfiguration(code)
	if err != nil {
		return err
	}
	if eventConfig.Type == "" {
		return results.ForReason(results.ReasonMissingField).
			WithField("field", "event_type").
			Errorf("event code %s has no configured type", code)
	}
	return v.events.ReplaceEvent(ctx, &database.PremisEvent{
		Namespace:   v.id.Namespace,
		ID:          v.id.ObjID,
		EventID:     v.MakePremisUUID(eventConfig.Type, date),
		EventtypeID: code,
		Outcome:     outcome,
		Date:        date,
	})
}

// SaveSourceEvent stashes a provenance event captured from the source METS
// under its extract code, preserving the source's own date.
func (v *Volume) SaveSourceEvent(ctx context.Context, code, date, outcome string) error {
	if date == "" {
		date = time.Now().UTC().Format(eventDateFormat)
	}
	return v.RecordPremisEventAt(ctx, code, date, outcome)
}

// EventInfo fetches the recorded event for a code, or nil when none has
// been recorded.
func (v *Volume) EventInfo(ctx context.Context, code string) (*mets.EventInfo, error) {
	event, err := v.events.GetEvent(ctx, v.id.Namespace, v.id.ObjID, code)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	return &mets.EventInfo{
		EventID: event.EventID,
		Date:    event.Date,
		Outcome: event.Outcome,
	}, nil
}

// ClearPremisEvents drops the volume's recorded events once they live in
// the collated METS.
func (v *Volume) ClearPremisEvents(ctx context.Context) error {
	return v.events.ClearEvents(ctx, v.id.Namespace, v.id.ObjID)
}
