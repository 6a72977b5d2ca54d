package mets

import (
	"fmt"

	"github.com/beevik/etree"
)

// EventParams describes one PREMIS event to render.
type EventParams struct {
	ID     string
	IDType string
	Type   string
	Date   string
	Detail string
	// Outcome is the stored outcome XML; when it does not parse as XML it
	// is rendered as an eventOutcome text node.
	Outcome      string
	Executor     string
	ExecutorType string
	Tools        []string
}

// AppendEvent renders an event beneath the PREMIS parent.
func AppendEvent(parent *etree.Element, params EventParams) {
	event := parent.CreateElement("PREMIS:event")
	id := event.CreateElement("PREMIS:eventIdentifier")
	id.CreateElement("PREMIS:eventIdentifierType").SetText(params.IDType)
	id.CreateElement("PREMIS:eventIdentifierValue").SetText(params.ID)
	event.CreateElement("PREMIS:eventType").SetText(params.Type)
	event.CreateElement("PREMIS:eventDateTime").SetText(params.Date)
	if params.Detail != "" {
		event.CreateElement("PREMIS:eventDetail").SetText(params.Detail)
	}
	if params.Outcome != "" {
		appendOutcome(event, params.Outcome)
	}
	if params.Executor != "" {
		agent := event.CreateElement("PREMIS:linkingAgentIdentifier")
		agent.CreateElement("PREMIS:linkingAgentIdentifierType").SetText(params.ExecutorType)
		agent.CreateElement("PREMIS:linkingAgentIdentifierValue").SetText(params.Executor)
		agent.CreateElement("PREMIS:linkingAgentRole").SetText("Executor")
	}
	for _, tool := range params.Tools {
		agent := event.CreateElement("PREMIS:linkingAgentIdentifier")
		agent.CreateElement("PREMIS:linkingAgentIdentifierType").SetText("tool")
		agent.CreateElement("PREMIS:linkingAgentIdentifierValue").SetText(tool)
		agent.CreateElement("PREMIS:linkingAgentRole").SetText("software")
	}
}

func appendOutcome(event *etree.Element, outcome string) {
	parsed := etree.NewDocument()
	if err := parsed.ReadFromString(outcome); err == nil && parsed.Root() != nil {
		info := event.CreateElement("PREMIS:eventOutcomeInformation")
		info.AddChild(parsed.Root().Copy())
		return
	}
	info := event.CreateElement("PREMIS:eventOutcomeInformation")
	info.CreateElement("PREMIS:eventOutcome").SetText(outcome)
}

// AppendObject renders the PREMIS representation object with its
// significant properties.
func AppendObject(parent *etree.Element, identifier string, fileCount, pageCount int) {
	object := parent.CreateElement("PREMIS:object")
	object.CreateAttr("xsi:type", "PREMIS:representation")
	id := object.CreateElement("PREMIS:objectIdentifier")
	id.CreateElement("PREMIS:objectIdentifierType").SetText("DLPS object ID")
	id.CreateElement("PREMIS:objectIdentifierValue").SetText(identifier)
	level := object.CreateElement("PREMIS:preservationLevel")
	level.CreateElement("PREMIS:preservationLevelValue").SetText("1")
	appendSignificantProperty(object, "file count", fileCount)
	appendSignificantProperty(object, "page count", pageCount)
}

func appendSignificantProperty(object *etree.Element, name string, value int) {
	prop := object.CreateElement("PREMIS:significantProperties")
	prop.CreateElement("PREMIS:significantPropertiesType").SetText(name)
	prop.CreateElement("PREMIS:significantPropertiesValue").SetText(fmt.Sprintf("%d", value))
}

// Events returns every PREMIS event element in a parsed document,
// regardless of the prefix the document binds.
func Events(doc *etree.Document) []*etree.Element {
	if doc.Root() == nil {
		return nil
	}
	return Descendants(doc.Root(), "event")
}

// EventType extracts an event's type, or the empty string.
func EventType(event *etree.Element) string {
	return ChildText(event, "eventType")
}

// EventDate extracts an event's datetime, or the empty string.
func EventDate(event *etree.Element) string {
	return ChildText(event, "eventDateTime")
}

// EventIdentifiers returns an event's eventIdentifier elements.
func EventIdentifiers(event *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range event.ChildElements() {
		if c.Tag == "eventIdentifier" {
			out = append(out, c)
		}
	}
	return out
}

// EventIdentifierValue extracts the identifier value beneath an event, or
// the empty string.
func EventIdentifierValue(event *etree.Element) string {
	if id := Child(event, "eventIdentifier"); id != nil {
		return ChildText(id, "eventIdentifierValue")
	}
	return ""
}
