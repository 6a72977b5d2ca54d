package mets

import "github.com/beevik/etree"

// Namespace URIs used across AIP METS documents.
const (
	MetsNS   = "http://www.loc.gov/METS/"
	PremisNS = "info:lc/xmlns/premis-v2"
	XlinkNS  = "http://www.w3.org/1999/xlink"
	MarcNS   = "http://www.loc.gov/MARC21/slim"
	XsiNS    = "http://www.w3.org/2001/XMLSchema-instance"

	premisSchema = "info:lc/xmlns/premis-v2 http://www.loc.gov/standards/premis/v2/premis-v2-0.xsd"
	marcSchema   = "http://www.loc.gov/MARC21/slim http://www.loc.gov/standards/marcxml/schema/MARC21slim.xsd"
)

// descendants walks the subtree under el collecting elements whose local
// name matches, regardless of namespace prefix. Repository METS documents
// may bind PREMIS to any prefix, so prefix-sensitive path queries are not
// safe here.
func Descendants(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			out = append(out, child)
		}
		out = append(out, Descendants(child, local)...)
	}
	return out
}

// child returns the first direct child element with the local name, or nil.
func Child(el *etree.Element, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

// childText returns the trimmed text of the first matching direct child, or
// the empty string.
func ChildText(el *etree.Element, local string) string {
	if c := Child(el, local); c != nil {
		return c.Text()
	}
	return ""
}

// descendantText returns the text of the first matching descendant.
func DescendantText(el *etree.Element, local string) string {
	if all := Descendants(el, local); len(all) > 0 {
		return all[0].Text()
	}
	return ""
}

// Attr returns the value of the first attribute whose local key matches,
// regardless of prefix.
func Attr(el *etree.Element, local string) string {
	for _, a := range el.Attr {
		if a.Key == local {
			return a.Value
		}
	}
	return ""
}

// FirstElementChild skips whitespace and other non-element nodes.
func FirstElementChild(el *etree.Element) *etree.Element {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}
