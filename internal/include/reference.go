// Package include validates <include location="..."> references against the
// file system.
package include

import (
	"strings"

	"libertyls/internal/xmldoc"
)

// Optional is the tri-state value of the optional attribute.
type Optional uint8

const (
	OptionalAbsent Optional = iota
	OptionalTrue
	OptionalFalse
)

func (o Optional) String() string {
	switch o {
	case OptionalTrue:
		return "true"
	case OptionalFalse:
		return "false"
	default:
		return "absent"
	}
}

// Reference is one <include> element.
type Reference struct {
	Element      *xmldoc.Element
	Location     string
	LocationAttr *xmldoc.Attr // nil when the element has no location
	Optional     Optional
	OptionalAttr *xmldoc.Attr
}

// References collects the include elements of doc in document order.
func References(doc *xmldoc.Document) []Reference {
	var out []Reference
	for _, el := range doc.FindAll("include") {
		ref := Reference{Element: el}
		if a, ok := el.Attr("location"); ok {
			ref.LocationAttr = a
			ref.Location = a.Value
		}
		if a, ok := el.Attr("optional"); ok {
			ref.OptionalAttr = a
			// anything other than "true" makes the include mandatory
			if strings.EqualFold(strings.TrimSpace(a.Value), "true") {
				ref.Optional = OptionalTrue
			} else {
				ref.Optional = OptionalFalse
			}
		}
		out = append(out, ref)
	}
	return out
}

// Variables returns the <variable name value> declarations of doc. A
// variable without a value falls back to its defaultValue; the first
// declaration of a name wins.
func Variables(doc *xmldoc.Document) map[string]string {
	vars := make(map[string]string)
	for _, el := range doc.FindAll("variable") {
		name := strings.TrimSpace(el.AttrValue("name"))
		if name == "" {
			continue
		}
		if _, seen := vars[name]; seen {
			continue
		}
		value, ok := el.Attr("value")
		if !ok {
			value, ok = el.Attr("defaultValue")
		}
		if ok {
			vars[name] = value.Value
		}
	}
	return vars
}
