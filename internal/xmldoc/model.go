package xmldoc

import (
	"strings"

	"libertyls/internal/source"
)

// Document is a parsed server descriptor.
type Document struct {
	File     *source.File
	Root     *Element
	Elements []*Element // every element in document order
}

// Element is one XML element with source spans for each of its parts.
type Element struct {
	Name        string
	NameSpan    source.Span
	Span        source.Span // '<' through the closing '>' (or end of input when unclosed)
	StartTag    source.Span
	EndTag      source.Span // empty for self-closing or unclosed elements
	Content     source.Span // between the start tag and the end tag
	SelfClosing bool
	Closed      bool
	Attrs       []*Attr
	Children    []*Element
	Parent      *Element
}

// Attr is a name="value" pair inside a start tag.
type Attr struct {
	Name      string
	Value     string
	NameSpan  source.Span
	ValueSpan source.Span // value without quotes
	Span      source.Span // name through closing quote
	Quote     byte        // 0 when the value is unquoted or missing
	HasValue  bool
}

// Attr returns the first attribute called name.
func (e *Element) Attr(name string) (*Attr, bool) {
	if e == nil {
		return nil, false
	}
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// AttrValue returns the value of the named attribute or "".
func (e *Element) AttrValue(name string) string {
	if a, ok := e.Attr(name); ok {
		return a.Value
	}
	return ""
}

// ChildrenNamed returns the direct children called name.
func (e *Element) ChildrenNamed(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// LastChild returns the last direct child element or nil.
func (e *Element) LastChild() *Element {
	if e == nil || len(e.Children) == 0 {
		return nil
	}
	return e.Children[len(e.Children)-1]
}

// Text returns the raw text between the start and end tags.
func (d *Document) Text(e *Element) string {
	if d == nil || e == nil || d.File == nil {
		return ""
	}
	return d.File.Slice(e.Content)
}

// TrimmedText returns the element text with surrounding whitespace removed
// together with the span that text occupies.
func (d *Document) TrimmedText(e *Element) (string, source.Span) {
	raw := d.Text(e)
	if raw == "" {
		return "", e.Content
	}
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	trimmed := strings.TrimSpace(raw)
	start := e.Content.Start + offset(lead)
	return trimmed, source.Span{File: e.Content.File, Start: start, End: start + offset(len(trimmed))}
}

// FindAll returns every element called name in document order.
func (d *Document) FindAll(name string) []*Element {
	if d == nil {
		return nil
	}
	var out []*Element
	for _, e := range d.Elements {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// ContentAt returns the innermost element whose content region contains off.
func (d *Document) ContentAt(off uint32) *Element {
	if d == nil {
		return nil
	}
	var found *Element
	for _, e := range d.Elements {
		if e.SelfClosing || !e.Content.Contains(off) {
			continue
		}
		if found == nil || e.Content.Len() <= found.Content.Len() {
			found = e
		}
	}
	return found
}
