package completion

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

const featureManager = "featureManager"

// ContextAt extracts the completion context at byte offset off. The
// returned Kind is KindNone when off is not inside a <feature> or
// <platform> element of a featureManager.
func ContextAt(doc *xmldoc.Document, off uint32) Context {
	if doc == nil || doc.File == nil {
		return Context{}
	}
	el := doc.ContentAt(off)
	if el == nil || el.Parent == nil || el.Parent.Name != featureManager {
		return Context{}
	}
	var kind Kind
	switch el.Name {
	case "feature":
		kind = KindFeature
	case "platform":
		kind = KindPlatform
	default:
		return Context{}
	}

	content := doc.File.Content
	start := int(off)
	for start > int(el.Content.Start) && !isSpace(content[start-1]) && content[start-1] != '<' {
		start--
	}
	end := int(off)
	for end < int(el.Content.End) && !isSpace(content[end]) && content[end] != '<' {
		end++
	}

	return Context{
		Kind:     kind,
		Prefix:   string(content[start:off]),
		Declared: Declared(doc, el.Name, el),
		Span: source.Span{
			File:  el.Content.File,
			Start: offset(start),
			End:   offset(end),
		},
	}
}

// Declared returns the trimmed values of every name element inside a
// featureManager, skipping except.
func Declared(doc *xmldoc.Document, name string, except *xmldoc.Element) []string {
	var out []string
	for _, fm := range doc.FindAll(featureManager) {
		for _, el := range fm.ChildrenNamed(name) {
			if el == except {
				continue
			}
			if text, _ := doc.TrimmedText(el); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func isSpace(c byte) bool {
	return strings.IndexByte(" \t\r\n", c) >= 0
}

func offset(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("completion offset overflow: %w", err))
	}
	return v
}
