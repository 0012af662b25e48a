// Package testkit holds checks shared by parser and analysis tests.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

// CheckSpanInvariants verifies the span structure of a parsed document:
//  1. every span points into doc.File and lies within its content
//  2. the start tag, name, content, end tag and attributes of an element
//     lie inside the element span
//  3. children lie inside their parent and do not overlap each other
//  4. doc.Elements is in document order
func CheckSpanInvariants(doc *xmldoc.Document) error {
	if doc == nil || doc.File == nil {
		return errors.New("nil document or file")
	}
	size, err := safecast.Conv[uint32](len(doc.File.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	inFile := func(what string, sp source.Span) error {
		if sp.File != doc.File.ID {
			return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, doc.File.ID)
		}
		if sp.End < sp.Start || sp.End > size {
			return fmt.Errorf("%s span %v outside content of %d bytes", what, sp, size)
		}
		return nil
	}
	within := func(what string, inner, outer source.Span) error {
		if inner.Start < outer.Start || inner.End > outer.End {
			return fmt.Errorf("%s span %v is outside %v", what, inner, outer)
		}
		return nil
	}

	var prevStart uint32
	for i, e := range doc.Elements {
		if e.Span.Empty() {
			return fmt.Errorf("element <%s> has an empty span", e.Name)
		}
		if i > 0 && e.Span.Start <= prevStart {
			return fmt.Errorf("element <%s> at %d is out of document order", e.Name, e.Span.Start)
		}
		prevStart = e.Span.Start

		if err := inFile("element <"+e.Name+">", e.Span); err != nil {
			return err
		}
		parts := map[string]source.Span{
			"start tag": e.StartTag,
			"name":      e.NameSpan,
			"content":   e.Content,
		}
		if !e.EndTag.Empty() {
			parts["end tag"] = e.EndTag
		}
		for what, sp := range parts {
			if err := within(fmt.Sprintf("<%s> %s", e.Name, what), sp, e.Span); err != nil {
				return err
			}
		}
		for _, a := range e.Attrs {
			if err := within(fmt.Sprintf("<%s> attribute %s", e.Name, a.Name), a.Span, e.StartTag); err != nil {
				return err
			}
		}

		var last *xmldoc.Element
		for _, c := range e.Children {
			if c.Parent != e {
				return fmt.Errorf("<%s> child <%s> has the wrong parent", e.Name, c.Name)
			}
			if err := within(fmt.Sprintf("<%s> child <%s>", e.Name, c.Name), c.Span, e.Span); err != nil {
				return err
			}
			if c.Span.Start < e.StartTag.End {
				return fmt.Errorf("<%s> child <%s> starts inside the parent's start tag", e.Name, c.Name)
			}
			if last != nil && c.Span.Start < last.Span.End {
				return fmt.Errorf("<%s> children <%s> and <%s> overlap", e.Name, last.Name, c.Name)
			}
			last = c
		}
	}
	return nil
}
