package xmldoc

import (
	"bytes"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"libertyls/internal/source"
)

func offset(n int) uint32 {
	off, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("xmldoc: offset overflow: %w", err))
	}
	return off
}

// Parse scans file into a Document. It never fails; see the package doc for
// how malformed input is handled.
func Parse(file *source.File) *Document {
	doc := &Document{File: file}
	if file == nil {
		return doc
	}
	p := &parser{doc: doc, src: file.Content, fid: file.ID}
	p.run()
	return doc
}

type parser struct {
	doc   *Document
	src   []byte
	fid   source.FileID
	pos   int
	stack []*Element
}

func (p *parser) span(start, end int) source.Span {
	return source.Span{File: p.fid, Start: offset(start), End: offset(end)}
}

func (p *parser) run() {
	for p.pos < len(p.src) {
		lt := bytes.IndexByte(p.src[p.pos:], '<')
		if lt < 0 {
			p.pos = len(p.src)
			break
		}
		p.pos += lt
		rest := p.src[p.pos:]
		switch {
		case bytes.HasPrefix(rest, []byte("<!--")):
			p.skipPast("-->", 4)
		case bytes.HasPrefix(rest, []byte("<![CDATA[")):
			p.skipPast("]]>", 9)
		case bytes.HasPrefix(rest, []byte("<?")):
			p.skipPast("?>", 2)
		case bytes.HasPrefix(rest, []byte("<!")):
			p.skipPast(">", 2)
		case bytes.HasPrefix(rest, []byte("</")):
			p.endTag()
		case len(rest) > 1 && isNameChar(rest[1]):
			p.startTag()
		default:
			p.pos++
		}
	}
	end := len(p.src)
	for i := len(p.stack) - 1; i >= 0; i-- {
		e := p.stack[i]
		e.Content.End = offset(end)
		e.Span.End = offset(end)
	}
	p.stack = nil
}

func (p *parser) skipPast(marker string, from int) {
	idx := bytes.Index(p.src[p.pos+from:], []byte(marker))
	if idx < 0 {
		p.pos = len(p.src)
		return
	}
	p.pos += from + idx + len(marker)
}

func (p *parser) readName() (string, int, int) {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), start, p.pos
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) startTag() {
	tagStart := p.pos
	p.pos++ // '<'
	name, ns, ne := p.readName()
	el := &Element{
		Name:     name,
		NameSpan: p.span(ns, ne),
	}
	if len(p.stack) > 0 {
		parent := p.stack[len(p.stack)-1]
		el.Parent = parent
		parent.Children = append(parent.Children, el)
	} else if p.doc.Root == nil {
		p.doc.Root = el
	}
	p.doc.Elements = append(p.doc.Elements, el)

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			// unterminated start tag: content is empty at end of input
			el.StartTag = p.span(tagStart, p.pos)
			el.Content = p.span(p.pos, p.pos)
			el.Span = p.span(tagStart, p.pos)
			return
		}
		c := p.src[p.pos]
		switch {
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '>':
			p.pos += 2
			el.SelfClosing = true
			el.Closed = true
			el.StartTag = p.span(tagStart, p.pos)
			el.Content = p.span(p.pos-2, p.pos-2)
			el.Span = el.StartTag
			return
		case c == '>':
			p.pos++
			el.StartTag = p.span(tagStart, p.pos)
			el.Content = p.span(p.pos, p.pos)
			el.Span = p.span(tagStart, p.pos)
			p.stack = append(p.stack, el)
			return
		case c == '<':
			// a new tag began before this one was terminated
			el.StartTag = p.span(tagStart, p.pos)
			el.Content = p.span(p.pos, p.pos)
			el.Span = p.span(tagStart, p.pos)
			p.stack = append(p.stack, el)
			return
		case isNameChar(c):
			el.Attrs = append(el.Attrs, p.attr())
		default:
			p.pos++
		}
	}
}

func (p *parser) attr() *Attr {
	name, ns, ne := p.readName()
	a := &Attr{Name: name, NameSpan: p.span(ns, ne)}
	a.Span = a.NameSpan
	a.ValueSpan = p.span(ne, ne)
	save := p.pos
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '=' {
		p.pos = save
		return a
	}
	p.pos++
	p.skipSpace()
	if p.pos >= len(p.src) {
		a.HasValue = true
		a.ValueSpan = p.span(p.pos, p.pos)
		a.Span = p.span(ns, p.pos)
		return a
	}
	a.HasValue = true
	if q := p.src[p.pos]; q == '"' || q == '\'' {
		a.Quote = q
		vs := p.pos + 1
		idx := bytes.IndexByte(p.src[vs:], q)
		ve := len(p.src)
		if idx >= 0 {
			ve = vs + idx
			p.pos = ve + 1
		} else {
			p.pos = ve
		}
		a.Value = string(p.src[vs:ve])
		a.ValueSpan = p.span(vs, ve)
		a.Span = p.span(ns, p.pos)
		return a
	}
	vs := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isSpace(c) || c == '>' || c == '<' || (c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '>') {
			break
		}
		p.pos++
	}
	a.Value = string(p.src[vs:p.pos])
	a.ValueSpan = p.span(vs, p.pos)
	a.Span = p.span(ns, p.pos)
	return a
}

func (p *parser) endTag() {
	tagStart := p.pos
	p.pos += 2
	name, _, _ := p.readName()
	stop := bytes.IndexAny(p.src[p.pos:], "<>")
	if stop < 0 || p.src[p.pos+stop] == '<' {
		if stop < 0 {
			p.pos = len(p.src)
		} else {
			p.pos += stop
		}
		p.truncatedEndTag(tagStart, name)
		return
	}
	p.pos += stop + 1
	match := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].Name == name {
			match = i
			break
		}
	}
	if match < 0 {
		return
	}
	for i := len(p.stack) - 1; i > match; i-- {
		open := p.stack[i]
		open.Content.End = offset(tagStart)
		open.Span.End = offset(tagStart)
	}
	el := p.stack[match]
	el.Closed = true
	el.Content.End = offset(tagStart)
	el.EndTag = p.span(tagStart, p.pos)
	el.Span.End = offset(p.pos)
	p.stack = p.stack[:match]
}

// truncatedEndTag handles an end tag cut off before its '>', as in
// "<feature>a</feat". The innermost open element ends at the tag's '<' when
// the partial name could still become its name; it stays unclosed.
func (p *parser) truncatedEndTag(tagStart int, name string) {
	if len(p.stack) == 0 {
		return
	}
	el := p.stack[len(p.stack)-1]
	if !strings.HasPrefix(el.Name, name) {
		return
	}
	el.Content.End = offset(tagStart)
	el.Span.End = offset(p.pos)
	p.stack = p.stack[:len(p.stack)-1]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '<', '>', '/', '=', '"', '\'', '!', '?':
		return false
	}
	return true
}
