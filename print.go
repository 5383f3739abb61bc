package markst

import (
	"strings"
	"unicode/utf8"
)

func (t *tree) canonical(width int, indent string) Canonical {
	p := printer{
		width:  width,
		indent: indent,
		strict: t.strict,
		flats:  make(map[*node]string),
	}
	for _, n := range t.top {
		p.node(n, 0)
	}
	return Canonical{Source: t.source, Text: p.buf.String()}
}

// printer puts an element on one line if it fits into width. Otherwise each
// child goes onto its own line one level deeper. Strict whitespace output is
// never broken because the inserted line breaks would be content.
type printer struct {
	buf    strings.Builder
	width  int
	indent string
	strict bool
	flats  map[*node]string
}

func (p *printer) node(n *node, depth int) {
	if p.strict {
		p.buf.WriteString(p.flat(n))
		p.buf.WriteByte('\n')
		return
	}
	pad := strings.Repeat(p.indent, depth)
	f := p.flat(n)
	if n.kind != elemNode || len(n.kids) == 0 || p.fits(pad, f) {
		p.buf.WriteString(pad)
		p.buf.WriteString(f)
		p.buf.WriteByte('\n')
		return
	}
	p.buf.WriteString(pad)
	writeStartTag(&p.buf, n, false)
	p.buf.WriteByte('\n')
	for _, k := range n.kids {
		p.node(k, depth+1)
	}
	p.buf.WriteString(pad)
	writeEndTag(&p.buf, n)
	p.buf.WriteByte('\n')
}

func (p *printer) fits(pad, s string) bool {
	if p.width == Unlimited {
		return true
	}
	return utf8.RuneCountInString(pad)+utf8.RuneCountInString(s) <= p.width
}

// flat renders n on a single line
func (p *printer) flat(n *node) string {
	if s, ok := p.flats[n]; ok {
		return s
	}
	var sb strings.Builder
	switch n.kind {
	case elemNode:
		if len(n.kids) == 0 {
			writeStartTag(&sb, n, true)
			break
		}
		writeStartTag(&sb, n, false)
		for _, k := range n.kids {
			sb.WriteString(p.flat(k))
		}
		writeEndTag(&sb, n)
	case textNode:
		escapeText(&sb, n.data)
	case commentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.data)
		sb.WriteString("-->")
	case doctypeNode:
		sb.WriteString("<!DOCTYPE ")
		sb.WriteString(n.data)
		sb.WriteByte('>')
	}
	s := sb.String()
	p.flats[n] = s
	return s
}

func writeStartTag(sb *strings.Builder, n *node, empty bool) {
	sb.WriteByte('<')
	sb.WriteString(n.name)
	for _, a := range n.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.name)
		sb.WriteString(`="`)
		escapeAttr(sb, a.value)
		sb.WriteByte('"')
	}
	if empty {
		sb.WriteString("/>")
	} else {
		sb.WriteByte('>')
	}
}

func writeEndTag(sb *strings.Builder, n *node) {
	sb.WriteString("</")
	sb.WriteString(n.name)
	sb.WriteByte('>')
}

func escapeText(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '\r':
			sb.WriteString("&#xD;")
		default:
			sb.WriteRune(r)
		}
	}
}

func escapeAttr(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '"':
			sb.WriteString("&quot;")
		case '\t':
			sb.WriteString("&#x9;")
		case '\n':
			sb.WriteString("&#xA;")
		case '\r':
			sb.WriteString("&#xD;")
		default:
			sb.WriteRune(r)
		}
	}
}
