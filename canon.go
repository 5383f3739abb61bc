package markst

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const xmlNamespaceURL = "http://www.w3.org/XML/1998/namespace"

type nodeKind int

const (
	elemNode nodeKind = iota
	textNode
	commentNode
	doctypeNode
)

// node is the syntax independent tree that gets printed
type node struct {
	kind  nodeKind
	name  string
	attrs []attr
	data  string
	kids  []*node
}

type attr struct {
	name, value string
	nsDecl      bool
}

// tree is a parsed and normalized document
type tree struct {
	source string
	top    []*node
	strict bool
}

// Canonicalize computes the canonical form of doc. It is a pure function of
// doc's content and opts.
func Canonicalize(doc Document, opts Options) (Canonical, error) {
	t, err := parse(doc, &opts)
	if err != nil {
		return Canonical{Source: doc.Path}, err
	}
	return t.canonical(opts.width(), opts.indent()), nil
}

func parse(doc Document, opts *Options) (*tree, error) {
	excl, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}
	var top []*node
	switch opts.Syntax {
	case SyntaxXML:
		top, err = parseXML(doc, excl)
	case SyntaxHTML:
		top, err = parseHTML(doc, excl)
	default:
		return nil, fmt.Errorf("unsupported markup syntax %s", opts.Syntax)
	}
	if err != nil {
		return nil, err
	}
	n := normalizer{
		strict:      opts.Whitespace == WhitespaceStrict,
		sortAttrs:   opts.Attributes == AttrSorted,
		noComments:  opts.StripComments,
		ignoreAttrs: opts.IgnoreAttrs,
	}
	return &tree{
		source: doc.Path,
		top:    n.topLevel(top),
		strict: n.strict,
	}, nil
}

func compileExcludes(exprs []string) ([]*xpath.Expr, error) {
	res := make([]*xpath.Expr, 0, len(exprs))
	for _, e := range exprs {
		x, err := xpath.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("exclude expression '%s': %w", e, err)
		}
		res = append(res, x)
	}
	return res, nil
}

// checkWellFormed runs the document through a strict decoder to get line
// numbers for syntax errors.
func checkWellFormed(doc Document) error {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(doc.Content, utf8BOM)))
	dec.Entity = map[string]string{}
	dec.CharsetReader = charset.NewReaderLabel
	root, depth := false, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			merr := &MalformedError{Source: doc.Path, err: err}
			var serr *xml.SyntaxError
			if errors.As(err, &serr) {
				merr.Line = serr.Line
			}
			return merr
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if depth == 0 && root {
				line, _ := dec.InputPos()
				return &MalformedError{Source: doc.Path, Line: line,
					err: fmt.Errorf("second root element <%s>", tok.Name.Local),
				}
			}
			root = true
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && !isXMLSpaceOnly(string(tok)) {
				line, _ := dec.InputPos()
				return &MalformedError{Source: doc.Path, Line: line,
					err: errors.New("text outside of root element"),
				}
			}
		}
	}
	if !root {
		return &MalformedError{Source: doc.Path, err: errors.New("no root element")}
	}
	return nil
}

func parseXML(doc Document, excl []*xpath.Expr) ([]*node, error) {
	if err := checkWellFormed(doc); err != nil {
		return nil, err
	}
	var rd io.Reader = bytes.NewReader(doc.Content)
	if !hasXMLDecl(doc.Content) {
		// xmlquery needs a declaration to keep comments and processing
		// instructions in front of the root element at the top level.
		rd = io.MultiReader(
			strings.NewReader(defaultXMLDecl),
			bytes.NewReader(bytes.TrimPrefix(doc.Content, utf8BOM)),
		)
	}
	root, err := xmlquery.Parse(rd)
	if err != nil {
		return nil, &MalformedError{Source: doc.Path, err: err}
	}
	skip := make(map[*xmlquery.Node]bool)
	for _, x := range excl {
		for _, n := range xmlquery.QuerySelectorAll(root, x) {
			skip[n] = true
		}
	}
	return xmlNodes(root, skip), nil
}

const defaultXMLDecl = `<?xml version="1.0"?>`

var utf8BOM = []byte("\ufeff")

func hasXMLDecl(content []byte) bool {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !bytes.HasPrefix(content, []byte("<?xml")) || len(content) < 6 {
		return false
	}
	return isXMLSpace(rune(content[5]))
}

func xmlNodes(parent *xmlquery.Node, skip map[*xmlquery.Node]bool) (res []*node) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		if skip[n] {
			continue
		}
		switch n.Type {
		case xmlquery.ElementNode:
			e := &node{kind: elemNode, name: qname(n.Prefix, n.Data)}
			for _, a := range n.Attr {
				e.attrs = append(e.attrs, xmlAttr(a))
			}
			e.kids = xmlNodes(n, skip)
			res = append(res, e)
		case xmlquery.TextNode, xmlquery.CharDataNode:
			res = append(res, &node{kind: textNode, data: n.Data})
		case xmlquery.CommentNode:
			res = append(res, &node{kind: commentNode, data: n.Data})
		}
	}
	return res
}

func xmlAttr(a xmlquery.Attr) attr {
	switch {
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return attr{name: "xmlns", value: a.Value, nsDecl: true}
	case a.Name.Space == "xmlns":
		return attr{name: "xmlns:" + a.Name.Local, value: a.Value, nsDecl: true}
	case a.Name.Space == xmlNamespaceURL:
		return attr{name: "xml:" + a.Name.Local, value: a.Value}
	}
	return attr{name: qname(a.Name.Space, a.Name.Local), value: a.Value}
}

func qname(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func parseHTML(doc Document, excl []*xpath.Expr) ([]*node, error) {
	root, err := html.Parse(bytes.NewReader(doc.Content))
	if err != nil {
		return nil, &MalformedError{Source: doc.Path, err: err}
	}
	skip := make(map[*html.Node]bool)
	for _, x := range excl {
		for _, n := range htmlquery.QuerySelectorAll(root, x) {
			skip[n] = true
		}
	}
	return htmlNodes(root, skip), nil
}

func htmlNodes(parent *html.Node, skip map[*html.Node]bool) (res []*node) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		if skip[n] {
			continue
		}
		switch n.Type {
		case html.ElementNode:
			e := &node{kind: elemNode, name: n.Data}
			for _, a := range n.Attr {
				e.attrs = append(e.attrs, attr{
					name:   qname(a.Namespace, a.Key),
					value:  a.Val,
					nsDecl: a.Namespace == "" && (a.Key == "xmlns" || strings.HasPrefix(a.Key, "xmlns:")),
				})
			}
			e.kids = htmlNodes(n, skip)
			res = append(res, e)
		case html.TextNode:
			res = append(res, &node{kind: textNode, data: n.Data})
		case html.CommentNode:
			res = append(res, &node{kind: commentNode, data: n.Data})
		case html.DoctypeNode:
			res = append(res, &node{kind: doctypeNode, data: n.Data})
		}
	}
	return res
}

// normalizer applies the whitespace, attribute and comment options to a
// freshly parsed tree.
type normalizer struct {
	strict      bool
	sortAttrs   bool
	noComments  bool
	ignoreAttrs []string
}

// topLevel never keeps whitespace outside the root element; it belongs to
// the serialization, not to the document.
func (nz *normalizer) topLevel(nodes []*node) []*node {
	nodes = nz.nodes(nodes)
	return slices.DeleteFunc(nodes, func(n *node) bool {
		return n.kind == textNode && isXMLSpaceOnly(n.data)
	})
}

func (nz *normalizer) nodes(nodes []*node) []*node {
	res := nodes[:0]
	var last *node
	for _, n := range nodes {
		switch n.kind {
		case textNode:
			if last != nil && last.kind == textNode {
				last.data += n.data
				continue
			}
		case commentNode:
			if nz.noComments {
				continue
			}
		case elemNode:
			nz.element(n)
		}
		res = append(res, n)
		last = n
	}
	if nz.strict {
		return slices.DeleteFunc(res, func(n *node) bool {
			return n.kind == textNode && n.data == ""
		})
	}
	out := res[:0]
	for _, n := range res {
		switch n.kind {
		case textNode:
			n.data = collapseSpace(n.data)
			if n.data == "" {
				continue
			}
		case commentNode:
			n.data = collapseComment(n.data)
		}
		out = append(out, n)
	}
	return out
}

func (nz *normalizer) element(e *node) {
	if len(nz.ignoreAttrs) > 0 {
		e.attrs = slices.DeleteFunc(e.attrs, func(a attr) bool {
			return slices.Contains(nz.ignoreAttrs, a.name)
		})
	}
	if nz.sortAttrs {
		slices.SortStableFunc(e.attrs, func(a, b attr) int {
			switch {
			case a.nsDecl && !b.nsDecl:
				return -1
			case !a.nsDecl && b.nsDecl:
				return 1
			}
			return strings.Compare(a.name, b.name)
		})
	}
	e.kids = nz.nodes(e.kids)
}

// isXMLSpace only accepts the XML whitespace characters. Others, like
// U+00A0, are content.
func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isXMLSpaceOnly(s string) bool {
	return strings.TrimFunc(s, isXMLSpace) == ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, isXMLSpace), " ")
}

// collapseComment keeps a space in front of the closing "-->" if the
// comment ends with '-'. Comments must not contain "--".
func collapseComment(s string) string {
	s = collapseSpace(s)
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	return s
}
