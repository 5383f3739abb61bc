package markst

import (
	"errors"
	"fmt"
	"math"
	"os"
)

// Unlimited is the print width used for canonical forms. No element is ever
// too wide for it, so line breaking never depends on the width.
const Unlimited = math.MaxInt

// DefaultIndent is used when Options.Indent is empty.
const DefaultIndent = "  "

// Document is the raw text of a markup file tagged with its source path.
type Document struct {
	Path    string
	Content []byte
}

func NewDocument(name, content string) Document {
	return Document{Path: name, Content: []byte(content)}
}

func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Path: path, Content: data}, nil
}

// Whitespace selects how whitespace in text content is treated.
type Whitespace int

const (
	// WhitespaceIgnore drops whitespace-only text, trims text and collapses
	// runs of whitespace to a single space.
	WhitespaceIgnore Whitespace = iota
	// WhitespaceStrict keeps all text between and within elements verbatim.
	WhitespaceStrict
)

func (ws Whitespace) String() string {
	switch ws {
	case WhitespaceIgnore:
		return "ignore"
	case WhitespaceStrict:
		return "strict"
	}
	return fmt.Sprintf("Whitespace(%d)", int(ws))
}

func (ws Whitespace) MarshalText() ([]byte, error) { return []byte(ws.String()), nil }

func (ws *Whitespace) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ignore", "":
		*ws = WhitespaceIgnore
	case "strict":
		*ws = WhitespaceStrict
	default:
		return fmt.Errorf("unknown whitespace policy '%s'", text)
	}
	return nil
}

// AttrOrder selects whether attribute order is significant.
type AttrOrder int

const (
	// AttrSorted prints namespace declarations first, then all other
	// attributes ordered by their qualified name.
	AttrSorted AttrOrder = iota
	// AttrSource keeps attributes in document order.
	AttrSource
)

func (ao AttrOrder) String() string {
	switch ao {
	case AttrSorted:
		return "sorted"
	case AttrSource:
		return "source"
	}
	return fmt.Sprintf("AttrOrder(%d)", int(ao))
}

func (ao AttrOrder) MarshalText() ([]byte, error) { return []byte(ao.String()), nil }

func (ao *AttrOrder) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sorted", "":
		*ao = AttrSorted
	case "source":
		*ao = AttrSource
	default:
		return fmt.Errorf("unknown attribute order '%s'", text)
	}
	return nil
}

// Syntax selects the parser.
type Syntax int

const (
	SyntaxXML Syntax = iota
	// SyntaxHTML uses an HTML5 parser. It repairs unclosed tags like a
	// browser does, so only unreadable input is reported as malformed.
	SyntaxHTML
)

func (s Syntax) String() string {
	switch s {
	case SyntaxXML:
		return "xml"
	case SyntaxHTML:
		return "html"
	}
	return fmt.Sprintf("Syntax(%d)", int(s))
}

func (s Syntax) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Syntax) UnmarshalText(text []byte) error {
	switch string(text) {
	case "xml", "":
		*s = SyntaxXML
	case "html":
		*s = SyntaxHTML
	default:
		return fmt.Errorf("unknown markup syntax '%s'", text)
	}
	return nil
}

// Options control canonicalization. The zero value is ready for use and
// compares XML ignoring whitespace and attribute order.
type Options struct {
	Syntax     Syntax     `yaml:"syntax"`
	Whitespace Whitespace `yaml:"whitespace"`
	Attributes AttrOrder  `yaml:"attributes"`
	// PrintWidth is the line width elements are wrapped at. 0 means
	// Unlimited. Strict whitespace output is never wrapped.
	PrintWidth int    `yaml:"print-width"`
	Indent     string `yaml:"indent"`
	// Exclude holds XPath expressions. Matching elements are removed before
	// comparison.
	Exclude []string `yaml:"exclude"`
	// IgnoreAttrs names attributes (qualified as prefix:local) that are
	// removed from all elements.
	IgnoreAttrs   []string `yaml:"ignore-attrs"`
	StripComments bool     `yaml:"strip-comments"`
}

func (o *Options) width() int {
	if o.PrintWidth <= 0 {
		return Unlimited
	}
	return o.PrintWidth
}

func (o *Options) indent() string {
	if o.Indent == "" {
		return DefaultIndent
	}
	return o.Indent
}

// Canonical is the normalized text of a document. Two documents are
// equivalent iff their canonical texts under the same options are equal.
type Canonical struct {
	Source string
	Text   string
}

func (c Canonical) String() string { return c.Text }

// ErrMalformedMarkup is matched by every MalformedError.
var ErrMalformedMarkup = errors.New("malformed markup")

type MalformedError struct {
	Source string
	Line   int
	err    error
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Source, e.Line, ErrMalformedMarkup, e.err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, ErrMalformedMarkup, e.err)
}

func (e *MalformedError) Unwrap() error { return e.err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedMarkup }
