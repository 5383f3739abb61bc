package markst

import (
	"encoding/xml"
	"io"
)

// Prepare writes reference documents. A reference is the canonical form of
// the subject printed at Width, so it is readable and diffs well when it
// gets updated.
type Prepare struct {
	Options
	// Width 0 means DefaultDiffWidth.
	Width int
}

func (p Prepare) Document(ref io.Writer, subj Document) error {
	t, err := parse(subj, &p.Options)
	if err != nil {
		return err
	}
	width := p.Width
	if width <= 0 {
		width = DefaultDiffWidth
	}
	if p.Syntax == SyntaxXML {
		if _, err = io.WriteString(ref, xml.Header); err != nil {
			return err
		}
	}
	_, err = io.WriteString(ref, t.canonical(width, p.indent()).Text)
	return err
}
