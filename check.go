package markst

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Defaults for the mismatch diff
const (
	DefaultDiffWidth   = 80
	DefaultDiffContext = 3
)

type Verdict int

const (
	Equivalent Verdict = iota
	Mismatch
)

func (v Verdict) String() string {
	switch v {
	case Equivalent:
		return "equivalent"
	case Mismatch:
		return "mismatch"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Comparison is the result of comparing an expected with an actual document.
type Comparison struct {
	Verdict  Verdict
	Expected Canonical
	Actual   Canonical

	expView, actView string
	context          int
}

func (c *Comparison) Equivalent() bool { return c.Verdict == Equivalent }

// Diff returns a unified diff from the expected to the actual document. The
// documents are printed with the checker's DiffWidth so that the diff is
// line oriented even though canonical forms are not wrapped. Equivalent
// comparisons have an empty diff.
func (c *Comparison) Diff() string {
	if c.Verdict == Equivalent {
		return ""
	}
	exp, act := c.expView, c.actView
	if exp == act {
		exp, act = c.Expected.Text, c.Actual.Text
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(exp),
		B:        diffLines(act),
		FromFile: c.Expected.Source,
		ToFile:   c.Actual.Source,
		Context:  c.context,
	})
	if err != nil {
		return fmt.Sprintf("cannot compute diff: %s", err)
	}
	return diff
}

// diffLines splits s into lines that keep their line breaks. The final line
// break does not start another line.
func diffLines(s string) []string {
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}

// Err returns nil for equivalent documents and a MismatchError otherwise.
func (c *Comparison) Err() error {
	if c.Verdict == Equivalent {
		return nil
	}
	return MismatchError{c}
}

// MismatchError reports a Mismatch where an error is expected, e.g. by test
// helpers. A mismatch itself is a verdict, not a failure to compare.
type MismatchError struct {
	*Comparison
}

func (e MismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s does not match %s", e.Actual.Source, e.Expected.Source)
	if d := e.Diff(); d != "" {
		sb.WriteByte('\n')
		sb.WriteString(d)
	}
	return sb.String()
}

// Checker compares markup documents by their canonical forms. A zero value
// is valid for use and may be used concurrently.
type Checker struct {
	Options
	// Width used to print documents for Comparison.Diff, 0 means
	// DefaultDiffWidth.
	DiffWidth int
	// Lines of context in Comparison.Diff, 0 means DefaultDiffContext and a
	// negative value means no context.
	DiffContext int
}

// Check canonicalizes both documents and compares them. The only errors are
// those preventing a comparison, e.g. ErrMalformedMarkup.
func (chk Checker) Check(expected, actual Document) (*Comparison, error) {
	opts := chk.Options
	exp, err := parse(expected, &opts)
	if err != nil {
		return nil, fmt.Errorf("expected: %w", err)
	}
	act, err := parse(actual, &opts)
	if err != nil {
		return nil, fmt.Errorf("actual: %w", err)
	}
	res := &Comparison{
		Expected: exp.canonical(opts.width(), opts.indent()),
		Actual:   act.canonical(opts.width(), opts.indent()),
		context:  chk.diffContext(),
	}
	if res.Expected.Text == res.Actual.Text {
		res.Verdict = Equivalent
		return res, nil
	}
	res.Verdict = Mismatch
	dw := chk.diffWidth()
	res.expView = exp.canonical(dw, opts.indent()).Text
	res.actView = act.canonical(dw, opts.indent()).Text
	return res, nil
}

func (chk Checker) Strings(expected, actual string) (*Comparison, error) {
	return chk.Check(
		NewDocument("expected", expected),
		NewDocument("actual", actual),
	)
}

func (chk Checker) Files(expected, actual string) (*Comparison, error) {
	exp, err := ReadDocument(expected)
	if err != nil {
		return nil, err
	}
	act, err := ReadDocument(actual)
	if err != nil {
		return nil, err
	}
	return chk.Check(exp, act)
}

func (chk Checker) diffWidth() int {
	if chk.DiffWidth <= 0 {
		return DefaultDiffWidth
	}
	return chk.DiffWidth
}

func (chk Checker) diffContext() int {
	switch {
	case chk.DiffContext == 0:
		return DefaultDiffContext
	case chk.DiffContext < 0:
		return 0
	}
	return chk.DiffContext
}
