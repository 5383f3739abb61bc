/*
Package markst checks markup documents against golden reference documents.
A converter under test writes XML or HTML and the output is accepted if it
is equivalent to a previously accepted reference. Equivalence is decided on
the documents' canonical forms, not on their bytes:

	<a><b x="1" y="2">x</b></a>

and

	<a>
	  <b y="2" x="1">x</b>
	</a>

are equivalent with the default Options.

# Canonical Form

Canonicalize parses a document and prints it again:

  - The XML declaration and whitespace outside the root element are
    dropped. CDATA sections become plain text and adjacent text is merged.
  - With WhitespaceIgnore, whitespace-only text is dropped and all other
    text is trimmed with inner runs of XML whitespace collapsed to a single
    space. With WhitespaceStrict text is kept verbatim.
  - With AttrSorted namespace declarations come first, then all attributes
    ordered by qualified name. With AttrSource document order is kept.
  - Character escaping is normalized and empty elements are written as
    <name/>.
  - Elements matched by one of the Exclude XPath expressions and attributes
    named in IgnoreAttrs are removed. Comments are kept unless
    StripComments is set.

An element is printed on one line if it fits into PrintWidth, otherwise its
children go onto separate, indented lines. Canonical forms use the Unlimited
width so that line breaking never decides equivalence. Canonicalization is a
pure function of the document's text and the options, and canonical forms
are fixed points: canonicalizing a canonical form yields the same text.

# Comparing

A Checker compares two documents and returns a Comparison with either the
Equivalent or the Mismatch verdict. A mismatch carries both canonical forms
and can render a unified diff. Documents that cannot be parsed make Check
fail with ErrMalformedMarkup; that is never reported as a mismatch.

Sub-package convert runs the converter under test, marksting integrates
golden files with Go tests and suite runs manifests of test cases.
*/
package markst
