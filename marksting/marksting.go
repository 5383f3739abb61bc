// Package marksting supports golden file tests of converters in Go tests.
//
// A test runs the converter on an input file and compares the produced
// markup with the reference file next to the input:
//
//	func TestConvert(t *testing.T) {
//		cfg := marksting.Config{Converter: &convert.Command{Program: "stl2ttml"}}
//		cfg.Error(t, "testdata/sources_100/1.stl")
//	}
//
// compares the converter's output with testdata/sources_100/1.stl.xml. To
// record a new reference run
//
//	MARKSTING_RECORD=TestConvert go test -run TestConvert
package marksting

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/convert"
)

// When this environment variable is set to a regexp and the name of the
// current test matches, calls to Error or Fatal record the converter's
// output as new reference instead of comparing it. E.g.
//
//	MARKSTING_RECORD=TestRecording go test .
const RecordEnv = "MARKSTING_RECORD"

// GoTestdataDir is the name of Go's default directory for testdata (see go
// help test).
const GoTestdataDir = "testdata"

// StdSuffix is appended to the input file name to get the reference file.
const StdSuffix = ".xml"

type Config struct {
	Converter convert.Converter
	Options   markst.Options
	// Converter output goes to OutDir/<test name>/. Empty means
	// testdata/out.
	OutDir string
	// RefSuffix defaults to StdSuffix.
	RefSuffix string
	// Width of recorded references, 0 means markst.DefaultDiffWidth.
	RefWidth        int
	RecordOverwrite bool
	Logger          *slog.Logger
}

var defaultChecker markst.Checker

// Equal reports an error on t if actual is not equivalent to expected under
// the default options.
func Equal(t *testing.T, hint string, expected, actual markst.Document) error {
	return equal(t, defaultChecker, hint, expected, actual)
}

func (cfg Config) Equal(t *testing.T, hint string, expected, actual markst.Document) error {
	return equal(t, markst.Checker{Options: cfg.Options}, hint, expected, actual)
}

func equal(t *testing.T, chk markst.Checker, hint string, expected, actual markst.Document) error {
	t.Helper()
	cmp, err := chk.Check(expected, actual)
	if err == nil {
		err = cmp.Err()
	}
	if err != nil {
		if hint != "" {
			err = fmt.Errorf("%s: %w", hint, err)
		}
		t.Error(err)
	}
	return err
}

// Error runs the converter on input and compares the output with the
// reference file. A mismatch is reported with t.Error. Converter failures
// and malformed markup end the test.
func (cfg Config) Error(t *testing.T, input string) error {
	t.Helper()
	if recordTest(t) {
		cfg.Record(t, input)
		return nil
	}
	err := cfg.check(t, input)
	var merr markst.MismatchError
	switch {
	case err == nil:
	case errors.As(err, &merr):
		t.Error(err)
	default:
		t.Fatal(err)
	}
	return err
}

func (cfg Config) Fatal(t *testing.T, input string) {
	t.Helper()
	if recordTest(t) {
		cfg.Record(t, input)
	} else if err := cfg.check(t, input); err != nil {
		t.Fatal(err)
	}
}

func recordTest(t *testing.T) bool {
	rec := os.Getenv(RecordEnv)
	if rec == "" {
		return false
	}
	r, err := regexp.Compile(rec)
	if err != nil {
		t.Logf("marksting: invalid regexp '%s' in %s, not recording: %s", rec, RecordEnv, err)
		return false
	}
	return r.MatchString(t.Name())
}

func (cfg Config) RefFile(input string) string {
	if cfg.RefSuffix == "" {
		return input + StdSuffix
	}
	return input + cfg.RefSuffix
}

func (cfg Config) OutFile(t *testing.T, input string) string {
	dir := cfg.OutDir
	if dir == "" {
		dir = filepath.Join(GoTestdataDir, "out")
	}
	return convert.OutputPath(dir, t.Name(), input)
}

func (cfg Config) convert(t *testing.T, input string) (markst.Document, error) {
	if cfg.Converter == nil {
		return markst.Document{}, errors.New("marksting: no converter configured")
	}
	output := cfg.OutFile(t, input)
	cfg.logger().Debug("convert", "test", t.Name(), "input", input, "output", output)
	return convert.Run(t.Context(), cfg.Converter, input, output)
}

func (cfg Config) check(t *testing.T, input string) error {
	reffile := cfg.RefFile(input)
	if _, err := os.Stat(reffile); os.IsNotExist(err) {
		t.Logf("to record a reference file run '%[1]s=%[2]s go test -run %[2]s'",
			RecordEnv,
			t.Name(),
		)
		return fmt.Errorf("reference file %s does not exist", reffile)
	}
	ref, err := markst.ReadDocument(reffile)
	if err != nil {
		return err
	}
	out, err := cfg.convert(t, input)
	if err != nil {
		return err
	}
	cmp, err := markst.Checker{Options: cfg.Options}.Check(ref, out)
	if err != nil {
		return err
	}
	return cmp.Err()
}

// Record runs the converter on input and writes its output as reference
// file. Recording fails the test so that it cannot pass unnoticed.
func (cfg Config) Record(t *testing.T, input string) {
	t.Helper()
	reffile, err := cfg.record(t, input)
	if err != nil {
		t.Fatal(err)
	}
	t.Errorf("marksting recorder wrote: %s", reffile)
}

func (cfg Config) record(t *testing.T, input string) (string, error) {
	reffile := cfg.RefFile(input)
	if _, err := os.Stat(reffile); !os.IsNotExist(err) && !cfg.RecordOverwrite {
		return "", fmt.Errorf("reference file '%s' already exists", reffile)
	}
	out, err := cfg.convert(t, input)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(reffile), 0777); err != nil {
		return "", err
	}
	wr, err := os.Create(reffile)
	if err != nil {
		return "", err
	}
	defer wr.Close()
	prep := markst.Prepare{Options: cfg.Options, Width: cfg.RefWidth}
	if err = prep.Document(wr, out); err != nil {
		return "", err
	}
	return reffile, wr.Close()
}

func (cfg Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}
