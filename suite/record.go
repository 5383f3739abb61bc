package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/convert"
)

var ErrReferenceExists = errors.New("reference file exists")

// Record runs the converter for all cases and writes the outputs as new
// references. Existing references are only replaced with overwrite. Results
// of Record have no Comparison; a case succeeded if Err is nil.
func (s *Suite) Record(ctx context.Context, width int, overwrite bool) []CaseResult {
	return s.each(ctx, func(ctx context.Context, c Case) (res CaseResult) {
		res.Case = c
		start := time.Now()
		defer func() { res.Duration = time.Since(start) }()
		if _, err := os.Stat(c.Reference); err == nil && !overwrite {
			res.Err = fmt.Errorf("%w: %s", ErrReferenceExists, c.Reference)
			return res
		}
		res.Output = convert.OutputPath(s.OutDir, c.Name, c.Input)
		out, err := convert.Run(ctx, s.Converter, c.Input, res.Output)
		if err != nil {
			res.Err = err
			return res
		}
		res.Err = s.writeReference(c.Reference, out, width)
		if res.Err == nil {
			s.logger().Info("recorded reference", "case", c.Name, "reference", c.Reference)
		}
		return res
	})
}

func (s *Suite) writeReference(path string, out markst.Document, width int) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	prep := markst.Prepare{Options: s.Checker.Options, Width: width}
	if err = prep.Document(tmp, out); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
