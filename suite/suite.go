// Package suite runs a set of golden file cases against a converter. Cases
// run in parallel and each one writes to its own output directory, so
// cases never see each other's output.
package suite

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/convert"
)

type Suite struct {
	Converter convert.Converter
	Checker   markst.Checker
	OutDir    string
	// Maximum number of cases run at the same time, 0 means GOMAXPROCS.
	Parallel int
	Cases    []Case
	Logger   *slog.Logger
}

type CaseResult struct {
	Case   Case
	Output string
	// Comparison is nil if the case failed before comparing.
	Comparison *markst.Comparison
	Err        error
	Duration   time.Duration
}

func (r *CaseResult) Passed() bool {
	return r.Err == nil && r.Comparison != nil && r.Comparison.Equivalent()
}

// Error returns the case's error or a markst.MismatchError.
func (r *CaseResult) Error() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Comparison == nil {
		return nil
	}
	return r.Comparison.Err()
}

// Run runs all cases and returns their results in case order. A failing case
// does not stop the others. Cancelling ctx makes the remaining cases fail.
func (s *Suite) Run(ctx context.Context) []CaseResult {
	return s.each(ctx, s.runCase)
}

func (s *Suite) each(ctx context.Context, do func(context.Context, Case) CaseResult) []CaseResult {
	res := make([]CaseResult, len(s.Cases))
	p := pool.New().WithMaxGoroutines(s.parallel())
	for i := range s.Cases {
		p.Go(func() { res[i] = do(ctx, s.Cases[i]) })
	}
	p.Wait()
	return res
}

// Select restricts the suite to the named cases.
func (s *Suite) Select(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	byName := make(map[string]Case, len(s.Cases))
	for _, c := range s.Cases {
		byName[c.Name] = c
	}
	sel := make([]Case, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return fmt.Errorf("no case '%s'", n)
		}
		sel = append(sel, c)
	}
	s.Cases = sel
	return nil
}

func (s *Suite) parallel() int {
	if s.Parallel > 0 {
		return s.Parallel
	}
	return runtime.GOMAXPROCS(0)
}

func (s *Suite) runCase(ctx context.Context, c Case) (res CaseResult) {
	log := s.logger().With("case", c.Name)
	res.Case = c
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		switch {
		case res.Err != nil:
			log.Error("case failed", "input", c.Input, "err", res.Err)
		case res.Passed():
			log.Info("case passed", "duration", res.Duration)
		default:
			log.Warn("case mismatch", "reference", c.Reference, "output", res.Output)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	ref, err := markst.ReadDocument(c.Reference)
	if err != nil {
		res.Err = fmt.Errorf("reference: %w", err)
		return res
	}
	res.Output = convert.OutputPath(s.OutDir, c.Name, c.Input)
	out, err := convert.Run(ctx, s.Converter, c.Input, res.Output)
	if err != nil {
		res.Err = err
		return res
	}
	res.Comparison, res.Err = s.Checker.Check(ref, out)
	return res
}

func (s *Suite) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Summary counts passed and failed cases.
func Summary(results []CaseResult) (passed, failed int) {
	for i := range results {
		if results[i].Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
