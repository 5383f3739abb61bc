// Package convert runs the converter under test. The converter is a black
// box that reads an input file and writes a markup file:
//
//	<program> [args...] --input <input> --output <output>
//
// A failing converter is never retried and its output file is left on disk
// for inspection.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fractalqb/markst"
)

var (
	ErrConverterFailed   = errors.New("converter failed")
	ErrConverterTimeout  = errors.New("converter timed out")
	ErrOutputNotProduced = errors.New("converter produced no output")
)

// DefaultTimeout bounds a Command with zero Timeout.
const DefaultTimeout = time.Minute

// Converter converts the input file into a markup file at output.
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

type ConverterFunc func(ctx context.Context, input, output string) error

func (f ConverterFunc) Convert(ctx context.Context, input, output string) error {
	return f(ctx, input, output)
}

// Command runs an external converter program.
type Command struct {
	Program string   `yaml:"program" validate:"required"`
	Args    []string `yaml:"args"`
	// Flag names, default to "--input" and "--output"
	InputFlag  string `yaml:"input-flag"`
	OutputFlag string `yaml:"output-flag"`
	// Working directory of the converter, empty for the current one.
	Dir string `yaml:"dir"`
	// Env is added to the current environment.
	Env     []string      `yaml:"env"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	Logger *slog.Logger `yaml:"-"`
}

// ProcessError carries the converter's captured output.
type ProcessError struct {
	Program  string
	Input    string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	err      error
}

func (e *ProcessError) Error() string {
	var sb strings.Builder
	switch {
	case errors.Is(e.err, ErrConverterTimeout):
		fmt.Fprintf(&sb, "%s %s: %s", e.Program, e.Input, e.err)
	default:
		fmt.Fprintf(&sb, "%s %s: %s with exit code %d", e.Program, e.Input, e.err, e.ExitCode)
	}
	if len(e.Stderr) > 0 {
		sb.WriteString("\nstderr:\n")
		sb.Write(e.Stderr)
	}
	return sb.String()
}

func (e *ProcessError) Unwrap() error { return e.err }

func (c *Command) Convert(ctx context.Context, input, output string) error {
	if c.Program == "" {
		return errors.New("converter program not set")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, c.Args...)
	args = append(args,
		flagOr(c.InputFlag, "--input"), input,
		flagOr(c.OutputFlag, "--output"), output,
	)
	cmd := exec.CommandContext(ctx, c.Program, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := c.logger()
	log.Debug("run converter", "program", c.Program, "args", args)
	start := time.Now()
	err := cmd.Run()
	log.Debug("converter done",
		"program", c.Program,
		"input", input,
		"duration", time.Since(start),
		"err", err,
	)
	if err == nil {
		return nil
	}
	perr := &ProcessError{
		Program:  c.Program,
		Input:    input,
		ExitCode: -1,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		perr.err = ErrConverterTimeout
	case errors.As(err, &exitErr):
		perr.ExitCode = exitErr.ExitCode()
		perr.err = ErrConverterFailed
	default:
		perr.err = fmt.Errorf("%w: %w", ErrConverterFailed, err)
	}
	return perr
}

func (c *Command) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func flagOr(flag, def string) string {
	if flag == "" {
		return def
	}
	return flag
}

// Run converts input to output and reads the produced document. A file left
// at output by an earlier run is removed first so that it cannot be mistaken
// for the converter's result.
func Run(ctx context.Context, conv Converter, input, output string) (markst.Document, error) {
	if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return markst.Document{}, fmt.Errorf("remove stale output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0777); err != nil {
		return markst.Document{}, err
	}
	if err := conv.Convert(ctx, input, output); err != nil {
		return markst.Document{}, err
	}
	doc, err := markst.ReadDocument(output)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return doc, fmt.Errorf("%w: %s from %s", ErrOutputNotProduced, output, input)
	case err != nil:
		return doc, err
	}
	return doc, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputPath returns an output file path in dir that is unique for each
// caseID. Parallel cases must not share output files.
func OutputPath(dir, caseID, input string) string {
	id := unsafeName.ReplaceAllString(caseID, "_")
	return filepath.Join(dir, id, filepath.Base(input)+".out.xml")
}
