package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/convert"
)

// Manifest is the YAML description of a suite:
//
//	converter:
//	  program: go
//	  args: [run, ./cmd/stl2ttml]
//	  timeout: 30s
//	options:
//	  whitespace: ignore
//	out-dir: out
//	cases:
//	  - name: sample-1
//	    input: sources_100/1.stl
//
// Relative paths are relative to the manifest file.
type Manifest struct {
	Converter convert.Command `yaml:"converter"`
	Options   markst.Options  `yaml:"options"`
	OutDir    string          `yaml:"out-dir"`
	Parallel  int             `yaml:"parallel" validate:"gte=0"`
	Cases     []Case          `yaml:"cases" validate:"required,min=1,unique=Name,dive"`
}

type Case struct {
	Name  string `yaml:"name" validate:"required"`
	Input string `yaml:"input" validate:"required"`
	// Reference defaults to Input with markst's reference suffix ".xml".
	Reference string `yaml:"reference"`
}

// DefaultOutDir is used by manifests without out-dir.
const DefaultOutDir = "out"

var validate = validator.New()

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads a manifest from data and resolves relative paths against
// base.
func Parse(data []byte, base string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.OutDir == "" {
		m.OutDir = DefaultOutDir
	}
	m.OutDir = resolve(base, m.OutDir)
	for i := range m.Cases {
		c := &m.Cases[i]
		c.Input = resolve(base, c.Input)
		if c.Reference == "" {
			c.Reference = c.Input + ".xml"
		} else {
			c.Reference = resolve(base, c.Reference)
		}
	}
	return &m, nil
}

func resolve(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (m *Manifest) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationError(e))
	}
	return fmt.Errorf("invalid manifest: %s", strings.Join(msgs, "; "))
}

func formatValidationError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Manifest.")
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "unique":
		return field + " must have unique " + e.Param() + "s"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, e.Param())
	}
	return fmt.Sprintf("%s failed on '%s'", field, e.Tag())
}

// Suite builds a runnable suite that uses the manifest's converter command.
func (m *Manifest) Suite() *Suite {
	return &Suite{
		Converter: &m.Converter,
		Checker:   markst.Checker{Options: m.Options},
		OutDir:    m.OutDir,
		Parallel:  m.Parallel,
		Cases:     m.Cases,
	}
}
