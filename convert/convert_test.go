package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const helperEnv = "MARKST_CONVERT_HELPER"

// TestHelperProcess is not a real test. It is the converter program run by
// the other tests. The mode is selected by the helperEnv variable.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	var input, output string
	for i := 1; i+1 < len(args); i += 2 {
		switch args[i] {
		case "--input", "-i":
			input = args[i+1]
		case "--output", "-o":
			output = args[i+1]
		}
	}
	switch mode {
	case "copy":
		data, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err = os.WriteFile(output, data, 0666); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	case "fail":
		fmt.Fprintln(os.Stderr, "cannot decode", input)
		os.Exit(1)
	case "nooutput":
	case "hang":
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func helperCommand(mode string) *Command {
	return &Command{
		Program: os.Args[0],
		Args:    []string{"-test.run=^TestHelperProcess$", "--"},
		Env:     []string{helperEnv + "=" + mode},
	}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	input := filepath.Join(t.TempDir(), "1.stl")
	require.NoError(t, os.WriteFile(input, []byte(content), 0666))
	return input
}

func TestRun(t *testing.T) {
	input := writeInput(t, "<tt><p>x</p></tt>")
	output := filepath.Join(t.TempDir(), "out", "1.stl.xml")
	doc, err := Run(context.Background(), helperCommand("copy"), input, output)
	require.NoError(t, err)
	if doc.Path != output {
		t.Errorf("document path '%s', want '%s'", doc.Path, output)
	}
	if string(doc.Content) != "<tt><p>x</p></tt>" {
		t.Errorf("unexpected content [%s]", doc.Content)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not kept: %s", err)
	}
}

func TestRun_converterFailed(t *testing.T) {
	input := writeInput(t, "garbage")
	output := filepath.Join(t.TempDir(), "1.stl.xml")
	_, err := Run(context.Background(), helperCommand("fail"), input, output)
	if !errors.Is(err, ErrConverterFailed) {
		t.Fatalf("want ErrConverterFailed, got %v", err)
	}
	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	if perr.ExitCode != 1 {
		t.Errorf("exit code %d, want 1", perr.ExitCode)
	}
	if !strings.Contains(string(perr.Stderr), "cannot decode") {
		t.Errorf("stderr not captured: [%s]", perr.Stderr)
	}
	if !strings.Contains(err.Error(), input) {
		t.Errorf("error does not name the input: %s", err)
	}
}

func TestRun_outputNotProduced(t *testing.T) {
	input := writeInput(t, "<tt/>")
	output := filepath.Join(t.TempDir(), "1.stl.xml")
	require.NoError(t, os.WriteFile(output, []byte("<stale/>"), 0666))
	_, err := Run(context.Background(), helperCommand("nooutput"), input, output)
	if !errors.Is(err, ErrOutputNotProduced) {
		t.Fatalf("want ErrOutputNotProduced, got %v", err)
	}
}

func TestRun_timeout(t *testing.T) {
	input := writeInput(t, "<tt/>")
	output := filepath.Join(t.TempDir(), "1.stl.xml")
	cmd := helperCommand("hang")
	cmd.Timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := Run(context.Background(), cmd, input, output)
	if !errors.Is(err, ErrConverterTimeout) {
		t.Fatalf("want ErrConverterTimeout, got %v", err)
	}
	if d := time.Since(start); d > 30*time.Second {
		t.Errorf("timeout took %s", d)
	}
}

func TestCommand_flags(t *testing.T) {
	input := writeInput(t, "<tt/>")
	output := filepath.Join(t.TempDir(), "1.stl.xml")
	cmd := helperCommand("copy")
	cmd.InputFlag, cmd.OutputFlag = "-i", "-o"
	_, err := Run(context.Background(), cmd, input, output)
	require.NoError(t, err)
}

func TestCommand_noProgram(t *testing.T) {
	err := (&Command{}).Convert(context.Background(), "in", "out")
	if err == nil {
		t.Fatal("expected error for empty program")
	}
}

func TestRun_converterFunc(t *testing.T) {
	var called bool
	conv := ConverterFunc(func(_ context.Context, input, output string) error {
		called = true
		return os.WriteFile(output, []byte("<a/>"), 0666)
	})
	output := filepath.Join(t.TempDir(), "a", "b", "out.xml")
	doc, err := Run(context.Background(), conv, "in.stl", output)
	require.NoError(t, err)
	if !called || string(doc.Content) != "<a/>" {
		t.Errorf("unexpected result called=%t [%s]", called, doc.Content)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		caseID, input, want string
	}{
		{"TestConvert/1", "sources_100/1.stl", filepath.Join("out", "TestConvert_1", "1.stl.out.xml")},
		{"sample 2", "/x/2.stl", filepath.Join("out", "sample_2", "2.stl.out.xml")},
	}
	for _, tt := range tests {
		t.Run(tt.caseID, func(t *testing.T) {
			if got := OutputPath("out", tt.caseID, tt.input); got != tt.want {
				t.Errorf("OutputPath = '%s', want '%s'", got, tt.want)
			}
		})
	}
	if OutputPath("out", "a", "x.stl") == OutputPath("out", "b", "x.stl") {
		t.Error("cases share an output path")
	}
}
