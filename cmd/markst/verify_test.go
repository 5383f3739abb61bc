package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const helperEnv = "MARKST_CLI_HELPER"

// TestHelperProcess is not a real test. It is the converter run by the
// manifests of the verify and record tests and copies its input to its
// output.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) == "" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	var input, output string
	for i := 1; i+1 < len(args); i += 2 {
		switch args[i] {
		case "--input":
			input = args[i+1]
		case "--output":
			output = args[i+1]
		}
	}
	data, err := os.ReadFile(input)
	if err == nil {
		err = os.WriteFile(output, data, 0666)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(0)
}

// writeManifest writes a manifest with one case per input in dir
func writeManifest(t *testing.T, dir string, inputs map[string]string) string {
	t.Helper()
	var sb strings.Builder
	fmt.Fprintf(&sb, "converter:\n  program: %q\n", os.Args[0])
	sb.WriteString("  args: [\"-test.run=^TestHelperProcess$\", \"--\"]\n")
	fmt.Fprintf(&sb, "  env: [%s=copy]\n", helperEnv)
	fmt.Fprintf(&sb, "out-dir: out\ncases:\n")
	for name, content := range inputs {
		writeFile(t, dir, name+".stl", content)
		fmt.Fprintf(&sb, "  - name: %s\n    input: %s.stl\n", name, name)
	}
	return writeFile(t, dir, "markst.yaml", sb.String())
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir, map[string]string{
		"pass": "<a><b>x</b></a>",
		"fail": "<a><b>y</b></a>",
	})
	writeFile(t, dir, "pass.stl.xml", "<a>\n  <b>x</b>\n</a>\n")
	writeFile(t, dir, "fail.stl.xml", "<a><b>x</b></a>")

	_, _, err := execute(t, "verify", "-m", manifest, "pass")
	require.NoError(t, err)
	if _, err := os.Stat(filepath.Join(dir, "out", "pass", "pass.stl.out.xml")); err != nil {
		t.Errorf("output not kept: %s", err)
	}

	_, report, err := execute(t, "verify", "-m", manifest)
	if exitCode(err) != 1 {
		t.Fatalf("exit code %d for mismatch: %v", exitCode(err), err)
	}
	if !strings.Contains(report, "--- FAIL: fail") || strings.Contains(report, "FAIL: pass") {
		t.Errorf("unexpected report:\n%s", report)
	}

	_, _, err = execute(t, "verify", "-m", manifest, "nosuchcase")
	if exitCode(err) != 2 {
		t.Errorf("exit code %d for unknown case: %v", exitCode(err), err)
	}
	_, _, err = execute(t, "verify", "-m", filepath.Join(dir, "missing.yaml"))
	if exitCode(err) != 2 {
		t.Errorf("exit code %d for missing manifest: %v", exitCode(err), err)
	}
}

func TestVerify_optionFlags(t *testing.T) {
	t.Cleanup(func() { resetFlag(rootCmd, "whitespace", "ignore") })
	dir := t.TempDir()
	manifest := writeManifest(t, dir, map[string]string{"layout": "<a><b>x</b></a>"})
	writeFile(t, dir, "layout.stl.xml", "<a>\n  <b>x</b>\n</a>\n")

	_, _, err := execute(t, "verify", "-m", manifest)
	require.NoError(t, err)
	_, _, err = execute(t, "--whitespace", "strict", "verify", "-m", manifest)
	if !errors.Is(err, errMismatch) {
		t.Errorf("whitespace flag not applied to manifest options: %v", err)
	}
}

func TestRecord(t *testing.T) {
	t.Cleanup(func() { resetFlag(&recordCmd.Command, "force", "false") })
	dir := t.TempDir()
	manifest := writeManifest(t, dir, map[string]string{"new": "<a><b>x</b><c/></a>"})
	ref := filepath.Join(dir, "new.stl.xml")

	_, _, err := execute(t, "record", "-m", manifest, "-w", "10")
	require.NoError(t, err)
	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	const want = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<a>\n  <b>x</b>\n  <c/>\n</a>\n"
	if string(data) != want {
		t.Errorf("recorded:\n%s\nwant:\n%s", data, want)
	}
	_, _, err = execute(t, "verify", "-m", manifest)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ref, []byte("<old/>"), 0666))
	_, _, err = execute(t, "record", "-m", manifest)
	if exitCode(err) != 2 {
		t.Errorf("exit code %d when reference exists: %v", exitCode(err), err)
	}
	if data, _ := os.ReadFile(ref); string(data) != "<old/>" {
		t.Errorf("reference overwritten without --force: %s", data)
	}

	_, _, err = execute(t, "record", "-m", manifest, "--force")
	require.NoError(t, err)
	if data, _ := os.ReadFile(ref); string(data) == "<old/>" {
		t.Error("reference not overwritten with --force")
	}
}
