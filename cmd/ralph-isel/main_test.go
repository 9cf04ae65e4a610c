package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const addPattern = `asm x86;

pattern add (gr, imm) -> gr (int) {
    lea $out, [$1 + $2]
}
`

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{"output", "target", "package", "profile", "no-format", "warn-shadow", "verbose", "dparse", "dpatterns"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}

	if f := cmd.Flags().Lookup("target"); f != nil && f.DefValue != "x86" {
		t.Errorf("expected default target x86, got %q", f.DefValue)
	}
}

func TestNoArgsShowsHelp(t *testing.T) {
	out, _, err := execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ralph-isel") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestTooManyArgs(t *testing.T) {
	if _, _, err := execute("a.isel", "b.isel"); err == nil {
		t.Error("expected error for two positional arguments")
	}
}

func TestMissingFile(t *testing.T) {
	out, errOut, err := execute(filepath.Join(t.TempDir(), "missing.isel"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(errOut, "ralph-isel: error reading") {
		t.Errorf("expected read diagnostic, got %q", errOut)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestGenerateToStdout(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)

	out, errOut, err := execute(path)
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, errOut)
	}

	for _, want := range []string{
		"package isel",
		"func Compile(module *Module, asm *[]Instr, node *Node) {",
		"func compileAdd(module *Module, asm *[]Instr, node *Node) {",
		"MemDispl(node.Op(1), MemPlus, node.Op(2))",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestInvalidKindProducesNoOutput(t *testing.T) {
	path := writeFile(t, "bad.isel", "pattern add (reg, gr) {\n    add $1, $2\n}\n")
	outPath := filepath.Join(t.TempDir(), "out.go")

	out, errOut, err := execute("-o", outPath, path)
	if err == nil {
		t.Fatal("expected error for unknown operand kind")
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	if !strings.Contains(errOut, "unknown operand kind") {
		t.Errorf("expected diagnostic, got %q", errOut)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat err = %v", err)
	}
}

func TestOutputFile(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)
	outPath := filepath.Join(t.TempDir(), "isel.go")

	out, _, err := execute("-o", outPath, "--package", "x86isel", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), "package x86isel") {
		t.Errorf("expected package override in %q", data)
	}
}

func TestUnknownTarget(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)

	if _, _, err := execute("--target", "mips", path); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestProfileFlag(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)
	prof := writeFile(t, "prof.yaml", "dispatch: Select\nfunc_prefix: select\n")

	out, errOut, err := execute("--profile", prof, path)
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, errOut)
	}
	if !strings.Contains(out, "func Select(") || !strings.Contains(out, "selectAdd(module, asm, node)") {
		t.Errorf("profile not applied:\n%s", out)
	}
	if !strings.Contains(out, "// profile: "+prof) {
		t.Errorf("profile path missing from header:\n%s", out)
	}

	bad := writeFile(t, "bad.yaml", "no_such_key: 1\n")
	if _, errOut, err := execute("--profile", bad, path); err == nil || !strings.Contains(errOut, "error loading profile") {
		t.Errorf("expected profile error, got %v (%s)", err, errOut)
	}
}

func TestWarnShadow(t *testing.T) {
	path := writeFile(t, "shadow.isel", `pattern add (gr) {
    inc $1
}
pattern add (gr, imm) {
    add $1, $2
}
`)

	_, errOut, err := execute("--warn-shadow", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "warning:") || !strings.Contains(errOut, ":4: pattern add (gr, imm) is shadowed by add (gr) at line 1") {
		t.Errorf("expected shadow warning, got %q", errOut)
	}

	_, errOut, _ = execute(path)
	if errOut != "" {
		t.Errorf("no warnings expected without --warn-shadow, got %q", errOut)
	}
}

func TestDumpParse(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)

	out, _, err := execute("-dparse", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `(asm_decl "x86")` + "\n" +
		`(pattern (mnemonic "add") (operands "gr, imm") (output "gr") (type_ann "(int)") (block (template "lea $out, [$1 + $2]")))` + "\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestDumpPatterns(t *testing.T) {
	path := writeFile(t, "add.isel", addPattern)

	out, _, err := execute("--dpatterns", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "3: add (gr, imm) -> gr (int)\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-dparse", "-o", "x.go", "-dpatterns", "file.isel"})
	want := []string{"--dparse", "-o", "x.go", "--dpatterns", "file.isel"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
