package tablegen

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-isel/pkg/target"
)

// GenTestSpec is one case of tablegen.yaml
type GenTestSpec struct {
	Name         string   `yaml:"name"`
	Input        string   `yaml:"input"`
	Expect       []string `yaml:"expect"`        // strings that must appear in output
	ExpectOrder  []string `yaml:"expect_order"`  // strings that must appear in this order
	ExpectUnique []string `yaml:"expect_unique"` // strings that must appear exactly once
	ExpectNot    []string `yaml:"expect_not"`    // strings that must not appear
	Error        string   `yaml:"error"`         // generation fails with this message
}

// GenTestFile is the tablegen.yaml file structure
type GenTestFile struct {
	Tests []GenTestSpec `yaml:"tests"`
}

func TestGenerateYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/tablegen.yaml")
	require.NoError(t, err)

	var testFile GenTestFile
	require.NoError(t, yaml.Unmarshal(data, &testFile))
	require.NotEmpty(t, testFile.Tests)

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			res, err := Generate(context.Background(), "case.isel", []byte(tc.Input), Options{})

			if tc.Error != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.Error)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)

			out := string(res.Source)

			for _, s := range tc.Expect {
				assert.Contains(t, out, s)
			}

			rest := out
			for _, s := range tc.ExpectOrder {
				i := strings.Index(rest, s)
				if !assert.True(t, i >= 0, "%q missing or out of order in:\n%s", s, out) {
					break
				}
				rest = rest[i+len(s):]
			}

			for _, s := range tc.ExpectUnique {
				assert.Equal(t, 1, strings.Count(out, s), "%q should appear exactly once", s)
			}

			for _, s := range tc.ExpectNot {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestGenerateExampleFile(t *testing.T) {
	data, err := os.ReadFile("../../testdata/x86.isel")
	require.NoError(t, err)

	res, err := Generate(context.Background(), "x86.isel", data, Options{WarnShadow: true})
	require.NoError(t, err)

	out := string(res.Source)

	assert.True(t, strings.HasPrefix(out, "// Code generated by ralph-isel from x86.isel. DO NOT EDIT."))
	assert.Contains(t, out, "package isel")
	assert.Contains(t, out, "// asm: x86")
	assert.Contains(t, out, "// the call target is resolved by fixupCall")
	assert.Contains(t, out, "MemDispl(node.Op(1), MemMinus, node.Op(2))")
	assert.Contains(t, out, "if node.Type().IsVector(4, TypeF32) {")
	assert.Contains(t, out, "if node.Type() == TypeF64 {")
	assert.Contains(t, out, "{Slot: 256, Class: ClassGr, Size: node.Type().Size()}")
	assert.Contains(t, out, "return []Reg{RAX, RCX, RDX, RSI, RDI, R8, R9, R10, R11}")
	assert.Empty(t, res.Shadowed)
	assert.Equal(t, 14, res.Patterns)

	for _, fn := range []string{"Compile", "compileAdd", "compileSub", "compileDiv", "compileCmp", "compileLoad", "compileStore", "compileCopy", "compileCall", "compileRet", "Temporaries", "Clobbers"} {
		assert.Equal(t, 1, strings.Count(out, "func "+fn+"("), fn)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	data, err := os.ReadFile("../../testdata/x86.isel")
	require.NoError(t, err)

	first, err := Generate(context.Background(), "x86.isel", data, Options{})
	require.NoError(t, err)
	second, err := Generate(context.Background(), "x86.isel", data, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Source, second.Source)
}

func TestGenerateOptions(t *testing.T) {
	src := []byte("pattern add (gr, gr) {\n    add $1, $2\n}\n")

	prof := target.DefaultProfile()
	prof.Dispatch = "Select"

	res, err := Generate(context.Background(), "p.isel", src, Options{
		Target:   target.X86{},
		Profile:  &prof,
		Package:  "x86sel",
		NoFormat: true,
	})
	require.NoError(t, err)

	out := string(res.Source)
	assert.Contains(t, out, "package x86sel\n")
	assert.Contains(t, out, "func Select(module *Module, asm *[]Instr, node *Node) {")
	assert.Contains(t, out, "\t\tcompileAdd(module, asm, node)\n")
}

func TestGenerateWarnShadow(t *testing.T) {
	src := []byte(`
pattern add (gr) {
    inc $1
}
pattern add (gr, imm) {
    add $1, $2
}
`)

	res, err := Generate(context.Background(), "p.isel", src, Options{WarnShadow: true})
	require.NoError(t, err)
	require.Len(t, res.Shadowed, 1)
	assert.Equal(t, 5, res.Shadowed[0].Later.Line)

	// the diagnostic never changes output
	plain, err := Generate(context.Background(), "p.isel", src, Options{})
	require.NoError(t, err)
	assert.Equal(t, plain.Source, res.Source)
	assert.Nil(t, plain.Shadowed)
}

func TestParse(t *testing.T) {
	f, err := Parse(context.Background(), "asm x86;\npattern ret () {\n    ret\n}\n")
	require.NoError(t, err)
	assert.Equal(t, "x86", f.AsmParser)
	require.Len(t, f.Patterns, 1)

	_, err = Parse(context.Background(), "pattern")
	assert.Error(t, err)
}

func TestGenerateWithProfileFile(t *testing.T) {
	f, err := os.Open("../target/testdata/arm.yaml")
	require.NoError(t, err)
	defer f.Close()

	prof, err := target.LoadProfile(f, target.DefaultProfile())
	require.NoError(t, err)

	src := []byte(`pattern div (gr, imm) -> gr (f64) maps %t0: fp; clobbers rax; hook fix; {
    movsd %t0, $1
    divsd $out, [$2]
}
pattern mov (any) -> gr {
    mov $out, $1
}
`)

	res, err := Generate(context.Background(), "arm.isel", src, Options{Profile: &prof, ProfileSrc: "arm.yaml"})
	require.NoError(t, err)

	out := string(res.Source)

	for _, s := range []string{
		"// profile: arm.yaml",
		"package lower",
		"func Compile(m *ir.Module, out *[]ir.Inst, n *ir.Node) {",
		"switch n.Kind() {",
		"compileDiv(m, out, n)",
		"op2 := m.Constant(n.Arg(2))",
		"*out = append(*out, ir.NewInst2(ir.MDivsd, n.Result(), ir.Mem(op2)))",
		"*out = append(*out, ir.NewInst2(ir.MMov, ir.Scratch(256), n.Arg(1)))",
		"fix(m, out, n)",
		`panic(fmt.Sprintf("compileDiv: no pattern for %v", n))`,
		"func Temporaries(n *ir.Node) []ir.Temp {",
		"return []ir.Temp{{Slot: 0, Class: ir.ClassFp, Size: 8}}",
		"func Clobbers(n *ir.Node) []ir.Reg {",
		"return []ir.Reg{ir.RAX}",
	} {
		assert.Contains(t, out, s)
	}

	for _, s := range []string{"node.", "*asm", "module.", "[]Temporary", "[]Reg", " Tmp("} {
		assert.NotContains(t, out, s)
	}
}
