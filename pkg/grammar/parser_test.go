package grammar

import (
	"strings"
	"testing"
)

func TestParsePatternTree(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "minimal",
			input: "pattern nop () {\n}",
			want:  `(file (pattern (mnemonic "nop") (operands) (block)))`,
		},
		{
			name: "operands output and type",
			input: `pattern add (gr, imm) -> gr (int) {
    lea $out, [$1 + $2]
}`,
			want: `(file (pattern (mnemonic "add") (operands "gr, imm") (output "gr") (type_ann "(int)") (block (template "lea $out, [$1 + $2]"))))`,
		},
		{
			name: "third operand and vector",
			input: `pattern select (gr, gr; gr) -> gr < 4 x F32 > {
    > if node.Op(3).IsZero() {
    mov $out, $2
    > }
}`,
			want: `(file (pattern (mnemonic "select") (operands "gr, gr" (third "gr")) (output "gr") (type_ann "< 4 x F32 >") (block (literal "if node.Op(3).IsZero() {") (template "mov $out, $2") (literal "}"))))`,
		},
		{
			name: "clauses",
			input: `asm x86;
pattern div (gr, gr) -> gr (signed)
    maps %t0: gr, %t1 : fp;
    clobbers rax, rdx;
    hook fixupDiv;
{
    idiv $2
}`,
			want: `(file (asm_decl "x86") (pattern (mnemonic "div") (operands "gr, gr") (output "gr") (type_ann "(signed)") (maps (map "%t0: gr") (map "%t1 : fp")) (clobbers (reg "rax") (reg "rdx")) (hook "fixupDiv") (block (template "idiv $2"))))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := root.String(); got != tt.want {
				t.Errorf("tree mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestParsePositions(t *testing.T) {
	root, err := Parse("\n\npattern add (gr) {\n  inc $1\n}\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pat := root.Children[0]
	if pat.Line != 3 || pat.Column != 1 {
		t.Errorf("pattern position: got %d:%d, want 3:1", pat.Line, pat.Column)
	}

	tmpl := pat.Child(RuleBlock).Children[0]
	if tmpl.Line != 4 {
		t.Errorf("template line: got %d, want 4", tmpl.Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing mnemonic", "pattern (gr) {\n}", "expected mnemonic"},
		{"missing parens", "pattern add gr {\n}", "expected '(' before operand kinds"},
		{"dangling comma", "pattern add (gr,) {\n}", "expected operand kind after ','"},
		{"missing output kind", "pattern add (gr) -> {\n}", "expected output kind"},
		{"empty type", "pattern add (gr) () {\n}", "empty type annotation"},
		{"bad map", "pattern add (gr) maps t0: gr; {\n}", "expected temporary name"},
		{"missing semicolon", "pattern add (gr) hook h {\n}", "expected ;"},
		{"unterminated block", "pattern add (gr) {\n  inc $1\n", "unterminated instruction block"},
		{"stray token", "add", "expected pattern or asm declaration"},
		{"asm without name", "asm ;", "expected assembly parser name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantMsg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestParseRecoversAfterError(t *testing.T) {
	p := New(`pattern (gr) {
}
pattern add (gr) {
    inc $1
}
pattern sub gr {
}`)
	root := p.ParseFile()

	if len(p.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(p.Errors()), p.Errors())
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected the valid pattern to survive, got %d children", len(root.Children))
	}
	if mn := root.Children[0].Child(RuleMnemonic); mn == nil || mn.Text != "add" {
		t.Errorf("expected surviving pattern 'add', got %v", root.Children[0])
	}
}

func TestRuleString(t *testing.T) {
	if RuleTemplate.String() != "template" {
		t.Errorf("got %q", RuleTemplate.String())
	}
	if Rule(99).String() != "rule(99)" {
		t.Errorf("got %q", Rule(99).String())
	}
}
