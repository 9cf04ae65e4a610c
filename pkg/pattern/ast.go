// Package pattern defines the typed model of a pattern file and the builder
// that populates it from a grammar parse tree.
package pattern

import (
	"fmt"
	"strings"
)

// File is one parsed pattern file
type File struct {
	Patterns []*Pattern
	// AsmParser names the assembly syntax parser declared with "asm". It is
	// recorded, not interpreted.
	AsmParser string
}

// Pattern is one rewrite rule. Patterns are never merged, even when they
// share a mnemonic.
type Pattern struct {
	Variant  Variant
	Lines    []Line
	Maps     []Map
	Clobbers []string
	Hook     string // called after the body was emitted, optional
	Line     int    // source line of the "pattern" keyword
}

// Variant is the applicability signature of a pattern. A nil field or nil
// Type means unconstrained.
type Variant struct {
	Mnemonic string
	Left     *OpVariant
	Right    *OpVariant
	Third    *OpVariant
	Out      *OpVariant
	Type     TypeQual
}

// String renders the variant in DSL syntax, e.g. "add (gr, imm) -> gr (int)"
func (v Variant) String() string {
	var b strings.Builder
	b.WriteString(v.Mnemonic)
	b.WriteString(" (")
	var ops []string
	for _, op := range []*OpVariant{v.Left, v.Right} {
		if op != nil {
			ops = append(ops, op.String())
		}
	}
	b.WriteString(strings.Join(ops, ", "))
	if v.Third != nil {
		b.WriteString("; ")
		b.WriteString(v.Third.String())
	}
	b.WriteString(")")
	if v.Out != nil {
		fmt.Fprintf(&b, " -> %s", v.Out)
	}
	if v.Type != nil {
		fmt.Fprintf(&b, " %s", v.Type)
	}
	return b.String()
}

// Operand returns the constraint of operand position n (1, 2 or 3)
func (v Variant) Operand(n int) *OpVariant {
	switch n {
	case 1:
		return v.Left
	case 2:
		return v.Right
	case 3:
		return v.Third
	}
	return nil
}

// OpVariant is the storage class an operand is constrained to
type OpVariant int

const (
	Gr  OpVariant = iota // general purpose register
	Fp                   // floating point register
	Imm                  // immediate
	Mem                  // memory
	Any                  // present but unconstrained
)

var opVariantNames = []string{"gr", "fp", "imm", "mem", "any"}

func (o OpVariant) String() string {
	if int(o) >= 0 && int(o) < len(opVariantNames) {
		return opVariantNames[o]
	}
	return "?"
}

// ParseOpVariant maps a DSL token onto the closed set of operand kinds
func ParseOpVariant(tok string) (OpVariant, bool) {
	for i, name := range opVariantNames {
		if name == tok {
			return OpVariant(i), true
		}
	}
	return 0, false
}

// Ptr returns a pointer to a copy of o, for building Variants
func (o OpVariant) Ptr() *OpVariant {
	return &o
}

// TypeQual is the type/category constraint of a Variant
type TypeQual interface {
	fmt.Stringer
	implTypeQual()
}

// Scalar constrains the node type to exactly the named type
type Scalar struct {
	Name string
}

// Semantic constrains the node type to a category
type Semantic int

const (
	QualInt Semantic = iota
	QualSigned
	QualUnsigned
	QualFloat
	QualNoFloat
)

var semanticNames = []string{"int", "signed", "unsigned", "float", "no_float"}

// Vector constrains the node type to a vector of Count Elem values
type Vector struct {
	Count int
	Elem  string
}

func (Scalar) implTypeQual()   {}
func (Semantic) implTypeQual() {}
func (Vector) implTypeQual()   {}

func (s Scalar) String() string { return "(" + s.Name + ")" }
func (v Vector) String() string { return fmt.Sprintf("<%dx%s>", v.Count, v.Elem) }

func (s Semantic) String() string {
	if int(s) >= 0 && int(s) < len(semanticNames) {
		return "(" + semanticNames[s] + ")"
	}
	return "(?)"
}

// Map declares a named temporary and the register class it lives in
type Map struct {
	Name string // %t0
	Kind OpVariant
}

// Line is one line of a pattern body
type Line interface {
	implLine()
}

// Literal is target-language code copied verbatim into the output
type Literal struct {
	Text string
}

// Template is an assembly instruction skeleton with placeholders
type Template struct {
	Text string
	Line int
}

func (Literal) implLine()  {}
func (Template) implLine() {}
