// Package cond derives the guard predicates under which a pattern applies.
//
// Guards are target independent values; the target profile decides how each
// one is spelled in the generated code.
package cond

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/raymyers/ralph-isel/pkg/pattern"
)

// Guard is one boolean predicate over the node being lowered
type Guard interface {
	fmt.Stringer
	implGuard()
}

// Mnemonic holds when the node's opcode is Name. Only the auxiliary
// derivers use it; the per-mnemonic functions are already selected by the
// dispatcher.
type Mnemonic struct {
	Name string
}

// OperandKind holds when operand Pos (1, 2 or 3) is of kind Kind
type OperandKind struct {
	Pos  int
	Kind pattern.OpVariant
}

// OutputKind holds when the node's output is of kind Kind
type OutputKind struct {
	Kind pattern.OpVariant
}

// TypeIs holds when the node type equals the named type exactly
type TypeIs struct {
	Name string
}

// IsInt holds for integer types regardless of signedness
type IsInt struct{}

// IsSigned holds for signed types, or for everything else when Negate is set
type IsSigned struct {
	Negate bool
}

// IsFloat holds for floating point types, or for everything else when Negate is set
type IsFloat struct {
	Negate bool
}

// VectorShape holds for vector types of Count Elem lanes
type VectorShape struct {
	Count int
	Elem  string
}

func (Mnemonic) implGuard()    {}
func (OperandKind) implGuard() {}
func (OutputKind) implGuard()  {}
func (TypeIs) implGuard()      {}
func (IsInt) implGuard()       {}
func (IsSigned) implGuard()    {}
func (IsFloat) implGuard()     {}
func (VectorShape) implGuard() {}

func (g Mnemonic) String() string    { return "opcode == " + g.Name }
func (g OperandKind) String() string { return fmt.Sprintf("op%d is %v", g.Pos, g.Kind) }
func (g OutputKind) String() string  { return fmt.Sprintf("out is %v", g.Kind) }
func (g TypeIs) String() string      { return "type == " + g.Name }
func (IsInt) String() string         { return "type is int" }
func (g VectorShape) String() string { return fmt.Sprintf("type is <%dx%s>", g.Count, g.Elem) }

func (g IsSigned) String() string {
	if g.Negate {
		return "!(type is signed)"
	}
	return "type is signed"
}

func (g IsFloat) String() string {
	if g.Negate {
		return "!(type is float)"
	}
	return "type is float"
}

// Synthesize returns the guards of v in emission order: left, right and
// third operand kinds, output kind, then the type check. Absent and "any"
// constraints produce no guard.
func Synthesize(v pattern.Variant) []Guard {
	var gs []Guard

	for pos := 1; pos <= 3; pos++ {
		if k := v.Operand(pos); k != nil && *k != pattern.Any {
			gs = append(gs, OperandKind{Pos: pos, Kind: *k})
		}
	}

	if v.Out != nil && *v.Out != pattern.Any {
		gs = append(gs, OutputKind{Kind: *v.Out})
	}

	if g := TypeGuard(v.Type); g != nil {
		gs = append(gs, g)
	}

	return gs
}

// Full is Synthesize preceded by the opcode check
func Full(v pattern.Variant) []Guard {
	return append([]Guard{Mnemonic{Name: v.Mnemonic}}, Synthesize(v)...)
}

// TypeGuard lowers a type qualifier. It returns nil for an unconstrained type.
func TypeGuard(q pattern.TypeQual) Guard {
	switch q := q.(type) {
	case nil:
		return nil
	case pattern.Vector:
		return VectorShape{Count: q.Count, Elem: q.Elem}
	case pattern.Scalar:
		return TypeIs{Name: q.Name}
	case pattern.Semantic:
		switch q {
		case pattern.QualInt:
			return IsInt{}
		case pattern.QualSigned:
			return IsSigned{}
		case pattern.QualUnsigned:
			return IsSigned{Negate: true}
		case pattern.QualFloat:
			return IsFloat{}
		case pattern.QualNoFloat:
			return IsFloat{Negate: true}
		}
	}

	panic(fmt.Sprintf("unsupported type qualifier %#v", q))
}

// Subsumes reports whether every guard in general also appears in specific,
// that is whether any node accepted by specific is also accepted by general.
func Subsumes(general, specific []Guard) bool {
	return lo.Every(specific, general)
}
