package target

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/pattern"
)

// X86 encodes operands for x86-64: at most one memory operand per
// instruction and no floating point immediates.
type X86 struct{}

var x86Sizes = map[string]int{
	"i8": 1, "u8": 1,
	"i16": 2, "u16": 2,
	"i32": 4, "u32": 4, "f32": 4,
	"i64": 8, "u64": 8, "f64": 8, "ptr": 8,
}

func (X86) Name() string { return "x86" }

func (X86) Profile() Profile { return DefaultProfile() }

func (X86) ScalarSize(name string) (int, bool) {
	n, ok := x86Sizes[strings.ToLower(name)]
	return n, ok
}

func (X86) Encode(v pattern.Variant, pos int) (Encoding, error) {
	k := v.Operand(pos)
	if k == nil {
		return Encoding{}, errors.New("operand %d of %v is unconstrained", pos, v)
	}

	float := isFloatType(v.Type)

	switch *k {
	case pattern.Gr, pattern.Fp:
		return Encoding{Steps: []Strategy{Direct}}, nil
	case pattern.Imm:
		if float {
			return Encoding{Steps: []Strategy{Constant, Direct}}, nil
		}

		return Encoding{Steps: []Strategy{Direct}}, nil
	case pattern.Mem:
		for p := 1; p < pos; p++ {
			if prev := v.Operand(p); prev != nil && *prev == pattern.Mem {
				return x86Load(v.Type, float), nil
			}
		}

		return Encoding{Steps: []Strategy{Direct}}, nil
	case pattern.Any:
		return x86Load(v.Type, float), nil
	}

	return Encoding{}, errors.New("operand %d of %v: no x86 encoding for %v", pos, v, *k)
}

func x86Load(q pattern.TypeQual, float bool) Encoding {
	e := Encoding{Steps: []Strategy{Compute}, Class: pattern.Gr, Load: "mov"}
	if !float {
		return e
	}

	e.Class = pattern.Fp

	switch q := q.(type) {
	case pattern.Vector:
		e.Load = "movups"
	case pattern.Scalar:
		if strings.EqualFold(q.Name, "f32") {
			e.Load = "movss"
		} else {
			e.Load = "movsd"
		}
	default:
		e.Load = "movsd"
	}

	return e
}

func isFloatType(q pattern.TypeQual) bool {
	switch q := q.(type) {
	case pattern.Semantic:
		return q == pattern.QualFloat
	case pattern.Scalar:
		return strings.EqualFold(q.Name, "f32") || strings.EqualFold(q.Name, "f64")
	case pattern.Vector:
		return strings.HasPrefix(strings.ToLower(q.Elem), "f")
	}

	return false
}
