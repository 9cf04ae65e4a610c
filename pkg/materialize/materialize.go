// Package materialize turns pattern operands into references the target can
// encode, emitting the preparatory instructions some operands need.
package materialize

import (
	"slices"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/pattern"
	"github.com/raymyers/ralph-isel/pkg/target"
)

// Scratch slots live above any %tN a pattern can reasonably declare
const (
	ScratchBase  = 256
	ScratchSlots = 8
)

// ErrEncoding is returned when a target hands out an unusable strategy chain
var ErrEncoding = errors.New("operand cannot be encoded")

// Scratch is a register slot reserved for a computed operand
type Scratch struct {
	Pos   int
	Slot  int
	Class pattern.OpVariant
}

type operand struct {
	enc     target.Encoding
	slot    int // valid for Compute
	ref     string
	emitted bool
}

// Materializer resolves the operands of one pattern. Encodings and scratch
// slots are fixed up front in position order; preparatory code is handed out
// once per operand.
type Materializer struct {
	p       *target.Profile
	ops     [4]*operand // indexed by position, 0 unused
	temps   []int
	scratch []Scratch
}

// New decides the encoding of every constrained operand of pat
func New(t target.Target, p *target.Profile, pat *pattern.Pattern) (*Materializer, error) {
	m := &Materializer{p: p}

	for _, mp := range pat.Maps {
		slot, ok := pattern.TempSlot(mp.Name)
		if !ok {
			return nil, errors.New("bad temporary name %q", mp.Name)
		}

		m.temps = append(m.temps, slot)
	}

	for pos := 1; pos <= 3; pos++ {
		if pat.Variant.Operand(pos) == nil {
			continue
		}

		enc, err := t.Encode(pat.Variant, pos)
		if err != nil {
			return nil, errors.Wrap(err, "operand %d", pos)
		}

		if !valid(enc.Steps) {
			return nil, errors.Wrap(ErrEncoding, "operand %d of %v: strategy %v", pos, pat.Variant, enc.Steps)
		}

		op := &operand{enc: enc}

		if computes(enc.Steps) {
			if len(m.scratch) == ScratchSlots {
				return nil, errors.New("operand %d of %v: out of scratch slots", pos, pat.Variant)
			}

			op.slot = ScratchBase + len(m.scratch)
			m.scratch = append(m.scratch, Scratch{Pos: pos, Slot: op.slot, Class: enc.Class})
		}

		m.ops[pos] = op
	}

	return m, nil
}

func valid(steps []target.Strategy) bool {
	if len(steps) > 0 && steps[0] == target.Constant {
		steps = steps[1:]
	}

	return len(steps) == 1 && (steps[0] == target.Direct || steps[0] == target.Compute)
}

func computes(steps []target.Strategy) bool {
	return slices.Contains(steps, target.Compute)
}

// Scratch lists the slots reserved for computed operands in position order
func (m *Materializer) Scratch() []Scratch {
	return m.scratch
}

// Prepare returns the statements that must run before operand pos is
// referenced. Later calls for the same operand return nothing, so callers
// place the result where it dominates every use.
func (m *Materializer) Prepare(pos int) ([]string, error) {
	if pos < 1 || pos > 3 {
		return nil, errors.New("operand position %d out of range", pos)
	}

	op := m.ops[pos]
	if op == nil || op.emitted {
		return nil, nil
	}

	op.emitted = true

	var stmts []string
	src := m.p.OperandRef(pos)

	for _, s := range op.enc.Steps {
		switch s {
		case target.Constant:
			name := m.p.ConstName(pos)
			stmts = append(stmts, name+" := "+m.p.ConstRef(src))
			src = name
		case target.Compute:
			dst := m.p.TmpRef(op.slot)
			stmts = append(stmts, m.p.InstrStmt(op.enc.Load, []string{dst, src}))
			src = dst
		case target.Direct:
		}
	}

	op.ref = src

	return stmts, nil
}

// Operand returns the reference that replaces $pos. Constrained operands
// must be prepared first.
func (m *Materializer) Operand(pos int) (string, error) {
	if pos < 1 || pos > 3 {
		return "", errors.New("operand position %d out of range", pos)
	}

	op := m.ops[pos]
	if op == nil {
		return m.p.OperandRef(pos), nil
	}

	if !op.emitted {
		return "", errors.New("operand %d used before it was prepared", pos)
	}

	return op.ref, nil
}

// Out returns the reference that replaces $out
func (m *Materializer) Out() string {
	return m.p.OutRef()
}

// Temp returns the reference of a declared temporary
func (m *Materializer) Temp(slot int) (string, error) {
	if !slices.Contains(m.temps, slot) {
		return "", errors.New("temporary %%t%d is not declared in maps", slot)
	}

	return m.p.TmpRef(slot), nil
}
