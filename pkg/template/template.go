// Package template parses assembly instruction templates and expands them
// into Go statements that build the instruction.
package template

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/pattern"
	"github.com/raymyers/ralph-isel/pkg/target"
)

// MaxOperands is the widest instruction constructor available
const MaxOperands = 3

// Operand is one instruction operand or memory part
type Operand interface {
	implOperand()
}

// Out is the $out placeholder
type Out struct{}

// Placeholder is $1, $2 or $3
type Placeholder struct {
	Pos int
}

// Temp is a declared temporary like %t0
type Temp struct {
	Slot int
}

// Reg is a literal machine register
type Reg struct {
	Name string
}

// Imm is a literal integer immediate
type Imm struct {
	Text string
}

// Sign separates memory parts
type Sign struct {
	Minus bool
}

// Mem is a bracketed memory operand
type Mem struct {
	Parts []Operand
}

func (Out) implOperand()         {}
func (Placeholder) implOperand() {}
func (Temp) implOperand()        {}
func (Reg) implOperand()         {}
func (Imm) implOperand()         {}
func (Sign) implOperand()        {}
func (Mem) implOperand()         {}

// Instr is a parsed template line
type Instr struct {
	Mnemonic string
	Operands []Operand
}

// Positions returns the $n positions used by ins in first-use order
func (ins *Instr) Positions() []int {
	var ps []int

	var walk func(ops []Operand)
	walk = func(ops []Operand) {
		for _, op := range ops {
			switch op := op.(type) {
			case Placeholder:
				ps = append(ps, op.Pos)
			case Mem:
				walk(op.Parts)
			}
		}
	}

	walk(ins.Operands)

	return lo.Uniq(ps)
}

// Env supplies the references placeholders expand to
type Env interface {
	Out() string
	Operand(pos int) (string, error)
	Temp(slot int) (string, error)
}

type tokKind int

const (
	tokWord tokKind = iota
	tokOpen
	tokClose
	tokSign
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	inMem := false

	prevOperand := func() bool {
		return len(toks) > 0 && toks[len(toks)-1].kind == tokWord
	}

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == ' ' || c == '\t' || c == ',':
			i++
		case c == '[':
			if inMem {
				return nil, errors.New("col %d: nested '['", i+1)
			}
			inMem = true
			toks = append(toks, token{kind: tokOpen, text: "["})
			i++
		case c == ']':
			if !inMem {
				return nil, errors.New("col %d: unbalanced ']'", i+1)
			}
			inMem = false
			toks = append(toks, token{kind: tokClose, text: "]"})
			i++
		case inMem && (c == '+' || c == '-') && prevOperand():
			toks = append(toks, token{kind: tokSign, text: string(c)})
			i++
		case c == '+':
			return nil, errors.New("col %d: unexpected '+'", i+1)
		default:
			j := i + 1
			for j < len(s) && !isDelim(s[j], inMem) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: s[i:j]})
			i = j
		}
	}

	if inMem {
		return nil, errors.New("unbalanced '['")
	}

	return toks, nil
}

func isDelim(c byte, inMem bool) bool {
	switch c {
	case ' ', '\t', ',', '[', ']':
		return true
	case '+', '-':
		return inMem
	}
	return false
}

// Parse reads one template line such as "lea $out, [$1 + $2]"
func Parse(line string) (*Instr, error) {
	toks, err := tokenize(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}

	if len(toks) == 0 || toks[0].kind != tokWord {
		return nil, errors.New("expected mnemonic in %q", line)
	}

	ins := &Instr{Mnemonic: toks[0].text}
	if !isIdent(ins.Mnemonic) {
		return nil, errors.New("bad mnemonic %q", ins.Mnemonic)
	}

	for i := 1; i < len(toks); i++ {
		var op Operand

		switch toks[i].kind {
		case tokWord:
			op, err = operand(toks[i].text)
		case tokOpen:
			var parts []Operand

			for i++; toks[i].kind != tokClose; i++ {
				switch t := toks[i]; t.kind {
				case tokSign:
					if len(parts) == 0 {
						return nil, errors.New("memory operand starts with %q", t.text)
					}
					parts = append(parts, Sign{Minus: t.text == "-"})
				case tokWord:
					if len(parts) != 0 {
						if _, ok := parts[len(parts)-1].(Sign); !ok {
							return nil, errors.New("expected '+' or '-' before %q", t.text)
						}
					}

					p, err := operand(t.text)
					if err != nil {
						return nil, err
					}
					if _, ok := p.(Out); ok {
						return nil, errors.New("$out inside a memory operand")
					}
					parts = append(parts, p)
				}
			}

			if len(parts) == 0 {
				return nil, errors.New("empty memory operand")
			}
			if _, ok := parts[len(parts)-1].(Sign); ok {
				return nil, errors.New("memory operand ends with a sign")
			}

			op = Mem{Parts: parts}
		default:
			return nil, errors.New("unexpected %q", toks[i].text)
		}

		if err != nil {
			return nil, err
		}

		ins.Operands = append(ins.Operands, op)
	}

	if len(ins.Operands) > MaxOperands {
		return nil, errors.New("%s: %d operands, at most %d supported", ins.Mnemonic, len(ins.Operands), MaxOperands)
	}

	return ins, nil
}

func operand(w string) (Operand, error) {
	switch {
	case w == "$out":
		return Out{}, nil
	case strings.HasPrefix(w, "$"):
		n, err := strconv.Atoi(w[1:])
		if err != nil || n < 1 || n > 3 {
			return nil, errors.New("unknown placeholder %q", w)
		}
		return Placeholder{Pos: n}, nil
	case strings.HasPrefix(w, "%"):
		slot, ok := pattern.TempSlot(w)
		if !ok {
			return nil, errors.New("unknown placeholder %q", w)
		}
		return Temp{Slot: slot}, nil
	case w[0] == '-' || unicode.IsDigit(rune(w[0])):
		if _, err := strconv.ParseInt(w, 0, 64); err != nil {
			return nil, errors.New("bad immediate %q", w)
		}
		return Imm{Text: w}, nil
	case isIdent(w):
		return Reg{Name: w}, nil
	}

	return nil, errors.New("unexpected operand %q", w)
}

func isIdent(s string) bool {
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}

	return s != ""
}

// Expand renders ins as a statement appending the built instruction
func Expand(ins *Instr, env Env, p *target.Profile) (string, error) {
	ops := make([]string, len(ins.Operands))

	for i, op := range ins.Operands {
		s, err := render(op, env, p)
		if err != nil {
			return "", errors.Wrap(err, "%s operand %d", ins.Mnemonic, i+1)
		}

		ops[i] = s
	}

	return p.InstrStmt(ins.Mnemonic, ops), nil
}

func render(op Operand, env Env, p *target.Profile) (string, error) {
	switch op := op.(type) {
	case Out:
		return env.Out(), nil
	case Placeholder:
		return env.Operand(op.Pos)
	case Temp:
		return env.Temp(op.Slot)
	case Reg:
		return p.RegName(op.Name), nil
	case Imm:
		return p.ImmRef(op.Text), nil
	case Sign:
		if op.Minus {
			return p.MemMinus, nil
		}
		return p.MemPlus, nil
	case Mem:
		parts := make([]string, len(op.Parts))
		for i, part := range op.Parts {
			s, err := render(part, env, p)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return p.MemRef(parts), nil
	}

	return "", errors.New("unsupported operand %#v", op)
}
