package pattern

import (
	"strconv"
	"strings"
	"unicode"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/grammar"
)

var (
	// ErrUnknownKind is returned for an operand kind outside gr, fp, imm, mem, any
	ErrUnknownKind = errors.New("unknown operand kind")
	// ErrTempClass is returned for a temporary declared in a class other than gr, fp, mem
	ErrTempClass = errors.New("invalid temporary register class")
	// ErrUnknownRule means the grammar produced a node the builder does not know.
	// The two are kept in lock-step, so this is a defect rather than bad input.
	ErrUnknownRule = errors.New("unexpected grammar rule")
)

// Build walks a parse tree produced by grammar.Parse and returns the
// populated model. It stops at the first error.
func Build(root *grammar.Node) (*File, error) {
	if root == nil || root.Rule != grammar.RuleFile {
		return nil, errors.Wrap(ErrUnknownRule, "root %v", root)
	}

	f := &File{}

	for _, n := range root.Children {
		switch n.Rule {
		case grammar.RuleAsmDecl:
			f.AsmParser = n.Text
		case grammar.RulePattern:
			p, err := BuildPattern(n)
			if err != nil {
				return nil, errors.Wrap(err, "line %d", n.Line)
			}

			f.Patterns = append(f.Patterns, p)
		default:
			return nil, errors.Wrap(ErrUnknownRule, "%v at line %d", n.Rule, n.Line)
		}
	}

	return f, nil
}

// BuildPattern populates one Pattern from a RulePattern node
func BuildPattern(n *grammar.Node) (*Pattern, error) {
	p := &Pattern{Line: n.Line}

	for _, c := range n.Children {
		var err error

		switch c.Rule {
		case grammar.RuleMnemonic:
			p.Variant.Mnemonic = c.Text
		case grammar.RuleOperands:
			err = buildOperands(&p.Variant, c)
		case grammar.RuleOutput:
			p.Variant.Out, err = kind(c.Text)
			if err != nil {
				err = errors.Wrap(err, "output")
			}
		case grammar.RuleTypeAnn:
			p.Variant.Type, err = ParseTypeQual(c.Text)
		case grammar.RuleMaps:
			err = buildMaps(p, c)
		case grammar.RuleClobbers:
			for _, r := range c.Children {
				if r.Rule != grammar.RuleReg {
					return nil, errors.Wrap(ErrUnknownRule, "%v in clobbers", r.Rule)
				}
				p.Clobbers = append(p.Clobbers, r.Text)
			}
		case grammar.RuleHook:
			if p.Hook != "" {
				return nil, errors.New("hook declared twice: %s and %s", p.Hook, c.Text)
			}
			p.Hook = c.Text
		case grammar.RuleBlock:
			err = buildLines(p, c)
		default:
			return nil, errors.Wrap(ErrUnknownRule, "%v in pattern", c.Rule)
		}

		if err != nil {
			return nil, errors.Wrap(err, "pattern %v", p.Variant.Mnemonic)
		}
	}

	if p.Variant.Mnemonic == "" {
		return nil, errors.New("pattern without mnemonic")
	}

	return p, nil
}

func buildOperands(v *Variant, n *grammar.Node) (err error) {
	if text := strings.TrimSpace(n.Text); text != "" {
		toks := strings.Split(text, ",")
		if len(toks) > 2 {
			return errors.New("at most two operand kinds before ';', got %d", len(toks))
		}

		v.Left, err = kind(toks[0])
		if err != nil {
			return errors.Wrap(err, "left operand")
		}

		if len(toks) == 2 {
			v.Right, err = kind(toks[1])
			if err != nil {
				return errors.Wrap(err, "right operand")
			}
		}
	}

	for _, c := range n.Children {
		if c.Rule != grammar.RuleThird {
			return errors.Wrap(ErrUnknownRule, "%v in operands", c.Rule)
		}

		v.Third, err = kind(c.Text)
		if err != nil {
			return errors.Wrap(err, "third operand")
		}
	}

	return nil
}

func kind(tok string) (*OpVariant, error) {
	tok = strings.TrimSpace(tok)

	k, ok := ParseOpVariant(tok)
	if !ok {
		return nil, errors.Wrap(ErrUnknownKind, "%q", tok)
	}

	return &k, nil
}

func buildMaps(p *Pattern, n *grammar.Node) error {
	for _, c := range n.Children {
		if c.Rule != grammar.RuleMap {
			return errors.Wrap(ErrUnknownRule, "%v in maps", c.Rule)
		}

		name, class, ok := strings.Cut(c.Text, ":")
		if !ok {
			return errors.New("malformed temporary declaration %q", c.Text)
		}

		name = strings.TrimSpace(name)
		if _, ok := TempSlot(name); !ok {
			return errors.New("temporary %q: expected %%t followed by a number", name)
		}

		for _, m := range p.Maps {
			if m.Name == name {
				return errors.New("temporary %s declared twice", name)
			}
		}

		k, err := kind(class)
		if err != nil {
			return errors.Wrap(err, "temporary %s", name)
		}

		switch *k {
		case Gr, Fp, Mem:
		default:
			return errors.Wrap(ErrTempClass, "temporary %s: %v", name, *k)
		}

		p.Maps = append(p.Maps, Map{Name: name, Kind: *k})
	}

	return nil
}

func buildLines(p *Pattern, n *grammar.Node) error {
	for _, c := range n.Children {
		switch c.Rule {
		case grammar.RuleLiteral:
			p.Lines = append(p.Lines, Literal{Text: c.Text})
		case grammar.RuleTemplate:
			p.Lines = append(p.Lines, Template{Text: c.Text, Line: c.Line})
		default:
			return errors.Wrap(ErrUnknownRule, "%v in instruction block", c.Rule)
		}
	}

	return nil
}

// TempSlot returns the slot number of a temporary name like "%t2"
func TempSlot(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "%t")
	if !ok || digits == "" {
		return 0, false
	}

	slot, err := strconv.Atoi(digits)
	if err != nil || slot < 0 {
		return 0, false
	}

	return slot, true
}

// ParseTypeQual classifies a type annotation after stripping its
// decoration: "(unsigned)", "<4 x F32>" and "i32" are all accepted.
func ParseTypeQual(raw string) (TypeQual, error) {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case strings.ContainsRune("()<>[]", r):
			return -1
		}
		return r
	}, raw)

	if s == "" {
		return nil, errors.New("empty type annotation %q", raw)
	}

	for i, name := range semanticNames {
		if s == name {
			return Semantic(i), nil
		}
	}

	if count, elem, ok := strings.Cut(s, "x"); ok && count != "" {
		if n, err := strconv.Atoi(count); err == nil {
			if n <= 0 || elem == "" {
				return nil, errors.New("malformed vector annotation %q", raw)
			}

			return Vector{Count: n, Elem: elem}, nil
		}
	}

	return Scalar{Name: s}, nil
}
