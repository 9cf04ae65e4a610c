// Package emit plans the generated selector: one dispatcher, one function per
// mnemonic holding its patterns in source order, and the auxiliary
// Temporaries and Clobbers lookups.
package emit

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/cond"
	"github.com/raymyers/ralph-isel/pkg/gocode"
	"github.com/raymyers/ralph-isel/pkg/materialize"
	"github.com/raymyers/ralph-isel/pkg/pattern"
	"github.com/raymyers/ralph-isel/pkg/target"
	"github.com/raymyers/ralph-isel/pkg/template"
)

// Group is the patterns of one mnemonic in source order
type Group struct {
	Mnemonic string
	Patterns []*pattern.Pattern
}

// GroupByMnemonic folds patterns into groups ordered by first appearance
func GroupByMnemonic(ps []*pattern.Pattern) []Group {
	mnemonic := func(p *pattern.Pattern) string { return p.Variant.Mnemonic }

	byName := lo.GroupBy(ps, mnemonic)
	order := lo.Uniq(lo.Map(ps, func(p *pattern.Pattern, _ int) string { return mnemonic(p) }))

	return lo.Map(order, func(m string, _ int) Group {
		return Group{Mnemonic: m, Patterns: byName[m]}
	})
}

// Planner builds the statement tree of the generated file
type Planner struct {
	t target.Target
	p *target.Profile
}

func NewPlanner(t target.Target, p *target.Profile) *Planner {
	return &Planner{t: t, p: p}
}

// Plan builds the whole file. header lines are copied into the leading comment.
func (pl *Planner) Plan(f *pattern.File, header []string) (*gocode.File, error) {
	groups := GroupByMnemonic(f.Patterns)

	out := &gocode.File{
		Header:  header,
		Package: pl.p.Package,
		Imports: pl.p.Imports,
	}

	out.Funcs = append(out.Funcs, pl.Dispatcher(groups))

	for _, g := range groups {
		fn, err := pl.Mnemonic(g)
		if err != nil {
			return nil, errors.Wrap(err, "mnemonic %v", g.Mnemonic)
		}

		out.Funcs = append(out.Funcs, fn)
	}

	tmps, err := pl.Temporaries(f.Patterns)
	if err != nil {
		return nil, errors.Wrap(err, "temporaries")
	}

	out.Funcs = append(out.Funcs, tmps, pl.Clobbers(f.Patterns))

	return out, nil
}

// Dispatcher switches on the opcode and calls the mnemonic's function
func (pl *Planner) Dispatcher(groups []Group) *gocode.Func {
	sw := gocode.Switch{
		Tag:     pl.p.OpcodeExpr(),
		Default: []gocode.Stmt{gocode.Line{Text: pl.p.UnhandledStmt(pl.p.Dispatch)}},
	}

	for _, g := range groups {
		sw.Cases = append(sw.Cases, gocode.Case{
			Expr: pl.p.OpcodeName(g.Mnemonic),
			Body: []gocode.Stmt{gocode.Line{Text: pl.p.FuncName(g.Mnemonic) + "(" + pl.p.Args() + ")"}},
		})
	}

	return &gocode.Func{
		Doc:    []string{fmt.Sprintf("%s lowers node by the first pattern of its opcode that matches.", pl.p.Dispatch)},
		Name:   pl.p.Dispatch,
		Params: pl.p.ParamList(),
		Body:   []gocode.Stmt{sw},
	}
}

// Mnemonic builds the function trying every pattern of g in order
func (pl *Planner) Mnemonic(g Group) (*gocode.Func, error) {
	name := pl.p.FuncName(g.Mnemonic)
	fn := &gocode.Func{Name: name, Params: pl.p.ParamList()}

	for _, p := range g.Patterns {
		s, err := pl.Pattern(p)
		if err != nil {
			return nil, errors.Wrap(err, "pattern at line %d", p.Line)
		}

		fn.Body = append(fn.Body, s)
	}

	fn.Body = append(fn.Body, gocode.Line{Text: pl.p.UnhandledStmt(name)})

	return fn, nil
}

// Pattern nests the body of p in one if per guard. An unguarded pattern
// gets a bare block so its declarations stay local.
func (pl *Planner) Pattern(p *pattern.Pattern) (gocode.Stmt, error) {
	body, err := pl.Body(p)
	if err != nil {
		return nil, err
	}

	guards := cond.Synthesize(p.Variant)
	if len(guards) == 0 {
		return gocode.Block{Body: body}, nil
	}

	var s gocode.Stmt
	for i := len(guards) - 1; i >= 0; i-- {
		s = gocode.If{Cond: pl.p.Guard(guards[i]), Body: body}
		body = []gocode.Stmt{s}
	}

	return s, nil
}

// Body expands the lines of p, followed by the hook call and return.
// Setup of every operand a template references comes first, in position
// order, ahead of any literal line.
func (pl *Planner) Body(p *pattern.Pattern) ([]gocode.Stmt, error) {
	m, err := materialize.New(pl.t, pl.p, p)
	if err != nil {
		return nil, err
	}

	instrs := make([]*template.Instr, len(p.Lines))
	var used []int

	for i, l := range p.Lines {
		if l, ok := l.(pattern.Template); ok {
			ins, err := template.Parse(l.Text)
			if err != nil {
				return nil, errors.Wrap(err, "line %d", l.Line)
			}

			instrs[i] = ins
			used = append(used, ins.Positions()...)
		}
	}

	used = lo.Uniq(used)
	slices.Sort(used)

	var body []gocode.Stmt

	for _, pos := range used {
		pre, err := m.Prepare(pos)
		if err != nil {
			return nil, err
		}

		for _, s := range pre {
			body = append(body, gocode.Line{Text: s})
		}
	}

	for i, l := range p.Lines {
		switch l := l.(type) {
		case pattern.Literal:
			body = append(body, gocode.Line{Text: l.Text})
		case pattern.Template:
			s, err := template.Expand(instrs[i], m, pl.p)
			if err != nil {
				return nil, errors.Wrap(err, "line %d", l.Line)
			}

			body = append(body, gocode.Line{Text: s})
		default:
			return nil, errors.New("unsupported line %T", l)
		}
	}

	if p.Hook != "" {
		body = append(body, gocode.Line{Text: pl.p.HookCall(p.Hook)})
	}

	return append(body, gocode.Line{Text: "return"}), nil
}

// Temporaries builds the lookup of registers each pattern needs besides its
// operands: declared temporaries first, then scratch slots of computed operands.
func (pl *Planner) Temporaries(ps []*pattern.Pattern) (*gocode.Func, error) {
	fn := &gocode.Func{
		Doc:     []string{fmt.Sprintf("%s returns the temporaries the matching pattern needs.", pl.p.Temporaries)},
		Name:    pl.p.Temporaries,
		Params:  pl.p.AuxParamList(),
		Results: "[]" + pl.p.TemporaryType,
	}

	for _, p := range ps {
		m, err := materialize.New(pl.t, pl.p, p)
		if err != nil {
			return nil, errors.Wrap(err, "pattern at line %d", p.Line)
		}

		if len(p.Maps) == 0 && len(m.Scratch()) == 0 {
			continue
		}

		size := pl.p.SizeOf()
		if n, ok := target.TypeSize(pl.t, p.Variant.Type); ok {
			size = strconv.Itoa(n)
		}

		var elems []string
		for _, mp := range p.Maps {
			slot, _ := pattern.TempSlot(mp.Name)
			elems = append(elems, pl.temporary(slot, mp.Kind, size))
		}
		for _, s := range m.Scratch() {
			elems = append(elems, pl.temporary(s.Slot, s.Class, size))
		}

		fn.Body = append(fn.Body, pl.lookup(p.Variant, "[]"+pl.p.TemporaryType, elems))
	}

	fn.Body = append(fn.Body, gocode.Line{Text: "return nil"})

	return fn, nil
}

func (pl *Planner) temporary(slot int, class pattern.OpVariant, size string) string {
	return fmt.Sprintf("{Slot: %d, Class: %s, Size: %s}", slot, pl.p.ClassName(class), size)
}

// Clobbers builds the lookup of fixed registers each pattern overwrites
func (pl *Planner) Clobbers(ps []*pattern.Pattern) *gocode.Func {
	fn := &gocode.Func{
		Doc:     []string{fmt.Sprintf("%s returns the registers the matching pattern overwrites.", pl.p.Clobbers)},
		Name:    pl.p.Clobbers,
		Params:  pl.p.AuxParamList(),
		Results: "[]" + pl.p.RegType,
	}

	for _, p := range ps {
		if len(p.Clobbers) == 0 {
			continue
		}

		regs := lo.Map(lo.Uniq(p.Clobbers), func(r string, _ int) string { return pl.p.RegName(r) })

		fn.Body = append(fn.Body, pl.lookup(p.Variant, "[]"+pl.p.RegType, regs))
	}

	fn.Body = append(fn.Body, gocode.Line{Text: "return nil"})

	return fn
}

func (pl *Planner) lookup(v pattern.Variant, typ string, elems []string) gocode.Stmt {
	return gocode.If{
		Cond: pl.p.Conj(cond.Full(v)),
		Body: []gocode.Stmt{gocode.Line{Text: "return " + typ + "{" + strings.Join(elems, ", ") + "}"}},
	}
}
