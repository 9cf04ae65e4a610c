// Package tablegen runs the whole pattern compiler: source text in,
// formatted Go selector out.
package tablegen

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/tools/imports"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-isel/pkg/emit"
	"github.com/raymyers/ralph-isel/pkg/gocode"
	"github.com/raymyers/ralph-isel/pkg/grammar"
	"github.com/raymyers/ralph-isel/pkg/pattern"
	"github.com/raymyers/ralph-isel/pkg/target"
)

// Options tune a Generate run. The zero value generates for x86 with its
// default profile.
type Options struct {
	Target     target.Target
	Profile    *target.Profile // nil means Target.Profile()
	ProfileSrc string          // where Profile was loaded from, recorded in the header
	Package    string          // overrides Profile.Package when set
	NoFormat   bool
	WarnShadow bool
}

// Result is the generated source and any diagnostics
type Result struct {
	Source   []byte
	Patterns int
	Shadowed []emit.Shadow
}

// Generate compiles the pattern file text read from name
func Generate(ctx context.Context, name string, text []byte, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "tablegen: generate", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	t := opts.Target
	if t == nil {
		t = target.X86{}
	}

	prof := t.Profile()
	if opts.Profile != nil {
		prof = *opts.Profile
	}
	if opts.Package != "" {
		prof.Package = opts.Package
	}

	f, err := Parse(ctx, string(text))
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	res = &Result{Patterns: len(f.Patterns)}

	if opts.WarnShadow {
		res.Shadowed = emit.Shadowed(f.Patterns)
		tr.Printw("shadow check", "shadowed", len(res.Shadowed))
	}

	out, err := emit.NewPlanner(t, &prof).Plan(f, header(name, t, opts.ProfileSrc, f))
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	var buf bytes.Buffer
	gocode.NewPrinter(&buf).PrintFile(out)

	res.Source = buf.Bytes()

	if !opts.NoFormat {
		res.Source, err = imports.Process(name+".go", res.Source, &imports.Options{
			Comments:   true,
			TabIndent:  true,
			TabWidth:   8,
			FormatOnly: true,
		})
		if err != nil {
			return nil, errors.Wrap(err, "format generated code")
		}
	}

	tr.Printw("generated", "patterns", res.Patterns, "functions", len(out.Funcs), "bytes", len(res.Source))

	return res, nil
}

// Parse runs the grammar and the tree builder
func Parse(ctx context.Context, text string) (f *pattern.File, err error) {
	tr := tlog.SpanFromContext(ctx)

	root, err := grammar.Parse(text)
	if err != nil {
		return nil, err
	}

	f, err = pattern.Build(root)
	if err != nil {
		return nil, errors.Wrap(err, "build")
	}

	if tr.If("dump_patterns") {
		for _, p := range f.Patterns {
			tr.Printw("pattern", "line", p.Line, "variant", p.Variant.String(), "lines", len(p.Lines), "maps", len(p.Maps), "clobbers", p.Clobbers, "hook", p.Hook)
		}
	}

	return f, nil
}

func header(name string, t target.Target, profile string, f *pattern.File) []string {
	h := []string{fmt.Sprintf("Code generated by ralph-isel from %s. DO NOT EDIT.", name), ""}

	h = append(h, fmt.Sprintf("target: %s", t.Name()))
	if profile != "" {
		h = append(h, fmt.Sprintf("profile: %s", profile))
	}
	if f.AsmParser != "" {
		h = append(h, fmt.Sprintf("asm: %s", f.AsmParser))
	}

	return h
}
