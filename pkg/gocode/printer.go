package gocode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer writes a File as Go source laid out the way gofmt would
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintFile prints a complete source file
func (p *Printer) PrintFile(f *File) {
	for _, h := range f.Header {
		p.printComment(h)
	}
	if len(f.Header) > 0 {
		fmt.Fprintln(p.w)
	}

	fmt.Fprintf(p.w, "package %s\n", f.Package)

	switch len(f.Imports) {
	case 0:
	case 1:
		fmt.Fprintf(p.w, "\nimport %s\n", strconv.Quote(f.Imports[0]))
	default:
		fmt.Fprintln(p.w, "\nimport (")
		for _, imp := range f.Imports {
			fmt.Fprintf(p.w, "\t%s\n", strconv.Quote(imp))
		}
		fmt.Fprintln(p.w, ")")
	}

	for _, fn := range f.Funcs {
		fmt.Fprintln(p.w)
		p.PrintFunc(fn)
	}
}

// PrintFunc prints one function declaration
func (p *Printer) PrintFunc(fn *Func) {
	for _, d := range fn.Doc {
		p.printComment(d)
	}

	fmt.Fprintf(p.w, "func %s(%s)", fn.Name, fn.Params)
	if fn.Results != "" {
		fmt.Fprintf(p.w, " %s", fn.Results)
	}
	fmt.Fprintln(p.w, " {")

	p.indent++
	p.printStmts(fn.Body)
	p.indent--

	fmt.Fprintln(p.w, "}")
}

func (p *Printer) printComment(text string) {
	p.writeIndent()
	if text == "" {
		fmt.Fprintln(p.w, "//")
		return
	}
	fmt.Fprintf(p.w, "// %s\n", text)
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("\t", p.indent))
}

func (p *Printer) printStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.printStmt(s)
	}
}

func (p *Printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case Line:
		p.writeIndent()
		fmt.Fprintln(p.w, s.Text)

	case If:
		p.writeIndent()
		fmt.Fprintf(p.w, "if %s {\n", s.Cond)
		p.printBody(s.Body)

	case Block:
		p.writeIndent()
		fmt.Fprintln(p.w, "{")
		p.printBody(s.Body)

	case Switch:
		p.writeIndent()
		fmt.Fprintf(p.w, "switch %s {\n", s.Tag)
		for _, c := range s.Cases {
			p.writeIndent()
			fmt.Fprintf(p.w, "case %s:\n", c.Expr)
			p.indent++
			p.printStmts(c.Body)
			p.indent--
		}
		if s.Default != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "default:")
			p.indent++
			p.printStmts(s.Default)
			p.indent--
		}
		p.writeIndent()
		fmt.Fprintln(p.w, "}")

	default:
		panic(fmt.Sprintf("unsupported statement %T", stmt))
	}
}

func (p *Printer) printBody(body []Stmt) {
	p.indent++
	p.printStmts(body)
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}
