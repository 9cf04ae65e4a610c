// Package gocode is a small statement tree for generated Go source
package gocode

// File is one generated source file
type File struct {
	Header  []string // comment lines without the leading "//"
	Package string
	Imports []string
	Funcs   []*Func
}

// Func is a top-level function declaration
type Func struct {
	Doc     []string
	Name    string
	Params  string
	Results string
	Body    []Stmt
}

// Stmt is a statement in a function body
type Stmt interface {
	implStmt()
}

// Line is one simple statement or comment, printed as is
type Line struct {
	Text string
}

// If is a condition without else branch
type If struct {
	Cond string
	Body []Stmt
}

// Block is a bare braced block
type Block struct {
	Body []Stmt
}

// Switch is an expression switch
type Switch struct {
	Tag     string
	Cases   []Case
	Default []Stmt // nil means no default clause
}

// Case is one switch clause
type Case struct {
	Expr string
	Body []Stmt
}

func (Line) implStmt()   {}
func (If) implStmt()     {}
func (Block) implStmt()  {}
func (Switch) implStmt() {}
