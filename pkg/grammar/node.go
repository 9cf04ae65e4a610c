// Package grammar parses pattern files into a generic parse tree.
//
// The tree only records which grammar rule matched and the raw source text
// it covered. Interpreting that text (splitting operand lists, classifying
// type annotations) is left to the pattern builder.
package grammar

import (
	"fmt"
	"strings"
)

// Rule tags a parse tree node with the production that produced it
type Rule int

const (
	RuleFile     Rule = iota
	RuleAsmDecl       // asm x86;
	RulePattern       // pattern ... { ... }
	RuleMnemonic      // add
	RuleOperands      // gr, imm
	RuleThird         // third operand section after ';'
	RuleOutput        // -> gr
	RuleTypeAnn       // (int) or <4xF32>
	RuleMaps          // maps %t0: gr, %t1: fp;
	RuleMap           // %t0: gr
	RuleClobbers      // clobbers rax, rdx;
	RuleReg           // rax
	RuleHook          // hook fixup;
	RuleBlock         // { ... }
	RuleLiteral       // > raw code
	RuleTemplate      // mov $out, $1
)

var ruleNames = []string{
	"file", "asm_decl", "pattern", "mnemonic", "operands", "third", "output",
	"type_ann", "maps", "map", "clobbers", "reg", "hook", "block", "literal", "template",
}

func (r Rule) String() string {
	if int(r) >= 0 && int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Node is one node of the parse tree
type Node struct {
	Rule     Rule
	Text     string // raw source text covered by the rule
	Line     int
	Column   int
	Children []*Node
}

// Child returns the first direct child tagged with r, or nil
func (n *Node) Child(r Rule) *Node {
	for _, c := range n.Children {
		if c.Rule == r {
			return c
		}
	}
	return nil
}

// String renders the subtree as an s-expression, for dumps and tests
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Rule.String())
	if n.Text != "" {
		fmt.Fprintf(b, " %q", n.Text)
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}
