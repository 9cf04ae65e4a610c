package target

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/cond"
	"github.com/raymyers/ralph-isel/pkg/pattern"
)

// Profile names every piece of the downstream API the generated code calls.
// Format fields are fmt verbs; a YAML profile overrides them one by one.
// {node}, {asm} and {module} in any format stand for the receiver names
// Node, Asm and Module.
type Profile struct {
	Package string   `yaml:"package"`
	Imports []string `yaml:"imports"`

	Node   string `yaml:"node"`   // the node being lowered
	Asm    string `yaml:"asm"`    // the instruction list appended to
	Module string `yaml:"module"` // owner of module constants

	Params     string `yaml:"params"`      // parameters of Compile and compile<M>
	AuxParams  string `yaml:"aux_params"`  // parameters of Temporaries and Clobbers
	Dispatch   string `yaml:"dispatch"`    // dispatcher function name
	FuncPrefix string `yaml:"func_prefix"` // per-mnemonic function prefix

	Opcode      string   `yaml:"opcode"`
	OpcodeConst string   `yaml:"opcode_const"`
	OperandPos  []string `yaml:"operand_pos"`
	OperandIs   string   `yaml:"operand_is"`
	OutputIs    string   `yaml:"output_is"`

	Type      string `yaml:"type"`
	TypeConst string `yaml:"type_const"`
	IsInt     string `yaml:"is_int"`
	IsSigned  string `yaml:"is_signed"`
	IsFloat   string `yaml:"is_float"`
	IsVector  string `yaml:"is_vector"`
	Size      string `yaml:"size"`

	Operand  string `yaml:"operand"`
	Output   string `yaml:"output"`
	Const    string `yaml:"const"`
	ConstVar string `yaml:"const_var"`
	Tmp      string `yaml:"tmp"`

	Append   string `yaml:"append"`
	Instr    string `yaml:"instr"`
	Mnemonic string `yaml:"mnemonic"`
	Reg      string `yaml:"reg"`
	Imm      string `yaml:"imm"`
	MemDispl string `yaml:"mem_displ"`
	MemPlus  string `yaml:"mem_plus"`
	MemMinus string `yaml:"mem_minus"`

	Hook      string `yaml:"hook"`
	Unhandled string `yaml:"unhandled"`

	Temporaries   string `yaml:"temporaries"`
	TemporaryType string `yaml:"temporary_type"`
	ClassConst    string `yaml:"class_const"`
	Clobbers      string `yaml:"clobbers"`
	RegType       string `yaml:"reg_type"`
}

// DefaultProfile is the naming used by the x86 backend
func DefaultProfile() Profile {
	return Profile{
		Package: "isel",
		Imports: []string{"fmt"},

		Node:   "node",
		Asm:    "asm",
		Module: "module",

		Params:     "{module} *Module, {asm} *[]Instr, {node} *Node",
		AuxParams:  "{node} *Node",
		Dispatch:   "Compile",
		FuncPrefix: "compile",

		Opcode:      "{node}.Opcode()",
		OpcodeConst: "Op%s",
		OperandPos:  []string{"Ls", "Rs", "Op3"},
		OperandIs:   "{node}.Is%s%s()",
		OutputIs:    "{node}.IsOut%s()",

		Type:      "{node}.Type()",
		TypeConst: "Type%s",
		IsInt:     "%s.IsInt()",
		IsSigned:  "%s.IsSigned()",
		IsFloat:   "%s.IsFloat()",
		IsVector:  "%s.IsVector(%d, %s)",
		Size:      "%s.Size()",

		Operand:  "{node}.Op(%d)",
		Output:   "{node}.Out()",
		Const:    "{module}.Const(%s)",
		ConstVar: "op%d",
		Tmp:      "Tmp(%d)",

		Append:   "*{asm} = append(*{asm}, %s)",
		Instr:    "NewInstr%d",
		Mnemonic: "Mnemonic%s",
		Reg:      "%s",
		Imm:      "Imm(%s)",
		MemDispl: "MemDispl(%s)",
		MemPlus:  "MemPlus",
		MemMinus: "MemMinus",

		Hook:      "%s({module}, {asm}, {node})",
		Unhandled: `panic(fmt.Sprintf("%s: no pattern for %%v", {node}))`,

		Temporaries:   "Temporaries",
		TemporaryType: "Temporary",
		ClassConst:    "Class%s",
		Clobbers:      "Clobbers",
		RegType:       "Reg",
	}
}

// LoadProfile decodes a YAML profile on top of base. Unknown keys are errors.
func LoadProfile(r io.Reader, base Profile) (Profile, error) {
	p := base

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Profile{}, errors.Wrap(err, "decode profile")
	}

	if len(p.OperandPos) != 3 {
		return Profile{}, errors.New("operand_pos: need 3 position names, got %d", len(p.OperandPos))
	}

	if err := p.checkParams(); err != nil {
		return Profile{}, err
	}

	return p, nil
}

// checkParams makes sure the receivers the formats refer to are declared
func (p *Profile) checkParams() error {
	declared := func(list, name string) bool {
		return slices.Contains(paramNames(list), name)
	}

	for _, name := range []string{p.Module, p.Asm, p.Node} {
		if !declared(p.ParamList(), name) {
			return errors.New("params %q do not declare %q", p.ParamList(), name)
		}
	}

	if !declared(p.AuxParamList(), p.Node) {
		return errors.New("aux_params %q do not declare %q", p.AuxParamList(), p.Node)
	}

	return nil
}

func (p *Profile) expand(s string) string {
	return strings.NewReplacer("{node}", p.Node, "{asm}", p.Asm, "{module}", p.Module).Replace(s)
}

func (p *Profile) format(f string, a ...any) string {
	return fmt.Sprintf(p.expand(f), a...)
}

// ParamList is the parameter list of Compile and compile<M>
func (p *Profile) ParamList() string { return p.expand(p.Params) }

// AuxParamList is the parameter list of Temporaries and Clobbers
func (p *Profile) AuxParamList() string { return p.expand(p.AuxParams) }

func (p *Profile) OpcodeExpr() string { return p.expand(p.Opcode) }
func (p *Profile) TypeExpr() string   { return p.expand(p.Type) }
func (p *Profile) OutRef() string     { return p.expand(p.Output) }

// Title upper-cases the first letter of s and leaves the rest alone,
// so "lea" becomes "Lea" and "cvtSI2sd" becomes "CvtSI2sd".
func Title(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// Upper upper-cases s, used for register names
func Upper(s string) string {
	return cases.Upper(language.English).String(s)
}

// Guard spells one guard as a Go boolean expression
func (p *Profile) Guard(g cond.Guard) string {
	switch g := g.(type) {
	case cond.Mnemonic:
		return fmt.Sprintf("%s == %s", p.OpcodeExpr(), p.OpcodeName(g.Name))
	case cond.OperandKind:
		return p.format(p.OperandIs, p.OperandPos[g.Pos-1], Title(g.Kind.String()))
	case cond.OutputKind:
		return p.format(p.OutputIs, Title(g.Kind.String()))
	case cond.TypeIs:
		return fmt.Sprintf("%s == %s", p.TypeExpr(), p.TypeName(g.Name))
	case cond.IsInt:
		return p.format(p.IsInt, p.TypeExpr())
	case cond.IsSigned:
		return negate(p.format(p.IsSigned, p.TypeExpr()), g.Negate)
	case cond.IsFloat:
		return negate(p.format(p.IsFloat, p.TypeExpr()), g.Negate)
	case cond.VectorShape:
		return p.format(p.IsVector, p.TypeExpr(), g.Count, p.TypeName(g.Elem))
	}

	panic(fmt.Sprintf("unsupported guard %#v", g))
}

// Conj joins guards with &&; the empty conjunction is "true"
func (p *Profile) Conj(gs []cond.Guard) string {
	if len(gs) == 0 {
		return "true"
	}

	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = p.Guard(g)
	}

	return strings.Join(parts, " && ")
}

func negate(expr string, neg bool) string {
	if neg {
		return "!" + expr
	}
	return expr
}

func (p *Profile) OpcodeName(mnemonic string) string {
	return p.format(p.OpcodeConst, Title(mnemonic))
}

func (p *Profile) FuncName(mnemonic string) string {
	return p.FuncPrefix + Title(mnemonic)
}

func (p *Profile) TypeName(name string) string {
	return p.format(p.TypeConst, Title(name))
}

func (p *Profile) MnemonicName(name string) string {
	return p.format(p.Mnemonic, Title(name))
}

func (p *Profile) RegName(name string) string {
	return p.format(p.Reg, Upper(name))
}

func (p *Profile) ClassName(k pattern.OpVariant) string {
	return p.format(p.ClassConst, Title(k.String()))
}

func (p *Profile) OperandRef(pos int) string   { return p.format(p.Operand, pos) }
func (p *Profile) ConstRef(expr string) string { return p.format(p.Const, expr) }
func (p *Profile) ConstName(pos int) string    { return p.format(p.ConstVar, pos) }
func (p *Profile) TmpRef(slot int) string      { return p.format(p.Tmp, slot) }
func (p *Profile) ImmRef(lit string) string    { return p.format(p.Imm, lit) }
func (p *Profile) SizeOf() string              { return p.format(p.Size, p.TypeExpr()) }
func (p *Profile) HookCall(name string) string { return p.format(p.Hook, name) }

func (p *Profile) UnhandledStmt(fn string) string {
	return p.format(p.Unhandled, fn)
}

// MemRef builds a displacement operand from already rendered parts
func (p *Profile) MemRef(parts []string) string {
	return p.format(p.MemDispl, strings.Join(parts, ", "))
}

// InstrStmt appends one instruction built from a mnemonic and operands
func (p *Profile) InstrStmt(mnemonic string, ops []string) string {
	args := append([]string{p.MnemonicName(mnemonic)}, ops...)
	call := p.format(p.Instr, len(ops)) + "(" + strings.Join(args, ", ") + ")"

	return p.format(p.Append, call)
}

// Args turns the parameter list into the matching argument list,
// "module *Module, asm *[]Instr, node *Node" becomes "module, asm, node".
func (p *Profile) Args() string {
	return strings.Join(paramNames(p.ParamList()), ", ")
}

func paramNames(list string) []string {
	params := strings.Split(list, ",")

	names := make([]string, 0, len(params))
	for _, param := range params {
		if f := strings.Fields(param); len(f) > 0 {
			names = append(names, f[0])
		}
	}

	return names
}
