// Package target describes how a machine encodes pattern operands and how
// the generated Go code names the downstream backend's API.
package target

import (
	"slices"

	"github.com/samber/lo"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/pattern"
)

// Strategy is one step of bringing an operand into an encodable form
type Strategy int

const (
	Direct   Strategy = iota // reference the node operand as is
	Constant                 // turn the operand into a module constant first
	Compute                  // load the operand into a scratch register
)

var strategyNames = []string{"direct", "constant", "compute"}

func (s Strategy) String() string {
	if int(s) >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "?"
}

// Encoding is the strategy chain chosen for one operand.
// Valid chains are [Direct], [Compute], [Constant Direct], [Constant Compute].
type Encoding struct {
	Steps []Strategy
	// Class and Load describe the scratch register of a Compute step
	Class pattern.OpVariant
	Load  string
}

// Target is a machine whose operand encoding rules drive materialization
type Target interface {
	Name() string
	// Profile returns the built-in naming profile of the target
	Profile() Profile
	// Encode picks the encoding of operand pos (1, 2 or 3) of v
	Encode(v pattern.Variant, pos int) (Encoding, error)
	// ScalarSize returns the byte width of a named scalar type
	ScalarSize(name string) (int, bool)
}

var ErrUnknownTarget = errors.New("unknown target")

var targets = map[string]Target{
	"x86": X86{},
}

// Lookup returns the registered target called name
func Lookup(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTarget, "%q (have %v)", name, Names())
	}

	return t, nil
}

// Names lists the registered targets in sorted order
func Names() []string {
	names := lo.Keys(targets)
	slices.Sort(names)

	return names
}

// TypeSize returns the byte size a type qualifier pins down, if any
func TypeSize(t Target, q pattern.TypeQual) (int, bool) {
	switch q := q.(type) {
	case pattern.Scalar:
		return t.ScalarSize(q.Name)
	case pattern.Vector:
		n, ok := t.ScalarSize(q.Elem)
		if !ok {
			return 0, false
		}

		return q.Count * n, true
	}

	return 0, false
}
