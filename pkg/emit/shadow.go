package emit

import (
	"github.com/raymyers/ralph-isel/pkg/cond"
	"github.com/raymyers/ralph-isel/pkg/pattern"
)

// Shadow is a pattern that can never fire because an earlier pattern of the
// same mnemonic accepts every node it accepts.
type Shadow struct {
	Earlier *pattern.Pattern
	Later   *pattern.Pattern
}

// Shadowed reports every later pattern subsumed by an earlier one.
// Only the first shadowing pattern is reported for each.
func Shadowed(ps []*pattern.Pattern) []Shadow {
	var res []Shadow

	for _, g := range GroupByMnemonic(ps) {
		guards := make([][]cond.Guard, len(g.Patterns))
		for i, p := range g.Patterns {
			guards[i] = cond.Synthesize(p.Variant)
		}

		for j := range g.Patterns {
			for i := 0; i < j; i++ {
				if cond.Subsumes(guards[i], guards[j]) {
					res = append(res, Shadow{Earlier: g.Patterns[i], Later: g.Patterns[j]})
					break
				}
			}
		}
	}

	return res
}
