// Package preview derives read-only views from a formula: a natural
// language description, a pseudocode rendering, and a complexity
// classification. All three are stateless projections recomputed on
// demand; callers re-derive after mutations rather than caching here.
// They are total over structurally valid formulas and never fail.
package preview

import (
	"fmt"
	"strings"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// slug normalizes a block name for pseudocode identifiers: lower-case,
// spaces to underscores.
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// indent returns the fixed two-space indentation for a nesting depth.
func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// topLevel returns the blocks that are not members of any group, in block
// list order.
func topLevel(f *schema.Formula) []*schema.Block {
	grouped := make(map[string]bool)
	for i := range f.Blocks {
		if g := f.Blocks[i].Group; g != nil {
			for _, child := range g.Children {
				grouped[child] = true
			}
		}
	}

	var out []*schema.Block
	for i := range f.Blocks {
		if !grouped[f.Blocks[i].ID] {
			out = append(out, &f.Blocks[i])
		}
	}
	return out
}

// children resolves a group's member ids in declared order. Dangling ids
// are skipped; they cannot occur in a validated formula.
func children(f *schema.Formula, g *schema.GroupPayload) []*schema.Block {
	var out []*schema.Block
	for _, id := range g.Children {
		if b := f.Block(id); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// paramPairs renders parameters as "key: value" pairs joined with commas
// and a final "and". Empty parameter lists render as "".
func paramPairs(params []schema.Parameter) string {
	if len(params) == 0 {
		return ""
	}

	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = fmt.Sprintf("%s: %v", p.Name, p.Value)
	}
	if len(pairs) == 1 {
		return pairs[0]
	}
	return strings.Join(pairs[:len(pairs)-1], ", ") + " and " + pairs[len(pairs)-1]
}

// incomingSource returns the slug of the block feeding the first input of
// the given block, or "" when nothing is connected to it.
func incomingSource(f *schema.Formula, blockID string) string {
	for _, conn := range f.Connections {
		if conn.ToBlockID != blockID {
			continue
		}
		if src := f.Block(conn.FromBlockID); src != nil {
			return slug(src.Name)
		}
	}
	return ""
}
