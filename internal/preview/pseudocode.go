package preview

import (
	"fmt"
	"strings"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// Pseudocode renders the formula as pseudocode: one declaration line per
// indicator or condition block, one conditional per signal or action
// block keyed by the slugified name of the block feeding it, nested by
// group depth with a two-space indent per level.
func Pseudocode(f *schema.Formula) string {
	var b strings.Builder
	for _, block := range topLevel(f) {
		writePseudocode(&b, f, block, 0)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writePseudocode(b *strings.Builder, f *schema.Formula, block *schema.Block, depth int) {
	pad := indent(depth)

	switch block.Kind {
	case schema.BlockKindIndicator:
		b.WriteString(fmt.Sprintf("%s%s = %s(%s)\n",
			pad, slug(block.Name), indicatorCall(block), declarationArgs(block)))

	case schema.BlockKindCondition:
		b.WriteString(fmt.Sprintf("%s%s = %s(%s)\n",
			pad, slug(block.Name), conditionOp(block), conditionArgs(f, block)))

	case schema.BlockKindSignal:
		b.WriteString(fmt.Sprintf("%sif %s:\n", pad, conditionName(f, block)))
		b.WriteString(fmt.Sprintf("%s  signal %s\n", pad, slug(block.Name)))

	case schema.BlockKindAction:
		b.WriteString(fmt.Sprintf("%sif %s:\n", pad, conditionName(f, block)))
		b.WriteString(fmt.Sprintf("%s  execute %s\n", pad, slug(block.Name)))

	case schema.BlockKindGroup:
		b.WriteString(fmt.Sprintf("%sgroup %s:\n", pad, slug(block.Name)))
		for _, child := range children(f, block.Group) {
			writePseudocode(b, f, child, depth+1)
		}
	}
}

// indicatorCall names the declaration's callee: the catalog id upper-cased
// when known, otherwise the block's own slug.
func indicatorCall(block *schema.Block) string {
	if block.Indicator != nil && block.Indicator.IndicatorType != "" {
		return strings.ToUpper(block.Indicator.IndicatorType)
	}
	return slug(block.Name)
}

// declarationArgs renders parameters as comma-joined "key: value" pairs.
func declarationArgs(block *schema.Block) string {
	pairs := make([]string, len(block.Parameters))
	for i, p := range block.Parameters {
		pairs[i] = fmt.Sprintf("%s: %v", p.Name, p.Value)
	}
	return strings.Join(pairs, ", ")
}

// conditionName resolves the condition a signal/action block tests: the
// slug of the block feeding it, or "true" when nothing is connected.
func conditionName(f *schema.Formula, block *schema.Block) string {
	if src := incomingSource(f, block.ID); src != "" {
		return src
	}
	return "true"
}

func conditionOp(block *schema.Block) string {
	if block.Condition != nil {
		return string(block.Condition.Operator)
	}
	return string(schema.OpAnd)
}

// conditionArgs renders a condition block's operands as slugs, falling
// back to the guard expression when no operands are referenced.
func conditionArgs(f *schema.Formula, block *schema.Block) string {
	if block.Condition == nil {
		return ""
	}

	var args []string
	for _, id := range block.Condition.Operands {
		if op := f.Block(id); op != nil {
			args = append(args, slug(op.Name))
		}
	}
	if len(args) == 0 && block.Condition.Guard != nil {
		return fmt.Sprintf("%q", block.Condition.Guard.Source)
	}
	return strings.Join(args, ", ")
}
