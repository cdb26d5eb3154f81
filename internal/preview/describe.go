package preview

import (
	"fmt"
	"strings"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// EmptyDescription is the fixed sentence returned for a formula with no
// blocks.
const EmptyDescription = "This strategy is empty."

// Describe renders a deterministic natural-language description of the
// formula: one sentence per top-level block, recursing into group members
// with increasing indentation.
func Describe(f *schema.Formula) string {
	if len(f.Blocks) == 0 {
		return EmptyDescription
	}

	var b strings.Builder
	for _, block := range topLevel(f) {
		describeBlock(&b, f, block, 0)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeBlock(b *strings.Builder, f *schema.Formula, block *schema.Block, depth int) {
	b.WriteString(indent(depth))
	b.WriteString(blockSentence(block))
	b.WriteString("\n")

	if block.Group != nil {
		for _, child := range children(f, block.Group) {
			describeBlock(b, f, child, depth+1)
		}
	}
}

// blockSentence renders one block as a sentence, appending the parameter
// pairs when the block has any.
func blockSentence(block *schema.Block) string {
	params := paramPairs(block.Parameters)

	switch block.Kind {
	case schema.BlockKindIndicator:
		if params != "" {
			return fmt.Sprintf("Calculate %s with %s.", block.Name, params)
		}
		return fmt.Sprintf("Calculate %s.", block.Name)

	case schema.BlockKindSignal:
		if params != "" {
			return fmt.Sprintf("Raise the %s signal with %s.", block.Name, params)
		}
		return fmt.Sprintf("Raise the %s signal.", block.Name)

	case schema.BlockKindCondition:
		op := schema.OpAnd
		if block.Condition != nil {
			op = block.Condition.Operator
		}
		if params != "" {
			return fmt.Sprintf("Check the %s condition (%s) with %s.", block.Name, op, params)
		}
		return fmt.Sprintf("Check the %s condition (%s).", block.Name, op)

	case schema.BlockKindAction:
		if params != "" {
			return fmt.Sprintf("Execute the %s action with %s.", block.Name, params)
		}
		return fmt.Sprintf("Execute the %s action.", block.Name)

	case schema.BlockKindGroup:
		return fmt.Sprintf("The %s group contains:", block.Name)

	default:
		return fmt.Sprintf("Use %s.", block.Name)
	}
}
