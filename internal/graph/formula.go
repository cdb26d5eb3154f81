package graph

import (
	"fmt"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// GuardCompiler checks that a condition guard expression compiles in its
// dialect. Satisfied by expressions.Registry (defined here to keep the
// dependency pointing outward).
type GuardCompiler interface {
	CompileGuard(dialect, source string) error
}

// FormulaValidator checks every structural invariant of a Formula:
// unique block ids, known kinds, valid connection endpoints, no duplicate
// connections, consistent timestamps, resolvable group/operand references,
// and compilable guard expressions.
type FormulaValidator struct {
	guards GuardCompiler
}

// NewFormulaValidator creates a FormulaValidator.
// guards may be nil to skip guard expression checks.
func NewFormulaValidator(guards GuardCompiler) *FormulaValidator {
	return &FormulaValidator{guards: guards}
}

// Validate runs the full invariant set and returns an aggregated result.
func (v *FormulaValidator) Validate(f *schema.Formula) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if f == nil {
		result.AddError("/", schema.ErrCodeValidation, "formula is nil")
		return result
	}

	v.checkBlocks(f, result)
	v.checkConnections(f, result)
	v.checkTimestamps(f, result)
	return result
}

func (v *FormulaValidator) checkBlocks(f *schema.Formula, result *schema.ValidationResult) {
	seen := make(map[string]bool, len(f.Blocks))

	for i := range f.Blocks {
		b := &f.Blocks[i]
		path := fmt.Sprintf("blocks[%d]", i)

		if b.ID == "" {
			result.AddError(path, schema.ErrCodeValidation, "block has no id")
			continue
		}
		if seen[b.ID] {
			result.AddError(path, schema.ErrCodeDuplicateBlock,
				fmt.Sprintf("duplicate block id %q", b.ID))
		}
		seen[b.ID] = true

		if !knownKind(b.Kind) {
			result.AddError(path, schema.ErrCodeValidation,
				fmt.Sprintf("unknown block kind %q", b.Kind))
		}

		result.Merge(ValidateParameters(b.Parameters))

		if b.Group != nil {
			for j, child := range b.Group.Children {
				if f.Block(child) == nil {
					result.AddError(fmt.Sprintf("%s.group.children[%d]", path, j),
						schema.ErrCodeBlockNotFound,
						fmt.Sprintf("group member %q does not exist", child))
				}
			}
		}

		if b.Condition != nil {
			for j, op := range b.Condition.Operands {
				if f.Block(op) == nil {
					result.AddWarning(fmt.Sprintf("%s.condition.operands[%d]", path, j),
						schema.ErrCodeBlockNotFound,
						fmt.Sprintf("operand %q does not reference a block", op))
				}
			}
			if g := b.Condition.Guard; g != nil && v.guards != nil {
				if err := v.guards.CompileGuard(g.Dialect, g.Source); err != nil {
					result.AddError(path+".condition.guard",
						schema.ErrCodeExpression, err.Error())
				}
			}
		}
	}
}

func (v *FormulaValidator) checkConnections(f *schema.Formula, result *schema.ValidationResult) {
	for i, conn := range f.Connections {
		path := fmt.Sprintf("connections[%d]", i)

		if err := ValidateConnection(f, conn); err != nil {
			result.AddError(path, err.Code, err.Message)
			continue
		}

		for j := 0; j < i; j++ {
			if f.Connections[j].Equal(conn) {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("duplicate connection %s.%s -> %s.%s",
						conn.FromBlockID, conn.FromPort, conn.ToBlockID, conn.ToPort))
				break
			}
		}
	}
}

func (v *FormulaValidator) checkTimestamps(f *schema.Formula, result *schema.ValidationResult) {
	if f.UpdatedAt.Before(f.CreatedAt) {
		result.AddError("metadata", schema.ErrCodeValidation,
			"updated_at precedes created_at")
	}
}

func knownKind(k schema.BlockKind) bool {
	for _, known := range schema.KnownBlockKinds {
		if k == known {
			return true
		}
	}
	return false
}
