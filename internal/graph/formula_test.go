package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// stubCompiler accepts everything except sources containing "bad".
type stubCompiler struct{}

func (stubCompiler) CompileGuard(dialect, source string) error {
	if source == "bad" {
		return schema.NewErrorf(schema.ErrCodeExpression, "cannot compile %q", source)
	}
	return nil
}

func TestValidateFormulaOK(t *testing.T) {
	f := testFormula()
	f.Connections = append(f.Connections, schema.Connection{
		FromBlockID: "ind", FromPort: "oversold", ToBlockID: "cond", ToPort: "in",
	})

	result := NewFormulaValidator(nil).Validate(f)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateFormulaDuplicateBlockIDs(t *testing.T) {
	f := testFormula()
	f.Blocks = append(f.Blocks, schema.Block{ID: "ind", Kind: schema.BlockKindAction, Name: "Clone"})

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeDuplicateBlock, result.Errors[0].Code)
}

func TestValidateFormulaUnknownKind(t *testing.T) {
	f := testFormula()
	f.Blocks = append(f.Blocks, schema.Block{ID: "w", Kind: "widget", Name: "W"})

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "unknown block kind")
}

func TestValidateFormulaBadConnection(t *testing.T) {
	f := testFormula()
	f.Connections = append(f.Connections, schema.Connection{
		FromBlockID: "ind", FromPort: "oversold", ToBlockID: "ghost", ToPort: "in",
	})

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeBlockNotFound, result.Errors[0].Code)
}

func TestValidateFormulaDuplicateConnection(t *testing.T) {
	f := testFormula()
	conn := schema.Connection{FromBlockID: "ind", FromPort: "oversold", ToBlockID: "cond", ToPort: "in"}
	f.Connections = append(f.Connections, conn, conn)

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "duplicate connection")
}

func TestValidateFormulaGroupMembers(t *testing.T) {
	f := testFormula()
	f.Blocks = append(f.Blocks, schema.Block{
		ID: "grp", Kind: schema.BlockKindGroup, Name: "G",
		Group: &schema.GroupPayload{Children: []string{"ind", "ghost"}},
	})

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeBlockNotFound, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Path, "group.children[1]")
}

func TestValidateFormulaDanglingOperandIsWarning(t *testing.T) {
	f := testFormula()
	f.Block("cond").Condition.Operands = []string{"ghost"}

	result := NewFormulaValidator(nil).Validate(f)
	// Dangling operands degrade to warnings; the formula is still usable.
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.ErrCodeBlockNotFound, result.Warnings[0].Code)
}

func TestValidateFormulaGuards(t *testing.T) {
	f := testFormula()
	f.Block("cond").Condition.Guard = &schema.GuardExpression{Dialect: "cel", Source: "bad"}

	// Without a compiler the guard is not checked.
	assert.True(t, NewFormulaValidator(nil).Validate(f).Valid())

	result := NewFormulaValidator(stubCompiler{}).Validate(f)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeExpression, result.Errors[0].Code)

	f.Block("cond").Condition.Guard.Source = "fine"
	assert.True(t, NewFormulaValidator(stubCompiler{}).Validate(f).Valid())
}

func TestValidateFormulaTimestamps(t *testing.T) {
	f := testFormula()
	f.UpdatedAt = f.CreatedAt.Add(-1)

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	assert.Equal(t, "metadata", result.Errors[0].Path)
}

func TestValidateFormulaNil(t *testing.T) {
	result := NewFormulaValidator(nil).Validate(nil)
	assert.False(t, result.Valid())
}

func TestValidateFormulaAggregates(t *testing.T) {
	f := testFormula()
	f.Blocks = append(f.Blocks,
		schema.Block{ID: "w", Kind: "widget", Name: "W"},
		schema.Block{ID: "ind", Kind: schema.BlockKindAction, Name: "Clone"},
	)
	f.Connections = append(f.Connections, schema.Connection{
		FromBlockID: "ghost", FromPort: "x", ToBlockID: "cond", ToPort: "in",
	})

	result := NewFormulaValidator(nil).Validate(f)
	require.False(t, result.Valid())
	// All problems are reported in one pass, not just the first.
	assert.GreaterOrEqual(t, len(result.Errors), 3)

	for i, e := range result.Errors {
		assert.NotEmpty(t, e.Path, fmt.Sprintf("error %d missing path", i))
	}
}
