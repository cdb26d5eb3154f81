package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratmind/formulagraph/internal/catalog"
	"github.com/stratmind/formulagraph/pkg/schema"
)

func newFactory() *Factory {
	return New(catalog.Builtin())
}

// --- Indicator expansion ---

func TestNewBlockRSI(t *testing.T) {
	f := newFactory()
	block := f.NewBlock(schema.BlockKindIndicator, schema.Position{X: 100, Y: 50}, "rsi")

	assert.NotEmpty(t, block.ID)
	assert.Equal(t, schema.BlockKindIndicator, block.Kind)
	assert.Equal(t, "RSI", block.Name)
	assert.Equal(t, "momentum", block.Category)
	assert.Equal(t, schema.Position{X: 100, Y: 50}, block.Position)
	assert.Equal(t, schema.Size{Width: 180, Height: 120}, block.Size)

	// Every catalog input becomes a parameter with the declared default.
	require.Len(t, block.Parameters, 3)
	period := block.Parameters[0]
	assert.Equal(t, "period", period.ID)
	assert.Equal(t, float64(14), period.Value)
	require.NotNil(t, period.Min)
	assert.Equal(t, float64(2), *period.Min)

	// Three input ports plus three output ports.
	require.Len(t, block.Ports, 6)
	oversold, ok := block.Port("oversold")
	require.True(t, ok)
	assert.Equal(t, schema.PortOutput, oversold.Direction)
	assert.Equal(t, schema.PortBoolean, oversold.DataType)

	periodPort, ok := block.Port("period")
	require.True(t, ok)
	assert.Equal(t, schema.PortInput, periodPort.Direction)
	assert.Equal(t, schema.PortNumber, periodPort.DataType)

	require.NotNil(t, block.Indicator)
	assert.Equal(t, "rsi", block.Indicator.IndicatorType)
	assert.Equal(t, []string{"period", "oversold_level", "overbought_level"}, block.Indicator.Inputs)
	assert.Equal(t, []string{"value", "oversold", "overbought"}, block.Indicator.Outputs)
}

func TestNewBlockUnknownIndicator(t *testing.T) {
	f := newFactory()
	block := f.NewBlock(schema.BlockKindIndicator, schema.Position{}, "mystery")

	// Unknown catalog ids fall back to a generic block, never fail.
	assert.NotEmpty(t, block.ID)
	assert.Equal(t, "Indicator", block.Name)
	assert.Empty(t, block.Parameters)
	assert.Empty(t, block.Ports)
	require.NotNil(t, block.Indicator)
	assert.Equal(t, "mystery", block.Indicator.IndicatorType)
}

// --- Other kinds ---

func TestNewBlockCondition(t *testing.T) {
	f := newFactory()
	block := f.NewBlock(schema.BlockKindCondition, schema.Position{}, "")

	assert.Equal(t, "Condition", block.Name)
	assert.Equal(t, schema.Size{Width: 160, Height: 90}, block.Size)
	require.NotNil(t, block.Condition)
	assert.Equal(t, schema.OpAnd, block.Condition.Operator)
	assert.Nil(t, block.Indicator)
}

func TestNewBlockDefaultSizes(t *testing.T) {
	f := newFactory()

	assert.Equal(t, schema.Size{Width: 160, Height: 80},
		f.NewBlock(schema.BlockKindSignal, schema.Position{}, "").Size)
	assert.Equal(t, schema.Size{Width: 160, Height: 80},
		f.NewBlock(schema.BlockKindAction, schema.Position{}, "").Size)
	assert.Equal(t, schema.Size{Width: 320, Height: 240},
		f.NewBlock(schema.BlockKindGroup, schema.Position{}, "").Size)
}

func TestNewBlockUniqueIDs(t *testing.T) {
	f := newFactory()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b := f.NewBlock(schema.BlockKindSignal, schema.Position{}, "")
		assert.False(t, seen[b.ID], "duplicate id %q", b.ID)
		seen[b.ID] = true
	}
}

// --- Catalog isolation ---

func TestBlockIsFrozenSnapshot(t *testing.T) {
	f := newFactory()
	first := f.NewBlock(schema.BlockKindIndicator, schema.Position{}, "rsi")

	// Mutating a created block's bounds must not leak into the catalog or
	// into blocks created afterwards.
	*first.Parameters[0].Min = 99

	second := f.NewBlock(schema.BlockKindIndicator, schema.Position{}, "rsi")
	assert.Equal(t, float64(2), *second.Parameters[0].Min)

	def, _ := f.catalog.LookupByID("rsi")
	assert.Equal(t, float64(2), *def.Inputs[0].Min)
}
