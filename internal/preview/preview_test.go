package preview

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stratmind/formulagraph/pkg/schema"
)

func previewFormula() *schema.Formula {
	return &schema.Formula{
		ID:   "f1",
		Name: "RSI Reversal",
		Blocks: []schema.Block{
			{
				ID: "rsi", Kind: schema.BlockKindIndicator, Name: "RSI Block",
				Parameters: []schema.Parameter{
					{ID: "period", Name: "period", Type: schema.ParamNumber, Value: float64(14)},
					{ID: "oversold_level", Name: "oversold level", Type: schema.ParamNumber, Value: float64(30)},
				},
				Indicator: &schema.IndicatorPayload{IndicatorType: "rsi"},
			},
			{
				ID: "entry", Kind: schema.BlockKindCondition, Name: "Entry",
				Condition: &schema.ConditionPayload{Operator: schema.OpAnd, Operands: []string{"rsi"}},
			},
			{ID: "buy", Kind: schema.BlockKindSignal, Name: "Buy Signal"},
		},
		Connections: []schema.Connection{
			{FromBlockID: "entry", FromPort: "out", ToBlockID: "buy", ToPort: "in"},
		},
	}
}

// --- Describe ---

func TestDescribeEmpty(t *testing.T) {
	assert.Equal(t, "This strategy is empty.", Describe(&schema.Formula{}))
}

func TestDescribe(t *testing.T) {
	got := Describe(previewFormula())

	want := strings.Join([]string{
		"Calculate RSI Block with period: 14 and oversold level: 30.",
		"Check the Entry condition (AND).",
		"Raise the Buy Signal signal.",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestDescribeJoinsThreeParams(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{{
		ID: "b", Kind: schema.BlockKindIndicator, Name: "Stochastic",
		Parameters: []schema.Parameter{
			{Name: "k", Value: float64(14)},
			{Name: "d", Value: float64(3)},
			{Name: "smooth", Value: float64(3)},
		},
	}}}

	assert.Equal(t, "Calculate Stochastic with k: 14, d: 3 and smooth: 3.", Describe(f))
}

func TestDescribeAction(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{
		{ID: "a", Kind: schema.BlockKindAction, Name: "Place Order"},
	}}
	assert.Equal(t, "Execute the Place Order action.", Describe(f))
}

func TestDescribeGroupRecursion(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{
		{
			ID: "grp", Kind: schema.BlockKindGroup, Name: "Entry Logic",
			Group: &schema.GroupPayload{Children: []string{"rsi", "entry"}},
		},
		{ID: "rsi", Kind: schema.BlockKindIndicator, Name: "RSI"},
		{
			ID: "entry", Kind: schema.BlockKindCondition, Name: "Entry",
			Condition: &schema.ConditionPayload{Operator: schema.OpOr},
		},
	}}

	want := strings.Join([]string{
		"The Entry Logic group contains:",
		"  Calculate RSI.",
		"  Check the Entry condition (OR).",
	}, "\n")
	assert.Equal(t, want, Describe(f))
}

// --- Pseudocode ---

func TestPseudocode(t *testing.T) {
	got := Pseudocode(previewFormula())

	want := strings.Join([]string{
		"rsi_block = RSI(period: 14, oversold level: 30)",
		"entry = AND(rsi_block)",
		"if entry:",
		"  signal buy_signal",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestPseudocodeUnconnectedSignal(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{
		{ID: "buy", Kind: schema.BlockKindSignal, Name: "Buy"},
	}}

	assert.Equal(t, "if true:\n  signal buy", Pseudocode(f))
}

func TestPseudocodeGuardFallback(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{{
		ID: "c", Kind: schema.BlockKindCondition, Name: "Breakout",
		Condition: &schema.ConditionPayload{
			Operator: schema.OpAnd,
			Guard:    &schema.GuardExpression{Dialect: "cel", Source: "close > high"},
		},
	}}}

	assert.Equal(t, `breakout = AND("close > high")`, Pseudocode(f))
}

func TestPseudocodeGroupNesting(t *testing.T) {
	f := &schema.Formula{Blocks: []schema.Block{
		{
			ID: "outer", Kind: schema.BlockKindGroup, Name: "Outer",
			Group: &schema.GroupPayload{Children: []string{"inner"}},
		},
		{
			ID: "inner", Kind: schema.BlockKindGroup, Name: "Inner",
			Group: &schema.GroupPayload{Children: []string{"act"}},
		},
		{ID: "act", Kind: schema.BlockKindAction, Name: "Close Position"},
	}}

	want := strings.Join([]string{
		"group outer:",
		"  group inner:",
		"    if true:",
		"      execute close_position",
	}, "\n")
	assert.Equal(t, want, Pseudocode(f))
}

// --- Classify ---

func TestClassifyBuckets(t *testing.T) {
	cases := []struct {
		blocks, conns int
		want          Complexity
	}{
		{0, 0, ComplexitySimple},
		{3, 2, ComplexitySimple},
		{4, 2, ComplexityMedium}, // one block over the simple ceiling
		{3, 3, ComplexityMedium}, // one connection over the simple ceiling
		{8, 6, ComplexityMedium},
		{9, 6, ComplexityComplex},
		{8, 7, ComplexityComplex},
		{20, 30, ComplexityComplex},
	}

	for _, tc := range cases {
		f := &schema.Formula{}
		for i := 0; i < tc.blocks; i++ {
			f.Blocks = append(f.Blocks, schema.Block{ID: fmt.Sprintf("b%d", i)})
		}
		for i := 0; i < tc.conns; i++ {
			f.Connections = append(f.Connections, schema.Connection{FromBlockID: fmt.Sprintf("b%d", i)})
		}
		assert.Equal(t, tc.want, Classify(f),
			"%d blocks / %d connections", tc.blocks, tc.conns)
	}
}

func TestClassifyMonotone(t *testing.T) {
	rank := map[Complexity]int{ComplexitySimple: 0, ComplexityMedium: 1, ComplexityComplex: 2}

	f := &schema.Formula{}
	prev := Classify(f)
	for i := 0; i < 12; i++ {
		f.Blocks = append(f.Blocks, schema.Block{ID: fmt.Sprintf("b%d", i)})
		cur := Classify(f)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "adding a block lowered the bucket")
		prev = cur
	}
}
