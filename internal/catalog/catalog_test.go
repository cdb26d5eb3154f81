package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// --- Builtin set ---

func TestBuiltinLookup(t *testing.T) {
	c := Builtin()

	def, ok := c.LookupByID("rsi")
	require.True(t, ok)
	assert.Equal(t, "RSI", def.Name)
	assert.Equal(t, "momentum", def.Category)

	require.Len(t, def.Inputs, 3)
	period := def.Inputs[0]
	assert.Equal(t, "period", period.Name)
	assert.Equal(t, float64(14), period.Default)
	require.NotNil(t, period.Min)
	assert.Equal(t, float64(2), *period.Min)

	require.Len(t, def.Outputs, 3)
	assert.Equal(t, schema.PortNumber, def.Outputs[0].Type)
	assert.Equal(t, "oversold", def.Outputs[1].Name)
	assert.Equal(t, schema.PortBoolean, def.Outputs[1].Type)
}

func TestBuiltinCoversCoreIndicators(t *testing.T) {
	c := Builtin()
	for _, id := range []string{"rsi", "sma", "ema", "macd", "bollinger", "stochastic", "atr", "volume"} {
		_, ok := c.LookupByID(id)
		assert.True(t, ok, "missing builtin %q", id)
	}
}

func TestLookupUnknown(t *testing.T) {
	c := Builtin()
	_, ok := c.LookupByID("nonexistent")
	assert.False(t, ok)
}

func TestListByCategory(t *testing.T) {
	c := Builtin()

	momentum := c.ListByCategory("momentum")
	require.Len(t, momentum, 3)
	// Registration order is preserved.
	assert.Equal(t, "rsi", momentum[0].ID)
	assert.Equal(t, "macd", momentum[1].ID)
	assert.Equal(t, "stochastic", momentum[2].ID)

	assert.Empty(t, c.ListByCategory("no-such-category"))
}

func TestCategoriesSorted(t *testing.T) {
	c := Builtin()
	assert.Equal(t, []string{"momentum", "trend", "volatility", "volume"}, c.Categories())
}

func TestAllPreservesOrder(t *testing.T) {
	c := Builtin()
	all := c.All()
	require.Len(t, all, 8)
	assert.Equal(t, "rsi", all[0].ID)
	assert.Equal(t, "volume", all[len(all)-1].ID)
}

// --- File overlay ---

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	overlay := `[
		{"id": "rsi", "name": "Custom RSI", "category": "momentum"},
		{"id": "vwap", "name": "VWAP", "category": "volume",
		 "outputs": [{"name": "value", "type": "number"}]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	// Overlay overrides a builtin in place.
	rsi, ok := c.LookupByID("rsi")
	require.True(t, ok)
	assert.Equal(t, "Custom RSI", rsi.Name)
	assert.Empty(t, rsi.Inputs)

	// And adds new entries after the builtins.
	vwap, ok := c.LookupByID("vwap")
	require.True(t, ok)
	assert.Equal(t, "VWAP", vwap.Name)

	all := c.All()
	assert.Equal(t, "rsi", all[0].ID)
	assert.Equal(t, "vwap", all[len(all)-1].ID)
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeMalformed, schema.CodeOf(err))
}

func TestLoadEntryWithoutID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Nameless", "category": "x"}]`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
