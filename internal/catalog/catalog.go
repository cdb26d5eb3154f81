// Package catalog holds the static registry of indicator definitions used
// to instantiate indicator blocks. The catalog is populated once at startup
// (built-ins plus an optional JSON overlay) and is immutable afterwards, so
// it is safe for any number of concurrent readers.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// InputSpec declares one configurable input of an indicator.
type InputSpec struct {
	Name    string               `json:"name"`
	Type    schema.ParameterType `json:"type"`
	Default any                  `json:"default"`
	Min     *float64             `json:"min,omitempty"`
	Max     *float64             `json:"max,omitempty"`
	Step    *float64             `json:"step,omitempty"`
}

// OutputSpec declares one output emitted by an indicator.
type OutputSpec struct {
	Name        string              `json:"name"`
	Type        schema.PortDataType `json:"type"`
	Description string              `json:"description,omitempty"`
}

// IndicatorDefinition is the immutable description of one technical
// indicator. The calculation label is display-only; this core treats the
// indicator's math as opaque.
type IndicatorDefinition struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Inputs      []InputSpec  `json:"inputs,omitempty"`
	Outputs     []OutputSpec `json:"outputs,omitempty"`
	Calculation string       `json:"calculation,omitempty"`
	Icon        string       `json:"icon,omitempty"`
}

// Catalog is the process-wide indicator lookup table.
type Catalog struct {
	byID  map[string]IndicatorDefinition
	order []string
}

// New creates a Catalog from the given definitions. Later definitions with
// a duplicate id replace earlier ones, which is how file overlays override
// built-ins.
func New(defs ...IndicatorDefinition) *Catalog {
	c := &Catalog{byID: make(map[string]IndicatorDefinition, len(defs))}
	for _, def := range defs {
		if _, exists := c.byID[def.ID]; !exists {
			c.order = append(c.order, def.ID)
		}
		c.byID[def.ID] = def
	}
	return c
}

// Builtin creates a Catalog holding only the built-in indicator set.
func Builtin() *Catalog {
	return New(builtinDefinitions...)
}

// Load creates a Catalog from the built-in set overlaid with definitions
// read from a JSON file. The file holds an array of IndicatorDefinition.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var defs []IndicatorDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, schema.NewError(schema.ErrCodeMalformed, "malformed catalog file").WithCause(err)
	}
	for i, def := range defs {
		if def.ID == "" {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "catalog entry %d has no id", i)
		}
	}

	return New(append(append([]IndicatorDefinition(nil), builtinDefinitions...), defs...)...), nil
}

// LookupByID retrieves an indicator definition by id.
// The boolean is false when the id is unknown; lookups never fail harder
// than that so callers can fall back to a generic block.
func (c *Catalog) LookupByID(id string) (IndicatorDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// ListByCategory returns all definitions in the given category, in
// registration order.
func (c *Catalog) ListByCategory(category string) []IndicatorDefinition {
	var out []IndicatorDefinition
	for _, id := range c.order {
		if def := c.byID[id]; def.Category == category {
			out = append(out, def)
		}
	}
	return out
}

// All returns every definition in registration order.
func (c *Catalog) All() []IndicatorDefinition {
	out := make([]IndicatorDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Categories returns the sorted set of category names.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{}, len(c.byID))
	var cats []string
	for _, def := range c.byID {
		if _, ok := seen[def.Category]; !ok {
			seen[def.Category] = struct{}{}
			cats = append(cats, def.Category)
		}
	}
	sort.Strings(cats)
	return cats
}
