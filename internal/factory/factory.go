// Package factory builds new graph blocks from a block-kind tag and, for
// indicator blocks, an indicator catalog id.
package factory

import (
	"github.com/google/uuid"

	"github.com/stratmind/formulagraph/internal/catalog"
	"github.com/stratmind/formulagraph/pkg/schema"
)

// defaultSizes holds the presentational default size per block kind.
// Purely configuration; block size is never recomputed from content.
var defaultSizes = map[schema.BlockKind]schema.Size{
	schema.BlockKindIndicator: {Width: 180, Height: 120},
	schema.BlockKindSignal:    {Width: 160, Height: 80},
	schema.BlockKindCondition: {Width: 160, Height: 90},
	schema.BlockKindAction:    {Width: 160, Height: 80},
	schema.BlockKindGroup:     {Width: 320, Height: 240},
}

// Factory creates blocks, expanding indicator catalog declarations into
// concrete parameter slots and ports.
type Factory struct {
	catalog *catalog.Catalog
}

// New creates a Factory backed by the given catalog.
//
// Blocks built from a catalog entry are frozen snapshots: changing or
// removing the entry later never affects blocks that were already created
// from it.
func New(c *catalog.Catalog) *Factory {
	return &Factory{catalog: c}
}

// NewBlock builds a block of the given kind at the given position with a
// fresh unique id. For indicator kinds, indicatorID selects the catalog
// entry to expand; an unknown id falls back to a generic, parameter-less
// indicator block rather than failing. indicatorID is ignored for other
// kinds.
func (f *Factory) NewBlock(kind schema.BlockKind, pos schema.Position, indicatorID string) schema.Block {
	block := schema.Block{
		ID:       uuid.NewString(),
		Kind:     kind,
		Position: pos,
		Size:     defaultSizes[kind],
	}

	switch kind {
	case schema.BlockKindIndicator:
		f.populateIndicator(&block, indicatorID)
	case schema.BlockKindSignal:
		block.Name = "Signal"
		block.Category = "logic"
	case schema.BlockKindCondition:
		block.Name = "Condition"
		block.Category = "logic"
		block.Condition = &schema.ConditionPayload{Operator: schema.OpAnd}
	case schema.BlockKindAction:
		block.Name = "Action"
		block.Category = "execution"
		block.Action = &schema.ActionPayload{}
	case schema.BlockKindGroup:
		block.Name = "Group"
		block.Category = "layout"
		block.Group = &schema.GroupPayload{}
	}

	return block
}

// populateIndicator expands the catalog definition into parameters and
// ports, or configures a generic indicator block when the id is unknown.
func (f *Factory) populateIndicator(block *schema.Block, indicatorID string) {
	def, ok := f.catalog.LookupByID(indicatorID)
	if !ok {
		block.Name = "Indicator"
		block.Category = "indicator"
		block.Indicator = &schema.IndicatorPayload{IndicatorType: indicatorID}
		return
	}

	block.Name = def.Name
	block.Category = def.Category
	block.Description = def.Description

	payload := &schema.IndicatorPayload{IndicatorType: def.ID}

	for _, in := range def.Inputs {
		payload.Inputs = append(payload.Inputs, in.Name)
		block.Parameters = append(block.Parameters, schema.Parameter{
			ID:    in.Name,
			Name:  in.Name,
			Type:  in.Type,
			Value: in.Default,
			Min:   copyBound(in.Min),
			Max:   copyBound(in.Max),
			Step:  copyBound(in.Step),
		})
		block.Ports = append(block.Ports, schema.Port{
			ID:        in.Name,
			Name:      in.Name,
			Direction: schema.PortInput,
			DataType:  paramPortType(in.Type),
		})
	}

	for _, out := range def.Outputs {
		payload.Outputs = append(payload.Outputs, out.Name)
		block.Ports = append(block.Ports, schema.Port{
			ID:        out.Name,
			Name:      out.Name,
			Direction: schema.PortOutput,
			DataType:  out.Type,
		})
	}

	block.Indicator = payload
}

// paramPortType maps a parameter type onto the port type carrying it.
func paramPortType(t schema.ParameterType) schema.PortDataType {
	switch t {
	case schema.ParamBoolean:
		return schema.PortBoolean
	case schema.ParamString:
		return schema.PortString
	default:
		return schema.PortNumber
	}
}

func copyBound(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
