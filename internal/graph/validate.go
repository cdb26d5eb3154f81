package graph

import (
	"fmt"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// portCompat is the single source of truth for port data-type
// compatibility. A from-type maps to the set of to-types it may feed.
// The signal/condition pairing is directional: a signal output may feed a
// condition input, but not the reverse.
var portCompat = map[schema.PortDataType]map[schema.PortDataType]bool{
	schema.PortNumber:    {schema.PortNumber: true},
	schema.PortBoolean:   {schema.PortBoolean: true},
	schema.PortString:    {schema.PortString: true},
	schema.PortSignal:    {schema.PortSignal: true, schema.PortCondition: true},
	schema.PortCondition: {schema.PortCondition: true},
}

// Compatible reports whether an output of type from may feed an input of
// type to.
func Compatible(from, to schema.PortDataType) bool {
	return portCompat[from][to]
}

// ValidateConnection decides whether a proposed edge is legal within the
// formula. Checks run in a fixed order and the first failure wins:
// block existence, port existence and direction, data-type compatibility,
// self-loop. A nil return means the connection is acceptable.
func ValidateConnection(f *schema.Formula, conn schema.Connection) *schema.GraphError {
	fromBlock := f.Block(conn.FromBlockID)
	if fromBlock == nil {
		return schema.NewErrorf(schema.ErrCodeBlockNotFound,
			"source block %q does not exist", conn.FromBlockID).WithBlock(conn.FromBlockID)
	}
	toBlock := f.Block(conn.ToBlockID)
	if toBlock == nil {
		return schema.NewErrorf(schema.ErrCodeBlockNotFound,
			"target block %q does not exist", conn.ToBlockID).WithBlock(conn.ToBlockID)
	}

	fromPort, ok := fromBlock.Port(conn.FromPort)
	if !ok {
		return schema.NewErrorf(schema.ErrCodePortNotFound,
			"port %q does not exist on block %q", conn.FromPort, conn.FromBlockID).
			WithBlock(conn.FromBlockID)
	}
	if fromPort.Direction != schema.PortOutput {
		return schema.NewErrorf(schema.ErrCodeDirectionMismatch,
			"port %q on block %q is not an output port", conn.FromPort, conn.FromBlockID).
			WithBlock(conn.FromBlockID)
	}

	toPort, ok := toBlock.Port(conn.ToPort)
	if !ok {
		return schema.NewErrorf(schema.ErrCodePortNotFound,
			"port %q does not exist on block %q", conn.ToPort, conn.ToBlockID).
			WithBlock(conn.ToBlockID)
	}
	if toPort.Direction != schema.PortInput {
		return schema.NewErrorf(schema.ErrCodeDirectionMismatch,
			"port %q on block %q is not an input port", conn.ToPort, conn.ToBlockID).
			WithBlock(conn.ToBlockID)
	}

	if !Compatible(fromPort.DataType, toPort.DataType) {
		return schema.NewErrorf(schema.ErrCodeTypeMismatch,
			"output type %q cannot feed input type %q", fromPort.DataType, toPort.DataType).
			WithDetails(map[string]any{
				"from_type": string(fromPort.DataType),
				"to_type":   string(toPort.DataType),
			})
	}

	if conn.FromBlockID == conn.ToBlockID {
		return schema.NewErrorf(schema.ErrCodeSelfLoop,
			"connection loops block %q back to itself", conn.FromBlockID).
			WithBlock(conn.FromBlockID)
	}

	return nil
}

// ValidateParameters checks a parameter list against its own declared
// bounds. Pure function: numeric values must lie within min/max, and
// values of option-carrying parameters must be a listed option.
func ValidateParameters(params []schema.Parameter) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	for i, p := range params {
		path := fmt.Sprintf("parameters[%d]", i)
		if p.ID == "" {
			result.AddError(path, schema.ErrCodeValidation, "parameter has no id")
		}

		switch p.Type {
		case schema.ParamNumber:
			num, ok := toFloat(p.Value)
			if !ok {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q declared number but holds %T", p.Name, p.Value))
				continue
			}
			if p.Min != nil && num < *p.Min {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q value %v below minimum %v", p.Name, num, *p.Min))
			}
			if p.Max != nil && num > *p.Max {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q value %v above maximum %v", p.Name, num, *p.Max))
			}
		case schema.ParamBoolean:
			if _, ok := p.Value.(bool); !ok {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q declared boolean but holds %T", p.Name, p.Value))
			}
		case schema.ParamString:
			s, ok := p.Value.(string)
			if !ok {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q declared string but holds %T", p.Name, p.Value))
				continue
			}
			if len(p.Options) > 0 && !contains(p.Options, s) {
				result.AddError(path, schema.ErrCodeValidation,
					fmt.Sprintf("parameter %q value %q is not a listed option", p.Name, s))
			}
		default:
			result.AddError(path, schema.ErrCodeValidation,
				fmt.Sprintf("parameter %q has unknown type %q", p.Name, p.Type))
		}
	}

	return result
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
