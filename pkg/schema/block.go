package schema

// BlockKind discriminates the node types of a formula graph.
// The set is closed: every kind-specific field hangs off the payload
// selected by Kind.
type BlockKind string

const (
	BlockKindIndicator BlockKind = "indicator"
	BlockKindSignal    BlockKind = "signal"
	BlockKindCondition BlockKind = "condition"
	BlockKindAction    BlockKind = "action"
	BlockKindGroup     BlockKind = "group"
)

// KnownBlockKinds lists every valid BlockKind.
var KnownBlockKinds = []BlockKind{
	BlockKindIndicator,
	BlockKindSignal,
	BlockKindCondition,
	BlockKindAction,
	BlockKindGroup,
}

// PortDirection indicates whether a port accepts or emits values.
type PortDirection string

const (
	PortInput  PortDirection = "input"
	PortOutput PortDirection = "output"
)

// PortDataType is the wire type carried by a port.
type PortDataType string

const (
	PortNumber    PortDataType = "number"
	PortBoolean   PortDataType = "boolean"
	PortSignal    PortDataType = "signal"
	PortCondition PortDataType = "condition"
	PortString    PortDataType = "string"
)

// ParameterType is the value type of a block parameter.
type ParameterType string

const (
	ParamNumber  ParameterType = "number"
	ParamString  ParameterType = "string"
	ParamBoolean ParameterType = "boolean"
)

// ConditionOperator is the boolean combinator of a condition block.
type ConditionOperator string

const (
	OpAnd ConditionOperator = "AND"
	OpOr  ConditionOperator = "OR"
	OpNot ConditionOperator = "NOT"
)

// Position is a block's canvas location.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a block's presentational extent. Fixed per kind at creation,
// never recomputed from content.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Parameter is one typed, bounded configuration slot on a block.
type Parameter struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    ParameterType `json:"type"`
	Value   any           `json:"value"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Step    *float64      `json:"step,omitempty"`
	Options []string      `json:"options,omitempty"`
}

// Port is a typed, directional connection point on a block.
type Port struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Direction PortDirection `json:"direction"`
	DataType  PortDataType  `json:"data_type"`
	Required  bool          `json:"required,omitempty"`
}

// GuardExpression is an optional expression attached to a condition block.
// Dialect selects the evaluation engine: "cel", "expr", or "jq".
type GuardExpression struct {
	Dialect string `json:"dialect"`
	Source  string `json:"source"`
}

// IndicatorPayload carries indicator-specific block state.
// Inputs/Outputs are the declared names snapshotted from the catalog at
// creation time; later catalog changes never touch existing blocks.
type IndicatorPayload struct {
	IndicatorType string   `json:"indicator_type"`
	Inputs        []string `json:"inputs,omitempty"`
	Outputs       []string `json:"outputs,omitempty"`
}

// ConditionPayload carries condition-specific block state.
// Operands reference other blocks by id, never by embedded copy.
type ConditionPayload struct {
	Operator ConditionOperator `json:"operator"`
	Operands []string          `json:"operands,omitempty"`
	Guard    *GuardExpression  `json:"guard,omitempty"`
}

// ActionPayload carries action-specific block state.
type ActionPayload struct {
	ActionType string `json:"action_type"`
}

// GroupPayload carries group-specific block state.
// Children is an ordered list of member block ids; members live in the
// formula's block list, not inside the group.
type GroupPayload struct {
	Children  []string `json:"children,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
}

// Block is a single node in a formula graph. At most one payload pointer
// is non-nil, matching Kind.
type Block struct {
	ID          string      `json:"id"`
	Kind        BlockKind   `json:"kind"`
	Category    string      `json:"category,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Position    Position    `json:"position"`
	Size        Size        `json:"size"`
	Parameters  []Parameter `json:"parameters,omitempty"`
	Ports       []Port      `json:"ports,omitempty"`

	Indicator *IndicatorPayload `json:"indicator,omitempty"`
	Condition *ConditionPayload `json:"condition,omitempty"`
	Action    *ActionPayload    `json:"action,omitempty"`
	Group     *GroupPayload     `json:"group,omitempty"`

	// Editor session state. Excluded from serialization; always false
	// after deserialization.
	IsSelected bool `json:"-"`
	IsDragging bool `json:"-"`
}

// Port returns the port with the given id, or false if absent.
func (b *Block) Port(id string) (Port, bool) {
	for _, p := range b.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	out.Parameters = cloneParameters(b.Parameters)
	out.Ports = append([]Port(nil), b.Ports...)
	if b.Indicator != nil {
		ind := *b.Indicator
		ind.Inputs = append([]string(nil), b.Indicator.Inputs...)
		ind.Outputs = append([]string(nil), b.Indicator.Outputs...)
		out.Indicator = &ind
	}
	if b.Condition != nil {
		cond := *b.Condition
		cond.Operands = append([]string(nil), b.Condition.Operands...)
		if b.Condition.Guard != nil {
			g := *b.Condition.Guard
			cond.Guard = &g
		}
		out.Condition = &cond
	}
	if b.Action != nil {
		act := *b.Action
		out.Action = &act
	}
	if b.Group != nil {
		grp := *b.Group
		grp.Children = append([]string(nil), b.Group.Children...)
		out.Group = &grp
	}
	return out
}

// CloneParameters deep-copies a parameter list, including bound pointers.
func CloneParameters(params []Parameter) []Parameter {
	return cloneParameters(params)
}

func cloneParameters(params []Parameter) []Parameter {
	if params == nil {
		return nil
	}
	out := make([]Parameter, len(params))
	for i, p := range params {
		cp := p
		if p.Min != nil {
			v := *p.Min
			cp.Min = &v
		}
		if p.Max != nil {
			v := *p.Max
			cp.Max = &v
		}
		if p.Step != nil {
			v := *p.Step
			cp.Step = &v
		}
		cp.Options = append([]string(nil), p.Options...)
		out[i] = cp
	}
	return out
}
