package schema

import "time"

// Connection is a directed edge from one block's output port to another
// block's input port. It has no intrinsic id: identity is the 4-tuple.
type Connection struct {
	FromBlockID string `json:"from_block_id"`
	FromPort    string `json:"from_port"`
	ToBlockID   string `json:"to_block_id"`
	ToPort      string `json:"to_port"`
}

// Equal reports whether two connections have identical 4-tuples.
func (c Connection) Equal(other Connection) bool {
	return c.FromBlockID == other.FromBlockID &&
		c.FromPort == other.FromPort &&
		c.ToBlockID == other.ToBlockID &&
		c.ToPort == other.ToPort
}

// Formula is the graph aggregate for one trading strategy.
type Formula struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Blocks      []Block      `json:"blocks"`
	Connections []Connection `json:"connections"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Block returns a pointer to the block with the given id, or nil.
// The pointer aliases the formula's own slice; callers that must not
// mutate the formula should use Clone first.
func (f *Formula) Block(id string) *Block {
	for i := range f.Blocks {
		if f.Blocks[i].ID == id {
			return &f.Blocks[i]
		}
	}
	return nil
}

// HasConnection reports whether an exact 4-tuple match exists.
func (f *Formula) HasConnection(conn Connection) bool {
	for _, c := range f.Connections {
		if c.Equal(conn) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the formula. Mutating the copy never
// affects the original.
func (f Formula) Clone() Formula {
	out := f
	out.Blocks = make([]Block, len(f.Blocks))
	for i, b := range f.Blocks {
		out.Blocks[i] = b.Clone()
	}
	out.Connections = append([]Connection(nil), f.Connections...)
	return out
}
