// Package graph owns the authoritative in-memory formula for one editing
// session. All mutation flows through Store; each operation is atomic and
// either preserves every structural invariant or rejects with no state
// change.
package graph

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// Store is the single mutation surface over one Formula.
//
// The editing model is single-writer: exactly one logical editor session
// mutates a formula at a time. The internal mutex exists so background
// readers (the autosave scheduler) can take consistent snapshots, not to
// support concurrent editing.
type Store struct {
	mu       sync.Mutex
	formula  schema.Formula
	revision uint64
	logger   *slog.Logger
	now      func() time.Time
}

// NewFormula creates an empty formula with fresh identity and timestamps.
func NewFormula(name, description string) schema.Formula {
	now := time.Now().UTC()
	return schema.Formula{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Blocks:      []schema.Block{},
		Connections: []schema.Connection{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewStore creates a Store owning the given formula.
// logger may be nil for a silent store.
func NewStore(f schema.Formula, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		formula: f.Clone(),
		logger:  logger,
		now:     time.Now,
	}
}

// Formula returns a deep-copied snapshot of the current graph. Callers
// never receive a mutable alias into store internals.
func (s *Store) Formula() schema.Formula {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formula.Clone()
}

// Revision returns a counter incremented on every successful mutation.
// Used by the autosave scheduler to skip unchanged formulas.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// AddBlock appends a block to the graph. Rejects with DUPLICATE_BLOCK if
// the id is already present; the factory generates unique ids, this is the
// insertion-time defense.
func (s *Store) AddBlock(block schema.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if block.ID == "" {
		return schema.NewError(schema.ErrCodeValidation, "block has no id")
	}
	if !knownKind(block.Kind) {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown block kind %q", block.Kind)
	}
	if s.formula.Block(block.ID) != nil {
		return schema.NewErrorf(schema.ErrCodeDuplicateBlock,
			"block id %q already exists", block.ID).WithBlock(block.ID)
	}

	s.formula.Blocks = append(s.formula.Blocks, block.Clone())
	s.touch()
	s.logger.Debug("block added",
		slog.String("block_id", block.ID),
		slog.String("kind", string(block.Kind)))
	return nil
}

// MoveBlock replaces only the block's position. Unknown ids return
// BLOCK_NOT_FOUND with no state change. O(1) apart from the id scan; safe
// to call once per input event during a drag.
func (s *Store) MoveBlock(id string, pos schema.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.formula.Block(id)
	if b == nil {
		return schema.NewErrorf(schema.ErrCodeBlockNotFound, "no block %q", id).WithBlock(id)
	}

	b.Position = pos
	s.touch()
	return nil
}

// UpdateBlockParameters replaces the block's parameter list wholesale
// after bounds validation. Ports are never altered here: a change that
// needs different ports means remove and re-add the block.
func (s *Store) UpdateBlockParameters(id string, params []schema.Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.formula.Block(id)
	if b == nil {
		return schema.NewErrorf(schema.ErrCodeBlockNotFound, "no block %q", id).WithBlock(id)
	}

	if result := ValidateParameters(params); !result.Valid() {
		return result.ToError()
	}

	b.Parameters = schema.CloneParameters(params)
	s.touch()
	s.logger.Debug("block parameters updated", slog.String("block_id", id))
	return nil
}

// RemoveBlock removes the block and cascades removal of every connection
// touching it, plus any group-membership and operand references to it.
// The cascade is mandatory: a dangling reference is never observable
// between operations.
func (s *Store) RemoveBlock(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.formula.Blocks {
		if s.formula.Blocks[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return schema.NewErrorf(schema.ErrCodeBlockNotFound, "no block %q", id).WithBlock(id)
	}

	s.formula.Blocks = append(s.formula.Blocks[:idx], s.formula.Blocks[idx+1:]...)

	kept := s.formula.Connections[:0]
	removed := 0
	for _, c := range s.formula.Connections {
		if c.FromBlockID == id || c.ToBlockID == id {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.formula.Connections = kept

	for i := range s.formula.Blocks {
		b := &s.formula.Blocks[i]
		if b.Group != nil {
			b.Group.Children = removeString(b.Group.Children, id)
		}
		if b.Condition != nil {
			b.Condition.Operands = removeString(b.Condition.Operands, id)
		}
	}

	s.touch()
	s.logger.Debug("block removed",
		slog.String("block_id", id),
		slog.Int("cascaded_connections", removed))
	return nil
}

// AddConnection validates and appends an edge. Validation failures reject
// with a coded error and no state change. An exact duplicate of an
// existing connection is accepted silently without appending.
func (s *Store) AddConnection(conn schema.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateConnection(&s.formula, conn); err != nil {
		return err
	}

	if s.formula.HasConnection(conn) {
		return nil // idempotent
	}

	s.formula.Connections = append(s.formula.Connections, conn)
	s.touch()
	s.logger.Debug("connection added",
		slog.String("from", conn.FromBlockID+"."+conn.FromPort),
		slog.String("to", conn.ToBlockID+"."+conn.ToPort))
	return nil
}

// RemoveConnection removes the first exact 4-tuple match; no-op when
// absent.
func (s *Store) RemoveConnection(conn schema.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.formula.Connections {
		if c.Equal(conn) {
			s.formula.Connections = append(s.formula.Connections[:i], s.formula.Connections[i+1:]...)
			s.touch()
			return nil
		}
	}
	return nil
}

// touch refreshes the mutation timestamp and revision. Callers hold the lock.
func (s *Store) touch() {
	s.formula.UpdatedAt = s.now().UTC()
	s.revision++
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
