package store

import (
	"encoding/json"
	"time"
)

// FormulaRecord is the persisted representation of a formula: the
// serializer's canonical document plus the columns the editor lists and
// filters on. The document is the single source of truth; the other
// columns are denormalized from it at save time.
type FormulaRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Document    json.RawMessage `json:"document"`
	Complexity  string          `json:"complexity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot is one append-only point-in-time copy of a formula document,
// written manually or by the autosave scheduler.
type Snapshot struct {
	ID        int64           `json:"id"`
	FormulaID string          `json:"formula_id"`
	Label     string          `json:"label,omitempty"`
	Document  json.RawMessage `json:"document"`
	Revision  uint64          `json:"revision"`
	CreatedAt time.Time       `json:"created_at"`
}

// FormulaFilter specifies criteria for listing formulas.
type FormulaFilter struct {
	Name   string     `json:"name,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
