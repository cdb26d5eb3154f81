package store

import "context"

// Store defines the formula persistence contract.
// All implementations must be safe for concurrent use. Persistence is
// whole-document: concurrent sessions editing the same formula resolve as
// last write wins, which is why the editing layer above serializes access
// per formula.
type Store interface {
	// Formulas
	SaveFormula(ctx context.Context, rec *FormulaRecord) error
	GetFormula(ctx context.Context, id string) (*FormulaRecord, error)
	ListFormulas(ctx context.Context, filter FormulaFilter) ([]*FormulaRecord, error)
	DeleteFormula(ctx context.Context, id string) error

	// Snapshots (append-only)
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id int64) (*Snapshot, error)
	ListSnapshots(ctx context.Context, formulaID string, limit int) ([]*Snapshot, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
