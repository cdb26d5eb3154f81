package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Formulas ---

func (s *LibSQLStore) SaveFormula(ctx context.Context, rec *FormulaRecord) error {
	if rec.ID == "" {
		return schema.NewError(schema.ErrCodeStore, "formula record requires an id")
	}
	if len(rec.Document) == 0 {
		return schema.NewError(schema.ErrCodeStore, "formula record requires a document")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO formulas (id, name, description, document, complexity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, description=excluded.description, document=excluded.document,
		   complexity=excluded.complexity, updated_at=excluded.updated_at`,
		rec.ID, rec.Name, rec.Description, string(rec.Document), rec.Complexity,
		timeOrNow(rec.CreatedAt), timeOrNow(rec.UpdatedAt),
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "save formula %q", rec.ID).WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetFormula(ctx context.Context, id string) (*FormulaRecord, error) {
	rec := &FormulaRecord{}
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, document, complexity, created_at, updated_at
		 FROM formulas WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &doc, &rec.Complexity, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("formula", id)
	}
	if err != nil {
		return nil, err
	}
	rec.Document = []byte(doc)
	return rec, nil
}

func (s *LibSQLStore) ListFormulas(ctx context.Context, filter FormulaFilter) ([]*FormulaRecord, error) {
	var where []string
	var args []any

	if filter.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Since != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, name, description, document, complexity, created_at, updated_at FROM formulas`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*FormulaRecord
	for rows.Next() {
		rec := &FormulaRecord{}
		var doc string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &doc, &rec.Complexity, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Document = []byte(doc)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *LibSQLStore) DeleteFormula(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM formulas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "formula", id)
}

// --- Snapshots ---

func (s *LibSQLStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.FormulaID == "" {
		return schema.NewError(schema.ErrCodeStore, "snapshot requires a formula id")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO formula_snapshots (formula_id, label, document, revision, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.FormulaID, snap.Label, string(snap.Document), snap.Revision, timeOrNow(snap.CreatedAt),
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "save snapshot for formula %q", snap.FormulaID).WithCause(err)
	}
	id, err := res.LastInsertId()
	if err == nil {
		snap.ID = id
	}
	return nil
}

func (s *LibSQLStore) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	snap := &Snapshot{}
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, formula_id, label, document, revision, created_at
		 FROM formula_snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.FormulaID, &snap.Label, &doc, &snap.Revision, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("snapshot", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, err
	}
	snap.Document = []byte(doc)
	return snap, nil
}

func (s *LibSQLStore) ListSnapshots(ctx context.Context, formulaID string, limit int) ([]*Snapshot, error) {
	query := `SELECT id, formula_id, label, document, revision, created_at
		 FROM formula_snapshots WHERE formula_id = ? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, formulaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var doc string
		if err := rows.Scan(&snap.ID, &snap.FormulaID, &snap.Label, &doc, &snap.Revision, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.Document = []byte(doc)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.GraphError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
