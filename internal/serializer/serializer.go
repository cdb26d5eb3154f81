package serializer

import (
	"encoding/json"

	"github.com/stratmind/formulagraph/internal/graph"
	"github.com/stratmind/formulagraph/pkg/schema"
)

// Marshal serializes a formula into the canonical versioned document.
// Transient editor flags are excluded by the block type's own JSON
// contract. Timestamps are written in UTC.
func Marshal(f *schema.Formula) ([]byte, error) {
	if f == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "formula is nil")
	}

	clone := f.Clone()
	doc := Document{
		Version:     DocumentVersion,
		Name:        clone.Name,
		Description: clone.Description,
		Blocks:      clone.Blocks,
		Connections: clone.Connections,
		Metadata: Metadata{
			ID:        clone.ID,
			CreatedAt: clone.CreatedAt.UTC(),
			UpdatedAt: clone.UpdatedAt.UTC(),
		},
	}
	if doc.Blocks == nil {
		doc.Blocks = []schema.Block{}
	}
	if doc.Connections == nil {
		doc.Connections = []schema.Connection{}
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal deserializes a document into a formula, failing closed on any
// structural, version, or invariant violation. A failed call never
// returns a partially populated formula.
//
// guards may be nil to skip guard expression compilation checks.
func Unmarshal(data []byte, guards graph.GuardCompiler) (*schema.Formula, error) {
	if err := validateStructure(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeMalformed, "document does not decode").WithCause(err)
	}

	major, ok := majorVersion(doc.Version)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeVersion,
			"document version %q is not a semantic version", doc.Version)
	}
	wantMajor, _ := majorVersion(DocumentVersion)
	if major != wantMajor {
		return nil, schema.NewErrorf(schema.ErrCodeVersion,
			"document version %q is not supported (want major %d)", doc.Version, wantMajor)
	}

	f := schema.Formula{
		ID:          doc.Metadata.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Blocks:      doc.Blocks,
		Connections: doc.Connections,
		CreatedAt:   doc.Metadata.CreatedAt,
		UpdatedAt:   doc.Metadata.UpdatedAt,
	}
	if f.Blocks == nil {
		f.Blocks = []schema.Block{}
	}
	if f.Connections == nil {
		f.Connections = []schema.Connection{}
	}

	// Invariant gate: a document that decodes but violates graph
	// invariants is rejected, never repaired.
	validator := graph.NewFormulaValidator(guards)
	if result := validator.Validate(&f); !result.Valid() {
		return nil, result.ToError()
	}

	return &f, nil
}
