package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stratmind/formulagraph/internal/graph"
	"github.com/stratmind/formulagraph/internal/logging"
	"github.com/stratmind/formulagraph/internal/preview"
	"github.com/stratmind/formulagraph/internal/serializer"
	"github.com/stratmind/formulagraph/internal/store"
	"github.com/stratmind/formulagraph/pkg/schema"
)

// handleCreate creates a new empty formula and opens a session for it.
func (s *EditorServer) handleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	description := req.GetString("description", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	f := graph.NewFormula(name, description)
	session := graph.NewStore(f, s.logger)
	s.sessions.Open(f.ID, session)
	s.captureClient(ctx, f.ID)

	logging.LogWith(logging.WithFormulaID(ctx, f.ID), s.logger).Info("formula created",
		"name", name,
	)

	return marshalResult(map[string]any{
		"formula_id": f.ID,
		"name":       f.Name,
		"created_at": f.CreatedAt.Format(time.RFC3339),
	})
}

// handleOpen loads a persisted formula and opens a session for it.
func (s *EditorServer) handleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formulaID, err := req.RequireString("formula_id")
	if err != nil {
		return mcp.NewToolResultError("formula_id is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, getErr := s.store.GetFormula(ctx, formulaID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("formula lookup failed: %v", getErr)), nil
	}

	f, decodeErr := serializer.Unmarshal(rec.Document, s.guards)
	if decodeErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stored document rejected: %v", decodeErr)), nil
	}

	session := graph.NewStore(*f, s.logger)
	s.sessions.Open(f.ID, session)
	s.captureClient(ctx, f.ID)

	logging.LogWith(logging.WithFormulaID(ctx, f.ID), s.logger).Info("formula opened",
		"name", f.Name,
	)

	return marshalResult(map[string]any{
		"formula_id":  f.ID,
		"name":        f.Name,
		"blocks":      len(f.Blocks),
		"connections": len(f.Connections),
		"complexity":  string(preview.Classify(f)),
	})
}

// handleAddBlock builds a block via the factory and adds it to the graph.
func (s *EditorServer) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	pos := schema.Position{
		X: req.GetFloat("x", 0),
		Y: req.GetFloat("y", 0),
	}
	block := s.factory.NewBlock(schema.BlockKind(kind), pos, req.GetString("indicator_id", ""))

	if addErr := session.AddBlock(block); addErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add block failed: %v", addErr)), nil
	}
	return marshalResult(block)
}

// handleMoveBlock updates a block's canvas position.
func (s *EditorServer) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError("block_id is required"), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError("x is required"), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError("y is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	if moveErr := session.MoveBlock(blockID, schema.Position{X: x, Y: y}); moveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("move block failed: %v", moveErr)), nil
	}
	return marshalResult(map[string]any{"ok": true, "block_id": blockID, "x": x, "y": y})
}

// handleUpdateParams sets new values on a block's parameters by id.
func (s *EditorServer) handleUpdateParams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError("block_id is required"), nil
	}
	values := mcp.ParseStringMap(req, "params", nil)
	if values == nil {
		return mcp.NewToolResultError("params is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	f := session.Formula()
	block := f.Block(blockID)
	if block == nil {
		return mcp.NewToolResultError(fmt.Sprintf("block %q not found", blockID)), nil
	}

	params := schema.CloneParameters(block.Parameters)
	for id, value := range values {
		found := false
		for i := range params {
			if params[i].ID == id {
				params[i].Value = value
				found = true
				break
			}
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("block %q has no parameter %q", blockID, id)), nil
		}
	}

	if updErr := session.UpdateBlockParameters(blockID, params); updErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update params failed: %v", updErr)), nil
	}
	return marshalResult(map[string]any{"ok": true, "block_id": blockID, "parameters": params})
}

// handleRemoveBlock removes a block and cascades its connections.
func (s *EditorServer) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError("block_id is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, formulaID, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	if rmErr := session.RemoveBlock(blockID); rmErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("remove block failed: %v", rmErr)), nil
	}

	logging.LogWith(logging.WithIDs(ctx, formulaID, blockID, ""), s.logger).Debug("block removed")
	return marshalResult(map[string]any{"ok": true, "block_id": blockID})
}

// handleConnect validates and adds a connection.
func (s *EditorServer) handleConnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conn, connErr := connectionFromRequest(req)
	if connErr != nil {
		return mcp.NewToolResultError(connErr.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	if addErr := session.AddConnection(conn); addErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("connect failed: %v", addErr)), nil
	}
	return marshalResult(map[string]any{"ok": true, "connection": conn})
}

// handleDisconnect removes a connection; absent connections are a no-op.
func (s *EditorServer) handleDisconnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conn, connErr := connectionFromRequest(req)
	if connErr != nil {
		return mcp.NewToolResultError(connErr.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	if rmErr := session.RemoveConnection(conn); rmErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("disconnect failed: %v", rmErr)), nil
	}
	return marshalResult(map[string]any{"ok": true})
}

// handlePreview renders the description, pseudocode, or complexity view.
func (s *EditorServer) handlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "full")

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	f := session.Formula()
	switch format {
	case "description":
		return mcp.NewToolResultText(preview.Describe(&f)), nil
	case "pseudocode":
		return mcp.NewToolResultText(preview.Pseudocode(&f)), nil
	case "complexity":
		return marshalResult(map[string]any{"complexity": string(preview.Classify(&f))})
	case "full":
		return marshalResult(map[string]any{
			"description": preview.Describe(&f),
			"pseudocode":  preview.Pseudocode(&f),
			"complexity":  string(preview.Classify(&f)),
		})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown preview format: %s", format)), nil
	}
}

// handleExport returns the canonical serialized JSON document.
func (s *EditorServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	f := session.Formula()
	doc, marshalErr := serializer.Marshal(&f)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serialize failed: %v", marshalErr)), nil
	}
	return mcp.NewToolResultText(string(doc)), nil
}

// handleSave persists the formula, optionally with a named snapshot.
func (s *EditorServer) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, formulaID, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	f := session.Formula()
	doc, marshalErr := serializer.Marshal(&f)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serialize failed: %v", marshalErr)), nil
	}

	rec := &store.FormulaRecord{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Document:    doc,
		Complexity:  string(preview.Classify(&f)),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if saveErr := s.store.SaveFormula(ctx, rec); saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", saveErr)), nil
	}

	result := map[string]any{"ok": true, "formula_id": formulaID}

	if label := req.GetString("label", ""); label != "" {
		snap := &store.Snapshot{
			FormulaID: f.ID,
			Label:     label,
			Document:  doc,
			Revision:  session.Revision(),
			CreatedAt: time.Now().UTC(),
		}
		if snapErr := s.store.SaveSnapshot(ctx, snap); snapErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saved but snapshot failed: %v", snapErr)), nil
		}
		result["snapshot_id"] = snap.ID
		result["label"] = label
	}

	if notifyErr := s.notifier.Notify(ctx, formulaID, map[string]any{
		"event":      "formula/saved",
		"formula_id": formulaID,
		"revision":   session.Revision(),
	}); notifyErr != nil {
		logging.LogWith(logging.WithFormulaID(ctx, formulaID), s.logger).Warn("save notification failed",
			"error", notifyErr.Error(),
		)
	}

	return marshalResult(result)
}

// handleQuery runs a jq expression against the serialized document.
func (s *EditorServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, sessErr := s.resolveSession(req)
	if sessErr != nil {
		return mcp.NewToolResultError(sessErr.Error()), nil
	}

	f := session.Formula()
	doc, marshalErr := serializer.Marshal(&f)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serialize failed: %v", marshalErr)), nil
	}

	var docMap map[string]any
	if decodeErr := json.Unmarshal(doc, &docMap); decodeErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decode document: %v", decodeErr)), nil
	}

	engine, ok := s.guards.ForDialect("jq")
	if !ok {
		return mcp.NewToolResultError("jq engine not available"), nil
	}
	value, evalErr := engine.Evaluate(ctx, expression, docMap)
	if evalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", evalErr)), nil
	}
	return marshalResult(map[string]any{"result": value})
}

// handleCatalog lists indicator definitions, optionally by category.
func (s *EditorServer) handleCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	if category != "" {
		return marshalResult(map[string]any{"indicators": s.catalog.ListByCategory(category)})
	}
	return marshalResult(map[string]any{
		"indicators": s.catalog.All(),
		"categories": s.catalog.Categories(),
	})
}

// --- Internal helpers ---

// resolveSession returns the editing session named by formula_id, or the
// active session when the argument is omitted. Callers must hold s.mu.
func (s *EditorServer) resolveSession(req mcp.CallToolRequest) (*graph.Store, string, error) {
	if formulaID := req.GetString("formula_id", ""); formulaID != "" {
		session, ok := s.sessions.Get(formulaID)
		if !ok {
			return nil, "", fmt.Errorf("no open session for formula %q; call formula.open first", formulaID)
		}
		return session, formulaID, nil
	}

	session, formulaID, ok := s.sessions.Active()
	if !ok {
		return nil, "", fmt.Errorf("no active formula; call formula.create or formula.open first")
	}
	return session, formulaID, nil
}

// connectionFromRequest reads the 4-tuple identifying a connection.
func connectionFromRequest(req mcp.CallToolRequest) (schema.Connection, error) {
	var conn schema.Connection
	var err error
	if conn.FromBlockID, err = req.RequireString("from_block"); err != nil {
		return conn, fmt.Errorf("from_block is required")
	}
	if conn.FromPort, err = req.RequireString("from_port"); err != nil {
		return conn, fmt.Errorf("from_port is required")
	}
	if conn.ToBlockID, err = req.RequireString("to_block"); err != nil {
		return conn, fmt.Errorf("to_block is required")
	}
	if conn.ToPort, err = req.RequireString("to_port"); err != nil {
		return conn, fmt.Errorf("to_port is required")
	}
	return conn, nil
}

// captureClient maps the formula to its MCP client session for notifications.
func (s *EditorServer) captureClient(ctx context.Context, formulaID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.RegisterClient(formulaID, session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
