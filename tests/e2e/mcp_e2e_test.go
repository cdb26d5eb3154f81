package e2e

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratmind/formulagraph/internal/catalog"
	"github.com/stratmind/formulagraph/internal/expressions"
	"github.com/stratmind/formulagraph/internal/factory"
	"github.com/stratmind/formulagraph/internal/store"
	fgmcp "github.com/stratmind/formulagraph/pkg/mcp"
	"github.com/stratmind/formulagraph/pkg/schema"
)

// --- Test infrastructure ---

// testEnv holds the real dependency stack for end-to-end tests.
type testEnv struct {
	store  *store.LibSQLStore
	server *fgmcp.EditorServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "e2e.db")
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	guards, err := expressions.NewRegistry()
	require.NoError(t, err)

	cat := catalog.Builtin()
	srv := fgmcp.NewEditorServer(fgmcp.EditorServerDeps{
		Catalog: cat,
		Factory: factory.New(cat),
		Store:   s,
		Guards:  guards,
		Logger:  slog.New(slog.DiscardHandler),
	})

	return &testEnv{store: s, server: srv}
}

// callTool invokes a tool through HandleMessage (full JSON-RPC round-trip).
func (e *testEnv) callTool(t *testing.T, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	initMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      0,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "e2e-test",
				"version": "1.0.0",
			},
		},
	}
	rawInit, err := json.Marshal(initMsg)
	require.NoError(t, err)

	reqMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	}
	rawReq, err := json.Marshal(reqMsg)
	require.NoError(t, err)

	ctx := context.Background()
	mcpSrv := e.server.MCPServer()

	initResp := mcpSrv.HandleMessage(ctx, rawInit)
	require.NotNil(t, initResp)

	resp := mcpSrv.HandleMessage(ctx, rawReq)
	require.NotNil(t, resp)

	respBytes, err := json.Marshal(resp)
	require.NoError(t, err)

	var rpcResp struct {
		Result *mcp.CallToolResult `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpcResp))

	if rpcResp.Error != nil {
		t.Fatalf("JSON-RPC error: code=%d, msg=%s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	require.NotNil(t, rpcResp.Result)
	return rpcResp.Result
}

// extractJSON parses text content from a tool result as JSON.
func extractJSON(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text := mcp.GetTextFromContent(result.Content[0])
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

// extractText extracts text content from a tool result.
func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

// --- E2E tests ---

// TestEditorFullLifecycle exercises the complete editing lifecycle:
// create -> add blocks -> connect -> preview -> save -> reopen -> query.
func TestEditorFullLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// 1. Create a formula.
	createResult := env.callTool(t, "formula.create", map[string]any{
		"name":        "RSI Reversal",
		"description": "buy oversold bounces",
	})
	require.False(t, createResult.IsError, "create should succeed")

	var created struct {
		FormulaID string `json:"formula_id"`
	}
	extractJSON(t, createResult, &created)
	require.NotEmpty(t, created.FormulaID)

	// 2. Add an RSI indicator from the catalog.
	addResult := env.callTool(t, "formula.add_block", map[string]any{
		"kind":         "indicator",
		"indicator_id": "rsi",
		"x":            40,
		"y":            80,
	})
	require.False(t, addResult.IsError, "add_block should succeed")

	var rsi schema.Block
	extractJSON(t, addResult, &rsi)
	assert.Equal(t, "RSI", rsi.Name)
	require.NotEmpty(t, rsi.Ports)

	// 3. Add a condition block and wire the oversold output into it.
	condResult := env.callTool(t, "formula.add_block", map[string]any{
		"kind": "condition",
		"x":    300,
		"y":    80,
	})
	require.False(t, condResult.IsError)

	var cond schema.Block
	extractJSON(t, condResult, &cond)

	// Factory conditions carry no ports; give the session one directly so
	// the connect tool has a target, the way a canvas front-end would.
	session, ok := env.server.Sessions().Get(created.FormulaID)
	require.True(t, ok)
	require.NoError(t, session.RemoveBlock(cond.ID))
	cond.Ports = []schema.Port{
		{ID: "in", Name: "in", Direction: schema.PortInput, DataType: schema.PortBoolean},
	}
	require.NoError(t, session.AddBlock(cond))

	connectResult := env.callTool(t, "formula.connect", map[string]any{
		"from_block": rsi.ID,
		"from_port":  "oversold",
		"to_block":   cond.ID,
		"to_port":    "in",
	})
	require.False(t, connectResult.IsError, "connect should succeed")

	// 4. Preview all three views.
	previewResult := env.callTool(t, "formula.preview", map[string]any{
		"format": "full",
	})
	require.False(t, previewResult.IsError, "preview should succeed")

	var views map[string]string
	extractJSON(t, previewResult, &views)
	assert.Contains(t, views["description"], "Calculate RSI")
	assert.Contains(t, views["pseudocode"], "rsi = RSI(")
	assert.Equal(t, "simple", views["complexity"])

	// 5. Save with a snapshot label.
	saveResult := env.callTool(t, "formula.save", map[string]any{
		"label": "first draft",
	})
	require.False(t, saveResult.IsError, "save should succeed")

	snaps, err := env.store.ListSnapshots(context.Background(), created.FormulaID, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "first draft", snaps[0].Label)

	// 6. Reopen from the store.
	openResult := env.callTool(t, "formula.open", map[string]any{
		"formula_id": created.FormulaID,
	})
	require.False(t, openResult.IsError, "open should succeed")

	var opened struct {
		Blocks      int `json:"blocks"`
		Connections int `json:"connections"`
	}
	extractJSON(t, openResult, &opened)
	assert.Equal(t, 2, opened.Blocks)
	assert.Equal(t, 1, opened.Connections)

	// 7. Query the document.
	queryResult := env.callTool(t, "formula.query", map[string]any{
		"expression": "[.blocks[].kind] | sort",
	})
	require.False(t, queryResult.IsError, "query should succeed")

	var queried struct {
		Result []string `json:"result"`
	}
	extractJSON(t, queryResult, &queried)
	assert.Equal(t, []string{"condition", "indicator"}, queried.Result)
}

// TestInvalidConnectionsRejectedOverWire verifies validation failures come
// back as tool errors, not protocol errors.
func TestInvalidConnectionsRejectedOverWire(t *testing.T) {
	env := newTestEnv(t)

	env.callTool(t, "formula.create", map[string]any{"name": "Guard Rails"})

	addResult := env.callTool(t, "formula.add_block", map[string]any{
		"kind": "indicator", "indicator_id": "rsi",
	})
	var rsi schema.Block
	extractJSON(t, addResult, &rsi)

	// Self loop on the same block.
	result := env.callTool(t, "formula.connect", map[string]any{
		"from_block": rsi.ID,
		"from_port":  "value",
		"to_block":   rsi.ID,
		"to_port":    "period",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "SELF_LOOP")

	// Unknown target block.
	result = env.callTool(t, "formula.connect", map[string]any{
		"from_block": rsi.ID,
		"from_port":  "value",
		"to_block":   "ghost",
		"to_port":    "in",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "BLOCK_NOT_FOUND")
}

// TestCatalogOverWire lists the built-in indicators through the protocol.
func TestCatalogOverWire(t *testing.T) {
	env := newTestEnv(t)

	result := env.callTool(t, "catalog.list", map[string]any{"category": "momentum"})
	require.False(t, result.IsError)

	var listed struct {
		Indicators []catalog.IndicatorDefinition `json:"indicators"`
	}
	extractJSON(t, result, &listed)
	require.Len(t, listed.Indicators, 3)
	assert.Equal(t, "rsi", listed.Indicators[0].ID)
}
