package mcp

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stratmind/formulagraph/internal/catalog"
	"github.com/stratmind/formulagraph/internal/expressions"
	"github.com/stratmind/formulagraph/internal/factory"
	"github.com/stratmind/formulagraph/internal/store"
)

// EditorServerDeps holds the dependencies for creating an EditorServer.
type EditorServerDeps struct {
	Catalog *catalog.Catalog
	Factory *factory.Factory
	Store   store.Store
	Guards  *expressions.Registry
	Logger  *slog.Logger
}

// EditorServer wraps an MCP server with formula editing tool handlers.
// A single mutex serializes all tool calls: editing sessions are
// single-writer and every mutation goes through here.
type EditorServer struct {
	catalog   *catalog.Catalog
	factory   *factory.Factory
	store     store.Store
	guards    *expressions.Registry
	logger    *slog.Logger
	sessions  *SessionRegistry
	notifier  ClientNotifier
	mcpServer *server.MCPServer
	mu        sync.Mutex
}

// NewEditorServer creates a new EditorServer with all editing tools registered.
func NewEditorServer(deps EditorServerDeps) *EditorServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &EditorServer{
		catalog:  deps.Catalog,
		factory:  deps.Factory,
		store:    deps.Store,
		guards:   deps.Guards,
		logger:   logger,
		sessions: NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"formulagraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Formulagraph is a visual formula graph editor for trading strategies. Use formula.create or formula.open to start a session, formula.add_block/connect/etc to edit the graph, formula.preview to render a natural-language or pseudocode view, formula.save to persist, and formula.query to run jq expressions over the serialized document."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *EditorServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *EditorServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Sessions returns the session registry, for wiring the autosave scheduler.
func (s *EditorServer) Sessions() *SessionRegistry {
	return s.sessions
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *EditorServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: createTool(), Handler: s.handleCreate},
		{Tool: openTool(), Handler: s.handleOpen},
		{Tool: addBlockTool(), Handler: s.handleAddBlock},
		{Tool: moveBlockTool(), Handler: s.handleMoveBlock},
		{Tool: updateParamsTool(), Handler: s.handleUpdateParams},
		{Tool: removeBlockTool(), Handler: s.handleRemoveBlock},
		{Tool: connectTool(), Handler: s.handleConnect},
		{Tool: disconnectTool(), Handler: s.handleDisconnect},
		{Tool: previewTool(), Handler: s.handlePreview},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: catalogTool(), Handler: s.handleCatalog},
	}
}

// --- Tool definitions ---

func createTool() mcp.Tool {
	return mcp.NewTool("formula.create",
		mcp.WithDescription("Create a new empty formula and open an editing session for it"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Formula name")),
		mcp.WithString("description", mcp.Description("Formula description")),
	)
}

func openTool() mcp.Tool {
	return mcp.NewTool("formula.open",
		mcp.WithDescription("Load a saved formula from the store and open an editing session for it"),
		mcp.WithString("formula_id", mcp.Required(), mcp.Description("ID of the formula to open")),
	)
}

func addBlockTool() mcp.Tool {
	return mcp.NewTool("formula.add_block",
		mcp.WithDescription("Add a new block to the formula graph"),
		mcp.WithString("kind", mcp.Required(),
			mcp.Enum("indicator", "signal", "condition", "action", "group"),
			mcp.Description("Block kind"),
		),
		mcp.WithNumber("x", mcp.Description("Canvas x position (default 0)")),
		mcp.WithNumber("y", mcp.Description("Canvas y position (default 0)")),
		mcp.WithString("indicator_id", mcp.Description("Catalog indicator id (indicator kind only, e.g. rsi, macd)")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func moveBlockTool() mcp.Tool {
	return mcp.NewTool("formula.move_block",
		mcp.WithDescription("Move a block to a new canvas position"),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the block to move")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("New x position")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("New y position")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func updateParamsTool() mcp.Tool {
	return mcp.NewTool("formula.update_params",
		mcp.WithDescription("Update parameter values on a block. Values are validated against the parameter's type and bounds"),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the block to update")),
		mcp.WithObject("params", mcp.Required(), mcp.Description("Map of parameter id to new value")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func removeBlockTool() mcp.Tool {
	return mcp.NewTool("formula.remove_block",
		mcp.WithDescription("Remove a block and every connection touching it"),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the block to remove")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func connectTool() mcp.Tool {
	return mcp.NewTool("formula.connect",
		mcp.WithDescription("Connect an output port to an input port. The connection is validated before it is added"),
		mcp.WithString("from_block", mcp.Required(), mcp.Description("Source block ID")),
		mcp.WithString("from_port", mcp.Required(), mcp.Description("Source output port ID")),
		mcp.WithString("to_block", mcp.Required(), mcp.Description("Target block ID")),
		mcp.WithString("to_port", mcp.Required(), mcp.Description("Target input port ID")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func disconnectTool() mcp.Tool {
	return mcp.NewTool("formula.disconnect",
		mcp.WithDescription("Remove a connection. Removing an absent connection is a no-op"),
		mcp.WithString("from_block", mcp.Required(), mcp.Description("Source block ID")),
		mcp.WithString("from_port", mcp.Required(), mcp.Description("Source output port ID")),
		mcp.WithString("to_block", mcp.Required(), mcp.Description("Target block ID")),
		mcp.WithString("to_port", mcp.Required(), mcp.Description("Target input port ID")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func previewTool() mcp.Tool {
	return mcp.NewTool("formula.preview",
		mcp.WithDescription("Render a human-readable preview of the formula"),
		mcp.WithString("format",
			mcp.Enum("description", "pseudocode", "complexity", "full"),
			mcp.Description("Preview format (default: full, all three views)"),
		),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("formula.export",
		mcp.WithDescription("Serialize the formula to its canonical JSON document"),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("formula.save",
		mcp.WithDescription("Persist the formula to the store, optionally recording a named snapshot"),
		mcp.WithString("label", mcp.Description("Snapshot label; omit to save without a snapshot")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("formula.query",
		mcp.WithDescription("Run a jq expression over the formula's serialized JSON document"),
		mcp.WithString("expression", mcp.Required(), mcp.Description("jq expression, e.g. '.blocks | length'")),
		mcp.WithString("formula_id", mcp.Description("Target formula (default: active session)")),
	)
}

func catalogTool() mcp.Tool {
	return mcp.NewTool("catalog.list",
		mcp.WithDescription("List available indicator definitions from the catalog"),
		mcp.WithString("category", mcp.Description("Filter by category (e.g. momentum, trend, volatility)")),
	)
}
