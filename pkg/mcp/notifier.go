package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// ClientNotifier pushes notifications to the client editing a formula.
type ClientNotifier interface {
	Notify(ctx context.Context, formulaID string, payload map[string]any) error
}

// MCPNotifier implements ClientNotifier using MCP push notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via the MCP server.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// Notify sends a notification to the client editing the given formula.
// Best-effort: returns nil if no client is connected for it.
func (n *MCPNotifier) Notify(_ context.Context, formulaID string, payload map[string]any) error {
	clientID, ok := n.sessions.ClientFor(formulaID)
	if !ok {
		return nil // no client editing this formula, best-effort
	}
	err := n.mcpServer.SendNotificationToSpecificClient(clientID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Session expired between lookup and send — not an error.
		n.sessions.RemoveClient(clientID)
		return nil
	}
	return err
}
