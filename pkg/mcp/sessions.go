package mcp

import (
	"sync"

	"github.com/stratmind/formulagraph/internal/autosave"
	"github.com/stratmind/formulagraph/internal/graph"
)

// SessionRegistry holds the open formula editing sessions plus the MCP
// client session each formula belongs to. The registry also remembers the
// most recently used formula so tools can omit formula_id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*graph.Store // formulaID -> editing session
	clients  map[string]string       // formulaID -> MCP client session ID
	activeID string
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*graph.Store),
		clients:  make(map[string]string),
	}
}

// Open registers an editing session and makes it the active one.
// Opening an already-open formula replaces the previous session (reload).
func (r *SessionRegistry) Open(formulaID string, session *graph.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[formulaID] = session
	r.activeID = formulaID
}

// Get returns the editing session for the given formula, if open.
func (r *SessionRegistry) Get(formulaID string) (*graph.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[formulaID]
	return s, ok
}

// Active returns the most recently used session and its formula ID.
func (r *SessionRegistry) Active() (*graph.Store, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return nil, "", false
	}
	s, ok := r.sessions[r.activeID]
	return s, r.activeID, ok
}

// Close removes an editing session. Closing the active session leaves no
// formula selected.
func (r *SessionRegistry) Close(formulaID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, formulaID)
	delete(r.clients, formulaID)
	if r.activeID == formulaID {
		r.activeID = ""
	}
}

// RegisterClient associates a formula with an MCP client session ID.
// A reconnecting client overwrites the previous mapping.
func (r *SessionRegistry) RegisterClient(formulaID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[formulaID] = clientID
}

// ClientFor returns the MCP client session ID editing the given formula.
func (r *SessionRegistry) ClientFor(formulaID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.clients[formulaID]
	return cid, ok
}

// RemoveClient deletes all formula mappings for the given client session ID.
// Called when a client disconnects.
func (r *SessionRegistry) RemoveClient(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fid, cid := range r.clients {
		if cid == clientID {
			delete(r.clients, fid)
		}
	}
}

// ActiveSessions returns every open editing session. Satisfies the
// autosave scheduler's SessionSource.
func (r *SessionRegistry) ActiveSessions() []autosave.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]autosave.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
