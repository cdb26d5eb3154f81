package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratmind/formulagraph/internal/graph"
)

func newGraphSession() *graph.Store {
	return graph.NewStore(graph.NewFormula("test", ""), nil)
}

// --- Open / Active ---

func TestRegistryOpenAndGet(t *testing.T) {
	r := NewSessionRegistry()
	session := newGraphSession()

	r.Open("f1", session)

	got, ok := r.Get("f1")
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = r.Get("f2")
	assert.False(t, ok)
}

func TestRegistryActiveTracksLastOpened(t *testing.T) {
	r := NewSessionRegistry()

	_, _, ok := r.Active()
	assert.False(t, ok)

	first, second := newGraphSession(), newGraphSession()
	r.Open("f1", first)
	r.Open("f2", second)

	got, id, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "f2", id)
	assert.Same(t, second, got)
}

func TestRegistryReopenReplacesSession(t *testing.T) {
	r := NewSessionRegistry()
	old, fresh := newGraphSession(), newGraphSession()

	r.Open("f1", old)
	r.Open("f1", fresh)

	got, ok := r.Get("f1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.Len(t, r.ActiveSessions(), 1)
}

// --- Close ---

func TestRegistryClose(t *testing.T) {
	r := NewSessionRegistry()
	r.Open("f1", newGraphSession())
	r.RegisterClient("f1", "client-1")

	r.Close("f1")

	_, ok := r.Get("f1")
	assert.False(t, ok)
	_, _, ok = r.Active()
	assert.False(t, ok)
	_, ok = r.ClientFor("f1")
	assert.False(t, ok)
}

func TestRegistryCloseKeepsOtherActive(t *testing.T) {
	r := NewSessionRegistry()
	r.Open("f1", newGraphSession())
	r.Open("f2", newGraphSession())

	// Closing a non-active session leaves the active one selected.
	r.Close("f1")
	_, id, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "f2", id)
}

// --- Client mapping ---

func TestRegistryClientMapping(t *testing.T) {
	r := NewSessionRegistry()
	r.Open("f1", newGraphSession())
	r.Open("f2", newGraphSession())

	r.RegisterClient("f1", "client-1")
	r.RegisterClient("f2", "client-1")

	cid, ok := r.ClientFor("f1")
	require.True(t, ok)
	assert.Equal(t, "client-1", cid)

	// A disconnect drops every formula the client was editing.
	r.RemoveClient("client-1")
	_, ok = r.ClientFor("f1")
	assert.False(t, ok)
	_, ok = r.ClientFor("f2")
	assert.False(t, ok)

	// The editing sessions themselves survive the disconnect.
	_, ok = r.Get("f1")
	assert.True(t, ok)
}

// --- Autosave source ---

func TestRegistryActiveSessions(t *testing.T) {
	r := NewSessionRegistry()
	assert.Empty(t, r.ActiveSessions())

	r.Open("f1", newGraphSession())
	r.Open("f2", newGraphSession())

	sessions := r.ActiveSessions()
	assert.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.NotEmpty(t, s.Formula().ID)
	}
}
