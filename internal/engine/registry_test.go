package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/auth"
)

func TestRegistryJoinLeaveKeepsIndicesConsistent(t *testing.T) {
	registry := NewRegistry()
	conn, _ := testConnection()
	registry.Add(conn)

	require.True(t, registry.Join(conn.ID, "reviews"))
	assert.Contains(t, conn.Rooms, "reviews")
	assert.Len(t, registry.ConnectionsIn("reviews"), 1)

	require.True(t, registry.Leave(conn.ID, "reviews"))
	assert.NotContains(t, conn.Rooms, "reviews")
	assert.Empty(t, registry.ConnectionsIn("reviews"))
	// Room is destroyed when its last member leaves.
	assert.Empty(t, registry.rooms)
}

func TestRegistryRemoveUnlinksEverything(t *testing.T) {
	registry := NewRegistry()
	conn, _ := testConnection()
	registry.Add(conn)
	registry.Authenticate(conn.ID, auth.Identity{UserID: "u1"})
	registry.Join(conn.ID, "payments")
	registry.Join(conn.ID, "reviews")

	registry.Remove(conn.ID)

	assert.Empty(t, registry.ConnectionsFor("u1"))
	assert.Empty(t, registry.ConnectionsIn("payments"))
	assert.Empty(t, registry.ConnectionsIn("reviews"))
	assert.Zero(t, registry.Len())
	assert.Empty(t, registry.rooms)
	assert.Empty(t, registry.users)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	conn, _ := testConnection()
	registry.Add(conn)

	registry.Remove(conn.ID)
	assert.NotPanics(t, func() { registry.Remove(conn.ID) })
}

func TestRegistryMultipleSessionsPerUser(t *testing.T) {
	registry := NewRegistry()
	first, _ := testConnection()
	second, _ := testConnection()
	registry.Add(first)
	registry.Add(second)
	registry.Authenticate(first.ID, auth.Identity{UserID: "u1"})
	registry.Authenticate(second.ID, auth.Identity{UserID: "u1"})

	assert.Len(t, registry.ConnectionsFor("u1"), 2)

	registry.Remove(first.ID)
	assert.Len(t, registry.ConnectionsFor("u1"), 1)

	registry.Remove(second.ID)
	assert.Empty(t, registry.ConnectionsFor("u1"))
}

func TestRegistryAuthenticateUnknownConnection(t *testing.T) {
	registry := NewRegistry()
	assert.False(t, registry.Authenticate("nope", auth.Identity{UserID: "u1"}))
	assert.False(t, registry.Join("nope", "reviews"))
	assert.False(t, registry.Leave("nope", "reviews"))
}
