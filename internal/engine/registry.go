package engine

import "notification-service/internal/auth"

// Registry is the in-memory store of live connections, the room index, and
// the user index. It is owned by a single engine and only ever touched from
// the event loop goroutine, so no locking is needed. Invariant: a connection
// id is in a room's member set exactly when the room's name is in the
// connection's room set.
type Registry struct {
	conns map[string]*Connection
	rooms map[string]map[string]struct{}
	users map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]struct{}),
		users: make(map[string]map[string]struct{}),
	}
}

// Add registers a connection.
func (r *Registry) Add(conn *Connection) {
	r.conns[conn.ID] = conn
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Remove unlinks a connection from every room, from the user index, and
// from the registry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	conn, ok := r.conns[id]
	if !ok {
		return
	}
	for room := range conn.Rooms {
		r.dropFromRoom(id, room)
	}
	conn.Rooms = make(map[string]struct{})
	if conn.UserID != "" {
		if ids, ok := r.users[conn.UserID]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(r.users, conn.UserID)
			}
		}
	}
	delete(r.conns, id)
}

// Authenticate marks the connection authenticated and links the user index.
// Multiple simultaneous connections per user are supported.
func (r *Registry) Authenticate(id string, identity auth.Identity) bool {
	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	conn.Authenticated = true
	conn.UserID = identity.UserID
	conn.UserType = identity.UserType
	conn.Email = identity.Email
	if _, ok := r.users[identity.UserID]; !ok {
		r.users[identity.UserID] = make(map[string]struct{})
	}
	r.users[identity.UserID][id] = struct{}{}
	return true
}

// Join adds the connection to a room, creating the room on first join.
func (r *Registry) Join(id, room string) bool {
	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][id] = struct{}{}
	conn.Rooms[room] = struct{}{}
	return true
}

// Leave removes the connection from a room, dropping the room when empty.
func (r *Registry) Leave(id, room string) bool {
	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(conn.Rooms, room)
	r.dropFromRoom(id, room)
	return true
}

func (r *Registry) dropFromRoom(id, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// ConnectionsFor returns every connection authenticated as the user.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	ids := r.users[userID]
	conns := make([]*Connection, 0, len(ids))
	for id := range ids {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// ConnectionsIn returns the current members of a room.
func (r *Registry) ConnectionsIn(room string) []*Connection {
	ids := r.rooms[room]
	conns := make([]*Connection, 0, len(ids))
	for id := range ids {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// All returns every live connection.
func (r *Registry) All() []*Connection {
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}
