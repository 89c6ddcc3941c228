package collab

import "sync"

// room groups the presences of every connection currently viewing one
// presentation. Only the RoomManager touches it, under the manager's lock.
type room struct {
	presentationID string
	users          map[string]*UserPresence // connection id -> presence
	joinOrder      []string                 // connection ids, oldest first
	nextColor      int
}

func newRoom(presentationID string) *room {
	return &room{
		presentationID: presentationID,
		users:          make(map[string]*UserPresence),
	}
}

func (r *room) snapshot() []UserPresence {
	out := make([]UserPresence, 0, len(r.users))
	for _, connID := range r.joinOrder {
		if p, ok := r.users[connID]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// RoomManager is the authoritative in-memory registry of rooms and their
// members. It performs no I/O; broadcasting what changed is the websocket
// server's job. A single mutex serializes all mutation, so every operation
// runs to completion before the next one starts.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*room // presentation id -> room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*room)}
}

// Join registers a presence for connID in the presentation's room, creating
// the room if this is its first member, and assigns the next palette color.
func (m *RoomManager) Join(connID, presentationID string, ident Identity) UserPresence {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[presentationID]
	if !ok {
		r = newRoom(presentationID)
		m.rooms[presentationID] = r
	}

	p := &UserPresence{
		ID:    ident.ID,
		Name:  ident.Name,
		Email: ident.Email,
		Image: ident.Image,
		Color: cursorPalette[r.nextColor%PaletteSize],
	}
	r.nextColor++

	if _, exists := r.users[connID]; !exists {
		r.joinOrder = append(r.joinOrder, connID)
	}
	r.users[connID] = p
	return *p
}

// UpdateCursor overwrites the connection's last reported pointer position and
// returns the updated presence. A connection without a presence record in the
// room is a silent no-op.
func (m *RoomManager) UpdateCursor(connID, presentationID string, cur CursorPosition) (UserPresence, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.lookup(connID, presentationID)
	if !ok {
		return UserPresence{}, false
	}
	c := cur
	p.Cursor = &c
	return *p, true
}

// UpdateActiveSlide records which slide the connection is currently viewing.
// Same precondition as UpdateCursor.
func (m *RoomManager) UpdateActiveSlide(connID, presentationID, slideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.lookup(connID, presentationID)
	if !ok {
		return false
	}
	p.ActiveSlideID = slideID
	return true
}

// Leave removes the connection's presence. The room is deleted the moment it
// empties; a stale empty room is never observable. Idempotent.
func (m *RoomManager) Leave(connID, presentationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[presentationID]
	if !ok {
		return
	}
	if _, ok := r.users[connID]; !ok {
		return
	}
	delete(r.users, connID)
	for i, id := range r.joinOrder {
		if id == connID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	if len(r.users) == 0 {
		delete(m.rooms, presentationID)
	}
}

// ListUsers returns a snapshot of the room's members in join order. An absent
// room yields an empty slice, indistinguishable from one never created.
func (m *RoomManager) ListUsers(presentationID string) []UserPresence {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[presentationID]
	if !ok {
		return []UserPresence{}
	}
	return r.snapshot()
}

// RoomCount reports how many non-empty rooms exist.
func (m *RoomManager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *RoomManager) lookup(connID, presentationID string) (*UserPresence, bool) {
	r, ok := m.rooms[presentationID]
	if !ok {
		return nil, false
	}
	p, ok := r.users[connID]
	return p, ok
}
