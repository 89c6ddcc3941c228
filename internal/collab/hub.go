package collab

import "sync"

// Hub keeps the raw connections per room so broadcasts can reach them.
// Membership truth lives in the RoomManager; the hub only routes bytes.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*clientConn // presentation id -> conn id -> conn
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*clientConn)}
}

func (h *Hub) Join(roomID, connID string, c *clientConn) {
	h.mu.Lock()
	conns, ok := h.rooms[roomID]
	if !ok {
		conns = make(map[string]*clientConn)
		h.rooms[roomID] = conns
	}
	conns[connID] = c
	h.mu.Unlock()
}

func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every connection in the room. Also called by the
// Redis fan-out subscriber for frames published by other instances.
func (h *Hub) Broadcast(roomID string, msg []byte) {
	h.send(roomID, "", msg)
}

// BroadcastExcept sends msg to every connection in the room but the sender's.
func (h *Hub) BroadcastExcept(roomID, exceptConnID string, msg []byte) {
	h.send(roomID, exceptConnID, msg)
}

func (h *Hub) send(roomID, exceptConnID string, msg []byte) {
	// Take a quick snapshot of the current connections
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id != exceptConnID {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	// Do the I/O outside the lock. A failed write closes the connection;
	// its reader loop then runs the normal disconnect path.
	for _, c := range conns {
		if err := c.write(msg); err != nil {
			_ = c.close()
		}
	}
}
