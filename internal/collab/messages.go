package collab

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// Inbound events (client -> server).
const (
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventCursorMove    = "cursor-move"
	EventSlideChange   = "slide-change"
	EventSlideUpdate   = "slide-update"
	EventElementSelect = "element-select"
)

// Outbound events (server -> client).
const (
	EventUsersUpdate     = "users-update"
	EventCursorUpdate    = "cursor-update"
	EventSlideUpdated    = "slide-updated"
	EventElementSelected = "element-selected"
)

// ──────────────────────────── Request bodies ────────────────────────────────

// JoinRoomBody is the body for "join-room".
type JoinRoomBody struct {
	PresentationID string   `json:"presentationId"`
	User           Identity `json:"user"`
}

// SlideUpdateBody is the body for "slide-update". Content is opaque to the
// server; it is relayed verbatim and never inspected or stored.
type SlideUpdateBody struct {
	SlideID string          `json:"slideId"`
	Content json.RawMessage `json:"content"`
	UserID  string          `json:"userId"`
}

// ElementSelectBody is the body for "element-select". A nil ElementID means
// the sender cleared its selection.
type ElementSelectBody struct {
	ElementID *string `json:"elementId"`
	SlideID   string  `json:"slideId"`
}

// ─────────────────────────── Broadcast bodies ───────────────────────────────

// CursorUpdateBody carries the sender's full presence so peers can render the
// cursor with name and color in one hop.
type CursorUpdateBody struct {
	SocketID string `json:"socketId"`
	UserPresence
}

// ElementSelectedBody tags the relayed selection with the sender's connection
// and account ids.
type ElementSelectedBody struct {
	SocketID  string  `json:"socketId"`
	UserID    string  `json:"userId"`
	ElementID *string `json:"elementId"`
	SlideID   string  `json:"slideId"`
}

func marshalEvent(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: raw})
}
