package collab

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait

	// Slide-content payloads ride this channel, so the limit is well above
	// what presence traffic needs.
	maxMessageSize = 64 * 1024
)

// session is the per-connection state machine: unjoined until the first
// join-room, joined to at most one room at a time afterwards. Only the
// connection's own reader goroutine touches it.
type session struct {
	id     string // transport connection id, opaque, lifetime of the conn
	conn   *clientConn
	roomID string // empty while unjoined
	userID string // account id, set on join
}

func (s *session) joined() bool { return s.roomID != "" }

// WsServer owns the websocket endpoint. It translates inbound events into
// RoomManager calls and fans the resulting broadcasts out through the Hub,
// optionally mirroring relays onto the Redis bus for other instances.
type WsServer struct {
	manager  *RoomManager
	hub      *Hub
	fanout   *Fanout // nil when Redis is not configured
	router   *Router
	upgrader websocket.Upgrader
}

func NewWsServer(manager *RoomManager, hub *Hub, fanout *Fanout, allowedOrigin string) *WsServer {
	srv := &WsServer{
		manager: manager,
		hub:     hub,
		fanout:  fanout,
		router:  NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		conn: &clientConn{rawConn: rawConn},
	}
	zap.L().Debug("ws.connected", zap.String("conn", sess.id))

	go s.reader(sess)
	go s.pinger(sess)
}

// ---------------------------------------------------------------------------
//  Event handlers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EventJoinRoom, s.handleJoin)
	Register(s.router, EventLeaveRoom, func(sess *session, _ struct{}) {
		s.leaveRoom(sess)
	})
	Register(s.router, EventCursorMove, s.handleCursorMove)
	Register(s.router, EventSlideChange, s.handleSlideChange)
	Register(s.router, EventSlideUpdate, s.handleSlideUpdate)
	Register(s.router, EventElementSelect, s.handleElementSelect)
}

func (s *WsServer) handleJoin(sess *session, req JoinRoomBody) {
	if req.PresentationID == "" || req.User.ID == "" {
		return
	}

	// One active room per connection: joining a new room leaves the old
	// one first, so no stale presence lingers until disconnect.
	if sess.joined() {
		s.leaveRoom(sess)
	}

	s.manager.Join(sess.id, req.PresentationID, req.User)
	s.hub.Join(req.PresentationID, sess.id, sess.conn)
	if s.fanout != nil {
		s.fanout.Subscribe(req.PresentationID)
	}
	sess.roomID = req.PresentationID
	sess.userID = req.User.ID

	s.broadcastUsers(req.PresentationID)
	zap.L().Info("collab.join",
		zap.String("presentation", req.PresentationID),
		zap.String("user", req.User.ID),
		zap.String("conn", sess.id))
}

func (s *WsServer) handleCursorMove(sess *session, cur CursorPosition) {
	if !sess.joined() || cur.SlideID == "" {
		return
	}
	p, ok := s.manager.UpdateCursor(sess.id, sess.roomID, cur)
	if !ok {
		return
	}
	// The sender already knows its own pointer: peers only.
	s.relayToPeers(sess, EventCursorUpdate, CursorUpdateBody{
		SocketID:     sess.id,
		UserPresence: p,
	})
}

func (s *WsServer) handleSlideChange(sess *session, slideID string) {
	if !sess.joined() || slideID == "" {
		return
	}
	if !s.manager.UpdateActiveSlide(sess.id, sess.roomID, slideID) {
		return
	}
	// Everybody, sender included, so each client mirrors the canonical
	// member list.
	s.broadcastUsers(sess.roomID)
}

func (s *WsServer) handleSlideUpdate(sess *session, req SlideUpdateBody) {
	if !sess.joined() || req.SlideID == "" {
		return
	}
	// Opaque relay: content is never inspected or persisted here.
	s.relayToPeers(sess, EventSlideUpdated, req)
}

func (s *WsServer) handleElementSelect(sess *session, req ElementSelectBody) {
	if !sess.joined() || req.SlideID == "" {
		return
	}
	s.relayToPeers(sess, EventElementSelected, ElementSelectedBody{
		SocketID:  sess.id,
		UserID:    sess.userID,
		ElementID: req.ElementID,
		SlideID:   req.SlideID,
	})
}

// ---------------------------------------------------------------------------
//  Broadcast helpers
// ---------------------------------------------------------------------------

func (s *WsServer) broadcastUsers(roomID string) {
	msg, err := marshalEvent(EventUsersUpdate, s.manager.ListUsers(roomID))
	if err != nil {
		zap.L().Error("collab.marshal_users", zap.Error(err))
		return
	}
	// Member lists are per-process state and stay off the fan-out bus.
	s.hub.Broadcast(roomID, msg)
}

func (s *WsServer) relayToPeers(sess *session, event string, body any) {
	msg, err := marshalEvent(event, body)
	if err != nil {
		zap.L().Error("collab.marshal_relay", zap.String("event", event), zap.Error(err))
		return
	}
	s.hub.BroadcastExcept(sess.roomID, sess.id, msg)
	if s.fanout != nil {
		s.fanout.Publish(sess.roomID, msg)
	}
}

func (s *WsServer) leaveRoom(sess *session) {
	if !sess.joined() {
		return
	}
	roomID := sess.roomID
	sess.roomID = ""

	s.manager.Leave(sess.id, roomID)
	s.hub.Leave(roomID, sess.id)
	if s.fanout != nil {
		s.fanout.Unsubscribe(roomID)
	}
	s.broadcastUsers(roomID)
}

// ---------------------------------------------------------------------------
//  Connection pumps
// ---------------------------------------------------------------------------

func (s *WsServer) reader(sess *session) {
	defer func() {
		// Connection closed: implicit leave.
		s.leaveRoom(sess)
		_ = sess.conn.close()
		zap.L().Debug("ws.disconnected", zap.String("conn", sess.id))
	}()

	sess.conn.rawConn.SetReadLimit(maxMessageSize)
	_ = sess.conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.rawConn.SetPongHandler(func(string) error {
		return sess.conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("ws.drop_frame", zap.String("conn", sess.id), zap.Error(err))
			continue
		}
		s.router.dispatch(sess, env)
	}
}

func (s *WsServer) pinger(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := sess.conn.ping(); err != nil {
			_ = sess.conn.close() // reader unblocks and cleans up
			return
		}
	}
}
