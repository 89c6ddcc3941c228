// Package collabclient is the client-side counterpart of the collaboration
// channel: it owns exactly one websocket connection per editor session,
// mirrors server-pushed presence into local state, and exposes fire-and-forget
// emitters for local cursor, slide, and selection changes.
package collabclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"slidecollabgo/internal/collab"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Wire types re-exported under this package so modules importing the SDK can
// name them; the originals live in an internal package external callers
// cannot reach.
type (
	Identity         = collab.Identity
	UserPresence     = collab.UserPresence
	CursorPosition   = collab.CursorPosition
	SlideUpdate      = collab.SlideUpdateBody
	ElementSelection = collab.ElementSelectedBody
)

// SlideUpdateHandler receives slide edits relayed from other room members.
type SlideUpdateHandler func(update SlideUpdate)

// ElementSelectedHandler receives peers' element selections.
type ElementSelectedHandler func(sel ElementSelection)

type Option func(*Client)

func WithSlideUpdateHandler(h SlideUpdateHandler) Option {
	return func(c *Client) { c.onSlideUpdate = h }
}

func WithElementSelectedHandler(h ElementSelectedHandler) Option {
	return func(c *Client) { c.onElementSelected = h }
}

// Client holds one connection's view of a presentation room. All exported
// methods are safe for concurrent use.
type Client struct {
	identity Identity

	onSlideUpdate     SlideUpdateHandler
	onElementSelected ElementSelectedHandler

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu        sync.RWMutex
	connected bool
	users     []UserPresence          // latest member list, self excluded
	cursors   map[string]UserPresence // connection id -> last cursor-bearing presence

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the connection and immediately emits join-room. The returned
// client must be released with Close; all paths out of the session should
// reach it.
func Dial(ctx context.Context, url, presentationID string, identity Identity, opts ...Option) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		identity:  identity,
		conn:      conn,
		connected: true,
		cursors:   make(map[string]UserPresence),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()

	if err := c.emit(collab.EventJoinRoom, collab.JoinRoomBody{
		PresentationID: presentationID,
		User:           identity,
	}); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Close emits leave-room and releases the connection, then waits for the read
// loop to drain. Idempotent. Must not be called from inside a handler
// callback, which runs on the read loop.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.emit(collab.EventLeaveRoom, struct{}{})
		c.setConnected(false)
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Users returns the latest member list, with this client's own entries
// filtered out by account id.
func (c *Client) Users() []UserPresence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]UserPresence, len(c.users))
	copy(out, c.users)
	return out
}

// Cursors returns the last seen cursor-bearing presence per peer connection.
func (c *Client) Cursors() []UserPresence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]UserPresence, 0, len(c.cursors))
	for _, p := range c.cursors {
		out = append(out, p)
	}
	return out
}

// ───────────────────────────── Emitters ─────────────────────────────────────

func (c *Client) UpdateCursor(x, y float64, slideID string) {
	_ = c.emit(collab.EventCursorMove, CursorPosition{X: x, Y: y, SlideID: slideID})
}

func (c *Client) ChangeSlide(slideID string) {
	_ = c.emit(collab.EventSlideChange, slideID)
}

func (c *Client) UpdateSlideContent(slideID string, content json.RawMessage) {
	_ = c.emit(collab.EventSlideUpdate, SlideUpdate{
		SlideID: slideID,
		Content: content,
		UserID:  c.identity.ID,
	})
}

func (c *Client) SelectElement(elementID *string, slideID string) {
	_ = c.emit(collab.EventElementSelect, collab.ElementSelectBody{
		ElementID: elementID,
		SlideID:   slideID,
	})
}

// emit is fire-and-forget: no ack, no retry, no queueing while disconnected.
func (c *Client) emit(event string, body any) error {
	if !c.IsConnected() {
		return nil // dropped
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(collab.Envelope{Event: event, Body: raw})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// ───────────────────────────── Inbound ──────────────────────────────────────

func (c *Client) readLoop() {
	defer func() {
		c.setConnected(false)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env collab.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("collabclient.drop_frame", zap.Error(err))
			continue
		}
		c.handle(env)
	}
}

func (c *Client) handle(env collab.Envelope) {
	switch env.Event {
	case collab.EventUsersUpdate:
		var users []UserPresence
		if err := json.Unmarshal(env.Body, &users); err != nil {
			return
		}
		peers := users[:0:0]
		for _, u := range users {
			if u.ID != c.identity.ID {
				peers = append(peers, u)
			}
		}
		c.mu.Lock()
		c.users = peers
		c.mu.Unlock()

	case collab.EventCursorUpdate:
		var upd collab.CursorUpdateBody
		if err := json.Unmarshal(env.Body, &upd); err != nil {
			return
		}
		c.mu.Lock()
		c.cursors[upd.SocketID] = upd.UserPresence
		c.mu.Unlock()

	case collab.EventSlideUpdated:
		if c.onSlideUpdate == nil {
			return
		}
		var upd SlideUpdate
		if err := json.Unmarshal(env.Body, &upd); err != nil {
			return
		}
		c.onSlideUpdate(upd)

	case collab.EventElementSelected:
		if c.onElementSelected == nil {
			return
		}
		var sel ElementSelection
		if err := json.Unmarshal(env.Body, &sel); err != nil {
			return
		}
		c.onElementSelected(sel)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
