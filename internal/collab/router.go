package collab

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// internal (untyped) handler signature.
type rawHandler func(s *session, body json.RawMessage)

// Router keeps a map[event]handler, à‑la gin.Engine. Unknown events and
// undecodable bodies are dropped without touching the sender: presence data is
// ephemeral and self-correcting on the next event, so the channel favors
// availability over strict validation.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event to a strongly‑typed handler.
func Register[Req any](r *Router, event string, h func(s *session, req Req)) {
	if event == "" {
		panic("collab router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(s *session, body json.RawMessage) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				zap.L().Debug("collab.drop_malformed",
					zap.String("event", event), zap.Error(err))
				return
			}
		}
		h(s, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(s *session, env Envelope) {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		zap.L().Debug("collab.drop_unknown_event", zap.String("event", env.Event))
		return
	}
	h(s, env.Body)
}
