package collab

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Fanout bridges rooms across server instances through Redis Pub/Sub. Relay
// events published by one instance are re-broadcast to the local members of
// the same room on every other instance. Member lists are not bridged:
// presence stays per-process.
//
// It guarantees **exactly one** Redis subscription per "room:<id>:events"
// channel, no matter how many websocket clients join the same room locally.
type Fanout struct {
	rdb        *redis.Client
	hub        *Hub
	instanceID string
	mu         sync.Mutex
	subs       map[string]*subEntry // presentation id -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

// busFrame wraps a marshaled Envelope with the publishing instance's id so
// subscribers can skip their own frames.
type busFrame struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewFanout(rdb *redis.Client, hub *Hub) *Fanout {
	return &Fanout{
		rdb:        rdb,
		hub:        hub,
		instanceID: uuid.NewString(),
		subs:       make(map[string]*subEntry),
	}
}

func roomChannel(roomID string) string { return "room:" + roomID + ":events" }

// Publish mirrors an already-marshaled envelope onto the room's bus channel.
// Fire-and-forget: a failed publish only costs remote observers one ephemeral
// event.
func (f *Fanout) Publish(roomID string, envelope []byte) {
	frame, err := json.Marshal(busFrame{Origin: f.instanceID, Payload: envelope})
	if err != nil {
		zap.L().Error("fanout.marshal", zap.Error(err))
		return
	}
	if err := f.rdb.Publish(context.Background(), roomChannel(roomID), frame).Err(); err != nil {
		zap.L().Warn("fanout.publish", zap.String("room", roomID), zap.Error(err))
	}
}

// Subscribe ensures the process is subscribed to the room's channel;
// subsequent calls for the same room only increment the ref‑counter.
func (f *Fanout) Subscribe(roomID string) {
	f.mu.Lock()
	if e, ok := f.subs[roomID]; ok {
		e.refCnt++
		f.mu.Unlock()
		return
	}

	// First local member → create Redis SUB and fan‑out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := f.rdb.Subscribe(ctx, roomChannel(roomID))

	f.subs[roomID] = &subEntry{refCnt: 1, cancel: cancel}
	f.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}

				var frame busFrame
				if err := json.Unmarshal([]byte(m.Payload), &frame); err != nil {
					zap.L().Warn("fanout.bad_frame", zap.Error(err))
					continue
				}
				if frame.Origin == f.instanceID {
					continue // our own publish echoed back
				}
				f.hub.Broadcast(roomID, frame.Payload)
			}
		}
	}()
}

// Unsubscribe decrements the ref‑counter and tears the Redis SUB down when
// the last local member leaves the room.
func (f *Fanout) Unsubscribe(roomID string) {
	f.mu.Lock()
	e, ok := f.subs[roomID]
	if !ok {
		f.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		f.mu.Unlock()
		return
	}
	delete(f.subs, roomID)
	f.mu.Unlock()

	// Outside the lock → stop the fan‑out goroutine.
	e.cancel()
}
