package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchesTypedBody(t *testing.T) {
	r := NewRouter()

	var got CursorPosition
	Register(r, "cursor-move", func(_ *session, req CursorPosition) {
		got = req
	})

	r.dispatch(&session{id: "c1"}, Envelope{
		Event: "cursor-move",
		Body:  json.RawMessage(`{"x":12.5,"y":40,"slideId":"s1"}`),
	})

	assert.Equal(t, 12.5, got.X)
	assert.Equal(t, 40.0, got.Y)
	assert.Equal(t, "s1", got.SlideID)
}

func TestRouterDropsMalformedBody(t *testing.T) {
	r := NewRouter()

	called := false
	Register(r, "cursor-move", func(_ *session, _ CursorPosition) {
		called = true
	})

	r.dispatch(&session{id: "c1"}, Envelope{
		Event: "cursor-move",
		Body:  json.RawMessage(`{"x":"not-a-number"}`),
	})

	assert.False(t, called)
}

func TestRouterIgnoresUnknownEvent(t *testing.T) {
	r := NewRouter()

	require.NotPanics(t, func() {
		r.dispatch(&session{id: "c1"}, Envelope{Event: "no-such-event"})
	})
}

func TestRouterRejectsEmptyEventName(t *testing.T) {
	r := NewRouter()

	require.Panics(t, func() {
		Register(r, "", func(_ *session, _ struct{}) {})
	})
}
