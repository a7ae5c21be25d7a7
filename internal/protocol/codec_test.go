package protocol

import (
	"encoding/json"
	"testing"

	"satupapan/internal/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDrawEnd(t *testing.T) {
	raw := `{"event":"draw-end","data":{"documentId":"doc-1","instanceId":"i-1",
		"shape":{"id":"s1","tool":"rectangle","points":[{"x":10,"y":10},{"x":50,"y":50}],"color":"#FF0000"}}}`

	ev, err := Decode([]byte(raw))
	require.NoError(t, err)

	end, ok := ev.(DrawEnd)
	require.True(t, ok, "expected DrawEnd, got %T", ev)
	assert.Equal(t, Route{DocumentID: "doc-1", InstanceID: "i-1"}, end.Route)
	assert.Equal(t, shape.Rectangle, end.Shape.Tool)
	assert.Equal(t, "#FF0000", end.Shape.Color)
	assert.Equal(t, shape.DefaultStrokeWidth, end.Shape.StrokeWidth, "missing style fields are defaulted")
}

func TestDecodeRejectsInvalidFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"not json", `{`, ErrInvalidPayload},
		{"unknown event", `{"event":"teleport","data":{}}`, ErrUnknownEvent},
		{"missing instance", `{"event":"clear-canvas","data":{"documentId":"d"}}`, ErrInvalidPayload},
		{"missing shape id", `{"event":"draw-start","data":{"documentId":"d","instanceId":"i","shape":{"tool":"pen"}}}`, ErrInvalidPayload},
		{"null collection", `{"event":"shape-update-end","data":{"documentId":"d","instanceId":"i","shapes":null}}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeAcceptsEmptyCollection(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"undo-redo","data":{"documentId":"d","instanceId":"i","shapes":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, ev.(UndoRedo).Shapes)
}

func TestEncodeDecodeKeepsEventName(t *testing.T) {
	in := ShapeUpdated{
		Route:  Route{DocumentID: "d", InstanceID: "i"},
		Shapes: []shape.Shape{{ID: "a", Tool: shape.Pen, Points: []shape.Point{{X: 1, Y: 1}}}},
	}
	raw, err := Encode(in)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, ShapeUpdatedEvent, env.Event)

	out, err := Decode(raw)
	require.NoError(t, err)
	got := out.(ShapeUpdated)
	assert.Nil(t, got.Shape)
	assert.Equal(t, "a", got.Shapes[0].ID)
}

func TestRelayRenamesEveryBroadcastEvent(t *testing.T) {
	r := Route{DocumentID: "d", InstanceID: "i"}
	pairs := []struct {
		in   Event
		want EventName
	}{
		{DrawStart{Route: r}, DrawStartedEvent},
		{DrawProgress{Route: r}, DrawProgressedEvent},
		{DrawEnd{Route: r}, DrawEndedEvent},
		{ClearCanvas{Route: r}, CanvasClearedEvent},
		{CursorMove{Route: r}, CursorUpdateEvent},
		{EraserHighlight{Route: r}, EraserHighlightedEvent},
	}
	for _, p := range pairs {
		out, ok := Relay(p.in)
		require.True(t, ok)
		assert.Equal(t, p.want, out.Name())
	}

	out, ok := Relay(UndoRedo{Route: r, Shapes: []shape.Shape{}})
	require.True(t, ok)
	assert.Equal(t, UndoRedoUpdateEvent, out.Name())

	_, ok = Relay(JoinWhiteboard{Route: r})
	assert.False(t, ok)
}

func TestMutating(t *testing.T) {
	assert.True(t, Mutating(ClearCanvas{}))
	assert.True(t, Mutating(EraserHighlight{}))
	assert.False(t, Mutating(CursorMove{}))
	assert.False(t, Mutating(JoinWhiteboard{}))
}
