package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"satupapan/internal/shape"
	"satupapan/internal/whiteboard/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBridgeLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/whiteboards/doc-1/shapes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"whiteboard_id":"doc-1","shapes":[{"id":"a","tool":"rectangle","points":[{"x":1,"y":2}]}]}`))
	}))
	defer server.Close()

	b := NewHTTPBridge(server.URL, "secret")
	shapes, err := b.LoadShapes(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	// Loaded shapes are repaired: a rectangle always has two points.
	assert.Len(t, shapes[0].Points, 2)
}

func TestHTTPBridgeSave(t *testing.T) {
	var got model.ShapesPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	b := NewHTTPBridge(server.URL, "secret")
	err := b.SaveShapes(context.Background(), "doc-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, got.Shapes, "an empty collection is sent as [] not null")

	err = b.SaveShapes(context.Background(), "doc-1", []shape.Shape{{ID: "a", Tool: shape.Pen}})
	require.NoError(t, err)
	assert.Equal(t, "a", got.Shapes[0].ID)
}

func TestHTTPBridgeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	b := NewHTTPBridge(server.URL, "")
	_, err := b.LoadShapes(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	err = b.SaveShapes(context.Background(), "doc-1", []shape.Shape{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}
