package syncclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"satupapan/internal/canvas"
	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

type memBridge struct {
	mu     sync.Mutex
	shapes []shape.Shape
	saves  int
}

func (b *memBridge) LoadShapes(context.Context, string) ([]shape.Shape, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return shape.CloneAll(b.shapes), nil
}

func (b *memBridge) SaveShapes(_ context.Context, _ string, shapes []shape.Shape) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shapes = shape.CloneAll(shapes)
	b.saves++
	return nil
}

func (b *memBridge) stored() ([]shape.Shape, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return shape.CloneAll(b.shapes), b.saves
}

// startServer runs a hub behind a websocket endpoint. The token query parameter is used as the
// user id.
func startServer(t *testing.T) (*socket.Hub, string, *atomic.Int32) {
	t.Helper()
	return startServerWith(t, socket.OpenAccess{})
}

func startServerWith(t *testing.T, access socket.Authorizer) (*socket.Hub, string, *atomic.Int32) {
	t.Helper()
	hub := socket.NewHub(socket.DefaultOptions(), access, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	var connections atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		user := r.URL.Query().Get("token")
		socket.ServeWs(hub, w, r, protocol.Identity{ID: user, Name: strings.ToUpper(user)})
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws", &connections
}

func fastPolicy(endpoints ...string) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     2,
		Endpoints:      endpoints,
	}
}

func runSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s := NewSession(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("session did not stop")
		}
	})
	return s
}

func state(t *testing.T, s *Session) ([]shape.Shape, protocol.Counts) {
	t.Helper()
	var shapes []shape.Shape
	var counts protocol.Counts
	// Called from Eventually conditions, which run off the test goroutine.
	assert.NoError(t, s.Do(context.Background(), func(e *canvas.Engine) {
		shapes, counts = e.Shapes(), e.Counts()
	}))
	return shapes, counts
}

func TestSessionsShareDrawing(t *testing.T) {
	_, endpoint, _ := startServer(t)
	bridge := &memBridge{}

	ana := runSession(t, Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "ana"},
		CanEdit:    true,
		Token:      "ana",
		Policy:     fastPolicy(endpoint),
		Bridge:     bridge,
		SaveDelay:  10 * time.Millisecond,
	})
	budi := runSession(t, Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "budi"},
		CanEdit:    true,
		Token:      "budi",
		Policy:     fastPolicy(endpoint),
	})

	for _, s := range []*Session{ana, budi} {
		s := s
		require.Eventually(t, func() bool {
			_, counts := state(t, s)
			return counts.Collaborators == 2
		}, waitFor, 10*time.Millisecond)
	}

	var drawErr error
	require.NoError(t, ana.Do(context.Background(), func(e *canvas.Engine) {
		if drawErr = e.SetTool(shape.Rectangle); drawErr != nil {
			return
		}
		if drawErr = e.PointerDown(shape.Point{X: 0, Y: 0}); drawErr != nil {
			return
		}
		e.PointerMove(shape.Point{X: 40, Y: 30})
		e.PointerUp(shape.Point{X: 40, Y: 30})
	}))
	require.NoError(t, drawErr)

	require.Eventually(t, func() bool {
		shapes, _ := state(t, budi)
		return len(shapes) == 1 && shapes[0].Tool == shape.Rectangle
	}, waitFor, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		stored, _ := bridge.stored()
		return len(stored) == 1
	}, waitFor, 10*time.Millisecond)
}

func TestSessionRejoinsAfterDrop(t *testing.T) {
	hub, endpoint, connections := startServer(t)
	s := runSession(t, Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "ana"},
		CanEdit:    true,
		Token:      "ana",
		Policy:     fastPolicy(endpoint),
	})

	require.Eventually(t, func() bool { return hub.Counts("doc-1").Collaborators == 1 }, waitFor, 10*time.Millisecond)

	hub.RemoveDocument("doc-1")

	require.Eventually(t, func() bool {
		return connections.Load() >= 2 && hub.Counts("doc-1").Collaborators == 1
	}, waitFor, 10*time.Millisecond)
	assert.True(t, s.Online())
}

type viewOnly struct{}

func (viewOnly) Access(context.Context, string, string) (socket.Access, error) {
	return socket.Access{Exists: true, CanView: true}, nil
}

func TestSessionTakesEditGrantFromServer(t *testing.T) {
	hub, endpoint, _ := startServerWith(t, viewOnly{})
	s := runSession(t, Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "vera"},
		CanEdit:    true,
		Token:      "vera",
		Policy:     fastPolicy(endpoint),
	})

	require.Eventually(t, func() bool { return hub.Counts("doc-1").Viewers == 1 }, waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		var canEdit bool
		assert.NoError(t, s.Do(context.Background(), func(e *canvas.Engine) { canEdit = e.CanEdit() }))
		return !canEdit
	}, waitFor, 10*time.Millisecond)

	var drawErr error
	require.NoError(t, s.Do(context.Background(), func(e *canvas.Engine) {
		drawErr = e.PointerDown(shape.Point{X: 1, Y: 1})
	}))
	assert.ErrorIs(t, drawErr, canvas.ErrReadOnly)
}

func TestSessionStopsWhenEvicted(t *testing.T) {
	hub, endpoint, _ := startServer(t)
	bridge := &memBridge{}

	stale := NewSession(Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "ana"},
		CanEdit:    true,
		Token:      "ana",
		Policy:     fastPolicy(endpoint),
		Bridge:     bridge,
		SaveDelay:  300 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- stale.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, counts := state(t, stale)
		return counts.Collaborators == 1
	}, waitFor, 10*time.Millisecond)

	// A save is pending when the same user opens the document again.
	var drawErr error
	require.NoError(t, stale.Do(context.Background(), func(e *canvas.Engine) {
		drawErr = e.Clear()
	}))
	require.NoError(t, drawErr)

	runSession(t, Config{
		DocumentID: "doc-1",
		Identity:   protocol.Identity{ID: "ana"},
		CanEdit:    true,
		Token:      "ana",
		Policy:     fastPolicy(endpoint),
	})

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrEvicted)
	case <-time.After(waitFor):
		t.Fatal("evicted session kept running")
	}
	assert.ErrorIs(t, stale.Do(context.Background(), func(*canvas.Engine) {}), ErrSessionClosed)
	assert.Equal(t, protocol.Counts{Collaborators: 1}, hub.Counts("doc-1"))

	assert.Never(t, func() bool {
		_, saves := bridge.stored()
		return saves > 0
	}, 500*time.Millisecond, 20*time.Millisecond)
}

func TestConnGivesUpAfterMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	server.Close()

	join := protocol.JoinWhiteboard{Route: protocol.Route{DocumentID: "doc-1", InstanceID: "i-1"}}
	conn := NewConn(fastPolicy(endpoint), "", join)

	conn.Emit(protocol.ClearCanvas{Route: join.Route})
	assert.False(t, conn.Online())

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	err := conn.Run(ctx)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestConnFallsBackToNextEndpoint(t *testing.T) {
	hub, endpoint, _ := startServer(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadEndpoint := "ws" + strings.TrimPrefix(dead.URL, "http") + "/ws"
	dead.Close()

	join := protocol.JoinWhiteboard{
		Route:    protocol.Route{DocumentID: "doc-1", InstanceID: "i-1"},
		Identity: protocol.Identity{ID: "ana"},
		CanEdit:  true,
	}
	conn := NewConn(fastPolicy(deadEndpoint, endpoint), "ana", join)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	require.Eventually(t, conn.Online, waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.Counts("doc-1").Collaborators == 1 }, waitFor, 10*time.Millisecond)

	select {
	case ev := <-conn.Events():
		assert.Equal(t, protocol.UserCountsUpdateEvent, ev.Name())
	case <-time.After(waitFor):
		t.Fatal("no event after join")
	}
}

func TestDoAfterCloseFails(t *testing.T) {
	s := NewSession(Config{DocumentID: "doc-1", Policy: fastPolicy()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))

	err := s.Do(context.Background(), func(*canvas.Engine) {})
	assert.ErrorIs(t, err, ErrSessionClosed)
}
