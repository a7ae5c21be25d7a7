package socket

import (
	"context"
	"time"

	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/pkg/logger"
)

// Access is what a user may do with a whiteboard.
type Access struct {
	Exists  bool
	CanView bool
	CanEdit bool
}

// Authorizer decides whether a join is granted edit or view-only presence.
type Authorizer interface {
	Access(ctx context.Context, docID, userID string) (Access, error)
}

// ShapeStore seeds a new room from storage and receives server-side snapshots.
type ShapeStore interface {
	LoadShapes(ctx context.Context, docID string) ([]shape.Shape, error)
	SaveShapes(ctx context.Context, docID string, shapes []shape.Shape) error
}

// PresenceSink receives the room counts after every presence change.
type PresenceSink interface {
	Update(docID string, counts protocol.Counts)
}

// OpenAccess grants edit access to every document. It is meant for local development and tests.
type OpenAccess struct{}

func (OpenAccess) Access(context.Context, string, string) (Access, error) {
	return Access{Exists: true, CanView: true, CanEdit: true}, nil
}

type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	// SnapshotInterval enables periodic writes of changed rooms to the ShapeStore when > 0.
	SnapshotInterval time.Duration
	StoreTimeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageSize:  4 << 20,
		StoreTimeout:    5 * time.Second,
	}
}

type inbound struct {
	client *Client
	event  protocol.Event
	seed   []shape.Shape
}

// Hub owns the room registry. Every registry read and write happens on the Run goroutine, so
// connection events are processed one at a time and need no locking.
type Hub struct {
	Inbound    chan inbound
	Unregister chan *Client

	registry *Registry
	exec     chan func()
	done     chan struct{}

	access   Authorizer
	store    ShapeStore
	presence PresenceSink
	opts     Options
}

func NewHub(opts Options, access Authorizer, store ShapeStore) *Hub {
	if access == nil {
		access = OpenAccess{}
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = DefaultOptions().SendBufferSize
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultOptions().StoreTimeout
	}
	return &Hub{
		Inbound:    make(chan inbound),
		Unregister: make(chan *Client),
		registry:   NewRegistry(),
		exec:       make(chan func()),
		done:       make(chan struct{}),
		access:     access,
		store:      store,
		opts:       opts,
	}
}

// SetPresenceSink mirrors presence counts elsewhere. It must be called before Run.
func (h *Hub) SetPresenceSink(p PresenceSink) { h.presence = p }

// Run processes connection events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var snapshots <-chan time.Time
	if h.snapshotsEnabled() {
		ticker := time.NewTicker(h.opts.SnapshotInterval)
		defer ticker.Stop()
		snapshots = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case in := <-h.Inbound:
			h.handle(in)
		case client := <-h.Unregister:
			h.disconnect(client)
		case fn := <-h.exec:
			fn()
		case <-snapshots:
			h.snapshotDirty()
		}
	}
}

// do runs fn on the event loop and waits for it. It reports false once the hub has stopped.
func (h *Hub) do(fn func()) bool {
	finished := make(chan struct{})
	select {
	case h.exec <- func() { fn(); close(finished) }:
	case <-h.done:
		return false
	}
	select {
	case <-finished:
		return true
	case <-h.done:
		return false
	}
}

// Counts returns the live presence counts of a document.
func (h *Hub) Counts(docID string) protocol.Counts {
	var c protocol.Counts
	h.do(func() { c = h.registry.Counts(docID) })
	return c
}

// RemoveDocument forcefully closes a document's room and disconnects its clients.
// This is called when a whiteboard is deleted through the API.
func (h *Hub) RemoveDocument(docID string) {
	h.do(func() {
		for _, p := range h.registry.Remove(docID) {
			p.Client.unbind()
			// Closing the socket makes the read pump exit and unregister.
			if p.Client.Conn != nil {
				p.Client.Conn.Close()
			}
		}
		h.updatePresence(docID)
	})
}

func (h *Hub) handle(in inbound) {
	c := in.client
	if c.gone {
		return
	}
	switch ev := in.event.(type) {
	case protocol.JoinWhiteboard:
		h.join(c, ev, in.seed)
	case protocol.LeaveWhiteboard:
		if !c.boundTo(ev.Route) {
			logger.Sugar.Warnf("Ignoring leave from %s: not joined to %s as %s", c.UserID, ev.DocumentID, ev.InstanceID)
			return
		}
		h.leave(c)
	case protocol.Routed:
		h.relay(c, ev)
	default:
		logger.Sugar.Warnf("Ignoring %s from %s: not a client event", in.event.Name(), c.UserID)
	}
}

func (h *Hub) join(c *Client, ev protocol.JoinWhiteboard, seed []shape.Shape) {
	if c.docID != "" && !c.boundTo(ev.Route) {
		h.leave(c)
	}

	res := h.registry.Join(ev.DocumentID, ev.InstanceID, ev.Identity, ev.CanEdit, c)
	if res.Created {
		if seed != nil {
			res.Room.Shapes = shape.CloneAll(seed)
		}
		logger.Sugar.Infof("Opened room: %s", ev.DocumentID)
	}
	c.bind(ev.Route)

	counts := h.registry.Counts(ev.DocumentID)
	if res.Evicted != nil {
		evicted := protocol.UserLeft{
			Route:    protocol.Route{DocumentID: ev.DocumentID, InstanceID: res.Evicted.InstanceID},
			Identity: res.Evicted.Identity,
			Counts:   counts,
		}
		if res.Evicted.Client != c {
			res.Evicted.Client.unbind()
			// The stale instance learns it was replaced from a user-left carrying its own route.
			h.send(res.Evicted.Client, evicted)
		}
		logger.Sugar.Infof("Evicted stale instance %s of %s from %s", res.Evicted.InstanceID, ev.Identity.ID, ev.DocumentID)
		h.broadcast(ev.DocumentID, ev.InstanceID, evicted)
	}

	h.send(c, protocol.UserCountsUpdate{DocumentID: ev.DocumentID, Counts: counts})
	h.send(c, protocol.WhiteboardState{DocumentID: ev.DocumentID, Shapes: res.Room.Shapes, CanEdit: ev.CanEdit})
	h.broadcast(ev.DocumentID, ev.InstanceID, protocol.UserJoined{
		Route:    ev.Route,
		Identity: ev.Identity,
		CanEdit:  ev.CanEdit,
		Counts:   counts,
	})
	h.updatePresence(ev.DocumentID)
}

func (h *Hub) leave(c *Client) {
	route := protocol.Route{DocumentID: c.docID, InstanceID: c.instanceID}
	c.unbind()
	d, ok := h.registry.Leave(route.DocumentID, route.InstanceID)
	if !ok {
		return
	}
	h.departed(d)
}

func (h *Hub) disconnect(c *Client) {
	if c.gone {
		return
	}
	c.gone = true
	c.unbind()
	close(c.Send)
	for _, d := range h.registry.Disconnect(c) {
		h.departed(d)
	}
}

func (h *Hub) departed(d Departure) {
	if d.RoomClosed {
		if d.Room.dirty && h.snapshotsEnabled() {
			h.saveSnapshot(d.DocumentID, shape.CloneAll(d.Room.Shapes))
		}
		logger.Sugar.Infof("Closed and cleaned up empty room: %s", d.DocumentID)
		h.updatePresence(d.DocumentID)
		return
	}
	h.broadcast(d.DocumentID, d.Participant.InstanceID, protocol.UserLeft{
		Route:    protocol.Route{DocumentID: d.DocumentID, InstanceID: d.Participant.InstanceID},
		Identity: d.Participant.Identity,
		Counts:   h.registry.Counts(d.DocumentID),
	})
	h.updatePresence(d.DocumentID)
}

// relay applies a stroke/shape/cursor event to the room cache and forwards it to the other
// participants. Events from connections that are not joined under that route, and mutating
// events from view-only participants, are dropped without a reply.
func (h *Hub) relay(c *Client, ev protocol.Routed) {
	route := protocol.RouteOf(ev)
	if !c.boundTo(route) {
		logger.Sugar.Warnf("Dropping %s from %s: not joined to %s as %s", ev.Name(), c.UserID, route.DocumentID, route.InstanceID)
		return
	}
	p, ok := h.registry.Participant(route.DocumentID, route.InstanceID)
	if !ok {
		logger.Sugar.Warnf("Dropping %s from %s: instance %s is not in room %s", ev.Name(), c.UserID, route.InstanceID, route.DocumentID)
		return
	}
	if protocol.Mutating(ev) && !p.CanEdit {
		logger.Sugar.Warnf("Permission Denied: User %s (view-only) tried %s on doc %s", c.UserID, ev.Name(), route.DocumentID)
		return
	}

	switch e := ev.(type) {
	case protocol.DrawEnd:
		h.registry.AppendShape(route.DocumentID, e.Shape)
	case protocol.ShapeUpdate:
		h.registry.ReplaceShapes(route.DocumentID, e.Shapes)
	case protocol.ShapeUpdateEnd:
		h.registry.ReplaceShapes(route.DocumentID, e.Shapes)
	case protocol.UndoRedo:
		h.registry.ReplaceShapes(route.DocumentID, e.Shapes)
	case protocol.ClearCanvas:
		h.registry.ClearShapes(route.DocumentID)
	}

	out, ok := protocol.Relay(ev)
	if !ok {
		return
	}
	if cu, isCursor := out.(protocol.CursorUpdate); isCursor {
		cu.Identity = p.Identity
		out = cu
	}
	h.broadcast(route.DocumentID, route.InstanceID, out)
}

// broadcast sends ev to every participant of the room except the given instance.
func (h *Hub) broadcast(docID, exceptInstance string, ev protocol.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s broadcast: %v", ev.Name(), err)
		return
	}
	var lagging []*Client
	for _, p := range h.registry.Others(docID, exceptInstance) {
		if !p.Client.enqueue(payload) {
			lagging = append(lagging, p.Client)
		}
	}
	for _, c := range lagging {
		// If the send buffer is full, the client is lagging. Drop it to keep the loop moving.
		logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", c.UserID)
		h.disconnect(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
}

func (h *Hub) send(c *Client, ev protocol.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s: %v", ev.Name(), err)
		return
	}
	if !c.enqueue(payload) {
		logger.Sugar.Warnf("Client %s's send buffer was full during %s.", c.UserID, ev.Name())
	}
}

func (h *Hub) updatePresence(docID string) {
	if h.presence != nil {
		h.presence.Update(docID, h.registry.Counts(docID))
	}
}

func (h *Hub) snapshotsEnabled() bool {
	return h.store != nil && h.opts.SnapshotInterval > 0
}

// snapshotDirty copies every changed room and writes the copies outside the loop.
func (h *Hub) snapshotDirty() {
	for docID, room := range h.registry.rooms {
		if !room.dirty {
			continue
		}
		room.dirty = false
		h.saveSnapshot(docID, shape.CloneAll(room.Shapes))
	}
}

func (h *Hub) saveSnapshot(docID string, shapes []shape.Shape) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.StoreTimeout)
		defer cancel()
		if err := h.store.SaveShapes(ctx, docID, shapes); err != nil {
			logger.Sugar.Errorf("Failed to snapshot doc %s: %v", docID, err)
			// Leave the room dirty so the next tick retries.
			h.do(func() {
				if room, ok := h.registry.Room(docID); ok {
					room.dirty = true
				}
			})
			return
		}
		logger.Sugar.Infof("Auto-saved whiteboard: %s", docID)
	}()
}

func (h *Hub) shutdown() {
	for docID := range h.registry.rooms {
		for _, p := range h.registry.Remove(docID) {
			if !p.Client.gone {
				p.Client.gone = true
				close(p.Client.Send)
			}
		}
	}
}
