package socket

import (
	"satupapan/internal/protocol"
	"satupapan/internal/shape"
)

// Participant is one connected instance (a tab) of a user in a room.
type Participant struct {
	InstanceID string
	Identity   protocol.Identity
	CanEdit    bool
	Client     *Client
}

// Room is the in-memory state of one whiteboard: the last full shape collection received from a
// client and the participants keyed by instance id. It is a cache, never the source of truth.
type Room struct {
	DocumentID   string
	Shapes       []shape.Shape
	Participants map[string]*Participant
	dirty        bool
}

// JoinResult describes the effect of a join.
type JoinResult struct {
	Room    *Room
	Created bool
	// Evicted is the stale entry of the same identity removed to make room for the new instance.
	Evicted *Participant
}

// Departure describes one participant removed by a leave or a disconnect.
type Departure struct {
	DocumentID  string
	Participant *Participant
	RoomClosed  bool
	// Room is set when the departure closed it.
	Room *Room
}

// Registry maps document ids to rooms. It has no locking: it must only be touched by the hub's
// event loop goroutine.
type Registry struct {
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Room returns the room of a document, if one is open.
func (r *Registry) Room(docID string) (*Room, bool) {
	room, ok := r.rooms[docID]
	return room, ok
}

// Len is the number of open rooms.
func (r *Registry) Len() int { return len(r.rooms) }

func (r *Registry) ensure(docID string) (*Room, bool) {
	if room, ok := r.rooms[docID]; ok {
		return room, false
	}
	room := &Room{
		DocumentID:   docID,
		Shapes:       []shape.Shape{},
		Participants: make(map[string]*Participant),
	}
	r.rooms[docID] = room
	return room, true
}

// Join registers an instance in a document's room, creating the room when absent. A different
// instance already registered for the same identity is evicted first so reconnects and duplicate
// tabs do not double-count presence.
func (r *Registry) Join(docID, instanceID string, identity protocol.Identity, canEdit bool, client *Client) JoinResult {
	room, created := r.ensure(docID)
	res := JoinResult{Room: room, Created: created}

	if identity.ID != "" {
		for id, p := range room.Participants {
			if id != instanceID && p.Identity.ID == identity.ID {
				delete(room.Participants, id)
				res.Evicted = p
				break
			}
		}
	}

	room.Participants[instanceID] = &Participant{
		InstanceID: instanceID,
		Identity:   identity,
		CanEdit:    canEdit,
		Client:     client,
	}
	return res
}

// Leave removes one instance. The room is destroyed once it has no participants.
func (r *Registry) Leave(docID, instanceID string) (Departure, bool) {
	room, ok := r.rooms[docID]
	if !ok {
		return Departure{}, false
	}
	p, ok := room.Participants[instanceID]
	if !ok {
		return Departure{}, false
	}
	delete(room.Participants, instanceID)
	d := Departure{DocumentID: docID, Participant: p}
	if len(room.Participants) == 0 {
		delete(r.rooms, docID)
		d.RoomClosed = true
		d.Room = room
	}
	return d, true
}

// Disconnect removes every entry owned by a connection. The document is unknown at disconnect
// time, so every room is scanned.
func (r *Registry) Disconnect(client *Client) []Departure {
	var out []Departure
	for docID, room := range r.rooms {
		for instanceID, p := range room.Participants {
			if p.Client != client {
				continue
			}
			delete(room.Participants, instanceID)
			out = append(out, Departure{DocumentID: docID, Participant: p})
		}
		if len(room.Participants) == 0 && len(out) > 0 && out[len(out)-1].DocumentID == docID {
			delete(r.rooms, docID)
			out[len(out)-1].RoomClosed = true
			out[len(out)-1].Room = room
		}
	}
	return out
}

// Remove drops a room outright and returns its participants.
func (r *Registry) Remove(docID string) []*Participant {
	room, ok := r.rooms[docID]
	if !ok {
		return nil
	}
	delete(r.rooms, docID)
	out := make([]*Participant, 0, len(room.Participants))
	for _, p := range room.Participants {
		out = append(out, p)
	}
	return out
}

// Participant looks up one instance of a room.
func (r *Registry) Participant(docID, instanceID string) (*Participant, bool) {
	room, ok := r.rooms[docID]
	if !ok {
		return nil, false
	}
	p, ok := room.Participants[instanceID]
	return p, ok
}

// Counts partitions the room's participants by edit permission.
func (r *Registry) Counts(docID string) protocol.Counts {
	var c protocol.Counts
	room, ok := r.rooms[docID]
	if !ok {
		return c
	}
	for _, p := range room.Participants {
		if p.CanEdit {
			c.Collaborators++
		} else {
			c.Viewers++
		}
	}
	return c
}

// Others lists every participant of the room except the given instance.
func (r *Registry) Others(docID, instanceID string) []*Participant {
	room, ok := r.rooms[docID]
	if !ok {
		return nil
	}
	out := make([]*Participant, 0, len(room.Participants))
	for id, p := range room.Participants {
		if id != instanceID {
			out = append(out, p)
		}
	}
	return out
}

// ReplaceShapes stores a full collection as the room's cache. Writes to a room that is not open
// are dropped.
func (r *Registry) ReplaceShapes(docID string, shapes []shape.Shape) {
	room, ok := r.rooms[docID]
	if !ok {
		return
	}
	room.Shapes = shape.CloneAll(shapes)
	room.dirty = true
}

// AppendShape commits one finished stroke or shape to the cache.
func (r *Registry) AppendShape(docID string, s shape.Shape) {
	room, ok := r.rooms[docID]
	if !ok {
		return
	}
	room.Shapes = append(room.Shapes, s.Clone())
	room.dirty = true
}

func (r *Registry) ClearShapes(docID string) {
	room, ok := r.rooms[docID]
	if !ok {
		return
	}
	room.Shapes = []shape.Shape{}
	room.dirty = true
}
