// Package protocol defines the whiteboard wire events exchanged between a client connection and its room.
package protocol

import (
	"satupapan/internal/shape"
)

type EventName string

// Inbound events, sent by a client.
const (
	JoinWhiteboardEvent  EventName = "join-whiteboard"
	LeaveWhiteboardEvent EventName = "leave-whiteboard"
	DrawStartEvent       EventName = "draw-start"
	DrawProgressEvent    EventName = "draw-progress"
	DrawEndEvent         EventName = "draw-end"
	ShapeUpdateEvent     EventName = "shape-update"
	ShapeUpdateEndEvent  EventName = "shape-update-end"
	EraserHighlightEvent EventName = "eraser-highlight"
	UndoRedoEvent        EventName = "undo-redo"
	ClearCanvasEvent     EventName = "clear-canvas"
	CursorMoveEvent      EventName = "cursor-move"
)

// Outbound events, relayed by the room.
const (
	UserJoinedEvent        EventName = "user-joined"
	UserCountsUpdateEvent  EventName = "user-counts-update"
	UserLeftEvent          EventName = "user-left"
	DrawStartedEvent       EventName = "draw-started"
	DrawProgressedEvent    EventName = "draw-progressed"
	DrawEndedEvent         EventName = "draw-ended"
	ShapeUpdatedEvent      EventName = "shape-updated"
	ShapeUpdateEndedEvent  EventName = "shape-update-ended"
	EraserHighlightedEvent EventName = "eraser-highlighted"
	UndoRedoUpdateEvent    EventName = "undo-redo-update"
	CanvasClearedEvent     EventName = "canvas-cleared"
	CursorUpdateEvent      EventName = "cursor-update"
	WhiteboardStateEvent   EventName = "whiteboard-state"
)

// Event is one variant of the closed wire union.
type Event interface {
	Name() EventName
}

// Identity is the public profile of a participant.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Counts is the presence snapshot of a room.
type Counts struct {
	Collaborators int `json:"collaborators"`
	Viewers       int `json:"viewers"`
}

// Route carries the correlation fields present on every event.
type Route struct {
	DocumentID string `json:"documentId"`
	InstanceID string `json:"instanceId"`
}

func (r Route) route() Route { return r }

// Routed is implemented by every event that carries documentId/instanceId.
type Routed interface {
	Event
	route() Route
}

// RouteOf returns the correlation fields of ev.
func RouteOf(ev Routed) Route { return ev.route() }

type JoinWhiteboard struct {
	Route
	Identity Identity `json:"user"`
	CanEdit  bool     `json:"canEdit"`
}

type LeaveWhiteboard struct {
	Route
}

type DrawStart struct {
	Route
	Shape shape.Shape `json:"shape"`
}

type DrawProgress struct {
	Route
	Shape shape.Shape `json:"shape"`
}

type DrawEnd struct {
	Route
	Shape shape.Shape `json:"shape"`
}

// ShapeUpdate carries an in-progress bulk mutation. Shape is the shape being manipulated, if any.
type ShapeUpdate struct {
	Route
	Shape  *shape.Shape  `json:"shape"`
	Shapes []shape.Shape `json:"shapes"`
}

type ShapeUpdateEnd struct {
	Route
	Shapes []shape.Shape `json:"shapes"`
}

type EraserHighlight struct {
	Route
	ShapeIDs []string `json:"shapeIds"`
}

type UndoRedo struct {
	Route
	Shapes []shape.Shape `json:"shapes"`
}

type ClearCanvas struct {
	Route
}

type CursorMove struct {
	Route
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Identity Identity `json:"user"`
}

type UserJoined struct {
	Route
	Identity Identity `json:"user"`
	CanEdit  bool     `json:"canEdit"`
	Counts   Counts   `json:"counts"`
}

type UserCountsUpdate struct {
	DocumentID string `json:"documentId"`
	Counts
}

type UserLeft struct {
	Route
	Identity Identity `json:"user"`
	Counts   Counts   `json:"counts"`
}

type DrawStarted struct {
	Route
	Shape shape.Shape `json:"shape"`
}

type DrawProgressed struct {
	Route
	Shape shape.Shape `json:"shape"`
}

type DrawEnded struct {
	Route
	Shape shape.Shape `json:"shape"`
}

type ShapeUpdated struct {
	Route
	Shape  *shape.Shape  `json:"shape"`
	Shapes []shape.Shape `json:"shapes"`
}

type ShapeUpdateEnded struct {
	Route
	Shapes []shape.Shape `json:"shapes"`
}

type EraserHighlighted struct {
	Route
	ShapeIDs []string `json:"shapeIds"`
}

type UndoRedoUpdate struct {
	Route
	Shapes []shape.Shape `json:"shapes"`
}

type CanvasCleared struct {
	Route
}

type CursorUpdate struct {
	Route
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Identity Identity `json:"user"`
}

// WhiteboardState is sent to a joining connection with the room's cached collection. CanEdit is
// the permission the server granted, which overrides whatever the join claimed.
type WhiteboardState struct {
	DocumentID string        `json:"documentId"`
	Shapes     []shape.Shape `json:"shapes"`
	CanEdit    bool          `json:"canEdit"`
}

func (JoinWhiteboard) Name() EventName    { return JoinWhiteboardEvent }
func (LeaveWhiteboard) Name() EventName   { return LeaveWhiteboardEvent }
func (DrawStart) Name() EventName         { return DrawStartEvent }
func (DrawProgress) Name() EventName      { return DrawProgressEvent }
func (DrawEnd) Name() EventName           { return DrawEndEvent }
func (ShapeUpdate) Name() EventName       { return ShapeUpdateEvent }
func (ShapeUpdateEnd) Name() EventName    { return ShapeUpdateEndEvent }
func (EraserHighlight) Name() EventName   { return EraserHighlightEvent }
func (UndoRedo) Name() EventName          { return UndoRedoEvent }
func (ClearCanvas) Name() EventName       { return ClearCanvasEvent }
func (CursorMove) Name() EventName        { return CursorMoveEvent }
func (UserJoined) Name() EventName        { return UserJoinedEvent }
func (UserCountsUpdate) Name() EventName  { return UserCountsUpdateEvent }
func (UserLeft) Name() EventName          { return UserLeftEvent }
func (DrawStarted) Name() EventName       { return DrawStartedEvent }
func (DrawProgressed) Name() EventName    { return DrawProgressedEvent }
func (DrawEnded) Name() EventName         { return DrawEndedEvent }
func (ShapeUpdated) Name() EventName      { return ShapeUpdatedEvent }
func (ShapeUpdateEnded) Name() EventName  { return ShapeUpdateEndedEvent }
func (EraserHighlighted) Name() EventName { return EraserHighlightedEvent }
func (UndoRedoUpdate) Name() EventName    { return UndoRedoUpdateEvent }
func (CanvasCleared) Name() EventName     { return CanvasClearedEvent }
func (CursorUpdate) Name() EventName      { return CursorUpdateEvent }
func (WhiteboardState) Name() EventName   { return WhiteboardStateEvent }

// Mutating reports whether an inbound event changes shared shape state (or previews a change)
// and therefore requires edit permission.
func Mutating(ev Event) bool {
	switch ev.(type) {
	case DrawStart, DrawProgress, DrawEnd, ShapeUpdate, ShapeUpdateEnd, EraserHighlight, UndoRedo, ClearCanvas:
		return true
	}
	return false
}
