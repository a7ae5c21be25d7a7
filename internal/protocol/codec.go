package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"satupapan/internal/shape"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Envelope is the frame written on the socket: an event name plus its payload.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps ev in an envelope.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Name(), err)
	}
	return json.Marshal(Envelope{Event: ev.Name(), Data: data})
}

var decoders = map[EventName]func() Event{
	JoinWhiteboardEvent:    func() Event { return &JoinWhiteboard{} },
	LeaveWhiteboardEvent:   func() Event { return &LeaveWhiteboard{} },
	DrawStartEvent:         func() Event { return &DrawStart{} },
	DrawProgressEvent:      func() Event { return &DrawProgress{} },
	DrawEndEvent:           func() Event { return &DrawEnd{} },
	ShapeUpdateEvent:       func() Event { return &ShapeUpdate{} },
	ShapeUpdateEndEvent:    func() Event { return &ShapeUpdateEnd{} },
	EraserHighlightEvent:   func() Event { return &EraserHighlight{} },
	UndoRedoEvent:          func() Event { return &UndoRedo{} },
	ClearCanvasEvent:       func() Event { return &ClearCanvas{} },
	CursorMoveEvent:        func() Event { return &CursorMove{} },
	UserJoinedEvent:        func() Event { return &UserJoined{} },
	UserCountsUpdateEvent:  func() Event { return &UserCountsUpdate{} },
	UserLeftEvent:          func() Event { return &UserLeft{} },
	DrawStartedEvent:       func() Event { return &DrawStarted{} },
	DrawProgressedEvent:    func() Event { return &DrawProgressed{} },
	DrawEndedEvent:         func() Event { return &DrawEnded{} },
	ShapeUpdatedEvent:      func() Event { return &ShapeUpdated{} },
	ShapeUpdateEndedEvent:  func() Event { return &ShapeUpdateEnded{} },
	EraserHighlightedEvent: func() Event { return &EraserHighlighted{} },
	UndoRedoUpdateEvent:    func() Event { return &UndoRedoUpdate{} },
	CanvasClearedEvent:     func() Event { return &CanvasCleared{} },
	CursorUpdateEvent:      func() Event { return &CursorUpdate{} },
	WhiteboardStateEvent:   func() Event { return &WhiteboardState{} },
}

// Decode parses a frame into its typed event (returned by value), validates the fields the
// variant requires and repairs any malformed shapes it carries.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	newEvent, ok := decoders[env.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	ptr := newEvent()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, ptr); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
		}
	}
	ev := deref(ptr)
	if err := validate(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	return repair(ev), nil
}

func deref(ptr Event) Event {
	switch e := ptr.(type) {
	case *JoinWhiteboard:
		return *e
	case *LeaveWhiteboard:
		return *e
	case *DrawStart:
		return *e
	case *DrawProgress:
		return *e
	case *DrawEnd:
		return *e
	case *ShapeUpdate:
		return *e
	case *ShapeUpdateEnd:
		return *e
	case *EraserHighlight:
		return *e
	case *UndoRedo:
		return *e
	case *ClearCanvas:
		return *e
	case *CursorMove:
		return *e
	case *UserJoined:
		return *e
	case *UserCountsUpdate:
		return *e
	case *UserLeft:
		return *e
	case *DrawStarted:
		return *e
	case *DrawProgressed:
		return *e
	case *DrawEnded:
		return *e
	case *ShapeUpdated:
		return *e
	case *ShapeUpdateEnded:
		return *e
	case *EraserHighlighted:
		return *e
	case *UndoRedoUpdate:
		return *e
	case *CanvasCleared:
		return *e
	case *CursorUpdate:
		return *e
	case *WhiteboardState:
		return *e
	}
	return ptr
}

func validate(ev Event) error {
	if r, ok := ev.(Routed); ok {
		route := RouteOf(r)
		if route.DocumentID == "" {
			return errors.New("documentId is required")
		}
		if route.InstanceID == "" {
			return errors.New("instanceId is required")
		}
	}
	switch e := ev.(type) {
	case DrawStart:
		return requireShape(e.Shape)
	case DrawProgress:
		return requireShape(e.Shape)
	case DrawEnd:
		return requireShape(e.Shape)
	case DrawStarted:
		return requireShape(e.Shape)
	case DrawProgressed:
		return requireShape(e.Shape)
	case DrawEnded:
		return requireShape(e.Shape)
	case ShapeUpdate:
		return requireShapes(e.Shapes)
	case ShapeUpdateEnd:
		return requireShapes(e.Shapes)
	case UndoRedo:
		return requireShapes(e.Shapes)
	case ShapeUpdated:
		return requireShapes(e.Shapes)
	case ShapeUpdateEnded:
		return requireShapes(e.Shapes)
	case UndoRedoUpdate:
		return requireShapes(e.Shapes)
	case WhiteboardState:
		if e.DocumentID == "" {
			return errors.New("documentId is required")
		}
		return requireShapes(e.Shapes)
	case UserCountsUpdate:
		if e.DocumentID == "" {
			return errors.New("documentId is required")
		}
	}
	return nil
}

func requireShape(s shape.Shape) error {
	if s.ID == "" {
		return errors.New("shape.id is required")
	}
	return nil
}

// requireShapes rejects a missing or null collection; an empty array is a valid collection.
func requireShapes(shapes []shape.Shape) error {
	if shapes == nil {
		return errors.New("shapes collection is required")
	}
	return nil
}

func repair(ev Event) Event {
	switch e := ev.(type) {
	case DrawStart:
		e.Shape = e.Shape.Normalize()
		return e
	case DrawProgress:
		e.Shape = e.Shape.Normalize()
		return e
	case DrawEnd:
		e.Shape = e.Shape.Normalize()
		return e
	case DrawStarted:
		e.Shape = e.Shape.Normalize()
		return e
	case DrawProgressed:
		e.Shape = e.Shape.Normalize()
		return e
	case DrawEnded:
		e.Shape = e.Shape.Normalize()
		return e
	case ShapeUpdate:
		e.Shape = normalizePtr(e.Shape)
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case ShapeUpdated:
		e.Shape = normalizePtr(e.Shape)
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case ShapeUpdateEnd:
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case ShapeUpdateEnded:
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case UndoRedo:
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case UndoRedoUpdate:
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case WhiteboardState:
		e.Shapes = shape.NormalizeAll(e.Shapes)
		return e
	case EraserHighlight:
		if e.ShapeIDs == nil {
			e.ShapeIDs = []string{}
		}
		return e
	case EraserHighlighted:
		if e.ShapeIDs == nil {
			e.ShapeIDs = []string{}
		}
		return e
	}
	return ev
}

func normalizePtr(s *shape.Shape) *shape.Shape {
	if s == nil {
		return nil
	}
	n := s.Normalize()
	return &n
}
