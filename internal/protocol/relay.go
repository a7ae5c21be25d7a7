package protocol

// Relay renames an inbound stroke, shape, eraser, undo, clear or cursor event to the event the
// room forwards to the other participants. Presence events are built by the room itself and
// report ok=false here.
func Relay(ev Event) (out Event, ok bool) {
	switch e := ev.(type) {
	case DrawStart:
		return DrawStarted(e), true
	case DrawProgress:
		return DrawProgressed(e), true
	case DrawEnd:
		return DrawEnded(e), true
	case ShapeUpdate:
		return ShapeUpdated(e), true
	case ShapeUpdateEnd:
		return ShapeUpdateEnded(e), true
	case EraserHighlight:
		return EraserHighlighted(e), true
	case UndoRedo:
		return UndoRedoUpdate(e), true
	case ClearCanvas:
		return CanvasCleared(e), true
	case CursorMove:
		return CursorUpdate(e), true
	}
	return nil, false
}
