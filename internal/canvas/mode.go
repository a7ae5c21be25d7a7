package canvas

import "satupapan/internal/shape"

// Mode is the interaction in progress. Exactly one is active; every mode other than Idle can only
// be entered from Idle and always returns to Idle.
type Mode interface {
	Name() string
	mode()
}

type Idle struct{}

// Drawing is a pen stroke or a two-point shape being dragged out.
type Drawing struct {
	Shape shape.Shape
}

// Erasing accumulates the shapes the eraser passed over. Nothing is removed until release.
type Erasing struct {
	Last    shape.Point
	Pending []string
}

// Dragging moves the selected shape.
type Dragging struct {
	ID    string
	Last  shape.Point
	Moved bool
}

// Resizing drags one handle of the selected shape. Orig is the shape when the drag started so
// every move is computed from the same reference.
type Resizing struct {
	ID     string
	Handle shape.Handle
	Orig   shape.Shape
	Moved  bool
}

type AreaSelecting struct {
	Start   shape.Point
	Current shape.Point
}

type MultiDragging struct {
	Last  shape.Point
	Moved bool
}

// TextEditing types into one text shape.
type TextEditing struct {
	ID       string
	Original string
	Created  bool
}

func (Idle) Name() string          { return "idle" }
func (Drawing) Name() string       { return "drawing" }
func (Erasing) Name() string       { return "erasing" }
func (Dragging) Name() string      { return "dragging" }
func (Resizing) Name() string      { return "resizing" }
func (AreaSelecting) Name() string { return "area-selecting" }
func (MultiDragging) Name() string { return "multi-dragging" }
func (TextEditing) Name() string   { return "text-editing" }

func (Idle) mode()          {}
func (Drawing) mode()       {}
func (Erasing) mode()       {}
func (Dragging) mode()      {}
func (Resizing) mode()      {}
func (AreaSelecting) mode() {}
func (MultiDragging) mode() {}
func (TextEditing) mode()   {}

func (e Erasing) has(id string) bool {
	for _, p := range e.Pending {
		if p == id {
			return true
		}
	}
	return false
}
