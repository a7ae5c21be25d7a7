// Package canvas is the client side of a whiteboard session: the local shape collection, the
// interaction modes driven by pointer and keyboard input, undo/redo history, and the merge of
// events relayed from other participants.
package canvas

import (
	"errors"

	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/pkg/logger"
)

var (
	ErrBusy            = errors.New("another interaction is in progress")
	ErrReadOnly        = errors.New("whiteboard is view-only")
	ErrShapeLocked     = errors.New("shape is being edited by another participant")
	ErrNothingSelected = errors.New("nothing selected")
	ErrClipboardEmpty  = errors.New("clipboard is empty")
	ErrNotEditing      = errors.New("no text edit in progress")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)

// Select is the pointer tool that selects, drags and resizes instead of drawing.
const Select shape.Tool = "select"

const (
	// EraserReach multiplies the eraser width into its hit radius.
	EraserReach = 3
	// HitTolerance is the slack around a shape's bounds for click selection.
	HitTolerance = 4.0
	// HandleTolerance is the pick radius of a resize handle.
	HandleTolerance = 8.0
)

// Emitter sends an event to the room. Delivery is fire-and-forget.
type Emitter interface {
	Emit(ev protocol.Event)
}

// Style is applied to newly drawn shapes and, through ApplyStyle, to the selection.
type Style struct {
	Color       string
	StrokeWidth float64
	StrokeStyle shape.StrokeStyle
	Fill        shape.FillMode
	FillColor   string
	FillOpacity float64
	FontSize    float64
}

func DefaultStyle() Style {
	return Style{
		Color:       shape.DefaultColor,
		StrokeWidth: shape.DefaultStrokeWidth,
		StrokeStyle: shape.Solid,
		Fill:        shape.FillNone,
		FillOpacity: 1,
		FontSize:    shape.DefaultFontSize,
	}
}

// Cursor is the last pointer position broadcast by another instance.
type Cursor struct {
	X, Y     float64
	Identity protocol.Identity
}

type Config struct {
	DocumentID string
	InstanceID string
	Identity   protocol.Identity
	CanEdit    bool
	Emitter    Emitter
	Saver      Saver
}

// Engine is not safe for concurrent use; one goroutine owns it.
type Engine struct {
	route    protocol.Route
	identity protocol.Identity
	canEdit  bool
	emitter  Emitter
	saver    Saver

	shapes   []shape.Shape
	mode     Mode
	tool     shape.Tool
	style    Style
	selected string
	multi    map[string]bool

	history   *History
	clipboard Clipboard

	drafts       map[string]shape.Shape
	cursors      map[string]Cursor
	highlights   map[string][]string
	participants map[string]protocol.Identity
	counts       protocol.Counts
}

func New(cfg Config) *Engine {
	return &Engine{
		route:        protocol.Route{DocumentID: cfg.DocumentID, InstanceID: cfg.InstanceID},
		identity:     cfg.Identity,
		canEdit:      cfg.CanEdit,
		emitter:      cfg.Emitter,
		saver:        cfg.Saver,
		shapes:       []shape.Shape{},
		mode:         Idle{},
		tool:         shape.Pen,
		style:        DefaultStyle(),
		multi:        map[string]bool{},
		history:      NewHistory(HistoryCapacity),
		drafts:       map[string]shape.Shape{},
		cursors:      map[string]Cursor{},
		highlights:   map[string][]string{},
		participants: map[string]protocol.Identity{},
	}
}

// Load seeds the collection from storage. The loaded state is the history baseline and cannot be
// undone.
func (e *Engine) Load(shapes []shape.Shape) {
	e.shapes = shape.NormalizeAll(shapes)
	e.mode = Idle{}
	e.clearSelection()
	e.history.Reset(e.shapes)
}

func (e *Engine) Route() protocol.Route                      { return e.route }
func (e *Engine) Mode() Mode                                 { return e.mode }
func (e *Engine) Tool() shape.Tool                           { return e.tool }
func (e *Engine) Style() Style                               { return e.style }
func (e *Engine) CanEdit() bool                              { return e.canEdit }
func (e *Engine) Counts() protocol.Counts                    { return e.counts }
func (e *Engine) Selected() string                           { return e.selected }
func (e *Engine) Shapes() []shape.Shape                      { return shape.CloneAll(e.shapes) }
func (e *Engine) History() *History                          { return e.history }
func (e *Engine) Clipboard() *Clipboard                      { return &e.clipboard }
func (e *Engine) SetStyle(s Style)                           { e.style = s }
func (e *Engine) Identity() protocol.Identity                { return e.identity }
func (e *Engine) Drafts() map[string]shape.Shape             { return copyMap(e.drafts) }
func (e *Engine) Cursors() map[string]Cursor                 { return copyMap(e.cursors) }
func (e *Engine) Highlights() map[string][]string            { return copyMap(e.highlights) }
func (e *Engine) Participants() map[string]protocol.Identity { return copyMap(e.participants) }

// MultiSelected lists the group selection in collection order.
func (e *Engine) MultiSelected() []string {
	var ids []string
	for _, s := range e.shapes {
		if e.multi[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// SetTool switches the pointer tool. It is refused mid-interaction.
func (e *Engine) SetTool(t shape.Tool) error {
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}
	if t != Select && !t.Valid() {
		t = shape.Pen
	}
	e.tool = t
	return nil
}

// PointerDown starts an interaction according to the current tool.
func (e *Engine) PointerDown(p shape.Point) error {
	if !e.canEdit {
		return ErrReadOnly
	}
	if _, editing := e.mode.(TextEditing); editing {
		if err := e.EndTextEdit(); err != nil {
			return err
		}
	}
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}

	switch e.tool {
	case Select:
		e.selectDown(p)
	case shape.Eraser:
		m := Erasing{Last: p, Pending: []string{}}
		e.mode = e.erase(m, p, p)
	case shape.Text:
		return e.textDown(p)
	default:
		e.drawDown(p)
	}
	return nil
}

// PointerMove broadcasts the cursor and advances the current interaction.
func (e *Engine) PointerMove(p shape.Point) {
	e.emit(protocol.CursorMove{Route: e.route, X: p.X, Y: p.Y, Identity: e.identity})

	switch m := e.mode.(type) {
	case Drawing:
		m.Shape = extend(m.Shape, p)
		e.mode = m
		e.emit(protocol.DrawProgress{Route: e.route, Shape: m.Shape.Clone()})
	case Erasing:
		e.mode = e.erase(m, m.Last, p)
	case Dragging:
		i := shape.IndexOf(e.shapes, m.ID)
		if i < 0 {
			e.mode = Idle{}
			return
		}
		d := p.Sub(m.Last)
		e.shapes[i] = e.shapes[i].Translate(d.X, d.Y)
		m.Last, m.Moved = p, true
		e.mode = m
		e.emitUpdate(&e.shapes[i])
	case Resizing:
		i := shape.IndexOf(e.shapes, m.ID)
		if i < 0 {
			e.mode = Idle{}
			return
		}
		resized := shape.Resize(m.Orig, m.Handle, p)
		resized.Selected = true
		e.shapes[i] = resized
		m.Moved = true
		e.mode = m
		e.emitUpdate(&e.shapes[i])
	case AreaSelecting:
		m.Current = p
		e.mode = m
	case MultiDragging:
		d := p.Sub(m.Last)
		for i := range e.shapes {
			if e.multi[e.shapes[i].ID] {
				e.shapes[i] = e.shapes[i].Translate(d.X, d.Y)
			}
		}
		m.Last, m.Moved = p, true
		e.mode = m
		e.emitUpdate(nil)
	}
}

// PointerUp settles the current interaction.
func (e *Engine) PointerUp(p shape.Point) {
	switch m := e.mode.(type) {
	case Drawing:
		m.Shape = extend(m.Shape, p)
		e.mode = Idle{}
		e.shapes = append(e.shapes, m.Shape)
		e.emit(protocol.DrawEnd{Route: e.route, Shape: m.Shape.Clone()})
		e.settle()
	case Erasing:
		m = e.erase(m, m.Last, p)
		e.mode = Idle{}
		e.emit(protocol.EraserHighlight{Route: e.route, ShapeIDs: []string{}})
		if len(m.Pending) == 0 {
			return
		}
		e.removeShapes(m.Pending)
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		e.settle()
	case Dragging:
		e.mode = Idle{}
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		if m.Moved {
			e.settle()
		}
	case Resizing:
		e.mode = Idle{}
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		if m.Moved {
			e.settle()
		}
	case MultiDragging:
		e.mode = Idle{}
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		if m.Moved {
			e.settle()
		}
	case AreaSelecting:
		m.Current = p
		e.mode = Idle{}
		e.areaSelect(shape.RectFromPoints(m.Start, m.Current))
	}
}

func (e *Engine) drawDown(p shape.Point) {
	s := shape.Shape{
		ID:          shape.NewID(),
		Tool:        e.tool,
		Points:      []shape.Point{p},
		Color:       e.style.Color,
		StrokeWidth: e.style.StrokeWidth,
		StrokeStyle: e.style.StrokeStyle,
		Fill:        e.style.Fill,
		FillColor:   e.style.FillColor,
		FillOpacity: e.style.FillOpacity,
	}
	if !e.tool.Freehand() {
		s.Points = append(s.Points, p)
	}
	s = s.Normalize()
	e.mode = Drawing{Shape: s}
	e.emit(protocol.DrawStart{Route: e.route, Shape: s.Clone()})
}

// extend adds a sample to a freehand stroke or moves the free end of a two-point shape.
func extend(s shape.Shape, p shape.Point) shape.Shape {
	if s.Tool.Freehand() {
		if n := len(s.Points); n > 0 && s.Points[n-1] == p {
			return s
		}
		s.Points = append(s.Points, p)
		return s
	}
	s = s.Clone()
	s.Points[len(s.Points)-1] = p
	if s.Tool == shape.CurvedArrow {
		cp := shape.DefaultControlPoint(s.Start(), s.End())
		s.ControlPoint = &cp
	}
	return s
}

func (e *Engine) selectDown(p shape.Point) {
	if i := shape.IndexOf(e.shapes, e.selected); i >= 0 {
		if h := shape.HandleAt(e.shapes[i], p, HandleTolerance); h != shape.HandleNone {
			e.mode = Resizing{ID: e.selected, Handle: h, Orig: e.shapes[i].Clone()}
			return
		}
	}

	hit := e.hitTest(p)
	switch {
	case hit >= 0 && e.multi[e.shapes[hit].ID]:
		e.mode = MultiDragging{Last: p}
	case hit >= 0:
		e.selectOnly(e.shapes[hit].ID)
		e.mode = Dragging{ID: e.selected, Last: p}
		e.emitUpdate(&e.shapes[hit])
	default:
		hadSelection := e.selected != "" || len(e.multi) > 0
		e.clearSelection()
		e.mode = AreaSelecting{Start: p, Current: p}
		if hadSelection {
			e.emitUpdate(nil)
		}
	}
}

// hitTest returns the index of the topmost shape under p, or -1.
func (e *Engine) hitTest(p shape.Point) int {
	for i := len(e.shapes) - 1; i >= 0; i-- {
		if shape.Bounds(e.shapes[i]).Inflate(HitTolerance).Contains(p) {
			return i
		}
	}
	return -1
}

func (e *Engine) areaSelect(r shape.Rect) {
	e.clearSelection()
	for _, s := range e.shapes {
		if shape.Bounds(s).Intersects(r) {
			e.multi[s.ID] = true
		}
	}
	e.tool = Select
	e.markSelection()
	e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
}

// erase hit-tests the segment from a to b against every shape and records new hits in the
// pending set. The segment is sampled so fast pointer moves do not skip shapes.
func (e *Engine) erase(m Erasing, a, b shape.Point) Erasing {
	radius := e.style.StrokeWidth * EraserReach
	if radius <= 0 {
		radius = shape.DefaultStrokeWidth * EraserReach
	}
	samples := []shape.Point{b}
	if dist := a.Dist(b); dist > radius {
		n := int(dist / radius)
		for k := 1; k <= n; k++ {
			samples = append(samples, a.Add(b.Sub(a).Scale(float64(k)/float64(n+1))))
		}
	}

	grew := false
	for _, s := range e.shapes {
		if m.has(s.ID) {
			continue
		}
		box := shape.Bounds(s)
		for _, q := range samples {
			if box.DistanceTo(q) <= radius {
				m.Pending = append(m.Pending, s.ID)
				grew = true
				break
			}
		}
	}
	m.Last = b
	if grew {
		e.emit(protocol.EraserHighlight{Route: e.route, ShapeIDs: append([]string(nil), m.Pending...)})
	}
	return m
}

func (e *Engine) textDown(p shape.Point) error {
	if hit := e.hitTest(p); hit >= 0 && e.shapes[hit].Tool == shape.Text {
		return e.BeginTextEdit(e.shapes[hit].ID)
	}
	s := shape.Shape{
		ID:        shape.NewID(),
		Tool:      shape.Text,
		Points:    []shape.Point{p},
		Color:     e.style.Color,
		FontSize:  e.style.FontSize,
		IsEditing: true,
	}.Normalize()
	e.clearSelection()
	e.shapes = append(e.shapes, s)
	e.mode = TextEditing{ID: s.ID, Created: true}
	e.emitUpdate(&e.shapes[len(e.shapes)-1])
	return nil
}

// BeginTextEdit opens an existing text shape for typing. A shape another participant is typing
// into is locked.
func (e *Engine) BeginTextEdit(id string) error {
	if !e.canEdit {
		return ErrReadOnly
	}
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}
	i := shape.IndexOf(e.shapes, id)
	if i < 0 || e.shapes[i].Tool != shape.Text {
		return ErrNothingSelected
	}
	if e.shapes[i].IsEditing {
		return ErrShapeLocked
	}
	e.shapes[i].IsEditing = true
	e.mode = TextEditing{ID: id, Original: e.shapes[i].Text}
	e.emitUpdate(&e.shapes[i])
	return nil
}

// TypeText replaces the content of the shape being edited.
func (e *Engine) TypeText(text string) error {
	m, ok := e.mode.(TextEditing)
	if !ok {
		return ErrNotEditing
	}
	i := shape.IndexOf(e.shapes, m.ID)
	if i < 0 {
		e.mode = Idle{}
		return ErrNotEditing
	}
	e.shapes[i].Text = text
	e.emitUpdate(&e.shapes[i])
	return nil
}

// EndTextEdit closes the edit session. A shape left blank is deleted.
func (e *Engine) EndTextEdit() error {
	m, ok := e.mode.(TextEditing)
	if !ok {
		return ErrNotEditing
	}
	e.mode = Idle{}
	i := shape.IndexOf(e.shapes, m.ID)
	if i < 0 {
		return nil
	}

	s := e.shapes[i]
	switch {
	case s.BlankText():
		e.removeShapes([]string{s.ID})
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		if !m.Created {
			e.settle()
		}
	default:
		e.shapes[i].IsEditing = false
		e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
		if m.Created || s.Text != m.Original {
			e.settle()
		}
	}
	return nil
}

// Copy puts the selection into the clipboard.
func (e *Engine) Copy() error {
	sel := e.selection()
	if len(sel) == 0 {
		return ErrNothingSelected
	}
	e.clipboard.Copy(sel)
	return nil
}

// Paste drops the clipboard centered on at and returns the new ids.
func (e *Engine) Paste(at shape.Point) ([]string, error) {
	if !e.canEdit {
		return nil, ErrReadOnly
	}
	if _, idle := e.mode.(Idle); !idle {
		return nil, ErrBusy
	}
	if e.clipboard.Empty() {
		return nil, ErrClipboardEmpty
	}
	pasted := e.clipboard.Paste(at)
	ids := make([]string, len(pasted))
	for i, s := range pasted {
		ids[i] = s.ID
	}
	e.shapes = append(e.shapes, pasted...)
	e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
	e.settle()
	return ids, nil
}

// DeleteSelected removes the selected shape or the group selection.
func (e *Engine) DeleteSelected() error {
	if !e.canEdit {
		return ErrReadOnly
	}
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}
	sel := e.selection()
	if len(sel) == 0 {
		return ErrNothingSelected
	}
	ids := make([]string, len(sel))
	for i, s := range sel {
		ids[i] = s.ID
	}
	e.removeShapes(ids)
	e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
	e.settle()
	return nil
}

// ApplyStyle restyles the selection, or only sets the style for new shapes when nothing is
// selected.
func (e *Engine) ApplyStyle(st Style) error {
	e.style = st
	sel := e.selection()
	if len(sel) == 0 {
		return nil
	}
	if !e.canEdit {
		return ErrReadOnly
	}
	for i := range e.shapes {
		if e.shapes[i].ID != e.selected && !e.multi[e.shapes[i].ID] {
			continue
		}
		s := &e.shapes[i]
		s.Color = st.Color
		s.StrokeWidth = st.StrokeWidth
		s.StrokeStyle = st.StrokeStyle
		s.Fill = st.Fill
		s.FillColor = st.FillColor
		s.FillOpacity = st.FillOpacity
		if s.Tool == shape.Text && st.FontSize > 0 {
			s.FontSize = st.FontSize
		}
		*s = s.Normalize()
	}
	e.emit(protocol.ShapeUpdateEnd{Route: e.route, Shapes: e.Shapes()})
	e.settle()
	return nil
}

// Clear empties the whiteboard for everyone.
func (e *Engine) Clear() error {
	if !e.canEdit {
		return ErrReadOnly
	}
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}
	e.shapes = []shape.Shape{}
	e.clearSelection()
	e.emit(protocol.ClearCanvas{Route: e.route})
	e.settle()
	return nil
}

func (e *Engine) Undo() error {
	return e.travel(e.history.Undo, ErrNothingToUndo)
}

func (e *Engine) Redo() error {
	return e.travel(e.history.Redo, ErrNothingToRedo)
}

// travel moves through history and broadcasts the result, so undo is visible to everyone.
func (e *Engine) travel(step func() ([]shape.Shape, bool), none error) error {
	if !e.canEdit {
		return ErrReadOnly
	}
	if _, idle := e.mode.(Idle); !idle {
		return ErrBusy
	}
	shapes, ok := step()
	if !ok {
		return none
	}
	e.shapes = shapes
	e.clearSelection()
	e.emit(protocol.UndoRedo{Route: e.route, Shapes: e.Shapes()})
	e.save()
	return nil
}

// Apply merges an event relayed from another participant.
func (e *Engine) Apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.UserCountsUpdate:
		e.counts = ev.Counts
	case protocol.UserJoined:
		e.participants[ev.InstanceID] = ev.Identity
		e.counts = ev.Counts
	case protocol.UserLeft:
		delete(e.participants, ev.InstanceID)
		delete(e.drafts, ev.InstanceID)
		delete(e.cursors, ev.InstanceID)
		delete(e.highlights, ev.InstanceID)
		e.counts = ev.Counts
	case protocol.DrawStarted:
		e.drafts[ev.InstanceID] = ev.Shape
	case protocol.DrawProgressed:
		e.drafts[ev.InstanceID] = ev.Shape
	case protocol.DrawEnded:
		delete(e.drafts, ev.InstanceID)
		if i := shape.IndexOf(e.shapes, ev.Shape.ID); i >= 0 {
			e.shapes[i] = ev.Shape
		} else {
			e.shapes = append(e.shapes, ev.Shape)
		}
		e.settle()
	case protocol.ShapeUpdated:
		e.replace(ev.Shapes)
	case protocol.ShapeUpdateEnded:
		e.replace(ev.Shapes)
	case protocol.UndoRedoUpdate:
		e.replace(ev.Shapes)
	case protocol.CanvasCleared:
		delete(e.drafts, ev.InstanceID)
		e.replace([]shape.Shape{})
	case protocol.WhiteboardState:
		e.replace(ev.Shapes)
		// The server's grant wins over the permission this engine was configured with.
		e.canEdit = ev.CanEdit
		if !e.canEdit {
			e.mode = Idle{}
		}
	case protocol.EraserHighlighted:
		if len(ev.ShapeIDs) == 0 {
			delete(e.highlights, ev.InstanceID)
		} else {
			e.highlights[ev.InstanceID] = ev.ShapeIDs
		}
	case protocol.CursorUpdate:
		e.cursors[ev.InstanceID] = Cursor{X: ev.X, Y: ev.Y, Identity: ev.Identity}
	default:
		logger.Sugar.Debugf("canvas: ignoring %s", ev.Name())
	}
}

// replace installs a remote collection wholesale. Local selection and any interaction that
// referenced a shape that no longer exists are dropped.
func (e *Engine) replace(shapes []shape.Shape) {
	e.shapes = shape.CloneAll(shapes)

	if e.selected != "" && shape.IndexOf(e.shapes, e.selected) < 0 {
		e.selected = ""
	}
	for id := range e.multi {
		if shape.IndexOf(e.shapes, id) < 0 {
			delete(e.multi, id)
		}
	}

	switch m := e.mode.(type) {
	case Dragging:
		if shape.IndexOf(e.shapes, m.ID) < 0 {
			e.mode = Idle{}
		}
	case Resizing:
		if shape.IndexOf(e.shapes, m.ID) < 0 {
			e.mode = Idle{}
		}
	case TextEditing:
		if shape.IndexOf(e.shapes, m.ID) < 0 {
			e.mode = Idle{}
		}
	case MultiDragging:
		if len(e.multi) == 0 {
			e.mode = Idle{}
		}
	}
}

func (e *Engine) selection() []shape.Shape {
	var out []shape.Shape
	for _, s := range e.shapes {
		if s.ID == e.selected || e.multi[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) selectOnly(id string) {
	e.selected = id
	e.multi = map[string]bool{}
	e.markSelection()
}

func (e *Engine) clearSelection() {
	e.selected = ""
	e.multi = map[string]bool{}
	e.markSelection()
}

// markSelection writes the local selection into the shared selection flags. Single and group
// selection are exclusive.
func (e *Engine) markSelection() {
	for i := range e.shapes {
		id := e.shapes[i].ID
		e.shapes[i].Selected = id == e.selected
		e.shapes[i].MultiSelected = e.selected == "" && e.multi[id]
	}
}

func (e *Engine) removeShapes(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := e.shapes[:0:0]
	for _, s := range e.shapes {
		if !drop[s.ID] {
			kept = append(kept, s)
		}
	}
	e.shapes = kept
	if drop[e.selected] {
		e.selected = ""
	}
	for id := range drop {
		delete(e.multi, id)
	}
}

// settle records a finished mutation in history and schedules a save.
func (e *Engine) settle() {
	e.history.Push(e.shapes)
	e.save()
}

func (e *Engine) save() {
	if e.saver != nil {
		e.saver.Schedule(e.Shapes())
	}
}

func (e *Engine) emitUpdate(s *shape.Shape) {
	ev := protocol.ShapeUpdate{Route: e.route, Shapes: e.Shapes()}
	if s != nil {
		c := s.Clone()
		ev.Shape = &c
	}
	e.emit(ev)
}

func (e *Engine) emit(ev protocol.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
