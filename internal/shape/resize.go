package shape

import "math"

// Handle identifies a resize grip on a shape.
type Handle int

const (
	HandleNone Handle = iota
	TopLeft
	TopRight
	BottomLeft
	BottomRight
	HandleStart
	HandleEnd
	HandleControl
)

func (h Handle) String() string {
	switch h {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	case HandleStart:
		return "start"
	case HandleEnd:
		return "end"
	case HandleControl:
		return "control"
	}
	return "none"
}

func (h Handle) corner() bool { return h >= TopLeft && h <= BottomRight }

const (
	// MinScale keeps a freehand stroke from collapsing or flipping while it is resized.
	MinScale = 0.05
	// MinTextWidth is the narrowest wrap width a text box can be resized to.
	MinTextWidth = 20.0
)

// Handles lists the grips a shape exposes, in hit-test priority order.
func Handles(s Shape) []Handle {
	switch s.Tool {
	case Arrow:
		return []Handle{HandleStart, HandleEnd}
	case CurvedArrow:
		return []Handle{HandleControl, HandleStart, HandleEnd}
	}
	return []Handle{TopLeft, TopRight, BottomLeft, BottomRight}
}

// HandlePosition returns where h is drawn for s.
func HandlePosition(s Shape, h Handle) Point {
	switch h {
	case HandleStart:
		return s.Start()
	case HandleEnd:
		return s.End()
	case HandleControl:
		return s.Control()
	}
	b := Bounds(s)
	switch h {
	case TopLeft:
		return Point{b.MinX, b.MinY}
	case TopRight:
		return Point{b.MaxX, b.MinY}
	case BottomLeft:
		return Point{b.MinX, b.MaxY}
	default:
		return Point{b.MaxX, b.MaxY}
	}
}

// HandleAt returns the first grip of s within tolerance of p.
func HandleAt(s Shape, p Point, tolerance float64) Handle {
	for _, h := range Handles(s) {
		if HandlePosition(s, h).Dist(p) <= tolerance {
			return h
		}
	}
	return HandleNone
}

// Resize returns a copy of orig with grip h dragged to p. It is always applied to the shape as it
// was when the drag started, so repeated pointer moves are deterministic.
func Resize(orig Shape, h Handle, p Point) Shape {
	s := orig.Clone()
	switch s.Tool {
	case Pen, Eraser:
		if h.corner() {
			return scaleFreehand(s, h, p)
		}
	case Rectangle, Diamond:
		if h.corner() {
			b := Bounds(orig)
			s.Points = []Point{oppositeCorner(b, h), p}
		}
	case Circle:
		if h.corner() {
			c := s.Start()
			r := math.Max(math.Abs(p.X-c.X), math.Abs(p.Y-c.Y))
			s.Points = []Point{c, {X: c.X + r, Y: c.Y}}
		}
	case Arrow:
		moveEndpoint(&s, h, p)
	case CurvedArrow:
		switch h {
		case HandleControl:
			cp := p
			s.ControlPoint = &cp
		case HandleStart, HandleEnd:
			control := orig.Control()
			moveEndpoint(&s, h, p)
			cp := reoffsetControl(orig.Start(), orig.End(), control, s.Start(), s.End())
			s.ControlPoint = &cp
		}
	case Text:
		if h.corner() {
			a := s.Start()
			s.Width = math.Max(MinTextWidth, math.Abs(p.X-a.X))
			s.Height = math.Abs(p.Y - a.Y)
		}
	}
	return s
}

func moveEndpoint(s *Shape, h Handle, p Point) {
	if len(s.Points) == 0 {
		s.Points = []Point{p, p}
		return
	}
	switch h {
	case HandleStart:
		s.Points[0] = p
	case HandleEnd:
		s.Points[len(s.Points)-1] = p
	}
}

func oppositeCorner(b Rect, h Handle) Point {
	switch h {
	case TopLeft:
		return Point{b.MaxX, b.MaxY}
	case TopRight:
		return Point{b.MinX, b.MaxY}
	case BottomLeft:
		return Point{b.MaxX, b.MinY}
	default:
		return Point{b.MinX, b.MinY}
	}
}

// scaleFreehand scales every point about the bounding-box center. The x factor comes from the
// horizontal side of the dragged corner and the y factor from its vertical side.
func scaleFreehand(s Shape, h Handle, p Point) Shape {
	b := Bounds(s)
	c := b.Center()
	halfW, halfH := b.Width()/2, b.Height()/2

	sx, sy := 1.0, 1.0
	if halfW > 0 {
		switch h {
		case TopRight, BottomRight:
			sx = (p.X - c.X) / halfW
		default:
			sx = (c.X - p.X) / halfW
		}
	}
	if halfH > 0 {
		switch h {
		case BottomLeft, BottomRight:
			sy = (p.Y - c.Y) / halfH
		default:
			sy = (c.Y - p.Y) / halfH
		}
	}
	sx = math.Max(sx, MinScale)
	sy = math.Max(sy, MinScale)

	for i, pt := range s.Points {
		s.Points[i] = Point{X: c.X + (pt.X-c.X)*sx, Y: c.Y + (pt.Y-c.Y)*sy}
	}
	return s
}

// reoffsetControl expresses the control point in the frame of the old chord (position along it
// and perpendicular offset, both relative to chord length) and rebuilds it on the new chord.
func reoffsetControl(oldStart, oldEnd, control, newStart, newEnd Point) Point {
	chord := oldEnd.Sub(oldStart)
	l2 := chord.Dot(chord)
	if l2 == 0 {
		moved := newStart.Sub(oldStart).Add(newEnd.Sub(oldEnd)).Scale(0.5)
		return control.Add(moved)
	}
	rel := control.Sub(oldStart)
	along := rel.Dot(chord) / l2
	across := rel.Dot(chord.Perp()) / l2

	next := newEnd.Sub(newStart)
	return newStart.Add(next.Scale(along)).Add(next.Perp().Scale(across))
}
