package shape

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// RectFromPoints spans the two given corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		MinX: math.Min(a.X, b.X),
		MinY: math.Min(a.Y, b.Y),
		MaxX: math.Max(a.X, b.X),
		MaxY: math.Max(a.Y, b.Y),
	}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

func (r Rect) Inflate(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Intersects treats touching edges as intersecting.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// DistanceTo is zero inside the rectangle and the Euclidean gap to its edge outside.
func (r Rect) DistanceTo(p Point) float64 {
	dx := math.Max(math.Max(r.MinX-p.X, 0), p.X-r.MaxX)
	dy := math.Max(math.Max(r.MinY-p.Y, 0), p.Y-r.MaxY)
	return math.Hypot(dx, dy)
}

// Bounds computes the tool-specific bounding box used for every hit test.
func Bounds(s Shape) Rect {
	if len(s.Points) == 0 {
		return Rect{}
	}
	switch s.Tool {
	case Rectangle, Arrow, Diamond:
		return RectFromPoints(s.Start(), s.End())
	case Circle:
		c := s.Start()
		r := c.Dist(s.End())
		return Rect{MinX: c.X - r, MinY: c.Y - r, MaxX: c.X + r, MaxY: c.Y + r}
	case CurvedArrow:
		b := RectFromPoints(s.Start(), s.End())
		cp := s.Control()
		b = b.Union(Rect{MinX: cp.X, MinY: cp.Y, MaxX: cp.X, MaxY: cp.Y})
		return b.Inflate(CurvePadding)
	case Text:
		a := s.Start()
		w, h := TextExtents(s)
		return Rect{MinX: a.X, MinY: a.Y, MaxX: a.X + w, MaxY: a.Y + h}
	default:
		return pointsBounds(s.Points)
	}
}

// BoundsAll is the union of the bounds of every shape. ok is false for an empty collection.
func BoundsAll(shapes []Shape) (r Rect, ok bool) {
	for i, s := range shapes {
		b := Bounds(s)
		if i == 0 {
			r = b
			continue
		}
		r = r.Union(b)
	}
	return r, len(shapes) > 0
}

func pointsBounds(points []Point) Rect {
	r := Rect{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

const (
	charWidthRatio  = 0.6
	lineHeightRatio = 1.2
)

// TextExtents measures a text shape. Explicit line breaks are honoured and, when Width is set,
// lines are word-wrapped to it. An explicit Height only ever grows the box.
func TextExtents(s Shape) (w, h float64) {
	size := s.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	lines := WrapText(s.Text, size, s.Width)
	charW := size * charWidthRatio

	if s.Width > 0 {
		w = s.Width
	} else {
		for _, l := range lines {
			w = math.Max(w, float64(utf8.RuneCountInString(l))*charW)
		}
		w = math.Max(w, charW)
	}
	h = math.Max(float64(len(lines))*size*lineHeightRatio, s.Height)
	return w, h
}

// WrapText splits text into rendered lines. Words longer than the wrap width keep a line of their own.
func WrapText(text string, fontSize, wrapWidth float64) []string {
	charW := fontSize * charWidthRatio
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if wrapWidth <= 0 {
			out = append(out, para)
			continue
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			candidate := line + " " + word
			if float64(utf8.RuneCountInString(candidate))*charW > wrapWidth {
				out = append(out, line)
				line = word
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}
