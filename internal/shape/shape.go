// Package shape holds the drawable element model shared by the server relay and the client engine.
package shape

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"
)

type Tool string

const (
	Pen         Tool = "pen"
	Eraser      Tool = "eraser"
	Rectangle   Tool = "rectangle"
	Circle      Tool = "circle"
	Diamond     Tool = "diamond"
	Arrow       Tool = "arrow"
	CurvedArrow Tool = "curved-arrow"
	Text        Tool = "text"
)

// Valid reports whether t is one of the known drawing tools.
func (t Tool) Valid() bool {
	switch t {
	case Pen, Eraser, Rectangle, Circle, Diamond, Arrow, CurvedArrow, Text:
		return true
	}
	return false
}

// Freehand tools store every sampled pointer position.
func (t Tool) Freehand() bool { return t == Pen || t == Eraser }

type StrokeStyle string

const (
	Solid  StrokeStyle = "solid"
	Dashed StrokeStyle = "dashed"
	Dotted StrokeStyle = "dotted"
)

type FillMode string

const (
	FillNone  FillMode = "none"
	FillSolid FillMode = "solid"
)

const (
	DefaultColor       = "#000000"
	DefaultStrokeWidth = 2.0
	DefaultFontSize    = 20.0

	// CurveLift is how far above the chord midpoint a missing control point is placed.
	CurveLift = 50.0
	// CurvePadding inflates curved-arrow bounds so the arrow head stays inside the hit box.
	CurvePadding = 10.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Dot(q Point) float64   { return p.X*q.X + p.Y*q.Y }
func (p Point) Dist(q Point) float64  { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) Perp() Point           { return Point{-p.Y, p.X} }
func (p Point) Eq(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Shape is a single drawable primitive. Selected, MultiSelected and IsEditing are live
// collaboration flags and are stripped before copying into a clipboard.
type Shape struct {
	ID           string      `json:"id"`
	Tool         Tool        `json:"tool"`
	Points       []Point     `json:"points"`
	Color        string      `json:"color,omitempty"`
	StrokeWidth  float64     `json:"strokeWidth,omitempty"`
	StrokeStyle  StrokeStyle `json:"strokeStyle,omitempty"`
	Fill         FillMode    `json:"fill,omitempty"`
	FillColor    string      `json:"fillColor,omitempty"`
	FillOpacity  float64     `json:"fillOpacity,omitempty"`
	Text         string      `json:"text,omitempty"`
	FontSize     float64     `json:"fontSize,omitempty"`
	Width        float64     `json:"width,omitempty"`
	Height       float64     `json:"height,omitempty"`
	ControlPoint *Point      `json:"controlPoint,omitempty"`

	Selected      bool `json:"selected,omitempty"`
	MultiSelected bool `json:"multiSelected,omitempty"`
	IsEditing     bool `json:"isEditing,omitempty"`
}

// NewID returns a fresh globally unique shape id.
func NewID() string { return uuid.NewString() }

// Start is the first point, or the origin when the shape has none.
func (s Shape) Start() Point {
	if len(s.Points) == 0 {
		return Point{}
	}
	return s.Points[0]
}

// End is the last point, or the origin when the shape has none.
func (s Shape) End() Point {
	if len(s.Points) == 0 {
		return Point{}
	}
	return s.Points[len(s.Points)-1]
}

// Control returns the curved-arrow control point, synthesising the default when it is missing.
func (s Shape) Control() Point {
	if s.ControlPoint != nil {
		return *s.ControlPoint
	}
	return DefaultControlPoint(s.Start(), s.End())
}

// DefaultControlPoint is the chord midpoint lifted by CurveLift.
func DefaultControlPoint(start, end Point) Point {
	return Point{X: (start.X + end.X) / 2, Y: (start.Y+end.Y)/2 - CurveLift}
}

// BlankText reports a text shape whose content is empty or whitespace only.
func (s Shape) BlankText() bool {
	return s.Tool == Text && strings.TrimSpace(s.Text) == ""
}

// Clone deep-copies the shape.
func (s Shape) Clone() Shape {
	c := s
	if s.Points != nil {
		c.Points = make([]Point, len(s.Points))
		copy(c.Points, s.Points)
	}
	if s.ControlPoint != nil {
		cp := *s.ControlPoint
		c.ControlPoint = &cp
	}
	return c
}

// Detached is a deep copy without the live selection and editing flags.
func (s Shape) Detached() Shape {
	c := s.Clone()
	c.Selected = false
	c.MultiSelected = false
	c.IsEditing = false
	return c
}

// CloneAll deep-copies a collection. A nil input yields an empty, non-nil collection.
func CloneAll(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

// Translate returns a copy moved by (dx, dy). An explicit control point moves with the shape.
func (s Shape) Translate(dx, dy float64) Shape {
	c := s.Clone()
	d := Point{dx, dy}
	for i := range c.Points {
		c.Points[i] = c.Points[i].Add(d)
	}
	if c.ControlPoint != nil {
		moved := c.ControlPoint.Add(d)
		c.ControlPoint = &moved
	}
	return c
}

// Normalize repairs malformed or partial shape data with deterministic defaults so every client
// that receives the same payload renders and hit-tests it identically.
func (s Shape) Normalize() Shape {
	c := s.Clone()
	if !c.Tool.Valid() {
		c.Tool = Pen
	}
	if c.ID == "" {
		raw, _ := json.Marshal(c)
		c.ID = uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
	}
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if c.StrokeWidth <= 0 || math.IsNaN(c.StrokeWidth) {
		c.StrokeWidth = DefaultStrokeWidth
	}
	switch c.StrokeStyle {
	case Solid, Dashed, Dotted:
	default:
		c.StrokeStyle = Solid
	}
	switch c.Fill {
	case FillSolid:
		if c.FillOpacity <= 0 || c.FillOpacity > 1 {
			c.FillOpacity = 1
		}
		if c.FillColor == "" {
			c.FillColor = c.Color
		}
	default:
		c.Fill = FillNone
	}
	if c.Points == nil {
		c.Points = []Point{}
	}
	switch c.Tool {
	case Rectangle, Circle, Diamond, Arrow, CurvedArrow:
		for len(c.Points) < 2 {
			c.Points = append(c.Points, c.Start())
		}
	case Text:
		if len(c.Points) == 0 {
			c.Points = append(c.Points, Point{})
		}
		if c.FontSize <= 0 {
			c.FontSize = DefaultFontSize
		}
	}
	if c.Tool == CurvedArrow && c.ControlPoint == nil {
		cp := DefaultControlPoint(c.Start(), c.End())
		c.ControlPoint = &cp
	}
	return c
}

// NormalizeAll normalizes every shape of a collection into a new collection.
func NormalizeAll(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Normalize()
	}
	return out
}

// IndexOf returns the position of id in shapes, or -1.
func IndexOf(shapes []Shape, id string) int {
	for i := range shapes {
		if shapes[i].ID == id {
			return i
		}
	}
	return -1
}
