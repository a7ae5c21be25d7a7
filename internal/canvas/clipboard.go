package canvas

import "satupapan/internal/shape"

// Clipboard holds detached copies of shapes for paste.
type Clipboard struct {
	shapes []shape.Shape
}

func (c *Clipboard) Copy(shapes []shape.Shape) {
	c.shapes = snapshot(shapes)
}

func (c *Clipboard) Clear()      { c.shapes = nil }
func (c *Clipboard) Empty() bool { return len(c.shapes) == 0 }
func (c *Clipboard) Len() int    { return len(c.shapes) }

// Paste returns fresh copies whose group bounding-box center is at, each with a new id. Pasting
// the same clipboard twice yields independent shapes.
func (c *Clipboard) Paste(at shape.Point) []shape.Shape {
	if c.Empty() {
		return nil
	}
	box, _ := shape.BoundsAll(c.shapes)
	d := at.Sub(box.Center())

	out := make([]shape.Shape, len(c.shapes))
	for i, s := range c.shapes {
		p := s.Translate(d.X, d.Y)
		p.ID = shape.NewID()
		out[i] = p
	}
	return out
}
