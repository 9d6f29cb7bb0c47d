package scene

// Id identifies layers, sprites, scenes, users and textures. Zero is never a
// valid identifier; payload fields use it as "absent".
type Id int64

// Point is a position in scene units (tiles).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// P is shorthand for constructing a point.
func P(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the componentwise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the componentwise difference of p and q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Rect returns the rectangle spanned from p to q. Width and height may be
// negative when q is above or left of p.
func (p Point) Rect(q Point) Rect {
	return Rect{X: p.X, Y: p.Y, W: q.X - p.X, H: q.Y - p.Y}
}
