package scene

import "math"

// Shape selects the silhouette a renderer draws for a sprite.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeEllipse   Shape = "ellipse"
	ShapeHexagon   Shape = "hexagon"
)

// Dimension names a single mutable component of a sprite rectangle.
type Dimension string

const (
	DimensionX Dimension = "x"
	DimensionY Dimension = "y"
	DimensionW Dimension = "w"
	DimensionH Dimension = "h"
)

// MinSpriteSize is the smallest width or height a sprite may keep after a
// resize is released.
const MinSpriteSize = 0.25

// Sprite is a positioned visual entity. LocalID is private to this process;
// Canonical is assigned by the authoritative scene and is the only identity
// other processes may reference.
type Sprite struct {
	LocalID   Id    `json:"localId"`
	Canonical *Id   `json:"canonicalId,omitempty"`
	Rect      Rect  `json:"rect"`
	Z         int   `json:"z"`
	Texture   Id    `json:"texture"`
	Shape     Shape `json:"shape"`
}

// NewSprite mints a sprite with a fresh local id and a one-tile rectangle.
func NewSprite(alloc *Allocator, texture Id) *Sprite {
	return &Sprite{
		LocalID: alloc.Next(),
		Rect:    Rect{X: 0, Y: 0, W: 1, H: 1},
		Z:       1,
		Texture: texture,
		Shape:   ShapeRectangle,
	}
}

// SpriteFromRemote clones a sprite received from another process, re-minting
// the local id so it cannot collide with ids issued here.
func SpriteFromRemote(alloc *Allocator, remote *Sprite) *Sprite {
	s := *remote
	s.LocalID = alloc.Next()
	if remote.Canonical != nil {
		canonical := *remote.Canonical
		s.Canonical = &canonical
	}
	return &s
}

// ref returns the canonical id other processes know this sprite by.
func (s *Sprite) ref() (Id, bool) {
	if s.Canonical == nil {
		return 0, false
	}
	return *s.Canonical, true
}

// SetRect moves and resizes the sprite. The returned event describes the
// change for the wire and history; it is nil while the sprite has no
// canonical id, in which case the change stays private to this process.
func (s *Sprite) SetRect(to Rect) *Event {
	from := s.Rect
	s.Rect = to
	id, ok := s.ref()
	if !ok || from == to {
		return nil
	}
	return SpriteMoveEvent(id, from, to)
}

// SetPos moves the sprite's top-left corner, preserving its size.
func (s *Sprite) SetPos(at Point) *Event {
	return s.SetRect(Rect{X: at.X, Y: at.Y, W: s.Rect.W, H: s.Rect.H})
}

// MoveBy translates the sprite.
func (s *Sprite) MoveBy(delta Point) *Event {
	return s.SetRect(s.Rect.Translate(delta))
}

// SetTexture swaps the sprite's visual descriptor.
func (s *Sprite) SetTexture(texture Id) *Event {
	old := s.Texture
	s.Texture = texture
	id, ok := s.ref()
	if !ok || old == texture {
		return nil
	}
	return &Event{
		Kind:          EventSpriteTexture,
		SpriteTexture: &SpriteTexturePayload{ID: id, Old: old, New: texture},
	}
}

// SetDimension updates one component of the sprite rectangle.
func (s *Sprite) SetDimension(dim Dimension, value float64) *Event {
	rect := s.Rect
	switch dim {
	case DimensionX:
		rect.X = value
	case DimensionY:
		rect.Y = value
	case DimensionW:
		rect.W = value
	case DimensionH:
		rect.H = value
	default:
		return nil
	}
	return s.SetRect(rect)
}

// SnapToGrid rounds the sprite onto whole tiles.
func (s *Sprite) SnapToGrid() *Event {
	return s.SetRect(s.Rect.Rounded())
}

// EnforceMinSize grows a sprite that was resized below the minimum. Returns
// nil when the rectangle is already legal.
func (s *Sprite) EnforceMinSize() *Event {
	rect := s.Rect.Positive()
	if rect.W >= MinSpriteSize && rect.H >= MinSpriteSize && rect == s.Rect {
		return nil
	}
	if rect.W < MinSpriteSize {
		rect.W = MinSpriteSize
	}
	if rect.H < MinSpriteSize {
		rect.H = MinSpriteSize
	}
	return s.SetRect(rect)
}

// AnchorPoint returns the resize handle at the given corner or edge, where
// dx and dy are each -1, 0 or 1.
func (s *Sprite) AnchorPoint(dx, dy int) Point {
	return Point{
		X: s.Rect.X + (s.Rect.W/2)*float64(dx+1),
		Y: s.Rect.Y + (s.Rect.H/2)*float64(dy+1),
	}
}

// MinDimension returns the smaller magnitude of the sprite's width and
// height.
func (s *Sprite) MinDimension() float64 {
	return math.Min(math.Abs(s.Rect.W), math.Abs(s.Rect.H))
}
