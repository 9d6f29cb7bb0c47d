package interactor

import "tableslate/server/internal/scene"

// SpriteDetails describes a selection for the details panel. Fields are
// pointers so a multi-selection can fold away values that differ: nil
// means "mixed".
type SpriteDetails struct {
	ID      scene.Id  `json:"id"`
	X       *float64  `json:"x,omitempty"`
	Y       *float64  `json:"y,omitempty"`
	W       *float64  `json:"w,omitempty"`
	H       *float64  `json:"h,omitempty"`
	Texture *scene.Id `json:"texture,omitempty"`
}

func detailsFrom(id scene.Id, s *scene.Sprite) SpriteDetails {
	x, y, w, h := s.Rect.X, s.Rect.Y, s.Rect.W, s.Rect.H
	texture := s.Texture
	return SpriteDetails{ID: id, X: &x, Y: &y, W: &w, H: &h, Texture: &texture}
}

// common clears every field the sprite disagrees on.
func (d *SpriteDetails) common(s *scene.Sprite) {
	if d.X != nil && *d.X != s.Rect.X {
		d.X = nil
	}
	if d.Y != nil && *d.Y != s.Rect.Y {
		d.Y = nil
	}
	if d.W != nil && *d.W != s.Rect.W {
		d.W = nil
	}
	if d.H != nil && *d.H != s.Rect.H {
		d.H = nil
	}
	if d.Texture != nil && *d.Texture != s.Texture {
		d.Texture = nil
	}
}
