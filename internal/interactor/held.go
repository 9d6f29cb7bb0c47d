package interactor

import (
	"math"

	"tableslate/server/internal/scene"
)

type heldKind int

const (
	heldNone heldKind = iota
	heldSprite
	heldAnchor
	heldSelection
	heldMarquee
)

// anchorRadius is the distance in scene units within which anchor points
// (corners, edges) of a sprite can be grabbed.
const anchorRadius = 0.2

// heldObject is the current drag target. Sprite and anchor holds reference
// a sprite by local id; selection and marquee holds track the drag origin.
type heldObject struct {
	kind   heldKind
	sprite scene.Id
	offset scene.Point
	at     scene.Point
	dx, dy int
}

func (h heldObject) isNone() bool {
	return h.kind == heldNone
}

// isSprite reports whether the hold will produce sprite move events.
func (h heldObject) isSprite() bool {
	switch h.kind {
	case heldSprite, heldAnchor, heldSelection:
		return true
	default:
		return false
	}
}

func (h heldObject) heldID() (scene.Id, bool) {
	switch h.kind {
	case heldSprite, heldAnchor:
		return h.sprite, true
	default:
		return 0, false
	}
}

// grabSpriteAnchor returns an anchor hold when the point is close enough
// to one of the sprite's eight resize anchors. The radius shrinks to a
// fifth of the smallest dimension so tiny sprites can still be grabbed by
// their body.
func grabSpriteAnchor(s *scene.Sprite, at scene.Point) (heldObject, bool) {
	closestDist := math.Min(anchorRadius, s.MinDimension()/5)
	closestDx, closestDy := 2, 2
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			anchor := s.AnchorPoint(dx, dy)
			dist := math.Hypot(anchor.X-at.X, anchor.Y-at.Y)
			if dist <= closestDist {
				closestDx, closestDy = dx, dy
				closestDist = dist
			}
		}
	}

	if closestDx == 2 {
		return heldObject{}, false
	}
	return heldObject{kind: heldAnchor, sprite: s.LocalID, dx: closestDx, dy: closestDy}, true
}

func grabSprite(s *scene.Sprite, at scene.Point) heldObject {
	if held, ok := grabSpriteAnchor(s, at); ok {
		return held
	}
	return heldObject{kind: heldSprite, sprite: s.LocalID, offset: at.Sub(s.Rect.TopLeft())}
}
