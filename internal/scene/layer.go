package scene

import "sort"

// Layer is an ordered container of sprites. Sprites are kept sorted by z
// ascending so rendering walks the slice forward and hit-testing walks it
// backward.
type Layer struct {
	LocalID   Id        `json:"localId"`
	Canonical *Id       `json:"canonicalId,omitempty"`
	Title     string    `json:"title"`
	Z         int       `json:"z"`
	Visible   bool      `json:"visible"`
	Locked    bool      `json:"locked"`
	Sprites   []*Sprite `json:"sprites"`
	ZMin      int       `json:"zMin"`
	ZMax      int       `json:"zMax"`
}

// NewLayer mints a visible, unlocked layer with a fresh local id.
func NewLayer(alloc *Allocator, title string, z int) *Layer {
	return &Layer{
		LocalID: alloc.Next(),
		Title:   title,
		Z:       z,
		Visible: true,
		Sprites: make([]*Sprite, 0),
	}
}

// ref returns the canonical id other processes know this layer by.
func (l *Layer) ref() (Id, bool) {
	if l.Canonical == nil {
		return 0, false
	}
	return *l.Canonical, true
}

// refreshLocalIDs re-mints every local id in the layer. Used when a canon
// snapshot is adopted by a client so adopted ids cannot collide with ids the
// client allocates afterwards.
func (l *Layer) refreshLocalIDs(alloc *Allocator) {
	l.LocalID = alloc.Next()
	refreshed := make([]*Sprite, 0, len(l.Sprites))
	for _, s := range l.Sprites {
		refreshed = append(refreshed, SpriteFromRemote(alloc, s))
	}
	l.Sprites = refreshed
}

// Selectable reports whether sprites on this layer can be grabbed or
// marquee-selected.
func (l *Layer) Selectable() bool {
	return l.Visible && !l.Locked
}

// Sprite returns the sprite with the given local id, if present.
func (l *Layer) Sprite(localID Id) *Sprite {
	for _, s := range l.Sprites {
		if s.LocalID == localID {
			return s
		}
	}
	return nil
}

// SpriteCanonical returns the sprite with the given canonical id, if present.
func (l *Layer) SpriteCanonical(canonicalID Id) *Sprite {
	for _, s := range l.Sprites {
		if s.Canonical != nil && *s.Canonical == canonicalID {
			return s
		}
	}
	return nil
}

func (l *Layer) sortSprites() {
	sort.SliceStable(l.Sprites, func(i, j int) bool {
		return l.Sprites[i].Z < l.Sprites[j].Z
	})
}

func (l *Layer) updateZBounds(s *Sprite) {
	if s.Z > l.ZMax {
		l.ZMax = s.Z
	} else if s.Z < l.ZMin {
		l.ZMin = s.Z
	}
}

// AddSprite inserts the sprite, keeping z order. The returned creation event
// is nil until the layer itself has canonical identity, because remote
// processes could not resolve the owning layer before then.
func (l *Layer) AddSprite(s *Sprite) *Event {
	l.updateZBounds(s)
	l.Sprites = append(l.Sprites, s)
	l.sortSprites()

	layerID, ok := l.ref()
	if !ok {
		return nil
	}
	return &Event{
		Kind:      EventSpriteNew,
		SpriteNew: &SpritePayload{Sprite: *s, Layer: layerID},
	}
}

// AddSprites bulk-inserts sprites without emitting events.
func (l *Layer) AddSprites(sprites []*Sprite) {
	for _, s := range sprites {
		l.updateZBounds(s)
	}
	l.Sprites = append(l.Sprites, sprites...)
	l.sortSprites()
}

// RemoveSprite detaches and returns the sprite with the given local id.
func (l *Layer) RemoveSprite(localID Id) *Sprite {
	for i, s := range l.Sprites {
		if s.LocalID == localID {
			l.Sprites = append(l.Sprites[:i], l.Sprites[i+1:]...)
			return s
		}
	}
	return nil
}

// SpriteAt returns the topmost sprite containing the point. The slice is
// walked back to front because the last sprite renders on top.
func (l *Layer) SpriteAt(at Point) *Sprite {
	for i := len(l.Sprites) - 1; i >= 0; i-- {
		if l.Sprites[i].Rect.Contains(at) {
			return l.Sprites[i]
		}
	}
	return nil
}

// SpritesIn returns the local ids of sprites entirely inside the region.
// With loose set, touching the region is enough.
func (l *Layer) SpritesIn(region Rect, loose bool) []Id {
	ids := make([]Id, 0)
	for _, s := range l.Sprites {
		if region.ContainsRect(s.Rect) || (loose && region.Intersects(s.Rect)) {
			ids = append(ids, s.LocalID)
		}
	}
	return ids
}

// Rename retitles the layer. The event records the old title so the
// authority can reject stale renames.
func (l *Layer) Rename(newTitle string) *Event {
	old := l.Title
	l.Title = newTitle
	id, ok := l.ref()
	if !ok || old == newTitle {
		return nil
	}
	return &Event{
		Kind:        EventLayerRename,
		LayerRename: &LayerRenamePayload{ID: id, OldTitle: old, NewTitle: newTitle},
	}
}

// SetVisible toggles layer visibility.
func (l *Layer) SetVisible(visible bool) *Event {
	changed := l.Visible != visible
	l.Visible = visible
	id, ok := l.ref()
	if !ok || !changed {
		return nil
	}
	return &Event{
		Kind:            EventLayerVisibility,
		LayerVisibility: &LayerFlagPayload{ID: id, Value: visible},
	}
}

// SetLocked toggles the layer lock. Locked layers reject sprite mutations at
// the permission gate.
func (l *Layer) SetLocked(locked bool) *Event {
	changed := l.Locked != locked
	l.Locked = locked
	id, ok := l.ref()
	if !ok || !changed {
		return nil
	}
	return &Event{
		Kind:        EventLayerLocked,
		LayerLocked: &LayerFlagPayload{ID: id, Value: locked},
	}
}
