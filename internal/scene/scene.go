package scene

import "sort"

// DefaultSceneSize is the width and height, in tiles, of a fresh scene.
const DefaultSceneSize = 32

// Scene is the aggregate root: a stack of layers plus the event-sourced
// mutation machinery. Exactly one instance per scene has Canon set; its
// decisions are final and it alone mints canonical ids.
type Scene struct {
	ID      Id       `json:"id,omitempty"`
	Canon   bool     `json:"canon"`
	Layers  []*Layer `json:"layers"`
	Title   string   `json:"title,omitempty"`
	Project Id       `json:"project,omitempty"`
	W       int      `json:"w"`
	H       int      `json:"h"`

	// RemovedLayers holds tombstones for layers pending removal so a
	// rejected or undone removal can restore them by canonical id.
	RemovedLayers []*Layer `json:"removedLayers,omitempty"`

	alloc *Allocator
}

// NewScene constructs a speculative scene with the default layer stack.
func NewScene(alloc *Allocator) *Scene {
	s := &Scene{
		Layers: []*Layer{
			NewLayer(alloc, "Foreground", 0),
			NewLayer(alloc, "Scenery", -1),
			NewLayer(alloc, "Background", -2),
		},
		RemovedLayers: make([]*Layer, 0),
		W:             DefaultSceneSize,
		H:             DefaultSceneSize,
		alloc:         alloc,
	}
	s.SortLayers()
	return s
}

// NewCanonScene constructs the authoritative scene. Canon scenes
// self-canonicalise: every object's canonical id is its local id from the
// moment of creation.
func NewCanonScene(alloc *Allocator) *Scene {
	s := NewScene(alloc)
	s.Canon = true
	for _, l := range s.Layers {
		id := l.LocalID
		l.Canonical = &id
	}
	return s
}

// NewSceneWithLayers constructs a scene around an existing layer stack.
func NewSceneWithLayers(alloc *Allocator, layers []*Layer) *Scene {
	s := &Scene{
		Layers:        layers,
		RemovedLayers: make([]*Layer, 0),
		W:             DefaultSceneSize,
		H:             DefaultSceneSize,
		alloc:         alloc,
	}
	s.SortLayers()
	return s
}

// Clone returns a deep copy sharing the allocator.
func (s *Scene) Clone() *Scene {
	clone := *s
	clone.Layers = cloneLayers(s.Layers)
	clone.RemovedLayers = cloneLayers(s.RemovedLayers)
	return &clone
}

// NonCanon returns a speculative deep copy of the scene.
func (s *Scene) NonCanon() *Scene {
	clone := s.Clone()
	clone.Canon = false
	return clone
}

func cloneLayers(layers []*Layer) []*Layer {
	cloned := make([]*Layer, 0, len(layers))
	for _, l := range layers {
		lc := *l
		if l.Canonical != nil {
			id := *l.Canonical
			lc.Canonical = &id
		}
		lc.Sprites = make([]*Sprite, 0, len(l.Sprites))
		for _, sp := range l.Sprites {
			sc := *sp
			if sp.Canonical != nil {
				id := *sp.Canonical
				sc.Canonical = &id
			}
			lc.Sprites = append(lc.Sprites, &sc)
		}
		cloned = append(cloned, &lc)
	}
	return cloned
}

// RefreshLocalIDs re-mints every local id in the scene from the given
// allocator. Canonical ids are preserved, and the allocator is advanced past
// the highest one so ids it mints later never collide with an adopted
// canonical id. A client adopting an authoritative snapshot calls this so
// adopted ids never collide with its own.
func (s *Scene) RefreshLocalIDs(alloc *Allocator) {
	s.alloc = alloc
	for _, l := range s.Layers {
		l.refreshLocalIDs(alloc)
	}
	for _, l := range s.RemovedLayers {
		l.refreshLocalIDs(alloc)
	}
	alloc.Reserve(s.maxCanonicalID())
}

func (s *Scene) maxCanonicalID() Id {
	var max Id
	note := func(canonical *Id) {
		if canonical != nil && *canonical > max {
			max = *canonical
		}
	}
	for _, layers := range [][]*Layer{s.Layers, s.RemovedLayers} {
		for _, l := range layers {
			note(l.Canonical)
			for _, sp := range l.Sprites {
				note(sp.Canonical)
			}
		}
	}
	return max
}

// Dimensions returns the scene bounds as a rectangle at the origin.
func (s *Scene) Dimensions() Rect {
	return Rect{X: 0, Y: 0, W: float64(s.W), H: float64(s.H)}
}

// Layer returns the layer with the given local id. Id 0 addresses the top
// layer.
func (s *Scene) Layer(localID Id) *Layer {
	if localID == 0 {
		if len(s.Layers) == 0 {
			return nil
		}
		return s.Layers[0]
	}
	for _, l := range s.Layers {
		if l.LocalID == localID {
			return l
		}
	}
	return nil
}

// LayerCanonical returns the layer with the given canonical id.
func (s *Scene) LayerCanonical(canonicalID Id) *Layer {
	for _, l := range s.Layers {
		if l.Canonical != nil && *l.Canonical == canonicalID {
			return l
		}
	}
	return nil
}

// AddLayer inserts a layer and re-sorts the stack. Returns the creation
// event, or nil if a layer with that local id already exists.
func (s *Scene) AddLayer(l *Layer) *Event {
	if s.Layer(l.LocalID) != nil {
		return nil
	}
	s.Layers = append(s.Layers, l)
	s.SortLayers()
	return &Event{
		Kind:     EventLayerNew,
		LayerNew: &LayerNewPayload{ID: l.LocalID, Title: l.Title, Z: l.Z},
	}
}

// NewLayer creates and inserts a fresh layer, returning its creation event.
func (s *Scene) NewLayer(title string, z int) *Event {
	l := NewLayer(s.alloc, title, z)
	if s.Canon {
		id := l.LocalID
		l.Canonical = &id
	}
	return s.AddLayer(l)
}

// RemoveLayer detaches the layer with the given local id. A layer with
// canonical identity is tombstoned rather than dropped, because the removal
// may yet be rejected or undone; a purely local layer is gone for good.
func (s *Scene) RemoveLayer(localID Id) *Event {
	for i, l := range s.Layers {
		if l.LocalID != localID {
			continue
		}
		s.Layers = append(s.Layers[:i], s.Layers[i+1:]...)
		id, ok := l.ref()
		if !ok {
			return nil
		}
		s.RemovedLayers = append(s.RemovedLayers, l)
		return &Event{Kind: EventLayerRemove, LayerRemove: &LayerRefPayload{ID: id}}
	}
	return nil
}

// RemoveLayerCanonical removes a layer addressed by canonical id.
func (s *Scene) RemoveLayerCanonical(canonicalID Id) *Event {
	l := s.LayerCanonical(canonicalID)
	if l == nil {
		return nil
	}
	return s.RemoveLayer(l.LocalID)
}

// RestoreLayer revives a tombstoned layer by canonical id.
func (s *Scene) RestoreLayer(canonicalID Id) bool {
	for i, l := range s.RemovedLayers {
		if l.Canonical != nil && *l.Canonical == canonicalID {
			s.RemovedLayers = append(s.RemovedLayers[:i], s.RemovedLayers[i+1:]...)
			s.AddLayer(l)
			return true
		}
	}
	return false
}

// DropTombstones discards all pending-removal layers. Called when the whole
// scene is replaced; until then tombstones stay restorable for undo.
func (s *Scene) DropTombstones() {
	s.RemovedLayers = s.RemovedLayers[:0]
}

// RenameLayer retitles the layer with the given local id.
func (s *Scene) RenameLayer(localID Id, title string) *Event {
	l := s.Layer(localID)
	if l == nil {
		return nil
	}
	return l.Rename(title)
}

// SortLayers orders the stack top-first and renormalises z values onto the
// smallest contiguous range: foreground layers take {0..f-1}, background
// layers take {-k..-1}. Clients recompute the same numbering from relative
// order alone, which keeps transmitted z values comparable for conflict
// detection.
func (s *Scene) SortLayers() {
	sort.SliceStable(s.Layers, func(i, j int) bool {
		return s.Layers[i].Z > s.Layers[j].Z
	})

	split := len(s.Layers)
	for i, l := range s.Layers {
		if l.Z < 0 {
			split = i
			break
		}
	}

	z := split - 1
	for _, l := range s.Layers[:split] {
		l.Z = z
		z--
	}
	z = -1
	for _, l := range s.Layers[split:] {
		l.Z = z
		z--
	}
}

// MoveLayer shifts a layer one step up or down the stack. A layer at the
// extreme of its side crosses the grid boundary to the other side; moves
// within a side swap adjacent z values; moves across the boundary shift the
// receiving side by one to keep the range contiguous.
func (s *Scene) MoveLayer(localID Id, up bool) *Event {
	i := -1
	for j, l := range s.Layers {
		if l.LocalID == localID {
			i = j
			break
		}
	}
	if i < 0 {
		return nil
	}

	layerZ := s.Layers[i].Z
	down := !up

	event := func() *Event {
		id, ok := s.Layers[i].ref()
		if !ok {
			return nil
		}
		return &Event{
			Kind:      EventLayerMove,
			LayerMove: &LayerMovePayload{ID: id, StartingZ: layerZ, Up: up},
		}
	}

	if (up && i == 0) || (down && i == len(s.Layers)-1) {
		// Already at an extreme of the stack. A top background layer moving
		// up crosses onto the foreground side and vice versa; otherwise the
		// move is a no-op.
		if (up && layerZ < 0) || (down && layerZ >= 0) {
			if up {
				s.Layers[i].Z = 0
			} else {
				s.Layers[i].Z = -1
			}
			ev := event()
			s.SortLayers()
			return ev
		}
		return nil
	}

	otherI := i + 1
	if up {
		otherI = i - 1
	}
	otherZ := s.Layers[otherI].Z

	sameSide := (layerZ >= 0) == (otherZ >= 0)
	switch {
	case sameSide:
		s.Layers[i].Z = otherZ
		s.Layers[otherI].Z = layerZ
	case up:
		// Crossing from background to foreground: shift the whole
		// foreground up one and slot in at the bottom of it.
		for _, l := range s.Layers[:otherI+1] {
			l.Z++
		}
		s.Layers[i].Z = 0
	default:
		// Crossing from foreground to background.
		for _, l := range s.Layers[otherI:] {
			l.Z--
		}
		s.Layers[i].Z = -1
	}

	ev := event()
	s.SortLayers()
	return ev
}

// Sprite returns the sprite with the given local id, searching all layers.
func (s *Scene) Sprite(localID Id) *Sprite {
	for _, l := range s.Layers {
		if sp := l.Sprite(localID); sp != nil {
			return sp
		}
	}
	return nil
}

// SpriteCanonical returns the sprite with the given canonical id.
func (s *Scene) SpriteCanonical(canonicalID Id) *Sprite {
	for _, l := range s.Layers {
		if sp := l.SpriteCanonical(canonicalID); sp != nil {
			return sp
		}
	}
	return nil
}

// SpriteLayerOf returns the layer currently owning the sprite with the
// given local id.
func (s *Scene) SpriteLayerOf(localID Id) *Layer {
	for _, l := range s.Layers {
		if l.Sprite(localID) != nil {
			return l
		}
	}
	return nil
}

func (s *Scene) spriteLayerOfCanonical(canonicalID Id) *Layer {
	for _, l := range s.Layers {
		if l.SpriteCanonical(canonicalID) != nil {
			return l
		}
	}
	return nil
}

// SpriteAt returns the topmost grabbable sprite containing the point.
// Layers are walked top-first; locked and hidden layers cannot be grabbed
// into.
func (s *Scene) SpriteAt(at Point) *Sprite {
	for _, l := range s.Layers {
		if !l.Selectable() {
			continue
		}
		if sp := l.SpriteAt(at); sp != nil {
			return sp
		}
	}
	return nil
}

// SpritesIn returns the local ids of sprites on selectable layers that lie
// entirely within the region, or merely touch it when loose is set.
func (s *Scene) SpritesIn(region Rect, loose bool) []Id {
	ids := make([]Id, 0)
	for _, l := range s.Layers {
		if l.Selectable() {
			ids = append(ids, l.SpritesIn(region, loose)...)
		}
	}
	return ids
}

// AddSprite inserts a sprite into the layer with the given local id.
func (s *Scene) AddSprite(sprite *Sprite, layerLocalID Id) *Event {
	l := s.Layer(layerLocalID)
	if l == nil {
		return nil
	}
	return l.AddSprite(sprite)
}

// NewSprite mints a sprite for the given texture and inserts it.
func (s *Scene) NewSprite(texture Id, layerLocalID Id) *Event {
	sprite := NewSprite(s.alloc, texture)
	if s.Canon {
		id := sprite.LocalID
		sprite.Canonical = &id
	}
	return s.AddSprite(sprite, layerLocalID)
}

// RemoveSprite detaches the sprite with the given local id. The event
// carries the full sprite so the removal can be inverted; it is nil when
// the sprite or its layer has no canonical identity yet.
func (s *Scene) RemoveSprite(localID Id) *Event {
	l := s.SpriteLayerOf(localID)
	if l == nil {
		return nil
	}
	sprite := l.RemoveSprite(localID)
	layerID, ok := l.ref()
	if !ok || sprite.Canonical == nil {
		return nil
	}
	return &Event{
		Kind:         EventSpriteRemove,
		SpriteRemove: &SpritePayload{Sprite: *sprite, Layer: layerID},
	}
}

// RemoveSprites removes several sprites as one atomic history entry.
func (s *Scene) RemoveSprites(localIDs []Id) *Event {
	events := make([]Event, 0, len(localIDs))
	for _, id := range localIDs {
		if ev := s.RemoveSprite(id); ev != nil {
			events = append(events, *ev)
		}
	}
	return SetEvent(events)
}

// SetSpriteLayer reparents a sprite onto another layer, both addressed by
// local id.
func (s *Scene) SetSpriteLayer(spriteLocalID, layerLocalID Id) *Event {
	from := s.SpriteLayerOf(spriteLocalID)
	to := s.Layer(layerLocalID)
	if from == nil || to == nil || from == to {
		return nil
	}
	sprite := from.RemoveSprite(spriteLocalID)
	to.AddSprites([]*Sprite{sprite})

	spriteID, spriteOK := sprite.ref()
	fromID, fromOK := from.ref()
	toID, toOK := to.ref()
	if !spriteOK || !fromOK || !toOK {
		return nil
	}
	return &Event{
		Kind:        EventSpriteLayer,
		SpriteLayer: &SpriteLayerPayload{ID: spriteID, From: fromID, To: toID},
	}
}

// SetSpritesLayer reparents several sprites as one atomic history entry.
func (s *Scene) SetSpritesLayer(spriteLocalIDs []Id, layerLocalID Id) *Event {
	events := make([]Event, 0, len(spriteLocalIDs))
	for _, id := range spriteLocalIDs {
		if ev := s.SetSpriteLayer(id, layerLocalID); ev != nil {
			events = append(events, *ev)
		}
	}
	return SetEvent(events)
}

func (s *Scene) setCanonicalSpriteID(localID, canonicalID Id) {
	if sp := s.Sprite(localID); sp != nil {
		sp.Canonical = &canonicalID
	}
}

func (s *Scene) setCanonicalLayerID(localID, canonicalID Id) {
	if l := s.Layer(localID); l != nil {
		l.Canonical = &canonicalID
	}
}

// EventLayer resolves the layer context an event targets, for the
// permission gate. Creations of new layers and event sets have no single
// layer context.
func (s *Scene) EventLayer(e *Event) *Layer {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case EventLayerRemove:
		return s.LayerCanonical(e.LayerRemove.ID)
	case EventLayerRestore:
		return s.LayerCanonical(e.LayerRestore.ID)
	case EventLayerRename:
		return s.LayerCanonical(e.LayerRename.ID)
	case EventLayerVisibility:
		return s.LayerCanonical(e.LayerVisibility.ID)
	case EventLayerLocked:
		return s.LayerCanonical(e.LayerLocked.ID)
	case EventLayerMove:
		return s.LayerCanonical(e.LayerMove.ID)
	case EventSpriteNew:
		return s.LayerCanonical(e.SpriteNew.Layer)
	case EventSpriteRemove:
		return s.LayerCanonical(e.SpriteRemove.Layer)
	case EventSpriteMove:
		return s.spriteLayerOfCanonical(e.SpriteMove.ID)
	case EventSpriteTexture:
		return s.spriteLayerOfCanonical(e.SpriteTexture.ID)
	case EventSpriteLayer:
		return s.LayerCanonical(e.SpriteLayer.To)
	default:
		return nil
	}
}

// ApplyEvent validates the event against current state, mutates, and
// returns the acknowledgement. The same code path runs on the authority and
// on speculative copies; Canon decides whether the optimistic-lock
// comparisons are enforced. Replicas trust their own speculative edits and
// are only ever corrected by explicit rejection from the authority.
func (s *Scene) ApplyEvent(e *Event) Ack {
	if e == nil {
		return rejection()
	}
	switch e.Kind {
	case EventDummy:
		return approval()
	case EventLayerNew:
		return s.applyLayerNew(e.LayerNew)
	case EventLayerRemove:
		return ackFrom(s.RemoveLayerCanonical(e.LayerRemove.ID) != nil)
	case EventLayerRestore:
		return ackFrom(s.RestoreLayer(e.LayerRestore.ID))
	case EventLayerRename:
		l := s.LayerCanonical(e.LayerRename.ID)
		if l == nil || l.Title != e.LayerRename.OldTitle {
			return rejection()
		}
		l.Rename(e.LayerRename.NewTitle)
		return approval()
	case EventLayerVisibility:
		if l := s.LayerCanonical(e.LayerVisibility.ID); l != nil {
			l.SetVisible(e.LayerVisibility.Value)
		}
		return approval()
	case EventLayerLocked:
		if l := s.LayerCanonical(e.LayerLocked.ID); l != nil {
			l.SetLocked(e.LayerLocked.Value)
		}
		return approval()
	case EventLayerMove:
		l := s.LayerCanonical(e.LayerMove.ID)
		if l == nil || l.Z != e.LayerMove.StartingZ {
			return rejection()
		}
		return ackFrom(s.MoveLayer(l.LocalID, e.LayerMove.Up) != nil)
	case EventSpriteNew:
		return s.applySpriteNew(e.SpriteNew)
	case EventSpriteRemove:
		if e.SpriteRemove.Sprite.Canonical == nil {
			return rejection()
		}
		id := *e.SpriteRemove.Sprite.Canonical
		l := s.spriteLayerOfCanonical(id)
		if l == nil {
			return rejection()
		}
		l.RemoveSprite(l.SpriteCanonical(id).LocalID)
		return approval()
	case EventSpriteMove:
		sp := s.SpriteCanonical(e.SpriteMove.ID)
		if sp == nil || (s.Canon && sp.Rect != e.SpriteMove.From) {
			return rejection()
		}
		sp.Rect = e.SpriteMove.To
		return approval()
	case EventSpriteTexture:
		sp := s.SpriteCanonical(e.SpriteTexture.ID)
		if sp == nil || (s.Canon && sp.Texture != e.SpriteTexture.Old) {
			return rejection()
		}
		sp.Texture = e.SpriteTexture.New
		return approval()
	case EventSpriteLayer:
		sp := s.SpriteCanonical(e.SpriteLayer.ID)
		to := s.LayerCanonical(e.SpriteLayer.To)
		if sp == nil || to == nil {
			return rejection()
		}
		from := s.spriteLayerOfCanonical(e.SpriteLayer.ID)
		if from == to {
			return approval()
		}
		from.RemoveSprite(sp.LocalID)
		to.AddSprites([]*Sprite{sp})
		return approval()
	case EventSet:
		return s.applySet(e.Set)
	default:
		return rejection()
	}
}

func (s *Scene) applyLayerNew(p *LayerNewPayload) Ack {
	ack, _ := s.createLayer(p)
	return ack
}

func (s *Scene) createLayer(p *LayerNewPayload) (Ack, *Layer) {
	if !s.Canon && s.LayerCanonical(p.ID) != nil {
		// Replaying a creation whose canonical id we already hold.
		return rejection(), nil
	}

	l := NewLayer(s.alloc, p.Title, p.Z)
	if s.Canon {
		// The authority takes the fresh local id as canonical; the payload
		// id is the requester's local handle, echoed back in the ack.
		id := l.LocalID
		l.Canonical = &id
	} else {
		id := p.ID
		l.Canonical = &id
	}
	canonical := l.Canonical
	s.AddLayer(l)

	return Ack{Kind: AckLayerNew, LocalID: p.ID, Canonical: canonical}, l
}

func (s *Scene) applySpriteNew(p *SpritePayload) Ack {
	ack, _ := s.createSprite(p)
	return ack
}

func (s *Scene) createSprite(p *SpritePayload) (Ack, *Sprite) {
	l := s.LayerCanonical(p.Layer)
	if l == nil {
		return rejection(), nil
	}

	if p.Sprite.Canonical != nil && s.SpriteCanonical(*p.Sprite.Canonical) != nil {
		// Duplicate-apply guard for replayed creations.
		return rejection(), nil
	}

	sprite := SpriteFromRemote(s.alloc, &p.Sprite)
	if sprite.Canonical == nil && s.Canon {
		id := sprite.LocalID
		sprite.Canonical = &id
	}
	l.AddSprites([]*Sprite{sprite})

	return Ack{Kind: AckSpriteNew, LocalID: p.Sprite.LocalID, Canonical: sprite.Canonical}, sprite
}

// setStep records one applied set member. Creations carry the local id the
// apply actually minted; the payload's local id belongs to the requester and
// on the authority names nothing.
type setStep struct {
	event   *Event
	created Id
}

func (s *Scene) applySet(events []Event) Ack {
	steps := make([]setStep, 0, len(events))
	if !s.applySetMembers(events, &steps) {
		// Atomic: roll back the applied prefix.
		for j := len(steps) - 1; j >= 0; j-- {
			s.rollBackStep(steps[j])
		}
		return rejection()
	}
	return approval()
}

// applySetMembers applies members in order, flattening nested sets so every
// applied step lands on the shared list and can be rolled back individually.
func (s *Scene) applySetMembers(events []Event, steps *[]setStep) bool {
	for i := range events {
		ev := &events[i]
		if ev.Kind == EventSet {
			if !s.applySetMembers(ev.Set, steps) {
				return false
			}
			continue
		}

		step := setStep{event: ev}
		var ack Ack
		switch ev.Kind {
		case EventLayerNew:
			var l *Layer
			ack, l = s.createLayer(ev.LayerNew)
			if l != nil {
				step.created = l.LocalID
			}
		case EventSpriteNew:
			var sp *Sprite
			ack, sp = s.createSprite(ev.SpriteNew)
			if sp != nil {
				step.created = sp.LocalID
			}
		default:
			ack = s.ApplyEvent(ev)
		}
		if !ack.Approved() {
			return false
		}
		*steps = append(*steps, step)
	}
	return true
}

func (s *Scene) rollBackStep(step setStep) {
	switch step.event.Kind {
	case EventLayerNew:
		s.RemoveLayer(step.created)
	case EventSpriteNew:
		s.RemoveSprite(step.created)
	default:
		s.UnwindEvent(step.event)
	}
}

// UnwindEvent computes and applies the inverse mutation, returning the
// inverse event actually applied. Redo is "undo of the undo": the returned
// event feeds the redo stack and is itself unwound to redo.
func (s *Scene) UnwindEvent(e *Event) *Event {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case EventLayerNew:
		return s.RemoveLayer(e.LayerNew.ID)
	case EventLayerRemove:
		if s.RestoreLayer(e.LayerRemove.ID) {
			return &Event{Kind: EventLayerRestore, LayerRestore: &LayerRefPayload{ID: e.LayerRemove.ID}}
		}
		return nil
	case EventLayerRestore:
		return s.RemoveLayerCanonical(e.LayerRestore.ID)
	case EventLayerRename:
		if l := s.LayerCanonical(e.LayerRename.ID); l != nil {
			return l.Rename(e.LayerRename.OldTitle)
		}
		return nil
	case EventLayerVisibility:
		if l := s.LayerCanonical(e.LayerVisibility.ID); l != nil {
			return l.SetVisible(!e.LayerVisibility.Value)
		}
		return nil
	case EventLayerLocked:
		if l := s.LayerCanonical(e.LayerLocked.ID); l != nil {
			return l.SetLocked(!e.LayerLocked.Value)
		}
		return nil
	case EventLayerMove:
		if l := s.LayerCanonical(e.LayerMove.ID); l != nil {
			return s.MoveLayer(l.LocalID, !e.LayerMove.Up)
		}
		return nil
	case EventSpriteNew:
		return s.RemoveSprite(e.SpriteNew.Sprite.LocalID)
	case EventSpriteRemove:
		l := s.LayerCanonical(e.SpriteRemove.Layer)
		if l == nil {
			return nil
		}
		sprite := SpriteFromRemote(s.alloc, &e.SpriteRemove.Sprite)
		return l.AddSprite(sprite)
	case EventSpriteMove:
		sp := s.SpriteCanonical(e.SpriteMove.ID)
		if sp == nil {
			return nil
		}
		before := sp.Rect
		after := Rect{
			X: before.X - (e.SpriteMove.To.X - e.SpriteMove.From.X),
			Y: before.Y - (e.SpriteMove.To.Y - e.SpriteMove.From.Y),
			W: before.W - (e.SpriteMove.To.W - e.SpriteMove.From.W),
			H: before.H - (e.SpriteMove.To.H - e.SpriteMove.From.H),
		}
		sp.Rect = after
		return SpriteMoveEvent(e.SpriteMove.ID, before, after)
	case EventSpriteTexture:
		if sp := s.SpriteCanonical(e.SpriteTexture.ID); sp != nil {
			return sp.SetTexture(e.SpriteTexture.Old)
		}
		return nil
	case EventSpriteLayer:
		inverse := &Event{
			Kind: EventSpriteLayer,
			SpriteLayer: &SpriteLayerPayload{
				ID:   e.SpriteLayer.ID,
				From: e.SpriteLayer.To,
				To:   e.SpriteLayer.From,
			},
		}
		if s.ApplyEvent(inverse).Approved() {
			return inverse
		}
		return nil
	case EventSet:
		inverses := make([]Event, 0, len(e.Set))
		for i := len(e.Set) - 1; i >= 0; i-- {
			if inv := s.UnwindEvent(&e.Set[i]); inv != nil {
				inverses = append(inverses, *inv)
			}
		}
		return SetEvent(inverses)
	default:
		return nil
	}
}

// ApplyAck binds the canonical id carried by a creation acknowledgement
// into the local object. Plain approvals and rejections are the
// interactor's concern, not the scene's.
func (s *Scene) ApplyAck(a Ack) {
	if a.Canonical == nil {
		return
	}
	switch a.Kind {
	case AckLayerNew:
		s.setCanonicalLayerID(a.LocalID, *a.Canonical)
	case AckSpriteNew:
		s.setCanonicalSpriteID(a.LocalID, *a.Canonical)
	}
}

// Canonicalize rewrites a creation event so it references the canonical id
// the authority assigned, ready for rebroadcast to replicas. Other events
// already reference canonical ids and pass through unchanged.
func Canonicalize(e *Event, a Ack) *Event {
	if e == nil || a.Canonical == nil {
		return e
	}
	switch {
	case e.Kind == EventLayerNew && a.Kind == AckLayerNew:
		rewritten := *e
		payload := *e.LayerNew
		payload.ID = *a.Canonical
		rewritten.LayerNew = &payload
		return &rewritten
	case e.Kind == EventSpriteNew && a.Kind == AckSpriteNew:
		rewritten := *e
		payload := *e.SpriteNew
		canonical := *a.Canonical
		payload.Sprite.Canonical = &canonical
		rewritten.SpriteNew = &payload
		return &rewritten
	default:
		return e
	}
}
