package scene

// EventKind identifies the type of scene mutation.
type EventKind string

const (
	// EventDummy is a no-op history delimiter used to bracket move groups.
	EventDummy EventKind = "dummy"

	EventLayerNew        EventKind = "layer_new"
	EventLayerRemove     EventKind = "layer_remove"
	EventLayerRestore    EventKind = "layer_restore"
	EventLayerRename     EventKind = "layer_rename"
	EventLayerVisibility EventKind = "layer_visibility"
	EventLayerLocked     EventKind = "layer_locked"
	EventLayerMove       EventKind = "layer_move"

	EventSpriteNew     EventKind = "sprite_new"
	EventSpriteRemove  EventKind = "sprite_remove"
	EventSpriteMove    EventKind = "sprite_move"
	EventSpriteTexture EventKind = "sprite_texture"
	EventSpriteLayer   EventKind = "sprite_layer"

	// EventSet bundles several events applied and unwound atomically as a
	// single history entry.
	EventSet EventKind = "event_set"
)

// LayerNewPayload creates a layer. ID is the creator's local id; once the
// authority has minted a canonical id the rebroadcast event carries it here
// instead, and replicas adopt it directly.
type LayerNewPayload struct {
	ID    Id     `json:"id"`
	Title string `json:"title"`
	Z     int    `json:"z"`
}

// LayerRefPayload targets an existing layer by canonical id.
type LayerRefPayload struct {
	ID Id `json:"id"`
}

// LayerRenamePayload renames a layer with compare-and-swap semantics on the
// old title.
type LayerRenamePayload struct {
	ID       Id     `json:"id"`
	OldTitle string `json:"oldTitle"`
	NewTitle string `json:"newTitle"`
}

// LayerFlagPayload toggles a boolean layer attribute.
type LayerFlagPayload struct {
	ID    Id   `json:"id"`
	Value bool `json:"value"`
}

// LayerMovePayload reorders a layer one step. StartingZ is the z the event
// was generated against; a mismatch on apply means the move is stale.
type LayerMovePayload struct {
	ID        Id   `json:"id"`
	StartingZ int  `json:"startingZ"`
	Up        bool `json:"up"`
}

// SpritePayload carries a full sprite for creation and removal events so
// either direction can be inverted without further context. Layer is the
// owning layer's canonical id.
type SpritePayload struct {
	Sprite Sprite `json:"sprite"`
	Layer  Id     `json:"layer"`
}

// SpriteMovePayload records a rectangle change with compare-and-swap
// semantics on From when applied to the authoritative scene.
type SpriteMovePayload struct {
	ID   Id   `json:"id"`
	From Rect `json:"from"`
	To   Rect `json:"to"`
}

// SpriteTexturePayload swaps a sprite's visual descriptor.
type SpriteTexturePayload struct {
	ID  Id `json:"id"`
	Old Id `json:"old"`
	New Id `json:"new"`
}

// SpriteLayerPayload reparents a sprite between layers, both referenced by
// canonical id.
type SpriteLayerPayload struct {
	ID   Id `json:"id"`
	From Id `json:"from"`
	To   Id `json:"to"`
}

// Event is the closed vocabulary of scene mutations. Exactly the payload
// matching Kind is set; Set is populated only for EventSet.
type Event struct {
	Kind EventKind `json:"kind"`

	LayerNew        *LayerNewPayload      `json:"layerNew,omitempty"`
	LayerRemove     *LayerRefPayload      `json:"layerRemove,omitempty"`
	LayerRestore    *LayerRefPayload      `json:"layerRestore,omitempty"`
	LayerRename     *LayerRenamePayload   `json:"layerRename,omitempty"`
	LayerVisibility *LayerFlagPayload     `json:"layerVisibility,omitempty"`
	LayerLocked     *LayerFlagPayload     `json:"layerLocked,omitempty"`
	LayerMove       *LayerMovePayload     `json:"layerMove,omitempty"`
	SpriteNew       *SpritePayload        `json:"spriteNew,omitempty"`
	SpriteRemove    *SpritePayload        `json:"spriteRemove,omitempty"`
	SpriteMove      *SpriteMovePayload    `json:"spriteMove,omitempty"`
	SpriteTexture   *SpriteTexturePayload `json:"spriteTexture,omitempty"`
	SpriteLayer     *SpriteLayerPayload   `json:"spriteLayer,omitempty"`
	Set             []Event               `json:"set,omitempty"`
}

// DummyEvent returns a fresh history delimiter.
func DummyEvent() *Event {
	return &Event{Kind: EventDummy}
}

// SpriteMoveEvent builds a sprite move referencing a canonical sprite id.
func SpriteMoveEvent(id Id, from, to Rect) *Event {
	return &Event{
		Kind:       EventSpriteMove,
		SpriteMove: &SpriteMovePayload{ID: id, From: from, To: to},
	}
}

// SetEvent bundles events into an atomic group, flattening the degenerate
// cases of zero or one member.
func SetEvent(events []Event) *Event {
	switch len(events) {
	case 0:
		return nil
	case 1:
		e := events[0]
		return &e
	default:
		return &Event{Kind: EventSet, Set: events}
	}
}

// IsLayer reports whether applying the event changes the layer list itself,
// which decides whether a client must rebuild its layer UI.
func (e *Event) IsLayer() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case EventLayerNew, EventLayerRemove, EventLayerRestore, EventLayerRename,
		EventLayerVisibility, EventLayerLocked, EventLayerMove:
		return true
	case EventSet:
		for i := range e.Set {
			if e.Set[i].IsLayer() {
				return true
			}
		}
	}
	return false
}

// Item returns the id of the object the event targets. For creations the id
// is canonical when known and local otherwise; for everything else it is
// canonical. The second return is false for events with no single target.
func (e *Event) Item() (Id, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Kind {
	case EventLayerNew:
		return e.LayerNew.ID, true
	case EventLayerRemove:
		return e.LayerRemove.ID, true
	case EventLayerRestore:
		return e.LayerRestore.ID, true
	case EventLayerRename:
		return e.LayerRename.ID, true
	case EventLayerVisibility:
		return e.LayerVisibility.ID, true
	case EventLayerLocked:
		return e.LayerLocked.ID, true
	case EventLayerMove:
		return e.LayerMove.ID, true
	case EventSpriteNew:
		if e.SpriteNew.Sprite.Canonical != nil {
			return *e.SpriteNew.Sprite.Canonical, true
		}
		return e.SpriteNew.Sprite.LocalID, true
	case EventSpriteRemove:
		if e.SpriteRemove.Sprite.Canonical != nil {
			return *e.SpriteRemove.Sprite.Canonical, true
		}
		return e.SpriteRemove.Sprite.LocalID, true
	case EventSpriteMove:
		return e.SpriteMove.ID, true
	case EventSpriteTexture:
		return e.SpriteTexture.ID, true
	case EventSpriteLayer:
		return e.SpriteLayer.ID, true
	default:
		return 0, false
	}
}

// Targets reports whether the event mutates the object with the given
// canonical id, descending into event sets.
func (e *Event) Targets(id Id) bool {
	if e == nil {
		return false
	}
	if e.Kind == EventSet {
		for i := range e.Set {
			if e.Set[i].Targets(id) {
				return true
			}
		}
		return false
	}
	item, ok := e.Item()
	return ok && item == id
}

// AckKind identifies the authority's verdict on an applied event.
type AckKind string

const (
	AckApproval  AckKind = "approval"
	AckRejection AckKind = "rejection"
	// AckLayerNew and AckSpriteNew approve a creation and echo the canonical
	// id assigned for the requester's local id.
	AckLayerNew  AckKind = "layer_new"
	AckSpriteNew AckKind = "sprite_new"
)

// Ack is the acknowledgement an apply produces.
type Ack struct {
	Kind      AckKind `json:"kind"`
	LocalID   Id      `json:"localId,omitempty"`
	Canonical *Id     `json:"canonicalId,omitempty"`
}

// Approved reports whether the ack is any non-rejection.
func (a Ack) Approved() bool {
	return a.Kind != AckRejection
}

func approval() Ack {
	return Ack{Kind: AckApproval}
}

func rejection() Ack {
	return Ack{Kind: AckRejection}
}

func ackFrom(ok bool) Ack {
	if ok {
		return approval()
	}
	return rejection()
}
