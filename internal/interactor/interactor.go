// Package interactor is the client-side session: a speculative scene copy,
// the permission gate, undo and redo stacks, the outstanding-request queue,
// and the selection and drag state machine. All user mutation flows through
// it; nothing else touches the scene.
package interactor

import (
	"sync/atomic"
	"time"

	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
)

// SelectionID is the pseudo sprite id addressing the whole multi-selection
// in the editing surface.
const SelectionID scene.Id = -1

// Transport delivers client messages to the hub and surfaces server events
// for polling. A nil transport means an offline session: edits apply
// locally and nothing is issued.
type Transport interface {
	Send(proto.ClientMessage) error
	Events() []proto.ServerEvent
}

type Interactor struct {
	Changes Changes

	transport   Transport
	holding     heldObject
	history     []*scene.Event
	redoHistory []*scene.Event
	issued      []proto.ClientMessage
	perms       *perms.Perms
	scene       *scene.Scene
	selected    []scene.Id
	marquee     *scene.Rect
	user        scene.Id
	alloc       *scene.Allocator
	nextRequest atomic.Int64
}

func New(transport Transport, alloc *scene.Allocator) *Interactor {
	return &Interactor{
		Changes:   newChanges(),
		transport: transport,
		perms:     perms.New(),
		scene:     scene.NewScene(alloc),
		user:      perms.CanonicalUpdater,
		alloc:     alloc,
	}
}

// ProcessServerEvents drains the transport and reconciles. Called once per
// frame.
func (it *Interactor) ProcessServerEvents() {
	if it.transport == nil {
		return
	}
	for _, event := range it.transport.Events() {
		it.processServerEvent(event)
		it.Changes.spriteChange()
	}
}

func (it *Interactor) processServerEvent(event proto.ServerEvent) {
	switch event.Type {
	case proto.ServerApproval:
		it.approveEvent(event.ID, event.Ack)
	case proto.ServerRejection:
		it.rejectEvent(event.ID)
	case proto.ServerPermsChange:
		if event.Perms != nil {
			it.perms = event.Perms
		}
	case proto.ServerPermsUpdate:
		if event.PermsEvent != nil {
			it.perms.HandleEvent(perms.CanonicalUpdater, *event.PermsEvent)
		}
	case proto.ServerSceneChange:
		if event.Scene != nil {
			it.adoptScene(event.Scene)
		}
	case proto.ServerSceneUpdate:
		if event.Event != nil {
			it.scene.ApplyEvent(event.Event)
			it.Changes.layerChangeIf(event.Event.IsLayer())
		}
	case proto.ServerUserID:
		it.user = event.UserID
	}
	// Unknown types are skipped so protocol additions stay non-fatal.
}

// approveEvent settles an outstanding request. Approving an id twice is a
// no-op because the first approval removed it from the queue. Creation
// acks additionally bind the authority's canonical id.
func (it *Interactor) approveEvent(id int64, ack *scene.Ack) {
	retained := it.issued[:0]
	for _, msg := range it.issued {
		if msg.ID != id {
			retained = append(retained, msg)
		}
	}
	it.issued = retained
	if ack != nil {
		it.scene.ApplyAck(*ack)
	}
}

// rejectEvent unwinds the speculative edit for a refused request. If the
// rejected object is mid-drag the hold is dropped so the reverted position
// does not jitter under the cursor.
func (it *Interactor) rejectEvent(id int64) {
	for i, msg := range it.issued {
		if msg.ID != id {
			continue
		}
		it.issued = append(it.issued[:i], it.issued[i+1:]...)
		if msg.Event == nil {
			return
		}
		if heldID, ok := it.holding.heldID(); ok {
			if s := it.scene.Sprite(heldID); s != nil && s.Canonical != nil && msg.Event.Targets(*s.Canonical) {
				it.holding = heldObject{}
			}
		}
		it.Changes.layerChangeIf(msg.Event.IsLayer())
		it.Changes.spriteSelectedChange()
		it.scene.UnwindEvent(msg.Event)
		return
	}
}

func (it *Interactor) issueEvent(e *scene.Event) {
	if it.transport == nil {
		return
	}
	msg := proto.Update(it.nextRequest.Add(1), e, time.Now().UnixMilli())
	if err := it.transport.Send(msg); err != nil {
		return
	}
	it.issued = append(it.issued, msg)
}

// sceneEvent runs the issue flow: permission pre-check, transmit, history
// push. A forbidden event is unwound locally and never sent, which keeps
// the speculative copy consistent with a refusal the server would have
// issued anyway.
func (it *Interactor) sceneEvent(e *scene.Event) {
	if it.perms.Permitted(it.user, e, it.scene.EventLayer) {
		it.issueEvent(e)

		// A fresh history entry invalidates everything undone.
		it.redoHistory = it.redoHistory[:0]
		it.history = append(it.history, e)
	} else {
		it.scene.UnwindEvent(e)
	}
}

func (it *Interactor) sceneOption(e *scene.Event) {
	if e != nil {
		it.sceneEvent(e)
	}
}

// startMoveGroup marks the history so every move until the matching
// endMoveGroup coalesces into one undo step.
func (it *Interactor) startMoveGroup() {
	it.history = append(it.history, scene.DummyEvent())
}

func (it *Interactor) popHistory() (*scene.Event, bool) {
	if len(it.history) == 0 {
		return nil, false
	}
	e := it.history[len(it.history)-1]
	it.history = it.history[:len(it.history)-1]
	return e, true
}

// groupMovesSingle folds a run of moves of one sprite into a single move
// from the earliest start to the final finish.
func (it *Interactor) groupMovesSingle(last *scene.Event) {
	sprite := last.SpriteMove.ID
	start := last.SpriteMove.From
	finish := last.SpriteMove.To

	for {
		e, ok := it.popHistory()
		if !ok {
			break
		}
		if e.Kind == scene.EventSpriteMove && e.SpriteMove.ID == sprite {
			start = e.SpriteMove.From
			continue
		}
		if e.Kind != scene.EventDummy {
			it.history = append(it.history, e)
		}
		break
	}

	it.history = append(it.history, scene.SpriteMoveEvent(sprite, start, finish))
}

// groupMovesSet folds a run of multi-sprite move sets into one set with a
// single move per sprite.
func (it *Interactor) groupMovesSet(last *scene.Event) {
	it.history = append(it.history, last)
	moves := make(map[scene.Id]*scene.SpriteMovePayload)
	order := make([]scene.Id, 0)

	for {
		e, ok := it.popHistory()
		if !ok {
			break
		}
		if e.Kind == scene.EventSet {
			for i := range e.Set {
				member := &e.Set[i]
				if member.Kind != scene.EventSpriteMove {
					continue
				}
				if existing, seen := moves[member.SpriteMove.ID]; seen {
					existing.From = member.SpriteMove.From
				} else {
					payload := *member.SpriteMove
					moves[payload.ID] = &payload
					order = append(order, payload.ID)
				}
			}
			continue
		}
		if e.Kind != scene.EventDummy {
			it.history = append(it.history, e)
		}
		break
	}

	grouped := make([]scene.Event, 0, len(order))
	for _, id := range order {
		grouped = append(grouped, *scene.SpriteMoveEvent(id, moves[id].From, moves[id].To))
	}
	it.history = append(it.history, scene.SetEvent(grouped))
}

func (it *Interactor) endMoveGroup() {
	e, ok := it.popHistory()
	if !ok {
		return
	}
	switch e.Kind {
	case scene.EventSpriteMove:
		it.groupMovesSingle(e)
	case scene.EventSet:
		it.groupMovesSet(e)
	case scene.EventDummy:
		// A grab that never moved leaves only the delimiter; drop it.
	default:
		it.history = append(it.history, e)
	}
}

// Undo pops the history, unwinds the event, and transmits the inverse to
// the server. The inverse feeds the redo stack; nil inverses are kept so
// redo stays aligned with undo.
func (it *Interactor) Undo() {
	e, ok := it.popHistory()
	if !ok {
		return
	}
	if e.Kind == scene.EventDummy {
		it.Undo()
		return
	}

	inverse := it.scene.UnwindEvent(e)
	if inverse != nil {
		it.issueEvent(inverse)
		it.Changes.layerChangeIf(inverse.IsLayer())
		it.Changes.spriteSelectedChange()
	}
	it.redoHistory = append(it.redoHistory, inverse)
}

// Redo unwinds the undo's inverse, which re-applies the original mutation.
func (it *Interactor) Redo() {
	if len(it.redoHistory) == 0 {
		return
	}
	undone := it.redoHistory[len(it.redoHistory)-1]
	it.redoHistory = it.redoHistory[:len(it.redoHistory)-1]
	if undone == nil {
		return
	}

	if redone := it.scene.UnwindEvent(undone); redone != nil {
		it.issueEvent(redone)
		it.history = append(it.history, redone)
		it.Changes.layerChangeIf(redone.IsLayer())
		it.Changes.spriteSelectedChange()
	}
}

func (it *Interactor) heldSprite() *scene.Sprite {
	if id, ok := it.holding.heldID(); ok {
		return it.scene.Sprite(id)
	}
	return nil
}

// selectionEffect applies an effect to each selected sprite and issues the
// resulting events as a single atomic set.
func (it *Interactor) selectionEffect(effect func(*scene.Sprite) *scene.Event) {
	if it.selected == nil {
		return
	}
	events := make([]scene.Event, 0, len(it.selected))
	for _, id := range it.selected {
		if s := it.scene.Sprite(id); s != nil {
			if e := effect(s); e != nil {
				events = append(events, *e)
			}
		}
	}
	if len(events) > 0 {
		it.sceneEvent(scene.SetEvent(events))
		it.Changes.spriteSelectedChange()
	}
}

func (it *Interactor) isSelected(id scene.Id) bool {
	for _, sel := range it.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Grab starts a drag at the given point. Hitting a sprite grabs it (or its
// resize anchor, or the whole selection if it is part of one); empty space
// starts a marquee. Ctrl extends the selection instead of replacing it.
func (it *Interactor) Grab(at scene.Point, ctrl bool) {
	if s := it.scene.SpriteAt(at); s != nil {
		it.Changes.selectedChange()
		if it.selected != nil {
			already := it.isSelected(s.LocalID)
			if already || ctrl {
				if !already && ctrl {
					it.selected = append(it.selected, s.LocalID)
				}
				it.holding = heldObject{kind: heldSelection, at: at}
			} else {
				it.selected = it.selected[:0]
				it.selected = append(it.selected, s.LocalID)
				it.holding = grabSprite(s, at)
			}
		} else {
			it.selected = []scene.Id{s.LocalID}
			it.holding = grabSprite(s, at)
		}
	} else {
		it.holding = heldObject{kind: heldMarquee, at: at}
	}

	if it.holding.isSprite() {
		it.startMoveGroup()
	}
	it.Changes.spriteChange()
}

func (it *Interactor) updateHeldSprite(at scene.Point) {
	holding := it.holding
	sprite := it.heldSprite()
	if sprite == nil {
		return
	}

	var event *scene.Event
	switch holding.kind {
	case heldSprite:
		event = sprite.SetPos(at.Sub(holding.offset))
	case heldAnchor:
		delta := at.Sub(sprite.AnchorPoint(holding.dx, holding.dy))
		x := sprite.Rect.X
		if holding.dx == -1 {
			x += delta.X
		}
		y := sprite.Rect.Y
		if holding.dy == -1 {
			y += delta.Y
		}
		w := delta.X*float64(holding.dx) + sprite.Rect.W
		h := delta.Y*float64(holding.dy) + sprite.Rect.H
		event = sprite.SetRect(scene.Rect{X: x, Y: y, W: w, H: h})
	default:
		return
	}
	it.sceneOption(event)
	it.Changes.spriteChange()
}

func (it *Interactor) dragSelection(to scene.Point) {
	if it.holding.kind != heldSelection {
		return
	}
	delta := to.Sub(it.holding.at)
	it.selectionEffect(func(s *scene.Sprite) *scene.Event {
		return s.MoveBy(delta)
	})
	it.holding = heldObject{kind: heldSelection, at: to}
}

// Drag continues the current hold at the given point.
func (it *Interactor) Drag(at scene.Point) {
	switch it.holding.kind {
	case heldMarquee:
		region := it.holding.at.Rect(at)
		it.marquee = &region
		it.Changes.spriteSelectedChange()
	case heldSelection:
		it.dragSelection(at)
	case heldSprite, heldAnchor:
		it.updateHeldSprite(at)
	}
}

// SpriteAt reports the sprite under the point for context menus. A sprite
// inside the current selection answers as the selection itself.
func (it *Interactor) SpriteAt(at scene.Point) (scene.Id, bool) {
	s := it.scene.SpriteAt(at)
	if s == nil {
		return 0, false
	}
	if it.isSelected(s.LocalID) {
		return SelectionID, true
	}
	return s.LocalID, true
}

func releaseSprite(s *scene.Sprite, snapToGrid bool) *scene.Event {
	if snapToGrid {
		return s.SnapToGrid()
	}
	return s.EnforceMinSize()
}

func (it *Interactor) releaseHeldSprite(id scene.Id, snapToGrid bool) {
	if s := it.scene.Sprite(id); s != nil {
		it.sceneOption(releaseSprite(s, snapToGrid))
		it.Changes.spriteSelectedChange()
	}
}

// Release ends the current hold. Alt suppresses grid snapping and loosens
// marquee selection to any touched sprite; ctrl extends the selection.
func (it *Interactor) Release(alt, ctrl bool) {
	switch it.holding.kind {
	case heldMarquee:
		if !ctrl {
			it.selected = nil
		}
		if it.marquee != nil {
			selection := it.scene.SpritesIn(it.marquee.Positive(), alt)
			if ctrl && it.selected != nil {
				it.selected = append(it.selected, selection...)
			} else {
				it.selected = selection
			}
		}
		it.marquee = nil
		it.Changes.spriteSelectedChange()
	case heldSelection:
		it.selectionEffect(func(s *scene.Sprite) *scene.Event {
			return releaseSprite(s, !alt)
		})
	case heldSprite, heldAnchor:
		it.releaseHeldSprite(it.holding.sprite, !alt)
	}

	if it.holding.isSprite() {
		it.endMoveGroup()
	}
	it.holding = heldObject{}
}

// Layers exposes the ordered layer list for rendering.
func (it *Interactor) Layers() []*scene.Layer {
	return it.scene.Layers
}

// Selections returns the rectangles to outline this frame: every selected
// sprite, the held sprite, and the marquee.
func (it *Interactor) Selections() []scene.Rect {
	selections := make([]scene.Rect, 0, len(it.selected)+2)
	for _, id := range it.selected {
		if s := it.scene.Sprite(id); s != nil {
			selections = append(selections, s.Rect)
		}
	}
	if s := it.heldSprite(); s != nil {
		selections = append(selections, s.Rect)
	}
	if it.marquee != nil {
		selections = append(selections, *it.marquee)
	}
	return selections
}

// Dimensions returns the scene bounds in tiles.
func (it *Interactor) Dimensions() scene.Rect {
	return it.scene.Dimensions()
}

// Export serialises the current scene for saving.
func (it *Interactor) Export() ([]byte, error) {
	return it.scene.Export()
}

// NewScene discards the current scene for a fresh one in the given
// project. A no-op while no scene has been adopted yet.
func (it *Interactor) NewScene(projectID scene.Id) {
	if it.scene.ID == 0 {
		return
	}
	it.scene = scene.NewScene(it.alloc)
	if projectID != 0 {
		it.scene.Project = projectID
	}
	it.Changes.allChange()
}

// ReplaceScene adopts an authoritative scene wholesale.
func (it *Interactor) ReplaceScene(s *scene.Scene) {
	it.adoptScene(s)
}

func (it *Interactor) adoptScene(s *scene.Scene) {
	replacement := s.NonCanon()
	replacement.RefreshLocalIDs(it.alloc)
	replacement.DropTombstones()
	it.scene = replacement
	it.holding = heldObject{}
	it.selected = nil
	it.marquee = nil
	it.history = it.history[:0]
	it.redoHistory = it.redoHistory[:0]
	it.issued = it.issued[:0]
	it.Changes.allChange()
}

// NewLayer creates an untitled layer above the current top layer.
func (it *Interactor) NewLayer() {
	z := 0
	if len(it.scene.Layers) > 0 {
		if top := it.scene.Layers[0].Z + 1; top > 0 {
			z = top
		}
	}
	it.sceneOption(it.scene.NewLayer("Untitled", z))
	it.Changes.layerChange()
}

func (it *Interactor) RemoveLayer(layer scene.Id) {
	it.sceneOption(it.scene.RemoveLayer(layer))
	it.Changes.allChange()
}

func (it *Interactor) RenameLayer(layer scene.Id, title string) {
	it.sceneOption(it.scene.RenameLayer(layer, title))
	it.Changes.layerChange()
}

func (it *Interactor) SetLayerVisible(layer scene.Id, visible bool) {
	if l := it.scene.Layer(layer); l != nil {
		event := l.SetVisible(visible)
		it.Changes.spriteChangeIf(len(l.Sprites) > 0)
		it.sceneOption(event)
		it.Changes.layerChange()
	}
}

func (it *Interactor) SetLayerLocked(layer scene.Id, locked bool) {
	if l := it.scene.Layer(layer); l != nil {
		it.sceneOption(l.SetLocked(locked))
		it.Changes.layerChange()
	}
}

func (it *Interactor) MoveLayer(layer scene.Id, up bool) {
	it.sceneOption(it.scene.MoveLayer(layer, up))
	it.Changes.allChange()
}

func (it *Interactor) NewSprite(texture, layer scene.Id) {
	it.sceneOption(it.scene.NewSprite(texture, layer))
	it.Changes.spriteChange()
}

// RemoveSprite removes a sprite, or the whole selection when given
// SelectionID.
func (it *Interactor) RemoveSprite(sprite scene.Id) {
	if sprite == SelectionID {
		if it.selected != nil {
			it.sceneOption(it.scene.RemoveSprites(it.selected))
			it.Changes.spriteSelectedChange()
		}
		return
	}
	it.sceneOption(it.scene.RemoveSprite(sprite))
	it.Changes.spriteChange()
}

// SpriteLayer reparents a sprite, or the whole selection when given
// SelectionID.
func (it *Interactor) SpriteLayer(sprite, layer scene.Id) {
	if sprite == SelectionID {
		if it.selected != nil {
			it.sceneOption(it.scene.SetSpritesLayer(it.selected, layer))
			it.Changes.spriteSelectedChange()
		}
		return
	}
	it.sceneOption(it.scene.SetSpriteLayer(sprite, layer))
	it.Changes.spriteChange()
}

// SpriteDimension sets one dimension on a sprite or on every selected
// sprite.
func (it *Interactor) SpriteDimension(sprite scene.Id, dim scene.Dimension, value float64) {
	if sprite == SelectionID {
		it.selectionEffect(func(s *scene.Sprite) *scene.Event {
			return s.SetDimension(dim, value)
		})
		return
	}
	if s := it.scene.Sprite(sprite); s != nil {
		it.sceneOption(s.SetDimension(dim, value))
		it.Changes.spriteSelectedChange()
	}
}

func (it *Interactor) SpriteRect(sprite scene.Id, rect scene.Rect) {
	if s := it.scene.Sprite(sprite); s != nil {
		it.sceneOption(s.SetRect(rect))
		it.Changes.spriteChange()
	}
}

func (it *Interactor) SpriteTexture(sprite, texture scene.Id) {
	if s := it.scene.Sprite(sprite); s != nil {
		it.sceneOption(s.SetTexture(texture))
		it.Changes.spriteSelectedChange()
	}
}

// Sprite exposes a sprite for read-only rendering queries.
func (it *Interactor) Sprite(id scene.Id) *scene.Sprite {
	return it.scene.Sprite(id)
}

// SelectedID reports the single selected sprite, or SelectionID when the
// selection holds several.
func (it *Interactor) SelectedID() (scene.Id, bool) {
	switch len(it.selected) {
	case 0:
		return 0, false
	case 1:
		return it.selected[0], true
	default:
		return SelectionID, true
	}
}

// SelectedDetails folds the selection into a details panel view, clearing
// fields the selected sprites disagree on.
func (it *Interactor) SelectedDetails() (SpriteDetails, bool) {
	id, ok := it.SelectedID()
	if !ok {
		return SpriteDetails{}, false
	}

	if id != SelectionID {
		s := it.scene.Sprite(id)
		if s == nil {
			return SpriteDetails{}, false
		}
		return detailsFrom(id, s), true
	}

	first := it.scene.Sprite(it.selected[0])
	if first == nil {
		return SpriteDetails{}, false
	}
	details := detailsFrom(id, first)
	for _, sel := range it.selected[1:] {
		if s := it.scene.Sprite(sel); s != nil {
			details.common(s)
		}
	}
	return details, true
}
