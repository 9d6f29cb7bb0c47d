package scene

import "testing"

func layerZs(s *Scene) []int {
	zs := make([]int, 0, len(s.Layers))
	for _, l := range s.Layers {
		zs = append(zs, l.Z)
	}
	return zs
}

func requireZs(t *testing.T, s *Scene, want ...int) {
	t.Helper()
	got := layerZs(s)
	if len(got) != len(want) {
		t.Fatalf("expected %d layers, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected z order %v, got %v", want, got)
		}
	}
}

// requireContiguous asserts the z invariant: foreground layers occupy
// {0..f-1} and background layers {-k..-1}, ordered top-first.
func requireContiguous(t *testing.T, s *Scene) {
	t.Helper()
	split := len(s.Layers)
	for i, l := range s.Layers {
		if l.Z < 0 {
			split = i
			break
		}
	}
	for i, l := range s.Layers[:split] {
		if want := split - 1 - i; l.Z != want {
			t.Fatalf("foreground layer %d has z %d, want %d (all: %v)", i, l.Z, want, layerZs(s))
		}
	}
	for i, l := range s.Layers[split:] {
		if want := -1 - i; l.Z != want {
			t.Fatalf("background layer %d has z %d, want %d (all: %v)", i, l.Z, want, layerZs(s))
		}
	}
}

// spawnSprite creates a canonical sprite on the top layer of a canon scene
// and returns it.
func spawnSprite(t *testing.T, s *Scene, texture Id) *Sprite {
	t.Helper()
	ev := s.NewSprite(texture, s.Layers[0].LocalID)
	if ev == nil || ev.Kind != EventSpriteNew {
		t.Fatalf("expected sprite_new event, got %+v", ev)
	}
	sprite := s.Sprite(ev.SpriteNew.Sprite.LocalID)
	if sprite == nil || sprite.Canonical == nil {
		t.Fatalf("spawned sprite missing or without canonical id")
	}
	return sprite
}

func TestDefaultLayerStack(t *testing.T) {
	s := NewCanonScene(NewAllocator())

	requireZs(t, s, 0, -1, -2)
	for _, l := range s.Layers {
		if l.Canonical == nil {
			t.Fatalf("canon scene layer %q missing canonical id", l.Title)
		}
		if *l.Canonical != l.LocalID {
			t.Fatalf("canon scene layer %q canonical %d != local %d", l.Title, *l.Canonical, l.LocalID)
		}
	}
	if !s.Layers[0].Visible || s.Layers[0].Locked {
		t.Fatalf("fresh layers should be visible and unlocked")
	}
}

func TestSortLayersRenormalizes(t *testing.T) {
	alloc := NewAllocator()
	s := NewSceneWithLayers(alloc, []*Layer{
		NewLayer(alloc, "a", 5),
		NewLayer(alloc, "b", 2),
		NewLayer(alloc, "c", -3),
		NewLayer(alloc, "d", -7),
	})

	requireZs(t, s, 1, 0, -1, -2)
	requireContiguous(t, s)
}

func TestMoveLayer(t *testing.T) {
	t.Run("swap within side", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		scenery := s.Layers[1]

		ev := s.MoveLayer(scenery.LocalID, false)
		if ev == nil || ev.Kind != EventLayerMove {
			t.Fatalf("expected layer_move event, got %+v", ev)
		}
		if ev.LayerMove.StartingZ != -1 || ev.LayerMove.Up {
			t.Fatalf("unexpected payload %+v", ev.LayerMove)
		}
		if s.Layers[2] != scenery {
			t.Fatalf("expected scenery at the bottom")
		}
		requireContiguous(t, s)
	})

	t.Run("cross boundary up", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		scenery := s.Layers[1]

		if ev := s.MoveLayer(scenery.LocalID, true); ev == nil {
			t.Fatalf("expected event for boundary crossing")
		}
		if scenery.Z != 0 {
			t.Fatalf("expected scenery at z 0, got %d", scenery.Z)
		}
		requireZs(t, s, 1, 0, -1)
		requireContiguous(t, s)
	})

	t.Run("top of foreground is a dead end", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		if ev := s.MoveLayer(s.Layers[0].LocalID, true); ev != nil {
			t.Fatalf("expected nil event, got %+v", ev)
		}
	})

	t.Run("extreme crossing onto empty side", func(t *testing.T) {
		alloc := NewAllocator()
		s := NewSceneWithLayers(alloc, []*Layer{
			NewLayer(alloc, "a", -1),
			NewLayer(alloc, "b", -2),
		})

		top := s.Layers[0]
		if ev := s.MoveLayer(top.LocalID, true); ev == nil {
			t.Fatalf("expected event for crossing to foreground")
		}
		if top.Z != 0 {
			t.Fatalf("expected z 0, got %d", top.Z)
		}
		requireContiguous(t, s)
	})

	t.Run("contiguity survives a walk", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		bottom := s.Layers[2]
		for i := 0; i < 4; i++ {
			s.MoveLayer(bottom.LocalID, true)
			requireContiguous(t, s)
		}
		for i := 0; i < 4; i++ {
			s.MoveLayer(bottom.LocalID, false)
			requireContiguous(t, s)
		}
	})
}

func TestLayerMoveConflict(t *testing.T) {
	s := NewCanonScene(NewAllocator())
	scenery := s.Layers[1]

	stale := &Event{
		Kind:      EventLayerMove,
		LayerMove: &LayerMovePayload{ID: *scenery.Canonical, StartingZ: -2, Up: true},
	}
	if ack := s.ApplyEvent(stale); ack.Approved() {
		t.Fatalf("expected rejection for stale starting z")
	}
	if scenery.Z != -1 {
		t.Fatalf("rejected move mutated state: z %d", scenery.Z)
	}

	fresh := &Event{
		Kind:      EventLayerMove,
		LayerMove: &LayerMovePayload{ID: *scenery.Canonical, StartingZ: -1, Up: true},
	}
	if ack := s.ApplyEvent(fresh); !ack.Approved() {
		t.Fatalf("expected approval, got %+v", ack)
	}
	if scenery.Z != 0 {
		t.Fatalf("expected z 0 after move, got %d", scenery.Z)
	}
}

func TestLayerRenameConflict(t *testing.T) {
	s := NewCanonScene(NewAllocator())
	top := s.Layers[0]

	stale := &Event{
		Kind:        EventLayerRename,
		LayerRename: &LayerRenamePayload{ID: *top.Canonical, OldTitle: "Wrong", NewTitle: "Tokens"},
	}
	if ack := s.ApplyEvent(stale); ack.Approved() {
		t.Fatalf("expected rejection for stale title")
	}
	if top.Title != "Foreground" {
		t.Fatalf("rejected rename mutated title to %q", top.Title)
	}

	fresh := &Event{
		Kind:        EventLayerRename,
		LayerRename: &LayerRenamePayload{ID: *top.Canonical, OldTitle: "Foreground", NewTitle: "Tokens"},
	}
	if ack := s.ApplyEvent(fresh); !ack.Approved() {
		t.Fatalf("expected approval, got %+v", ack)
	}
	if top.Title != "Tokens" {
		t.Fatalf("expected title Tokens, got %q", top.Title)
	}
}

func TestLayerNewCanonicalMinting(t *testing.T) {
	server := NewCanonScene(NewAllocator())

	ack := server.ApplyEvent(&Event{
		Kind:     EventLayerNew,
		LayerNew: &LayerNewPayload{ID: 999, Title: "Props", Z: 1},
	})
	if ack.Kind != AckLayerNew {
		t.Fatalf("expected layer_new ack, got %+v", ack)
	}
	if ack.LocalID != 999 {
		t.Fatalf("ack should echo the requester's local id, got %d", ack.LocalID)
	}
	if ack.Canonical == nil {
		t.Fatalf("authority must mint a canonical id")
	}
	created := server.LayerCanonical(*ack.Canonical)
	if created == nil || created.LocalID != *ack.Canonical {
		t.Fatalf("authority layer should self-canonicalise")
	}

	t.Run("replica adopts canonical id", func(t *testing.T) {
		replica := NewScene(NewAllocator())
		rewritten := &Event{
			Kind:     EventLayerNew,
			LayerNew: &LayerNewPayload{ID: *ack.Canonical, Title: "Props", Z: 1},
		}
		if a := replica.ApplyEvent(rewritten); !a.Approved() {
			t.Fatalf("expected approval on replica, got %+v", a)
		}
		if replica.LayerCanonical(*ack.Canonical) == nil {
			t.Fatalf("replica did not adopt canonical id %d", *ack.Canonical)
		}

		if a := replica.ApplyEvent(rewritten); a.Approved() {
			t.Fatalf("replaying a creation must be rejected")
		}
	})
}

func TestSpriteNewLifecycle(t *testing.T) {
	serverAlloc := NewAllocator()
	server := NewCanonScene(serverAlloc)

	clientAlloc := NewAllocator()
	client := server.NonCanon()
	client.RefreshLocalIDs(clientAlloc)

	layer := client.Layers[0]
	ev := client.NewSprite(7, layer.LocalID)
	if ev == nil || ev.Kind != EventSpriteNew {
		t.Fatalf("expected sprite_new event, got %+v", ev)
	}
	if ev.SpriteNew.Sprite.Canonical != nil {
		t.Fatalf("speculative creation must not carry a canonical id")
	}
	localID := ev.SpriteNew.Sprite.LocalID

	other := server.NonCanon()
	ack := server.ApplyEvent(ev)
	if ack.Kind != AckSpriteNew || ack.Canonical == nil {
		t.Fatalf("expected sprite_new ack with canonical id, got %+v", ack)
	}
	if ack.LocalID != localID {
		t.Fatalf("ack local id %d, want %d", ack.LocalID, localID)
	}

	client.ApplyAck(ack)
	sprite := client.Sprite(localID)
	if sprite == nil || sprite.Canonical == nil || *sprite.Canonical != *ack.Canonical {
		t.Fatalf("client sprite did not bind canonical id")
	}

	t.Run("rebroadcast adopts and replays reject", func(t *testing.T) {
		rewritten := Canonicalize(ev, ack)
		if rewritten.SpriteNew.Sprite.Canonical == nil {
			t.Fatalf("canonicalised event should carry the assigned id")
		}
		if ev.SpriteNew.Sprite.Canonical != nil {
			t.Fatalf("canonicalise must not mutate the original event")
		}

		other.RefreshLocalIDs(NewAllocator())
		if a := other.ApplyEvent(rewritten); !a.Approved() {
			t.Fatalf("expected approval on second replica, got %+v", a)
		}
		if other.SpriteCanonical(*ack.Canonical) == nil {
			t.Fatalf("second replica missing adopted sprite")
		}
		if a := other.ApplyEvent(rewritten); a.Approved() {
			t.Fatalf("duplicate creation must be rejected")
		}
	})
}

func TestSpriteMoveOptimisticLock(t *testing.T) {
	server := NewCanonScene(NewAllocator())
	sprite := spawnSprite(t, server, 3)
	id := *sprite.Canonical
	origin := sprite.Rect
	moved := Rect{X: 4, Y: 5, W: 1, H: 1}

	t.Run("authority enforces the from rect", func(t *testing.T) {
		stale := SpriteMoveEvent(id, Rect{X: 9, Y: 9, W: 1, H: 1}, moved)
		if ack := server.ApplyEvent(stale); ack.Approved() {
			t.Fatalf("expected rejection for stale from rect")
		}
		if sprite.Rect != origin {
			t.Fatalf("rejected move mutated rect to %+v", sprite.Rect)
		}

		if ack := server.ApplyEvent(SpriteMoveEvent(id, origin, moved)); !ack.Approved() {
			t.Fatalf("expected approval for matching from rect")
		}
		if sprite.Rect != moved {
			t.Fatalf("expected rect %+v, got %+v", moved, sprite.Rect)
		}
	})

	t.Run("replica trusts speculative state", func(t *testing.T) {
		replica := server.NonCanon()
		replica.RefreshLocalIDs(NewAllocator())

		elsewhere := Rect{X: 20, Y: 20, W: 1, H: 1}
		mismatched := SpriteMoveEvent(id, Rect{X: 1, Y: 1, W: 1, H: 1}, elsewhere)
		if ack := replica.ApplyEvent(mismatched); !ack.Approved() {
			t.Fatalf("replica must accept moves regardless of from rect")
		}
		if replica.SpriteCanonical(id).Rect != elsewhere {
			t.Fatalf("replica did not apply move")
		}
	})
}

func TestSpriteTextureOptimisticLock(t *testing.T) {
	server := NewCanonScene(NewAllocator())
	sprite := spawnSprite(t, server, 3)
	id := *sprite.Canonical

	stale := &Event{
		Kind:          EventSpriteTexture,
		SpriteTexture: &SpriteTexturePayload{ID: id, Old: 99, New: 5},
	}
	if ack := server.ApplyEvent(stale); ack.Approved() {
		t.Fatalf("expected rejection for stale texture")
	}

	fresh := &Event{
		Kind:          EventSpriteTexture,
		SpriteTexture: &SpriteTexturePayload{ID: id, Old: 3, New: 5},
	}
	if ack := server.ApplyEvent(fresh); !ack.Approved() {
		t.Fatalf("expected approval, got %+v", ack)
	}
	if sprite.Texture != 5 {
		t.Fatalf("expected texture 5, got %d", sprite.Texture)
	}
}

func TestUnwindRoundTrip(t *testing.T) {
	t.Run("sprite move", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		sprite := spawnSprite(t, s, 1)
		origin := sprite.Rect

		ev := sprite.SetRect(Rect{X: 3, Y: 4, W: 2, H: 2})
		if ev == nil {
			t.Fatalf("expected move event")
		}

		inverse := s.UnwindEvent(ev)
		if sprite.Rect != origin {
			t.Fatalf("unwind did not restore rect, got %+v", sprite.Rect)
		}
		if inverse == nil || inverse.Kind != EventSpriteMove {
			t.Fatalf("expected inverse move event, got %+v", inverse)
		}

		s.UnwindEvent(inverse)
		if (sprite.Rect != Rect{X: 3, Y: 4, W: 2, H: 2}) {
			t.Fatalf("redo did not reapply move, got %+v", sprite.Rect)
		}
	})

	t.Run("layer rename", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		top := s.Layers[0]

		ev := top.Rename("Tokens")
		inverse := s.UnwindEvent(ev)
		if top.Title != "Foreground" {
			t.Fatalf("unwind did not restore title, got %q", top.Title)
		}
		if inverse == nil || inverse.LayerRename.NewTitle != "Foreground" {
			t.Fatalf("unexpected inverse %+v", inverse)
		}

		s.UnwindEvent(inverse)
		if top.Title != "Tokens" {
			t.Fatalf("redo did not reapply rename, got %q", top.Title)
		}
	})

	t.Run("layer visibility", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		top := s.Layers[0]

		ev := top.SetVisible(false)
		if inverse := s.UnwindEvent(ev); inverse == nil || !top.Visible {
			t.Fatalf("unwind did not restore visibility")
		}
	})

	t.Run("layer removal tombstones and restores", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		scenery := s.Layers[1]
		canonical := *scenery.Canonical

		ev := s.RemoveLayer(scenery.LocalID)
		if ev == nil || ev.Kind != EventLayerRemove {
			t.Fatalf("expected layer_remove, got %+v", ev)
		}
		if len(s.Layers) != 2 || len(s.RemovedLayers) != 1 {
			t.Fatalf("expected tombstoned layer, layers=%d removed=%d", len(s.Layers), len(s.RemovedLayers))
		}

		inverse := s.UnwindEvent(ev)
		if inverse == nil || inverse.Kind != EventLayerRestore {
			t.Fatalf("expected layer_restore inverse, got %+v", inverse)
		}
		restored := s.LayerCanonical(canonical)
		if restored != scenery {
			t.Fatalf("restore must revive the same layer with its canonical id")
		}
		if len(s.RemovedLayers) != 0 {
			t.Fatalf("tombstone not cleared on restore")
		}

		if redo := s.UnwindEvent(inverse); redo == nil || redo.Kind != EventLayerRemove {
			t.Fatalf("expected removal on redo, got %+v", redo)
		}
	})

	t.Run("sprite removal preserves canonical id", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		sprite := spawnSprite(t, s, 2)
		canonical := *sprite.Canonical

		ev := s.RemoveSprite(sprite.LocalID)
		if ev == nil || ev.Kind != EventSpriteRemove {
			t.Fatalf("expected sprite_remove, got %+v", ev)
		}
		if s.SpriteCanonical(canonical) != nil {
			t.Fatalf("sprite still present after removal")
		}

		inverse := s.UnwindEvent(ev)
		if inverse == nil || inverse.Kind != EventSpriteNew {
			t.Fatalf("expected sprite_new inverse, got %+v", inverse)
		}
		revived := s.SpriteCanonical(canonical)
		if revived == nil {
			t.Fatalf("unwind did not revive sprite with canonical id %d", canonical)
		}
	})

	t.Run("sprite reparent", func(t *testing.T) {
		s := NewCanonScene(NewAllocator())
		sprite := spawnSprite(t, s, 2)
		from := s.Layers[0]
		to := s.Layers[1]

		ev := s.SetSpriteLayer(sprite.LocalID, to.LocalID)
		if ev == nil || ev.Kind != EventSpriteLayer {
			t.Fatalf("expected sprite_layer, got %+v", ev)
		}
		if to.Sprite(sprite.LocalID) == nil {
			t.Fatalf("sprite not moved to target layer")
		}

		if inverse := s.UnwindEvent(ev); inverse == nil || from.Sprite(sprite.LocalID) == nil {
			t.Fatalf("unwind did not return sprite to original layer")
		}
	})
}

func TestEventSetAtomic(t *testing.T) {
	s := NewCanonScene(NewAllocator())
	top := s.Layers[0]
	scenery := s.Layers[1]

	set := SetEvent([]Event{
		{
			Kind:        EventLayerRename,
			LayerRename: &LayerRenamePayload{ID: *top.Canonical, OldTitle: "Foreground", NewTitle: "Tokens"},
		},
		{
			Kind:        EventLayerRename,
			LayerRename: &LayerRenamePayload{ID: *scenery.Canonical, OldTitle: "Wrong", NewTitle: "Props"},
		},
	})
	if set.Kind != EventSet {
		t.Fatalf("expected event_set, got %s", set.Kind)
	}

	if ack := s.ApplyEvent(set); ack.Approved() {
		t.Fatalf("expected rejection when a member fails")
	}
	if top.Title != "Foreground" {
		t.Fatalf("failed set left partial state: top title %q", top.Title)
	}

	ok := SetEvent([]Event{
		{
			Kind:        EventLayerRename,
			LayerRename: &LayerRenamePayload{ID: *top.Canonical, OldTitle: "Foreground", NewTitle: "Tokens"},
		},
		{
			Kind:        EventLayerRename,
			LayerRename: &LayerRenamePayload{ID: *scenery.Canonical, OldTitle: "Scenery", NewTitle: "Props"},
		},
	})
	if ack := s.ApplyEvent(ok); !ack.Approved() {
		t.Fatalf("expected approval, got %+v", ack)
	}
	if top.Title != "Tokens" || scenery.Title != "Props" {
		t.Fatalf("set did not apply both members: %q %q", top.Title, scenery.Title)
	}
}

func TestSpriteLookupRespectsLayerFlags(t *testing.T) {
	s := NewCanonScene(NewAllocator())
	sprite := spawnSprite(t, s, 1)
	at := sprite.Rect.TopLeft().Add(Point{X: 0.5, Y: 0.5})

	if s.SpriteAt(at) != sprite {
		t.Fatalf("expected sprite under point")
	}

	s.Layers[0].SetLocked(true)
	if s.SpriteAt(at) != nil {
		t.Fatalf("locked layer must not yield sprites")
	}
	if ids := s.SpritesIn(Rect{X: -1, Y: -1, W: 50, H: 50}, false); len(ids) != 0 {
		t.Fatalf("locked layer must not contribute to region selection, got %v", ids)
	}

	s.Layers[0].SetLocked(false)
	s.Layers[0].SetVisible(false)
	if s.SpriteAt(at) != nil {
		t.Fatalf("hidden layer must not yield sprites")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	server := NewCanonScene(NewAllocator())
	server.Title = "Crypt"
	sprite := spawnSprite(t, server, 6)
	spriteCanonical := *sprite.Canonical

	data, err := server.Export()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	alloc := NewAllocator()
	imported, err := ImportScene(data, alloc)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if imported.Title != "Crypt" {
		t.Fatalf("expected title Crypt, got %q", imported.Title)
	}
	requireZs(t, imported, 0, -1, -2)

	revived := imported.SpriteCanonical(spriteCanonical)
	if revived == nil {
		t.Fatalf("imported scene missing sprite with canonical id %d", spriteCanonical)
	}
	if revived.LocalID == sprite.LocalID {
		t.Fatalf("imported local ids must be re-minted")
	}
	for _, l := range imported.Layers {
		if l.Canonical == nil {
			t.Fatalf("import dropped canonical id on layer %q", l.Title)
		}
	}
}

func TestImportReservesCanonicalIDs(t *testing.T) {
	server := NewCanonScene(NewAllocator())
	sprites := make([]*Sprite, 0, 6)
	for i := 0; i < 6; i++ {
		sprites = append(sprites, spawnSprite(t, server, Id(i+1)))
	}
	survivor := *sprites[len(sprites)-1].Canonical
	for _, sp := range sprites[:len(sprites)-1] {
		server.RemoveSprite(sp.LocalID)
	}

	data, err := server.Export()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	imported, err := ImportScene(data, NewAllocator())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	imported.Canon = true

	highest := Id(0)
	for _, l := range imported.Layers {
		if l.Canonical != nil && *l.Canonical > highest {
			highest = *l.Canonical
		}
		for _, sp := range l.Sprites {
			if sp.Canonical != nil && *sp.Canonical > highest {
				highest = *sp.Canonical
			}
		}
	}
	if highest < survivor {
		t.Fatalf("setup lost sprite with canonical id %d", survivor)
	}

	created := spawnSprite(t, imported, 9)
	if *created.Canonical <= highest {
		t.Fatalf("fresh creation minted canonical id %d, already held by an imported object (max %d)", *created.Canonical, highest)
	}
	if got := imported.SpriteCanonical(survivor); got == nil || got == created {
		t.Fatalf("imported sprite with canonical id %d shadowed by fresh creation", survivor)
	}
}

func TestEventSetRollsBackCreations(t *testing.T) {
	s := NewCanonScene(NewAllocator())
	sprite := spawnSprite(t, s, 1)
	layerCanonical := *s.Layers[0].Canonical
	spritesBefore := len(s.Layers[0].Sprites)
	layersBefore := len(s.Layers)

	// The requester's local ids come from its own allocator; the authority
	// mints different ones when it applies the creations.
	requester := NewAllocator()
	pending := NewSprite(requester, 7)
	set := SetEvent([]Event{
		{Kind: EventSpriteNew, SpriteNew: &SpritePayload{Sprite: *pending, Layer: layerCanonical}},
		{Kind: EventLayerNew, LayerNew: &LayerNewPayload{ID: requester.Next(), Title: "Props", Z: 1}},
		*SpriteMoveEvent(*sprite.Canonical, Rect{X: 5, Y: 5, W: 1, H: 1}, Rect{X: 6, Y: 5, W: 1, H: 1}),
	})

	if ack := s.ApplyEvent(set); ack.Approved() {
		t.Fatalf("expected rejection for stale move in set")
	}
	if got := len(s.Layers[0].Sprites); got != spritesBefore {
		t.Fatalf("rejected set leaked sprites: %d, want %d", got, spritesBefore)
	}
	if got := len(s.Layers); got != layersBefore {
		t.Fatalf("rejected set leaked layers: %d, want %d", got, layersBefore)
	}
	if sprite.Rect != (Rect{X: 0, Y: 0, W: 1, H: 1}) {
		t.Fatalf("rejected set moved sprite to %+v", sprite.Rect)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, err := ImportScene([]byte("{nope"), NewAllocator()); err == nil {
		t.Fatalf("expected error for malformed snapshot")
	}
}
