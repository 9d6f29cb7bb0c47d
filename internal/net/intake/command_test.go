package intake

import (
	"testing"
	"time"

	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/scene"
)

func stageCtx(known bool) EventContext {
	return EventContext{
		HasUser: func(scene.Id) bool { return known },
		Now:     func() time.Time { return time.Unix(100, 0) },
	}
}

func TestStageSceneEvent(t *testing.T) {
	move := scene.SpriteMoveEvent(1, scene.Rect{W: 1, H: 1}, scene.Rect{X: 1, W: 1, H: 1})

	t.Run("accepts a valid update", func(t *testing.T) {
		staged, ok, reason := StageSceneEvent(stageCtx(true), 7, proto.Update(3, move, 0))
		if !ok || reason != "" {
			t.Fatalf("expected acceptance, got reason %q", reason)
		}
		if staged.UserID != 7 || staged.RequestID != 3 || staged.Event != move {
			t.Fatalf("unexpected staged event %+v", staged)
		}
		if !staged.ReceivedAt.Equal(time.Unix(100, 0)) {
			t.Fatalf("staging must stamp receipt time")
		}
	})

	t.Run("rejects heartbeats and bare messages", func(t *testing.T) {
		msg := proto.ClientMessage{Ver: proto.Version, Type: proto.ClientHeartbeat}
		if _, ok, reason := StageSceneEvent(stageCtx(true), 7, msg); ok || reason != RejectInvalidMessage {
			t.Fatalf("expected %s, got %q", RejectInvalidMessage, reason)
		}
		if _, ok, _ := StageSceneEvent(stageCtx(true), 7, proto.Update(1, nil, 0)); ok {
			t.Fatalf("expected rejection for nil event")
		}
	})

	t.Run("rejects kind and payload mismatches", func(t *testing.T) {
		bad := &scene.Event{Kind: scene.EventSpriteMove}
		if _, ok, reason := StageSceneEvent(stageCtx(true), 7, proto.Update(1, bad, 0)); ok || reason != RejectInvalidEvent {
			t.Fatalf("expected %s, got %q", RejectInvalidEvent, reason)
		}
		unknown := &scene.Event{Kind: "teleport"}
		if _, ok, _ := StageSceneEvent(stageCtx(true), 7, proto.Update(1, unknown, 0)); ok {
			t.Fatalf("expected rejection for unknown kind")
		}
	})

	t.Run("rejects empty and rotten sets", func(t *testing.T) {
		empty := &scene.Event{Kind: scene.EventSet}
		if _, ok, _ := StageSceneEvent(stageCtx(true), 7, proto.Update(1, empty, 0)); ok {
			t.Fatalf("expected rejection for empty set")
		}
		rotten := &scene.Event{Kind: scene.EventSet, Set: []scene.Event{*move, {Kind: scene.EventLayerRename}}}
		if _, ok, reason := StageSceneEvent(stageCtx(true), 7, proto.Update(1, rotten, 0)); ok || reason != RejectInvalidEvent {
			t.Fatalf("expected %s, got %q", RejectInvalidEvent, reason)
		}
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		if _, ok, reason := StageSceneEvent(stageCtx(false), 7, proto.Update(1, move, 0)); ok || reason != RejectUnknownUser {
			t.Fatalf("expected %s, got %q", RejectUnknownUser, reason)
		}
	})
}
