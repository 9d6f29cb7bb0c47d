// Package intake validates client messages before the hub touches the
// scene. Anything malformed is rejected here with a reason string so the
// hub only ever sees structurally sound events.
package intake

import (
	"time"

	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/scene"
)

// Reject reasons reported back to clients and to the logs.
const (
	RejectInvalidMessage = "invalid_message"
	RejectInvalidEvent   = "invalid_event"
	RejectUnknownUser    = "unknown_user"
)

// EventContext supplies the hub-side lookups staging needs.
type EventContext struct {
	HasUser func(scene.Id) bool
	Now     func() time.Time
}

// StagedEvent is a validated, attributed request ready for the hub.
type StagedEvent struct {
	UserID     scene.Id
	RequestID  int64
	Event      *scene.Event
	ReceivedAt time.Time
}

// StageSceneEvent validates a client update. The returned reason is empty
// exactly when ok is true.
func StageSceneEvent(ctx EventContext, userID scene.Id, msg proto.ClientMessage) (StagedEvent, bool, string) {
	var zero StagedEvent

	if msg.Type != proto.ClientUpdate || msg.Event == nil {
		return zero, false, RejectInvalidMessage
	}
	if !validEvent(msg.Event) {
		return zero, false, RejectInvalidEvent
	}
	if ctx.HasUser != nil && !ctx.HasUser(userID) {
		return zero, false, RejectUnknownUser
	}

	staged := StagedEvent{
		UserID:    userID,
		RequestID: msg.ID,
		Event:     msg.Event,
	}
	if ctx.Now != nil {
		staged.ReceivedAt = ctx.Now()
	} else {
		staged.ReceivedAt = time.Now()
	}
	return staged, true, ""
}

func validEvent(e *scene.Event) bool {
	switch e.Kind {
	case scene.EventDummy:
		return true
	case scene.EventLayerNew:
		return e.LayerNew != nil
	case scene.EventLayerRemove:
		return e.LayerRemove != nil
	case scene.EventLayerRestore:
		return e.LayerRestore != nil
	case scene.EventLayerRename:
		return e.LayerRename != nil
	case scene.EventLayerVisibility:
		return e.LayerVisibility != nil
	case scene.EventLayerLocked:
		return e.LayerLocked != nil
	case scene.EventLayerMove:
		return e.LayerMove != nil
	case scene.EventSpriteNew:
		return e.SpriteNew != nil
	case scene.EventSpriteRemove:
		return e.SpriteRemove != nil
	case scene.EventSpriteMove:
		return e.SpriteMove != nil
	case scene.EventSpriteTexture:
		return e.SpriteTexture != nil
	case scene.EventSpriteLayer:
		return e.SpriteLayer != nil
	case scene.EventSet:
		if len(e.Set) == 0 {
			return false
		}
		for i := range e.Set {
			if !validEvent(&e.Set[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
