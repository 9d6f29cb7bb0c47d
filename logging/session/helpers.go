package session

import (
	"context"

	"tableslate/server/logging"
)

const (
	// EventUserJoined is emitted when a user joins the table.
	EventUserJoined logging.EventType = "session.user_joined"
	// EventUserDisconnected is emitted when a user leaves the table.
	EventUserDisconnected logging.EventType = "session.user_disconnected"
	// EventResyncIssued is emitted when the hub replaces a client's scene wholesale.
	EventResyncIssued logging.EventType = "session.resync_issued"
)

// UserJoinedPayload captures the role a new user was granted.
type UserJoinedPayload struct {
	Role string `json:"role"`
}

// UserDisconnectedPayload captures the reason a user left.
type UserDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// ResyncPayload captures why a resync was pushed.
type ResyncPayload struct {
	Reason     string `json:"reason"`
	Rejections int    `json:"rejections"`
}

// UserJoined publishes a user join event.
func UserJoined(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload UserJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventUserJoined,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// UserDisconnected publishes a user disconnect event.
func UserDisconnected(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload UserDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventUserDisconnected,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ResyncIssued publishes a warning event when rejection pressure forces a
// wholesale scene replacement.
func ResyncIssued(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload ResyncPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventResyncIssued,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySession,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
