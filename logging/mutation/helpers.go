package mutation

import (
	"context"

	"tableslate/server/logging"
)

const (
	// EventApplied is emitted when the authority approves a scene event.
	EventApplied logging.EventType = "mutation.applied"
	// EventRejected is emitted when the authority refuses a scene event.
	EventRejected logging.EventType = "mutation.rejected"
	// EventKeyframe is emitted when the journal records a scene keyframe.
	EventKeyframe logging.EventType = "mutation.keyframe"
)

// AppliedPayload captures the approved event's kind and wire size.
type AppliedPayload struct {
	Kind string `json:"kind"`
}

// RejectedPayload captures why an event was refused.
type RejectedPayload struct {
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason"`
}

// KeyframePayload captures keyframe cadence details.
type KeyframePayload struct {
	Size int `json:"size"`
}

// Applied publishes a debug event for an approved mutation.
func Applied(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload AppliedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventApplied,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMutation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Rejected publishes a warning event for a refused mutation.
func Rejected(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload RejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRejected,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMutation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Keyframe publishes a debug event when a keyframe is recorded.
func Keyframe(ctx context.Context, pub logging.Publisher, seq uint64, payload KeyframePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventKeyframe,
		Seq:      seq,
		Actor:    logging.EntityRef{Kind: logging.EntityKindScene},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMutation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
