// Package proto defines the JSON messages exchanged between clients and
// the hub. Messages are versioned so mismatched builds fail loudly instead
// of misinterpreting payloads.
package proto

import (
	"encoding/json"
	"fmt"

	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
)

// Version is bumped whenever the message layout changes incompatibly.
const Version = 1

// Client message types.
const (
	ClientUpdate    = "update"
	ClientHeartbeat = "heartbeat"
)

// Server event types.
const (
	ServerApproval    = "approval"
	ServerRejection   = "rejection"
	ServerSceneUpdate = "sceneUpdate"
	ServerSceneChange = "sceneChange"
	ServerPermsChange = "permsChange"
	ServerPermsUpdate = "permsUpdate"
	ServerUserID      = "userId"
	ServerHeartbeat   = "heartbeat"
)

// ClientMessage is a speculative edit (or heartbeat) sent to the hub. ID is
// the client's monotonic request id; every update is acknowledged by a
// server event carrying the same id.
type ClientMessage struct {
	Ver    int          `json:"ver"`
	ID     int64        `json:"id"`
	Type   string       `json:"type"`
	Event  *scene.Event `json:"event,omitempty"`
	SentAt int64        `json:"sentAt,omitempty"`
}

// ServerEvent is anything the hub pushes to a client: acknowledgements for
// that client's own requests, rebroadcast updates from peers, wholesale
// scene or permission replacements, and the session's user id.
type ServerEvent struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	ID         int64        `json:"id,omitempty"`
	Event      *scene.Event `json:"event,omitempty"`
	Ack        *scene.Ack   `json:"ack,omitempty"`
	Scene      *scene.Scene `json:"scene,omitempty"`
	Perms      *perms.Perms `json:"perms,omitempty"`
	PermsEvent *perms.Event `json:"permsEvent,omitempty"`
	UserID     scene.Id     `json:"userId,omitempty"`
	ServerTime int64        `json:"serverTime,omitempty"`
}

// Approval acknowledges request id with the ack the scene produced. The
// ack matters for creations, where it carries the canonical id.
func Approval(id int64, ack scene.Ack) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerApproval, ID: id, Ack: &ack}
}

// Rejection refuses request id; the client unwinds its speculative edit.
func Rejection(id int64) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerRejection, ID: id}
}

// SceneUpdate rebroadcasts an approved, canonicalised event to peers.
func SceneUpdate(e *scene.Event) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerSceneUpdate, Event: e}
}

// SceneChange replaces the client's scene wholesale.
func SceneChange(s *scene.Scene) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerSceneChange, Scene: s}
}

// PermsChange replaces the client's permission table wholesale.
func PermsChange(p *perms.Perms) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerPermsChange, Perms: p}
}

// PermsUpdate applies a single role reassignment.
func PermsUpdate(e perms.Event) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerPermsUpdate, PermsEvent: &e}
}

// UserID tells a freshly joined client who it is.
func UserID(id scene.Id) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerUserID, UserID: id}
}

// Heartbeat answers a client heartbeat with the server clock.
func Heartbeat(serverTime int64) ServerEvent {
	return ServerEvent{Ver: Version, Type: ServerHeartbeat, ServerTime: serverTime}
}

// Update wraps a scene event as a client request.
func Update(id int64, e *scene.Event, sentAt int64) ClientMessage {
	return ClientMessage{Ver: Version, ID: id, Type: ClientUpdate, Event: e, SentAt: sentAt}
}

// EncodeClientMessage serialises a client message for the wire.
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode client message: %w", err)
	}
	return data, nil
}

// DecodeClientMessage parses a client frame and checks the version.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if m.Ver != Version {
		return ClientMessage{}, fmt.Errorf("client message version %d, want %d", m.Ver, Version)
	}
	return m, nil
}

// EncodeServerEvent serialises a server event for the wire.
func EncodeServerEvent(e ServerEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode server event: %w", err)
	}
	return data, nil
}

// DecodeServerEvent parses a server frame and checks the version.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var e ServerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ServerEvent{}, fmt.Errorf("decode server event: %w", err)
	}
	if e.Ver != Version {
		return ServerEvent{}, fmt.Errorf("server event version %d, want %d", e.Ver, Version)
	}
	return e, nil
}
