package server

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableslate/server/internal/journal"
	"tableslate/server/internal/net/intake"
	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
	"tableslate/server/logging"
	"tableslate/server/logging/mutation"
	sessionlog "tableslate/server/logging/session"
)

// Reject reasons the hub adds on top of the staging ones.
const (
	RejectForbidden = "forbidden"
	RejectConflict  = "conflict"
)

// Sink delivers server events to one connected client. The websocket
// session implements it; tests substitute an in-memory recorder.
type Sink interface {
	Send(proto.ServerEvent) error
	Close() error
}

// Subscriber is one live connection. A user may hold several at once, for
// example a lost connection lingering until its heartbeat times out while
// a replacement is already live.
type Subscriber struct {
	ID     uuid.UUID
	UserID scene.Id

	sink Sink

	mu            sync.Mutex
	lastRequest   int64
	lastHeartbeat time.Time
	rtt           time.Duration
}

func (s *Subscriber) send(ev proto.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Send(ev)
}

// RTT reports the latency measured by the last heartbeat exchange.
func (s *Subscriber) RTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtt
}

// Hub owns the canonical scene. Every speculative edit from every client
// funnels through ProcessMessage, which validates it against the live
// scene state and either approves it (journal append plus rebroadcast to
// peers) or rejects it (the originator unwinds).
type Hub struct {
	mu            sync.Mutex
	cfg           Config
	alloc         *scene.Allocator
	scene         *scene.Scene
	perms         *perms.Perms
	journal       journal.Journal
	publisher     logging.Publisher
	subscribers   map[uuid.UUID]*Subscriber
	names         map[scene.Id]string
	nextUser      scene.Id
	sinceKeyframe uint64
}

// NewHub creates a hub around a fresh canonical scene.
func NewHub(cfg Config, publisher logging.Publisher) *Hub {
	cfg = cfg.normalized()
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	alloc := scene.NewAllocator()
	return &Hub{
		cfg:         cfg,
		alloc:       alloc,
		scene:       scene.NewCanonScene(alloc),
		perms:       perms.New(),
		journal:     journal.New(cfg.KeyframeCapacity, cfg.KeyframeMaxAge),
		publisher:   publisher,
		subscribers: make(map[uuid.UUID]*Subscriber),
		names:       make(map[scene.Id]string),
		nextUser:    perms.CanonicalUpdater + 1,
	}
}

// AttachTelemetry wires journal drop counters into the metrics sink.
func (h *Hub) AttachTelemetry(t journal.Telemetry) {
	h.journal.AttachTelemetry(t)
}

// Join mints a user id and grants the default role. The first user to
// join owns the table.
func (h *Hub) Join(ctx context.Context, name string) (scene.Id, perms.Role) {
	h.mu.Lock()
	id := h.nextUser
	h.nextUser++
	role := h.cfg.DefaultRole
	if len(h.perms.Roles) == 0 {
		role = perms.RoleOwner
	}
	h.perms.SetRole(id, role)
	h.names[id] = name
	seq := h.journal.Sequence()
	h.mu.Unlock()

	sessionlog.UserJoined(ctx, h.publisher, seq, userRef(id),
		sessionlog.UserJoinedPayload{Role: string(role)},
		map[string]any{"name": name})

	h.broadcast(uuid.Nil, proto.PermsUpdate(perms.Event{User: id, Role: role}))
	return id, role
}

// UserName reports the display name registered at join time.
func (h *Hub) UserName(id scene.Id) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.names[id]
	return name, ok
}

// Subscribe attaches a sink for a joined user and primes it with the
// session's identity, the full scene, and the permission table.
func (h *Hub) Subscribe(userID scene.Id, sink Sink) (*Subscriber, bool) {
	h.mu.Lock()
	if _, ok := h.names[userID]; !ok {
		h.mu.Unlock()
		return nil, false
	}
	sub := &Subscriber{
		ID:            uuid.New(),
		UserID:        userID,
		sink:          sink,
		lastHeartbeat: time.Now(),
	}
	h.subscribers[sub.ID] = sub
	snapshot := h.scene.Clone()
	table := h.permsSnapshotLocked()

	// Priming happens under h.mu: once the subscriber is in the map a
	// concurrent apply would otherwise rebroadcast ahead of the snapshot.
	var primeErr error
	for _, ev := range []proto.ServerEvent{
		proto.UserID(userID),
		proto.SceneChange(snapshot),
		proto.PermsChange(table),
	} {
		if primeErr = sub.send(ev); primeErr != nil {
			break
		}
	}
	h.mu.Unlock()

	if primeErr != nil {
		h.Disconnect(context.Background(), sub.ID, "write_failed")
		return nil, false
	}
	return sub, true
}

// Disconnect drops a subscriber and closes its sink. The user keeps its
// role; reconnecting resumes with a fresh Subscribe.
func (h *Hub) Disconnect(ctx context.Context, id uuid.UUID, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	seq := h.journal.Sequence()
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.sink.Close()
	sessionlog.UserDisconnected(ctx, h.publisher, seq, userRef(sub.UserID),
		sessionlog.UserDisconnectedPayload{Reason: reason}, nil)
}

// PruneStale disconnects subscribers whose heartbeat went silent.
func (h *Hub) PruneStale(ctx context.Context, now time.Time) int {
	h.mu.Lock()
	var stale []uuid.UUID
	for id, sub := range h.subscribers {
		sub.mu.Lock()
		silent := now.Sub(sub.lastHeartbeat) > h.cfg.HeartbeatTimeout
		sub.mu.Unlock()
		if silent {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()
	for _, id := range stale {
		h.Disconnect(ctx, id, "heartbeat_timeout")
	}
	return len(stale)
}

// ProcessMessage handles one decoded client message. Heartbeats are
// answered immediately; updates run the full validation pipeline.
func (h *Hub) ProcessMessage(ctx context.Context, sub *Subscriber, msg proto.ClientMessage) {
	switch msg.Type {
	case proto.ClientHeartbeat:
		h.handleHeartbeat(sub, msg)
	case proto.ClientUpdate:
		h.handleUpdate(ctx, sub, msg)
	}
}

func (h *Hub) handleHeartbeat(sub *Subscriber, msg proto.ClientMessage) {
	now := time.Now()
	sub.mu.Lock()
	sub.lastHeartbeat = now
	if msg.SentAt > 0 {
		if rtt := now.UnixMilli() - msg.SentAt; rtt >= 0 {
			sub.rtt = time.Duration(rtt) * time.Millisecond
		}
	}
	sub.mu.Unlock()
	sub.send(proto.Heartbeat(now.UnixMilli()))
}

func (h *Hub) handleUpdate(ctx context.Context, sub *Subscriber, msg proto.ClientMessage) {
	staged, ok, reason := intake.StageSceneEvent(intake.EventContext{
		HasUser: h.knownUser,
		Now:     time.Now,
	}, sub.UserID, msg)
	if !ok {
		h.reject(ctx, sub, msg.ID, "", reason)
		return
	}

	h.mu.Lock()
	sub.mu.Lock()
	stale := msg.ID <= sub.lastRequest
	if !stale {
		sub.lastRequest = msg.ID
	}
	sub.mu.Unlock()
	if stale {
		h.journal.NoteStaleRequest()
		h.mu.Unlock()
		return
	}

	if !h.perms.Permitted(staged.UserID, staged.Event, h.scene.EventLayer) {
		h.mu.Unlock()
		h.reject(ctx, sub, msg.ID, string(staged.Event.Kind), RejectForbidden)
		return
	}

	ack := h.scene.ApplyEvent(staged.Event)
	if !ack.Approved() {
		h.mu.Unlock()
		h.reject(ctx, sub, msg.ID, string(staged.Event.Kind), RejectConflict)
		return
	}

	rec := h.journal.Append(staged.UserID, staged.RequestID, *staged.Event)
	h.sinceKeyframe++
	keyframe := h.sinceKeyframe >= h.cfg.KeyframeInterval
	if keyframe {
		h.sinceKeyframe = 0
	}

	// The ack and the rebroadcast leave while the scene lock is still held.
	// Replicas replay rename and reorder events against their own state, so
	// two applies delivered out of order would silently diverge a peer.
	sub.send(proto.Approval(msg.ID, ack))
	failed := h.broadcastLocked(sub.ID, proto.SceneUpdate(scene.Canonicalize(staged.Event, ack)))
	h.mu.Unlock()

	for _, id := range failed {
		h.Disconnect(ctx, id, "write_failed")
	}

	mutation.Applied(ctx, h.publisher, rec.Sequence, userRef(staged.UserID),
		mutation.AppliedPayload{Kind: string(staged.Event.Kind)}, nil)

	if keyframe {
		h.recordKeyframe(ctx)
	}
}

func (h *Hub) reject(ctx context.Context, sub *Subscriber, requestID int64, kind, reason string) {
	h.mu.Lock()
	h.journal.NoteRejection(reason, sub.UserID)
	seq := h.journal.Sequence()
	hint, hinted := h.journal.ConsumeResyncHint()
	h.mu.Unlock()

	mutation.Rejected(ctx, h.publisher, seq, userRef(sub.UserID),
		mutation.RejectedPayload{Kind: kind, Reason: reason}, nil)
	sub.send(proto.Rejection(requestID))

	if hinted {
		h.resync(ctx, hint)
	}
}

// resync pushes a wholesale scene replacement to every user the policy
// implicated. Their speculative state has drifted too far to trust the
// incremental stream.
func (h *Hub) resync(ctx context.Context, hint journal.ResyncSignal) {
	implicated := make(map[scene.Id]bool, len(hint.Reasons))
	for _, r := range hint.Reasons {
		implicated[r.User] = true
	}

	h.mu.Lock()
	snapshot := h.scene.Clone()
	seq := h.journal.Sequence()
	var targets []*Subscriber
	for _, sub := range h.subscribers {
		if implicated[sub.UserID] {
			targets = append(targets, sub)
		}
	}
	h.mu.Unlock()

	ev := proto.SceneChange(snapshot)
	for _, sub := range targets {
		sessionlog.ResyncIssued(ctx, h.publisher, seq, userRef(sub.UserID),
			sessionlog.ResyncPayload{Reason: hint.Summary(), Rejections: int(hint.Rejections)}, nil)
		sub.send(ev)
	}
}

// SetRole routes a role reassignment through the permission gate and, on
// success, rebroadcasts it to every subscriber.
func (h *Hub) SetRole(ctx context.Context, updater scene.Id, e perms.Event) bool {
	h.mu.Lock()
	ok := h.perms.HandleEvent(updater, perms.Event{User: e.User, Role: e.Role})
	h.mu.Unlock()
	if !ok {
		return false
	}
	h.broadcast(uuid.Nil, proto.PermsUpdate(e))
	return true
}

// ReplaceScene installs a new canonical scene and pushes it to everyone.
func (h *Hub) ReplaceScene(ctx context.Context, s *scene.Scene) {
	h.mu.Lock()
	h.scene = s
	h.sinceKeyframe = 0
	snapshot := s.Clone()
	h.mu.Unlock()

	h.broadcast(uuid.Nil, proto.SceneChange(snapshot))
	h.recordKeyframe(ctx)
}

// SceneSnapshot returns an isolated deep copy of the canonical scene.
func (h *Hub) SceneSnapshot() *scene.Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scene.Clone()
}

// ExportScene serialises the canonical scene.
func (h *Hub) ExportScene() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scene.Export()
}

func (h *Hub) recordKeyframe(ctx context.Context) {
	h.mu.Lock()
	data, err := h.scene.Export()
	if err != nil {
		h.mu.Unlock()
		return
	}
	seq := h.journal.Sequence()
	h.journal.RecordKeyframe(journal.Keyframe{
		Sequence:   seq,
		Scene:      data,
		RecordedAt: time.Now(),
	})
	h.mu.Unlock()

	mutation.Keyframe(ctx, h.publisher, seq, mutation.KeyframePayload{Size: len(data)}, nil)
}

// broadcast sends an event to every subscriber except the one named.
// Subscribers whose sink fails are disconnected.
func (h *Hub) broadcast(except uuid.UUID, ev proto.ServerEvent) {
	h.mu.Lock()
	failed := h.broadcastLocked(except, ev)
	h.mu.Unlock()
	for _, id := range failed {
		h.Disconnect(context.Background(), id, "write_failed")
	}
}

// broadcastLocked delivers to every subscriber except the one named while
// the caller holds h.mu, so deliveries happen in the order events were
// applied. Returns the ids whose sink failed; the caller disconnects them
// after releasing the lock.
func (h *Hub) broadcastLocked(except uuid.UUID, ev proto.ServerEvent) []uuid.UUID {
	var failed []uuid.UUID
	for id, sub := range h.subscribers {
		if id == except {
			continue
		}
		if err := sub.send(ev); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

func (h *Hub) knownUser(id scene.Id) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.names[id]
	return ok
}

func (h *Hub) permsSnapshotLocked() *perms.Perms {
	table := perms.New()
	for id, role := range h.perms.Roles {
		table.Roles[id] = role
	}
	return table
}

// Diagnostics is a point-in-time view of hub health for the diagnostics
// endpoint.
type Diagnostics struct {
	Users          int                  `json:"users"`
	Subscribers    int                  `json:"subscribers"`
	Sequence       uint64               `json:"sequence"`
	KeyframeCount  int                  `json:"keyframeCount"`
	KeyframeOldest uint64               `json:"keyframeOldest"`
	KeyframeNewest uint64               `json:"keyframeNewest"`
	Sessions       []SessionDiagnostics `json:"sessions"`
}

// SessionDiagnostics describes one live connection.
type SessionDiagnostics struct {
	User          scene.Id      `json:"user"`
	Name          string        `json:"name"`
	RTT           time.Duration `json:"rtt"`
	LastHeartbeat time.Time     `json:"lastHeartbeat"`
}

// DiagnosticsSnapshot captures hub health under the lock.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()

	size, oldest, newest := h.journal.KeyframeWindow()
	diag := Diagnostics{
		Users:          len(h.names),
		Subscribers:    len(h.subscribers),
		Sequence:       h.journal.Sequence(),
		KeyframeCount:  size,
		KeyframeOldest: oldest,
		KeyframeNewest: newest,
	}
	for _, sub := range h.subscribers {
		sub.mu.Lock()
		diag.Sessions = append(diag.Sessions, SessionDiagnostics{
			User:          sub.UserID,
			Name:          h.names[sub.UserID],
			RTT:           sub.rtt,
			LastHeartbeat: sub.lastHeartbeat,
		})
		sub.mu.Unlock()
	}
	return diag
}

func userRef(id scene.Id) logging.EntityRef {
	return logging.EntityRef{ID: strconv.FormatInt(int64(id), 10), Kind: logging.EntityKindUser}
}
