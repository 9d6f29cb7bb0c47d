// Package perms is the capability gate for scene mutations. Clients consult
// it before issuing speculative edits; the server consults the same rules as
// the sole enforcement point.
package perms

import "tableslate/server/internal/scene"

// Role orders capabilities from least to most privileged.
type Role string

const (
	// RoleSpectator may observe but never mutate.
	RoleSpectator Role = "spectator"
	// RoleEditor may mutate sprites and toggle layer flags.
	RoleEditor Role = "editor"
	// RoleOwner additionally controls layer structure and other users'
	// roles.
	RoleOwner Role = "owner"
)

// CanonicalUpdater is the reserved user id of the authority itself. Events
// attributed to it bypass every check; it is how the server applies its own
// corrections and how clients apply rebroadcast updates that the authority
// already vetted.
const CanonicalUpdater scene.Id = 0

func rank(r Role) int {
	switch r {
	case RoleOwner:
		return 2
	case RoleEditor:
		return 1
	default:
		return 0
	}
}

// Event reassigns a user's role. Carried on the wire as a perms update.
type Event struct {
	User scene.Id `json:"user"`
	Role Role     `json:"role"`
}

// Perms maps user ids to roles. Users absent from the map are spectators.
type Perms struct {
	Roles map[scene.Id]Role `json:"roles"`
}

func New() *Perms {
	return &Perms{Roles: make(map[scene.Id]Role)}
}

// Role returns the user's effective role.
func (p *Perms) Role(user scene.Id) Role {
	if role, ok := p.Roles[user]; ok {
		return role
	}
	return RoleSpectator
}

// SetRole assigns a role directly, bypassing the gate. Server-side setup
// only.
func (p *Perms) SetRole(user scene.Id, role Role) {
	p.Roles[user] = role
}

// HandleEvent applies a role reassignment if the updater is entitled to
// make it. Only owners and the authority may change roles, and nobody
// demotes the authority.
func (p *Perms) HandleEvent(updater scene.Id, e Event) bool {
	if updater != CanonicalUpdater && p.Role(updater) != RoleOwner {
		return false
	}
	if e.User == CanonicalUpdater {
		return false
	}
	p.Roles[e.User] = e.Role
	return true
}

// structural reports whether the event changes layer structure rather than
// layer content.
func structural(e *scene.Event) bool {
	switch e.Kind {
	case scene.EventLayerNew, scene.EventLayerRemove, scene.EventLayerRestore,
		scene.EventLayerRename, scene.EventLayerMove:
		return true
	default:
		return false
	}
}

func spriteMutation(e *scene.Event) bool {
	switch e.Kind {
	case scene.EventSpriteNew, scene.EventSpriteRemove, scene.EventSpriteMove,
		scene.EventSpriteTexture, scene.EventSpriteLayer:
		return true
	default:
		return false
	}
}

// LayerResolver maps an event to the layer it targets, or nil when it has
// no single layer context. Scene.EventLayer satisfies it.
type LayerResolver func(*scene.Event) *scene.Layer

// Permitted decides whether the user may apply the event. The resolver
// supplies layer context; event sets are permitted only when every member
// is.
func (p *Perms) Permitted(user scene.Id, e *scene.Event, resolve LayerResolver) bool {
	if user == CanonicalUpdater {
		return true
	}
	if e == nil {
		return false
	}

	if e.Kind == scene.EventSet {
		for i := range e.Set {
			if !p.Permitted(user, &e.Set[i], resolve) {
				return false
			}
		}
		return true
	}

	role := p.Role(user)
	switch {
	case e.Kind == scene.EventDummy:
		return true
	case rank(role) < rank(RoleEditor):
		return false
	case structural(e):
		return role == RoleOwner
	case spriteMutation(e):
		layer := layerFor(e, resolve)
		if layer != nil && layer.Locked {
			return false
		}
		return true
	case e.Kind == scene.EventLayerVisibility || e.Kind == scene.EventLayerLocked:
		return true
	default:
		return false
	}
}

func layerFor(e *scene.Event, resolve LayerResolver) *scene.Layer {
	if resolve == nil {
		return nil
	}
	return resolve(e)
}
