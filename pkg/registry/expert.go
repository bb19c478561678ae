// Package registry maintains the in-memory directory of known experts:
// identity, role, liveness state, worktree affiliation, and the transport
// locator the router hands to the delivery layer. One authoritative store
// keyed by id is kept consistent with name and role indices on every
// mutation.
package registry

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// State is the liveness state of an expert. Only Idle experts may receive
// messages; Busy and Offline experts defer delivery to a later cycle.
type State string

// Expert liveness states.
const (
	StateIdle    State = "idle"
	StateBusy    State = "busy"
	StateOffline State = "offline"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateBusy, StateOffline:
		return true
	}
	return false
}

// RoleKind discriminates the role union.
type RoleKind string

// Role kinds. The four fixed kinds carry no payload; KindSpecialist carries
// an arbitrary role name.
const (
	KindAnalyst     RoleKind = "analyst"
	KindDeveloper   RoleKind = "developer"
	KindReviewer    RoleKind = "reviewer"
	KindCoordinator RoleKind = "coordinator"
	KindSpecialist  RoleKind = "specialist"
)

// Role is the tagged role union: one of the fixed kinds, or a Specialist
// with an open-ended name. Callers never branch on the kind; matching goes
// through Matches.
type Role struct {
	Kind RoleKind
	Name string // Specialist payload; empty for fixed kinds
}

// Fixed role values.
var (
	RoleAnalyst     = Role{Kind: KindAnalyst}
	RoleDeveloper   = Role{Kind: KindDeveloper}
	RoleReviewer    = Role{Kind: KindReviewer}
	RoleCoordinator = Role{Kind: KindCoordinator}
)

// Specialist returns an open-ended role with the given name.
func Specialist(name string) Role {
	return Role{Kind: KindSpecialist, Name: name}
}

// ParseRole maps a role string to a Role: the four fixed names match
// case-insensitively, anything else becomes a Specialist with that exact
// string as payload.
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case string(KindAnalyst):
		return RoleAnalyst
	case string(KindDeveloper):
		return RoleDeveloper
	case string(KindReviewer):
		return RoleReviewer
	case string(KindCoordinator):
		return RoleCoordinator
	default:
		return Specialist(s)
	}
}

// Matches reports whether the role answers to the given role string.
// Fixed kinds compare case-insensitively; a Specialist matches only its
// exact payload string.
func (r Role) Matches(s string) bool {
	if r.Kind == KindSpecialist {
		return r.Name == s
	}
	return strings.EqualFold(string(r.Kind), s)
}

// String renders the role for display and serialization. Specialist roles
// render as their payload, so ParseRole(r.String()) round-trips.
func (r Role) String() string {
	if r.Kind == KindSpecialist {
		return r.Name
	}
	return string(r.Kind)
}

// key is the canonical role-index key.
func (r Role) key() string {
	if r.Kind == KindSpecialist {
		return "specialist:" + r.Name
	}
	return string(r.Kind)
}

// MarshalYAML encodes the role as its display string.
func (r Role) MarshalYAML() (any, error) {
	return r.String(), nil
}

// UnmarshalYAML decodes a role string via ParseRole.
func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	if s == "" {
		return fmt.Errorf("role must not be empty")
	}
	*r = ParseRole(s)
	return nil
}

// Expert is one coding-agent instance known to the registry.
type Expert struct {
	ID   int
	Name string
	Role Role

	// State gates delivery; experts register Offline until the session
	// layer reports them ready.
	State State

	// Worktree is the git worktree path this expert operates in. The empty
	// string means the main repository context. Paths are compared as raw
	// strings, no normalization.
	Worktree string

	// Locator is the opaque transport coordinate (e.g. a tmux pane target)
	// the delivery layer uses to reach this expert.
	Locator string

	// LastActivity is refreshed on every state change.
	LastActivity time.Time
}
