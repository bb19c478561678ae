package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"conclave/pkg/protocol"
)

// Registry is the in-memory expert directory. The experts map is the
// authoritative store; byName and byRole are secondary indices maintained
// under the same mutex on every insert, update, and remove so they can
// never diverge from the primary store.
type Registry struct {
	mu      sync.Mutex
	experts map[int]*Expert
	byName  map[string]int   // original name -> id
	byRole  map[string][]int // canonical role key -> ids
	nextID  int

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		experts: make(map[int]*Expert),
		byName:  make(map[string]int),
		byRole:  make(map[string][]int),
		nextID:  1,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the registry clock, so tests control timestamps.
func (r *Registry) SetNowFunc(f func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = f
}

// Register adds an expert and returns its id. A zero id triggers
// auto-assignment; a caller-supplied id advances the internal counter past
// it. Registration fails before any mutation if the name is already taken
// (names are unique case-insensitively) or the id is in use.
func (r *Registry) Register(e Expert) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Name == "" {
		return 0, fmt.Errorf("expert name must not be empty")
	}
	if _, taken := r.findByNameLocked(e.Name); taken {
		return 0, &protocol.DuplicateNameError{Name: e.Name}
	}
	if e.ID != 0 {
		if _, exists := r.experts[e.ID]; exists {
			return 0, fmt.Errorf("expert id %d already registered", e.ID)
		}
	}

	if e.ID == 0 {
		e.ID = r.nextID
		r.nextID++
	} else if e.ID >= r.nextID {
		r.nextID = e.ID + 1
	}
	if e.State == "" {
		e.State = StateOffline
	}
	e.LastActivity = r.nowFunc()

	stored := e
	r.experts[e.ID] = &stored
	r.byName[e.Name] = e.ID
	key := e.Role.key()
	r.byRole[key] = append(r.byRole[key], e.ID)

	return e.ID, nil
}

// UpdateState transitions an expert to a new liveness state and refreshes
// its last-activity timestamp. Every transition is currently permitted;
// stricter rules can be added here without changing callers.
func (r *Registry) UpdateState(id int, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.experts[id]
	if !ok {
		return &protocol.ExpertNotFoundError{ID: id}
	}
	if !s.Valid() {
		return fmt.Errorf("unknown expert state %q", s)
	}
	e.State = s
	e.LastActivity = r.nowFunc()
	return nil
}

// Get returns a copy of the expert with the given id.
func (r *Registry) Get(id int) (Expert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.experts[id]
	if !ok {
		return Expert{}, false
	}
	return *e, true
}

// FindByName resolves a name to an expert id: exact match first, then a
// case-insensitive fallback scan.
func (r *Registry) FindByName(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByNameLocked(name)
}

func (r *Registry) findByNameLocked(name string) (int, bool) {
	if id, ok := r.byName[name]; ok {
		return id, true
	}
	for n, id := range r.byName {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return 0, false
}

// FindByRole returns the ids of experts holding exactly this role,
// sorted ascending.
func (r *Registry) FindByRole(role Role) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]int(nil), r.byRole[role.key()]...)
	sort.Ints(ids)
	return ids
}

// FindByRoleString returns the ids of experts whose role answers to the
// given role string, sorted ascending. Fixed roles match
// case-insensitively; specialists match their exact payload.
func (r *Registry) FindByRoleString(role string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchingLocked(func(e *Expert) bool {
		return e.Role.Matches(role)
	})
}

// IdleExperts returns the ids of all idle experts, sorted ascending.
func (r *Registry) IdleExperts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchingLocked(func(e *Expert) bool {
		return e.State == StateIdle
	})
}

// IdleExpertsByRole returns the ids of idle experts matching the role
// string, sorted ascending.
func (r *Registry) IdleExpertsByRole(role string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchingLocked(func(e *Expert) bool {
		return e.State == StateIdle && e.Role.Matches(role)
	})
}

// IdleExpertsByRoleInWorktree restricts IdleExpertsByRole to experts whose
// worktree path equals the given one (raw string comparison; the empty
// string is the main repository context).
func (r *Registry) IdleExpertsByRoleInWorktree(role, worktree string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchingLocked(func(e *Expert) bool {
		return e.State == StateIdle && e.Worktree == worktree && e.Role.Matches(role)
	})
}

// IdleExpertsInWorktree returns the ids of idle experts in the given
// worktree context, sorted ascending.
func (r *Registry) IdleExpertsInWorktree(worktree string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchingLocked(func(e *Expert) bool {
		return e.State == StateIdle && e.Worktree == worktree
	})
}

// matchingLocked collects ids satisfying pred, sorted ascending so that
// callers picking the first candidate behave deterministically.
// Caller must hold r.mu.
func (r *Registry) matchingLocked(pred func(*Expert) bool) []int {
	var ids []int
	for id, e := range r.experts {
		if pred(e) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Remove deletes an expert from the primary store and both indices
// atomically, pruning the role bucket when it empties. It returns the
// removed expert, or false if the id is unknown.
func (r *Registry) Remove(id int) (Expert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.experts[id]
	if !ok {
		return Expert{}, false
	}
	removed := *e

	delete(r.experts, id)
	delete(r.byName, removed.Name)

	key := removed.Role.key()
	bucket := r.byRole[key]
	for i, bid := range bucket {
		if bid == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.byRole, key)
	} else {
		r.byRole[key] = bucket
	}

	return removed, true
}

// Snapshot returns copies of all experts, sorted by id.
func (r *Registry) Snapshot() []Expert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Expert, 0, len(r.experts))
	for _, e := range r.experts {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered experts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.experts)
}
