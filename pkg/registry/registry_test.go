package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"conclave/pkg/protocol"
)

func testClock() func() time.Time {
	t := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRegisterAssignsIDs(t *testing.T) {
	r := New()
	r.SetNowFunc(testClock())

	id1, err := r.Register(Expert{Name: "alice", Role: RoleAnalyst})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	id2, err := r.Register(Expert{Name: "bob", Role: RoleDeveloper})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("auto ids: got %d, %d, want 1, 2", id1, id2)
	}

	// An explicit id advances the counter past itself.
	id3, err := r.Register(Expert{ID: 10, Name: "carol", Role: RoleReviewer})
	if err != nil {
		t.Fatalf("register carol: %v", err)
	}
	if id3 != 10 {
		t.Fatalf("explicit id: got %d, want 10", id3)
	}
	id4, err := r.Register(Expert{Name: "dave", Role: RoleCoordinator})
	if err != nil {
		t.Fatalf("register dave: %v", err)
	}
	if id4 != 11 {
		t.Fatalf("id after explicit: got %d, want 11", id4)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := New()
	if _, err := r.Register(Expert{Name: "Alice", Role: RoleAnalyst}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := r.Register(Expert{Name: "alice", Role: RoleDeveloper})
	var dup *protocol.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want DuplicateNameError", err)
	}
	if r.Len() != 1 {
		t.Fatalf("failed registration must not mutate: len=%d", r.Len())
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := New()
	if _, err := r.Register(Expert{ID: 5, Name: "alice", Role: RoleAnalyst}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register(Expert{ID: 5, Name: "bob", Role: RoleDeveloper}); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestRegisterDefaultsToOffline(t *testing.T) {
	r := New()
	id, err := r.Register(Expert{Name: "alice", Role: RoleAnalyst})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	e, ok := r.Get(id)
	if !ok {
		t.Fatal("expert not found after register")
	}
	if e.State != StateOffline {
		t.Fatalf("state: got %s, want %s", e.State, StateOffline)
	}
}

func TestUpdateStateRefreshesActivity(t *testing.T) {
	r := New()
	r.SetNowFunc(testClock())

	id, err := r.Register(Expert{Name: "alice", Role: RoleAnalyst})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	before, _ := r.Get(id)

	if err := r.UpdateState(id, StateIdle); err != nil {
		t.Fatalf("update state: %v", err)
	}
	after, _ := r.Get(id)
	if after.State != StateIdle {
		t.Fatalf("state: got %s, want %s", after.State, StateIdle)
	}
	if !after.LastActivity.After(before.LastActivity) {
		t.Fatalf("last activity not refreshed: %v -> %v", before.LastActivity, after.LastActivity)
	}
}

func TestUpdateStateUnknownExpert(t *testing.T) {
	r := New()
	err := r.UpdateState(99, StateIdle)
	var nf *protocol.ExpertNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want ExpertNotFoundError", err)
	}
}

func TestFindByNameCaseInsensitiveFallback(t *testing.T) {
	r := New()
	id, _ := r.Register(Expert{Name: "Alice", Role: RoleAnalyst})

	if got, ok := r.FindByName("Alice"); !ok || got != id {
		t.Fatalf("exact lookup: got %d,%v", got, ok)
	}
	if got, ok := r.FindByName("ALICE"); !ok || got != id {
		t.Fatalf("case-insensitive lookup: got %d,%v", got, ok)
	}
	if _, ok := r.FindByName("mallory"); ok {
		t.Fatal("unknown name must not resolve")
	}
}

func TestRoleMatching(t *testing.T) {
	r := New()
	mustRegister(t, r, Expert{Name: "alice", Role: RoleReviewer, State: StateIdle})
	mustRegister(t, r, Expert{Name: "bob", Role: RoleReviewer, State: StateBusy})
	mustRegister(t, r, Expert{Name: "carol", Role: Specialist("db-tuner"), State: StateIdle})

	if got := r.FindByRoleString("REVIEWER"); len(got) != 2 {
		t.Fatalf("fixed role is case-insensitive: got %v", got)
	}
	if got := r.FindByRoleString("db-tuner"); len(got) != 1 {
		t.Fatalf("specialist exact match: got %v", got)
	}
	if got := r.FindByRoleString("DB-Tuner"); len(got) != 0 {
		t.Fatalf("specialist must not match case-insensitively: got %v", got)
	}
}

func TestIdleSelectionIsDeterministic(t *testing.T) {
	r := New()
	// Register out of id order so map iteration order could betray us.
	mustRegister(t, r, Expert{ID: 3, Name: "carol", Role: RoleReviewer, State: StateIdle})
	mustRegister(t, r, Expert{ID: 1, Name: "alice", Role: RoleReviewer, State: StateIdle})
	mustRegister(t, r, Expert{ID: 2, Name: "bob", Role: RoleReviewer, State: StateBusy})

	got := r.IdleExpertsByRole("reviewer")
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("idle reviewers: got %v, want [1 3]", got)
	}
}

func TestIdleByRoleInWorktree(t *testing.T) {
	r := New()
	mustRegister(t, r, Expert{Name: "alice", Role: RoleReviewer, State: StateIdle, Worktree: "/wt/feature-a"})
	mustRegister(t, r, Expert{Name: "bob", Role: RoleReviewer, State: StateIdle, Worktree: "/wt/feature-b"})
	mustRegister(t, r, Expert{Name: "carol", Role: RoleReviewer, State: StateIdle})

	got := r.IdleExpertsByRoleInWorktree("reviewer", "/wt/feature-a")
	if len(got) != 1 {
		t.Fatalf("worktree-scoped reviewers: got %v, want one id", got)
	}
	// The main repository context is its own worktree scope.
	got = r.IdleExpertsByRoleInWorktree("reviewer", "")
	if len(got) != 1 {
		t.Fatalf("main-context reviewers: got %v, want one id", got)
	}
}

func TestRemoveKeepsIndicesConsistent(t *testing.T) {
	r := New()
	id := mustRegister(t, r, Expert{Name: "alice", Role: RoleAnalyst, State: StateIdle})

	removed, ok := r.Remove(id)
	if !ok || removed.Name != "alice" {
		t.Fatalf("remove: got %+v,%v", removed, ok)
	}
	if _, ok := r.Get(id); ok {
		t.Fatal("removed expert still in primary store")
	}
	if _, ok := r.FindByName("alice"); ok {
		t.Fatal("removed expert still in name index")
	}
	if got := r.FindByRole(RoleAnalyst); len(got) != 0 {
		t.Fatalf("removed expert still in role index: %v", got)
	}

	// The name is free for re-registration.
	if _, err := r.Register(Expert{Name: "alice", Role: RoleDeveloper}); err != nil {
		t.Fatalf("re-register after remove: %v", err)
	}
}

func TestRemoveUnknownExpert(t *testing.T) {
	r := New()
	if _, ok := r.Remove(42); ok {
		t.Fatal("removing an unknown id must report false")
	}
}

func TestParseRoleRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"analyst", RoleAnalyst},
		{"Developer", RoleDeveloper},
		{"REVIEWER", RoleReviewer},
		{"coordinator", RoleCoordinator},
		{"db-tuner", Specialist("db-tuner")},
	}
	for _, c := range cases {
		got := ParseRole(c.in)
		if got != c.want {
			t.Errorf("ParseRole(%q): got %+v, want %+v", c.in, got, c.want)
		}
		if back := ParseRole(got.String()); back != got {
			t.Errorf("ParseRole(String()) does not round-trip for %q", c.in)
		}
	}
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experts.yaml")
	doc := `experts:
  - name: alice
    role: analyst
    state: idle
    locator: "main:1.1"
  - name: bob
    role: db-tuner
    worktree: /wt/feature-a
    locator: "main:1.2"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	sf, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}

	r := New()
	ids, err := r.RegisterSeed(sf)
	if err != nil {
		t.Fatalf("register seed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids: got %v, want two", ids)
	}

	alice, _ := r.Get(ids[0])
	if alice.Role != RoleAnalyst || alice.State != StateIdle {
		t.Fatalf("alice: got %+v", alice)
	}
	bob, _ := r.Get(ids[1])
	if bob.Role != Specialist("db-tuner") || bob.Worktree != "/wt/feature-a" {
		t.Fatalf("bob: got %+v", bob)
	}
	if bob.State != StateOffline {
		t.Fatalf("seed without state must default offline, got %s", bob.State)
	}
}

func TestLoadSeedRejectsBadState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experts.yaml")
	doc := "experts:\n  - name: alice\n    role: analyst\n    state: sleeping\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Fatal("expected unknown state to be rejected")
	}
}

func mustRegister(t *testing.T, r *Registry, e Expert) int {
	t.Helper()
	id, err := r.Register(e)
	if err != nil {
		t.Fatalf("register %s: %v", e.Name, err)
	}
	return id
}
