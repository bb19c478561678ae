package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedExpert is one entry in an experts.yaml seed file.
type SeedExpert struct {
	ID       int    `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	Role     Role   `yaml:"role"`
	State    State  `yaml:"state,omitempty"`
	Worktree string `yaml:"worktree,omitempty"`
	Locator  string `yaml:"locator,omitempty"`
}

// SeedFile is the top-level experts.yaml document.
type SeedFile struct {
	Experts []SeedExpert `yaml:"experts"`
}

// LoadSeed parses an experts.yaml file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, e := range sf.Experts {
		if e.Name == "" {
			return nil, fmt.Errorf("seed expert %d: name is required", i)
		}
		if e.State != "" && !e.State.Valid() {
			return nil, fmt.Errorf("seed expert %q: unknown state %q", e.Name, e.State)
		}
	}
	return &sf, nil
}

// RegisterSeed registers every seed entry, in file order, and returns the
// assigned ids. The first error aborts registration; entries already
// registered stay registered.
func (r *Registry) RegisterSeed(sf *SeedFile) ([]int, error) {
	ids := make([]int, 0, len(sf.Experts))
	for _, se := range sf.Experts {
		id, err := r.Register(Expert{
			ID:       se.ID,
			Name:     se.Name,
			Role:     se.Role,
			State:    se.State,
			Worktree: se.Worktree,
			Locator:  se.Locator,
		})
		if err != nil {
			return ids, fmt.Errorf("register seed expert %q: %w", se.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
