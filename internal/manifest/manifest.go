// Package manifest reads dependency declarations out of package.json
// files. Names are returned raw; callers sanitize before use.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ppiankov/depgate/internal/secerr"
)

// Dependency is one declared package with its version constraint.
type Dependency struct {
	Name string
	Spec string
	Dev  bool
}

// Manifest is the subset of package.json this tool cares about.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Load reads and parses a package.json file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &secerr.ValidationError{Field: "manifest", Rule: "not a valid package.json document"}
	}
	return &m, nil
}

// AllDependencies returns every declared dependency, runtime before dev,
// each group sorted by name for stable iteration.
func (m *Manifest) AllDependencies() []Dependency {
	out := make([]Dependency, 0, len(m.Dependencies)+len(m.DevDependencies))
	out = append(out, sorted(m.Dependencies, false)...)
	out = append(out, sorted(m.DevDependencies, true)...)
	return out
}

func sorted(deps map[string]string, dev bool) []Dependency {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Dependency, 0, len(names))
	for _, name := range names {
		out = append(out, Dependency{Name: name, Spec: deps[name], Dev: dev})
	}
	return out
}
