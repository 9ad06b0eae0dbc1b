package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry maps measure IDs to their definitions. It is the injected lookup
// the plotter uses for minimize direction, worst value and display name.
type Registry struct {
	byID map[string]Measure
}

// NewRegistry builds a registry from the given measures. Later duplicates of
// the same ID overwrite earlier ones.
func NewRegistry(measures ...Measure) *Registry {
	r := &Registry{byID: make(map[string]Measure, len(measures))}
	for _, m := range measures {
		r.byID[m.ID] = m
	}
	return r
}

// Lookup returns the measure registered under id.
func (r *Registry) Lookup(id string) (Measure, bool) {
	if r == nil {
		return Measure{}, false
	}
	m, ok := r.byID[id]
	return m, ok
}

// Len returns the number of registered measures.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

// measureFile is the YAML layout of a measure registry file:
//
//	measures:
//	  - id: mmce.test.mean
//	    display_name: Mean misclassification error
//	    minimize: true
//	    worst: 1.0
type measureFile struct {
	Measures []struct {
		ID          string  `yaml:"id"`
		DisplayName string  `yaml:"display_name"`
		Minimize    bool    `yaml:"minimize"`
		Worst       float64 `yaml:"worst"`
	} `yaml:"measures"`
}

// LoadRegistry reads a measure registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read measure registry: %w", err)
	}
	var raw measureFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal measure registry %s: %w", path, err)
	}
	if len(raw.Measures) == 0 {
		return nil, fmt.Errorf("measure registry %s defines no measures", path)
	}
	r := NewRegistry()
	for _, m := range raw.Measures {
		if m.ID == "" {
			return nil, fmt.Errorf("measure registry %s contains a measure without an id", path)
		}
		r.byID[m.ID] = Measure{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Minimize:    m.Minimize,
			Worst:       m.Worst,
		}
	}
	return r, nil
}
