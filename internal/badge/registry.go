package badge

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var defaultCatalog []byte

type catalogFile struct {
	Badges []catalogEntry `toml:"badge"`
}

type catalogEntry struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Emoji       string `toml:"emoji"`
	Kind        Kind   `toml:"kind"`
	Threshold   int    `toml:"threshold"`
}

// Registry is the immutable set of badge definitions.
type Registry struct {
	defs []Definition
	byID map[string]int
}

func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("badge definition without id")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %q", d.ID)
		}
		if !d.Requirement.Kind.Valid() {
			return nil, fmt.Errorf("badge %q: invalid requirement kind", d.ID)
		}
		if d.Requirement.Threshold <= 0 {
			return nil, fmt.Errorf("badge %q: threshold must be positive", d.ID)
		}
		r.byID[d.ID] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// ParseCatalog decodes a TOML catalog with one [[badge]] table per definition.
func ParseCatalog(data []byte) (*Registry, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode badge catalog: %w", err)
	}

	defs := make([]Definition, 0, len(file.Badges))
	for _, e := range file.Badges {
		defs = append(defs, Definition{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Emoji:       e.Emoji,
			Requirement: Requirement{Kind: e.Kind, Threshold: e.Threshold},
		})
	}
	return NewRegistry(defs)
}

// DefaultRegistry returns the built-in catalog.
func DefaultRegistry() (*Registry, error) {
	return ParseCatalog(defaultCatalog)
}

// All returns a copy of every definition in catalog order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Views() []View {
	out := make([]View, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.View())
	}
	return out
}

func (r *Registry) Get(id string) (Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

func (r *Registry) Len() int { return len(r.defs) }

// Verify checks that stored, the active rows read back from the store, holds
// exactly the registry's definitions. Awards reference those rows, so a
// missing, stale or extra row is an error.
func (r *Registry) Verify(stored []Definition) error {
	seen := make(map[string]bool, len(stored))
	var errs []error
	for _, s := range stored {
		seen[s.ID] = true
		d, ok := r.Get(s.ID)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("badge %q is active in the store but not in the catalog", s.ID))
		case d != s:
			errs = append(errs, fmt.Errorf("badge %q differs between store and catalog", s.ID))
		}
	}
	for _, d := range r.defs {
		if !seen[d.ID] {
			errs = append(errs, fmt.Errorf("badge %q is not active in the store", d.ID))
		}
	}
	return errors.Join(errs...)
}

// Evaluate returns every definition not in earned whose requirement is met by
// stats. Several badges may qualify in one pass.
func (r *Registry) Evaluate(stats Stats, earned map[string]bool) []Definition {
	var out []Definition
	for _, d := range r.defs {
		if earned[d.ID] {
			continue
		}
		if d.Requirement.Met(stats) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) Progress(id string, stats Stats, earned map[string]bool) (Progress, bool) {
	d, ok := r.Get(id)
	if !ok {
		return Progress{}, false
	}
	return progressOf(d, stats, earned[d.ID]), true
}

func (r *Registry) AllProgress(stats Stats, earned map[string]bool) []Progress {
	out := make([]Progress, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, progressOf(d, stats, earned[d.ID]))
	}
	return out
}

func progressOf(d Definition, stats Stats, earned bool) Progress {
	target := d.Requirement.Threshold
	current := min(d.Requirement.Current(stats), target)
	return Progress{
		Badge:   d,
		Current: current,
		Target:  target,
		Percent: current * 100 / target,
		Earned:  earned,
	}
}

// NextByCategory picks the lowest-threshold unearned badge of each category.
func (r *Registry) NextByCategory(earned map[string]bool) []Definition {
	var out []Definition
	for _, cat := range Categories {
		var candidates []Definition
		for _, d := range r.defs {
			if d.Category() == cat && !earned[d.ID] {
				candidates = append(candidates, d)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Requirement.Threshold < candidates[j].Requirement.Threshold
		})
		out = append(out, candidates[0])
	}
	return out
}
