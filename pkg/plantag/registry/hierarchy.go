package registry

import (
	"sort"
	"strings"
)

// DefaultDiscipline names the fallback hierarchy definition.
const DefaultDiscipline = "DEFAULT"

// RoleSpec is the tag template of one hierarchy role: token keys whose
// values are joined to form the node tag.
type RoleSpec struct {
	AffixKeys  []string
	BaseKeys   []string
	SuffixKeys []string
}

// DisciplineHierarchy is the ordered role list of one discipline.
type DisciplineHierarchy struct {
	Discipline string
	Roles      []string
	RoleSpecs  map[string]RoleSpec
}

// Role returns the spec declared for role.
func (d DisciplineHierarchy) Role(role string) (RoleSpec, bool) {
	spec, ok := d.RoleSpecs[strings.ToUpper(role)]
	return spec, ok
}

// HierarchyRegistry maps disciplines to their hierarchy definition.
type HierarchyRegistry struct {
	byDiscipline map[string]DisciplineHierarchy
}

// NewHierarchyRegistry builds a registry. Discipline and role names are
// upper-cased; a later definition of the same discipline wins.
func NewHierarchyRegistry(defs []DisciplineHierarchy) *HierarchyRegistry {
	r := &HierarchyRegistry{byDiscipline: make(map[string]DisciplineHierarchy, len(defs))}
	for _, d := range defs {
		name := strings.ToUpper(strings.TrimSpace(d.Discipline))
		if name == "" {
			continue
		}
		norm := DisciplineHierarchy{
			Discipline: name,
			Roles:      make([]string, 0, len(d.Roles)),
			RoleSpecs:  make(map[string]RoleSpec, len(d.RoleSpecs)),
		}
		for _, role := range d.Roles {
			if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
				norm.Roles = append(norm.Roles, role)
			}
		}
		for role, spec := range d.RoleSpecs {
			norm.RoleSpecs[strings.ToUpper(strings.TrimSpace(role))] = spec
		}
		r.byDiscipline[name] = norm
	}
	return r
}

// Lookup returns the definition for discipline.
func (r *HierarchyRegistry) Lookup(discipline string) (DisciplineHierarchy, bool) {
	if r == nil {
		return DisciplineHierarchy{}, false
	}
	d, ok := r.byDiscipline[strings.ToUpper(strings.TrimSpace(discipline))]
	return d, ok
}

// Default returns the DEFAULT definition.
func (r *HierarchyRegistry) Default() (DisciplineHierarchy, bool) {
	return r.Lookup(DefaultDiscipline)
}

// Disciplines returns the defined discipline names sorted.
func (r *HierarchyRegistry) Disciplines() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.byDiscipline))
	for name := range r.byDiscipline {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every definition ordered by discipline.
func (r *HierarchyRegistry) Definitions() []DisciplineHierarchy {
	names := r.Disciplines()
	out := make([]DisciplineHierarchy, 0, len(names))
	for _, n := range names {
		out = append(out, r.byDiscipline[n])
	}
	return out
}
