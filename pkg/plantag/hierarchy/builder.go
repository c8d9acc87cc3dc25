package hierarchy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// Options configures a Builder.
type Options struct {
	StructuralSeparator string
	SuffixSeparator     string
	// Suffix values used when the item has no Discipline or Entity token.
	DefaultDisciplineCode string
	DefaultEntityCode     string

	Logger *zap.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		StructuralSeparator:   "-",
		SuffixSeparator:       "_",
		DefaultDisciplineCode: "ME",
		DefaultEntityCode:     "SDE",
	}
}

// Item is the input of one chain build.
type Item struct {
	ID         string
	Discipline string
	Tokens     *token.Set
}

// Builder builds hierarchy chains. It is safe for concurrent use.
type Builder struct {
	opts Options
	log  *zap.Logger
}

// NewBuilder creates a builder.
func NewBuilder(opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{opts: opts, log: log.Named("hierarchy")}
}

type role struct {
	label    string // normalized
	declared string // as listed in the registry
}

// Build returns the ancestor-to-leaf chain of item. The only error is a
// configuration error: neither the item's discipline nor DEFAULT is defined.
func (b *Builder) Build(h *registry.HierarchyRegistry, item Item) ([]*Node, error) {
	dflt, hasDefault := h.Default()
	def, ok := h.Lookup(item.Discipline)
	if !ok || len(def.Roles) == 0 {
		if !hasDefault {
			return nil, fmt.Errorf("discipline %q and %s missing from hierarchy registry: %w",
				item.Discipline, registry.DefaultDiscipline, internalerr.ErrConfiguration)
		}
		def = dflt
	}

	tokens := item.Tokens
	if tokens == nil {
		tokens = token.NewSet()
	}

	roles := normalizeRoles(def.Roles)
	chain := make([]*Node, 0, len(roles))
	parentTag := ""
	for i, r := range roles {
		spec := b.roleSpec(def, dflt, r)
		tag := b.render(spec, tokens)
		n := &Node{
			RoleLabel: r.label,
			Tag:       tag,
			ParentTag: parentTag,
			Depth:     i,
			IsVirtual: r.label != RoleLeaf,
		}
		if !n.IsVirtual {
			n.ID = item.ID
		}
		chain = append(chain, n)
		parentTag = tag
	}
	return chain, nil
}

// normalizeRoles maps STRU to EQUI, drops repeats and anything after the
// leaf, and appends the leaf when the list lacks one.
func normalizeRoles(declared []string) []role {
	out := make([]role, 0, len(declared)+1)
	seen := make(map[string]bool, len(declared))
	for _, d := range declared {
		label := strings.ToUpper(strings.TrimSpace(d))
		if label == RoleStructure {
			label = RoleLeaf
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, role{label: label, declared: d})
		if label == RoleLeaf {
			return out
		}
	}
	return append(out, role{label: RoleLeaf, declared: RoleLeaf})
}

// roleSpec resolves the tag template: the discipline's own spec, then the
// DEFAULT spec, then a minimal template keyed off the role name.
func (b *Builder) roleSpec(def, dflt registry.DisciplineHierarchy, r role) registry.RoleSpec {
	for _, d := range []registry.DisciplineHierarchy{def, dflt} {
		if spec, ok := d.Role(r.label); ok {
			return spec
		}
		if spec, ok := d.Role(r.declared); ok {
			return spec
		}
	}
	b.log.Debug("synthesized role template", zap.String("discipline", def.Discipline), zap.String("role", r.label))
	return minimalSpec(r.label)
}

func minimalSpec(label string) registry.RoleSpec {
	switch label {
	case "SITE":
		return registry.RoleSpec{BaseKeys: []string{token.KeyPlant}, SuffixKeys: []string{token.KeyDiscipline}}
	case "ZONE":
		return registry.RoleSpec{
			BaseKeys:   []string{token.KeyPlant, token.KeyPlantUnit, token.KeyPlantSection},
			SuffixKeys: []string{token.KeyDiscipline},
		}
	case RoleLeaf:
		return registry.RoleSpec{
			BaseKeys:   []string{token.KeyPlant, token.KeyPlantUnit, token.KeyPlantSection, token.KeyEquipment},
			SuffixKeys: []string{token.KeyDiscipline, token.KeyEntity},
		}
	}
	return registry.RoleSpec{BaseKeys: []string{token.KeyPlant, token.KeyPlantUnit}}
}

func (b *Builder) render(spec registry.RoleSpec, tokens *token.Set) string {
	parts := make([]string, 0, len(spec.AffixKeys)+len(spec.BaseKeys))
	for _, k := range spec.AffixKeys {
		if v := tokens.Value(k); v != "" {
			parts = append(parts, v)
		}
	}
	for _, k := range spec.BaseKeys {
		parts = append(parts, baseValue(tokens, k))
	}

	suffixes := make([]string, 0, len(spec.SuffixKeys))
	for _, k := range spec.SuffixKeys {
		v := tokens.Value(k)
		if v == "" {
			switch k {
			case token.KeyDiscipline:
				v = b.opts.DefaultDisciplineCode
			case token.KeyEntity:
				v = b.opts.DefaultEntityCode
			}
		}
		if v != "" {
			suffixes = append(suffixes, v)
		}
	}

	tag := strings.Join(parts, b.opts.StructuralSeparator)
	if len(suffixes) == 0 {
		return tag
	}
	suffix := strings.Join(suffixes, b.opts.SuffixSeparator)
	if tag == "" {
		return suffix
	}
	return tag + b.opts.SuffixSeparator + suffix
}

// baseValue resolves key directly or through a token replacing it; an
// unresolved key renders as its MISSING_ placeholder.
func baseValue(tokens *token.Set, key string) string {
	if v := tokens.Value(key); v != "" {
		return v
	}
	for _, t := range tokens.Entries() {
		if t.ReplacesKey == key && t.IsProcessable() {
			return t.Value
		}
	}
	return token.MissingValue(key)
}
