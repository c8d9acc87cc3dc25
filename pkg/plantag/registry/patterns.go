package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// PatternSpec declares one token key. Suffix specs may leave Pattern empty
// when the key is recognized through a code list (Discipline, Entity).
type PatternSpec struct {
	Key      string
	Kind     token.Kind
	Pattern  string
	Position int

	// Exception marks a section-level override suffix (layout, building,
	// walkway). It only ever fills an unresolved PlantSection slot.
	Exception bool
	// TargetsNext makes a suffix replace the next base slot after Position
	// instead of the nearest one at or before it (incremental tags).
	TargetsNext bool
}

// Pattern is a compiled PatternSpec.
type Pattern struct {
	PatternSpec
	re *regexp.Regexp
}

// Match reports whether segment matches. Specs without a pattern never match.
func (p Pattern) Match(segment string) bool {
	return p.re != nil && p.re.MatchString(segment)
}

// PatternRegistry keeps patterns in declaration order. Declaration order
// breaks ties between keys sharing a canonical position.
type PatternRegistry struct {
	patterns []Pattern
	byKey    map[string]int
}

// NewPatternRegistry compiles specs. Duplicate keys and invalid expressions
// are configuration errors.
func NewPatternRegistry(specs []PatternSpec) (*PatternRegistry, error) {
	r := &PatternRegistry{byKey: make(map[string]int, len(specs))}
	for _, spec := range specs {
		spec.Key = strings.TrimSpace(spec.Key)
		if spec.Key == "" {
			return nil, fmt.Errorf("pattern with empty key: %w", internalerr.ErrConfiguration)
		}
		if _, dup := r.byKey[spec.Key]; dup {
			return nil, fmt.Errorf("duplicate pattern key %q: %w", spec.Key, internalerr.ErrConfiguration)
		}
		p := Pattern{PatternSpec: spec}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %v: %w", spec.Key, err, internalerr.ErrConfiguration)
			}
			p.re = re
		}
		r.byKey[spec.Key] = len(r.patterns)
		r.patterns = append(r.patterns, p)
	}
	return r, nil
}

// Len returns the number of declared keys.
func (r *PatternRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// Get returns the pattern declared for key.
func (r *PatternRegistry) Get(key string) (Pattern, bool) {
	if r == nil {
		return Pattern{}, false
	}
	i, ok := r.byKey[key]
	if !ok {
		return Pattern{}, false
	}
	return r.patterns[i], true
}

// Position returns the canonical position of key.
func (r *PatternRegistry) Position(key string) (int, bool) {
	p, ok := r.Get(key)
	return p.Position, ok
}

// All returns every pattern in canonical order.
func (r *PatternRegistry) All() []Pattern {
	if r == nil {
		return nil
	}
	out := make([]Pattern, len(r.patterns))
	copy(out, r.patterns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Base returns base patterns in canonical order.
func (r *PatternRegistry) Base() []Pattern { return r.ofKind(token.KindBase) }

// Affixes returns affix patterns in canonical order.
func (r *PatternRegistry) Affixes() []Pattern { return r.ofKind(token.KindAffix) }

// Suffixes returns generic suffix patterns in canonical order. Discipline
// and Entity are excluded: they are recognized through their code lists.
func (r *PatternRegistry) Suffixes() []Pattern {
	var out []Pattern
	for _, p := range r.ofKind(token.KindSuffix) {
		if p.Key == token.KeyDiscipline || p.Key == token.KeyEntity {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *PatternRegistry) ofKind(kind token.Kind) []Pattern {
	var out []Pattern
	for _, p := range r.All() {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// IsBase reports whether key is declared as a base slot.
func (r *PatternRegistry) IsBase(key string) bool {
	p, ok := r.Get(key)
	return ok && p.Kind == token.KindBase
}
