// Package config reads registry files from disk. Each registry lives in its
// own YAML or TOML file; the extension picks the decoder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// Codification is the codification registry file.
type Codification struct {
	Entries []CodificationEntry `yaml:"entries" toml:"entries"`
}

// CodificationEntry is one code of the codification file.
type CodificationEntry struct {
	Code     string   `yaml:"code" toml:"code"`
	Type     string   `yaml:"type" toml:"type"`
	Parent   string   `yaml:"parent,omitempty" toml:"parent,omitempty"`
	Children []string `yaml:"children,omitempty" toml:"children,omitempty"`
}

// Patterns is the token pattern registry file.
type Patterns struct {
	Patterns []PatternEntry `yaml:"patterns" toml:"patterns"`
}

// PatternEntry is one slot definition.
type PatternEntry struct {
	Key         string `yaml:"key" toml:"key"`
	Kind        string `yaml:"kind" toml:"kind"`
	Pattern     string `yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Position    int    `yaml:"position" toml:"position"`
	Exception   bool   `yaml:"exception,omitempty" toml:"exception,omitempty"`
	TargetsNext bool   `yaml:"targetsNext,omitempty" toml:"targetsNext,omitempty"`
}

// Codes holds the discipline and entity registries.
type Codes struct {
	Disciplines []string `yaml:"disciplines" toml:"disciplines"`
	Entities    []string `yaml:"entities" toml:"entities"`
}

// Hierarchy is the discipline hierarchy file.
type Hierarchy struct {
	Disciplines []HierarchyEntry `yaml:"disciplines" toml:"disciplines"`
}

// HierarchyEntry lists the roles of one discipline.
type HierarchyEntry struct {
	Discipline string               `yaml:"discipline" toml:"discipline"`
	Roles      []string             `yaml:"roles" toml:"roles"`
	Specs      map[string]RoleEntry `yaml:"specs,omitempty" toml:"specs,omitempty"`
}

// RoleEntry is the tag template of a role.
type RoleEntry struct {
	Affix  []string `yaml:"affix,omitempty" toml:"affix,omitempty"`
	Base   []string `yaml:"base,omitempty" toml:"base,omitempty"`
	Suffix []string `yaml:"suffix,omitempty" toml:"suffix,omitempty"`
}

// Extensions lists the accepted file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".toml"}

func configErr(path string, err error) error {
	return fmt.Errorf("%s: %w: %w", path, internalerr.ErrConfiguration, err)
}

// decode reads path into v, rejecting unknown fields.
func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return configErr(path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document is an empty registry.
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return configErr(path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return configErr(path, err)
		}
	default:
		return configErr(path, fmt.Errorf("unsupported extension %q", filepath.Ext(path)))
	}
	return nil
}

// LoadCodification reads a codification file.
func LoadCodification(path string) ([]registry.CodificationEntry, error) {
	var f Codification
	if err := decode(path, &f); err != nil {
		return nil, err
	}
	out := make([]registry.CodificationEntry, 0, len(f.Entries))
	for i, e := range f.Entries {
		if strings.TrimSpace(e.Code) == "" {
			return nil, configErr(path, fmt.Errorf("entry %d: empty code", i))
		}
		typ, err := registry.ParseCodificationType(e.Type)
		if err != nil {
			return nil, configErr(path, fmt.Errorf("code %s: %w", e.Code, err))
		}
		out = append(out, registry.CodificationEntry{
			Code:       e.Code,
			Type:       typ,
			ParentCode: e.Parent,
			Children:   e.Children,
		})
	}
	return out, nil
}

// LoadPatterns reads a token pattern file. Regex compilation happens when
// the registry is built.
func LoadPatterns(path string) ([]registry.PatternSpec, error) {
	var f Patterns
	if err := decode(path, &f); err != nil {
		return nil, err
	}
	out := make([]registry.PatternSpec, 0, len(f.Patterns))
	for _, p := range f.Patterns {
		kind, err := token.ParseKind(p.Kind)
		if err != nil {
			return nil, configErr(path, fmt.Errorf("pattern %s: %w", p.Key, err))
		}
		out = append(out, registry.PatternSpec{
			Key:         p.Key,
			Kind:        kind,
			Pattern:     p.Pattern,
			Position:    p.Position,
			Exception:   p.Exception,
			TargetsNext: p.TargetsNext,
		})
	}
	return out, nil
}

// LoadCodes reads the discipline and entity codes.
func LoadCodes(path string) (disciplines, entities []string, err error) {
	var f Codes
	if err := decode(path, &f); err != nil {
		return nil, nil, err
	}
	return f.Disciplines, f.Entities, nil
}

// LoadHierarchy reads the discipline hierarchy file.
func LoadHierarchy(path string) ([]registry.DisciplineHierarchy, error) {
	var f Hierarchy
	if err := decode(path, &f); err != nil {
		return nil, err
	}
	out := make([]registry.DisciplineHierarchy, 0, len(f.Disciplines))
	for _, d := range f.Disciplines {
		specs := make(map[string]registry.RoleSpec, len(d.Specs))
		for role, s := range d.Specs {
			specs[role] = registry.RoleSpec{AffixKeys: s.Affix, BaseKeys: s.Base, SuffixKeys: s.Suffix}
		}
		out = append(out, registry.DisciplineHierarchy{
			Discipline: d.Discipline,
			Roles:      d.Roles,
			RoleSpecs:  specs,
		})
	}
	return out, nil
}
