// Package registry holds the read-only lookup tables that drive tag
// classification: the company codification tree, token patterns, discipline
// and entity code lists, and per-discipline hierarchy definitions.
//
// Registries are assembled once into an immutable Snapshot. A Holder swaps
// snapshots atomically so readers never observe a partially rebuilt set.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/plantag/pkg/plantag/token"
)

// CodificationType is the structural level a registered code belongs to.
type CodificationType int

const (
	CodificationUndefined CodificationType = iota
	CodificationPlant
	CodificationPlantUnit
	CodificationPlantSection
	CodificationEquipment
)

var codificationNames = map[CodificationType]string{
	CodificationUndefined:    "Undefined",
	CodificationPlant:        "Plant",
	CodificationPlantUnit:    "PlantUnit",
	CodificationPlantSection: "PlantSection",
	CodificationEquipment:    "Equipment",
}

func (c CodificationType) String() string {
	if n, ok := codificationNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CodificationType(%d)", int(c))
}

// ParseCodificationType accepts the type names plus the short forms
// "Unit" and "Section".
func ParseCodificationType(s string) (CodificationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plant":
		return CodificationPlant, nil
	case "plantunit", "unit":
		return CodificationPlantUnit, nil
	case "plantsection", "section":
		return CodificationPlantSection, nil
	case "equipment":
		return CodificationEquipment, nil
	case "", "undefined":
		return CodificationUndefined, nil
	}
	return CodificationUndefined, fmt.Errorf("unknown codification type %q", s)
}

// SlotKey returns the canonical token key this type resolves.
func (c CodificationType) SlotKey() string {
	switch c {
	case CodificationPlant:
		return token.KeyPlant
	case CodificationPlantUnit:
		return token.KeyPlantUnit
	case CodificationPlantSection:
		return token.KeyPlantSection
	case CodificationEquipment:
		return token.KeyEquipment
	}
	return ""
}

// CodificationTypeForSlot is the inverse of SlotKey.
func CodificationTypeForSlot(key string) CodificationType {
	switch key {
	case token.KeyPlant:
		return CodificationPlant
	case token.KeyPlantUnit:
		return CodificationPlantUnit
	case token.KeyPlantSection:
		return CodificationPlantSection
	case token.KeyEquipment:
		return CodificationEquipment
	}
	return CodificationUndefined
}

// CodificationEntry is one registered code.
type CodificationEntry struct {
	Code       string
	Type       CodificationType
	ParentCode string
	Children   []string
}

// CodificationRegistry maps codes to their entry. Codes are upper-case.
type CodificationRegistry struct {
	entries map[string]CodificationEntry
	codes   []string
}

// NewCodificationRegistry builds a registry. Children are the union of the
// declared children and every entry naming the code as its parent.
func NewCodificationRegistry(entries []CodificationEntry) *CodificationRegistry {
	r := &CodificationRegistry{entries: make(map[string]CodificationEntry, len(entries))}
	children := make(map[string]map[string]struct{})
	addChild := func(parent, child string) {
		if parent == "" || child == "" {
			return
		}
		if children[parent] == nil {
			children[parent] = make(map[string]struct{})
		}
		children[parent][child] = struct{}{}
	}

	for _, e := range entries {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if code == "" {
			continue
		}
		e.Code = code
		e.ParentCode = strings.ToUpper(strings.TrimSpace(e.ParentCode))
		if _, exists := r.entries[code]; !exists {
			r.codes = append(r.codes, code)
		}
		r.entries[code] = e
		addChild(e.ParentCode, code)
		for _, c := range e.Children {
			addChild(code, strings.ToUpper(strings.TrimSpace(c)))
		}
	}

	for code, e := range r.entries {
		set := children[code]
		e.Children = make([]string, 0, len(set))
		for c := range set {
			e.Children = append(e.Children, c)
		}
		sort.Strings(e.Children)
		r.entries[code] = e
	}
	sort.Strings(r.codes)
	return r
}

// Lookup returns the entry for code. A nil registry has no entries.
func (r *CodificationRegistry) Lookup(code string) (CodificationEntry, bool) {
	if r == nil {
		return CodificationEntry{}, false
	}
	e, ok := r.entries[strings.ToUpper(code)]
	return e, ok
}

// IsChildOf reports whether parent lists child among its children.
func (r *CodificationRegistry) IsChildOf(child, parent string) bool {
	p, ok := r.Lookup(parent)
	if !ok {
		return false
	}
	child = strings.ToUpper(child)
	i := sort.SearchStrings(p.Children, child)
	return i < len(p.Children) && p.Children[i] == child
}

// Len returns the number of registered codes.
func (r *CodificationRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns all entries ordered by code.
func (r *CodificationRegistry) Entries() []CodificationEntry {
	if r == nil {
		return nil
	}
	out := make([]CodificationEntry, 0, len(r.codes))
	for _, c := range r.codes {
		out = append(out, r.entries[c])
	}
	return out
}
