// Package token defines the classified unit produced by tag tokenization and
// the ordered set that holds one item's tokens.
package token

import (
	"fmt"
	"strings"
)

// Canonical slot keys.
const (
	KeyPlant        = "Plant"
	KeyPlantUnit    = "PlantUnit"
	KeyPlantSection = "PlantSection"
	KeyEquipment    = "Equipment"
	KeyComponent    = "Component"
	KeyDiscipline   = "Discipline"
	KeyEntity       = "Entity"
)

// MissingPrefix starts every unresolved-slot placeholder value.
const MissingPrefix = "MISSING_"

// Kind classifies a token by where its value came from.
type Kind int

const (
	KindAffix Kind = iota
	KindBase
	KindSuffix
	KindCodification
)

var kindNames = [...]string{"affix", "base", "suffix", "codification"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return KindAffix, fmt.Errorf("unknown token kind %q", s)
}

// Token is one classified slot value of a tag.
type Token struct {
	Key               string `json:"key"`
	Value             string `json:"value"`
	Position          int    `json:"position"` // canonical slot position
	Segment           int    `json:"segment"`  // source segment index, -1 when synthetic
	Kind              Kind   `json:"kind"`
	IsMatch           bool   `json:"isMatch"`
	IsMissing         bool   `json:"isMissing"`
	IsReplacement     bool   `json:"isReplacement"`
	IsFallback        bool   `json:"isFallback"`
	ReplacesKey       string `json:"replacesKey,omitempty"`
	ReplacedBy        string `json:"replacedBy,omitempty"`
	SourceRegistryKey string `json:"sourceRegistryKey,omitempty"`
	Note              string `json:"note,omitempty"`
}

// IsProcessable reports whether downstream consumers may use the value.
// Placeholders never are, whatever their flags say.
func (t Token) IsProcessable() bool {
	if t.IsMissing || IsMissingValue(t.Value) {
		return false
	}
	return t.IsMatch || t.IsReplacement
}

// MissingValue returns the placeholder for an unresolved slot.
func MissingValue(key string) string {
	return MissingPrefix + strings.ToUpper(key)
}

// IsMissingValue reports whether v is an unresolved-slot placeholder.
func IsMissingValue(v string) bool {
	return strings.HasPrefix(v, MissingPrefix)
}

// Missing builds the placeholder token for key.
func Missing(key string, position int) Token {
	return Token{
		Key:       key,
		Value:     MissingValue(key),
		Position:  position,
		Segment:   -1,
		Kind:      KindBase,
		IsMissing: true,
	}
}
