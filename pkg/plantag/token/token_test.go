package token

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingNeverProcessable(t *testing.T) {
	m := Missing(KeyPlantSection, 2)
	assert.Equal(t, "MISSING_PLANTSECTION", m.Value)
	assert.False(t, m.IsProcessable())

	// A placeholder value stays unprocessable even if flags claim a match.
	m.IsMissing = false
	m.IsMatch = true
	assert.False(t, m.IsProcessable())
}

func TestIsProcessable(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
		want bool
	}{
		{"match", Token{Value: "AGL01", IsMatch: true}, true},
		{"replacement", Token{Value: "CP05", IsReplacement: true}, true},
		{"neither", Token{Value: "AGL01"}, false},
		{"missing flag", Token{Value: "AGL01", IsMatch: true, IsMissing: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.IsProcessable())
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Codification ")
	require.NoError(t, err)
	assert.Equal(t, KindCodification, k)

	_, err = ParseKind("prefix")
	assert.Error(t, err)
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestSetPutReplacesInPlace(t *testing.T) {
	s := NewSet()
	s.Put(Token{Key: KeyPlant, Value: "A", Position: 0})
	s.Put(Token{Key: KeyEquipment, Value: "B", Position: 3})
	s.Put(Token{Key: KeyPlant, Value: "C", Position: 0})

	assert.Equal(t, []string{KeyPlant, KeyEquipment}, s.Keys())
	got, ok := s.Get(KeyPlant)
	require.True(t, ok)
	assert.Equal(t, "C", got.Value)
}

func TestSetDeleteReindexes(t *testing.T) {
	s := NewSet()
	for _, k := range []string{KeyPlant, KeyPlantUnit, KeyPlantSection} {
		s.Put(Token{Key: k, Value: k})
	}
	assert.True(t, s.Delete(KeyPlant))
	assert.False(t, s.Delete(KeyPlant))

	got, ok := s.Get(KeyPlantSection)
	require.True(t, ok)
	assert.Equal(t, KeyPlantSection, got.Value)
	assert.Equal(t, 2, s.Len())
}

func TestSortedTieBreaksByKey(t *testing.T) {
	s := NewSet()
	s.Put(Token{Key: KeyEquipment, Position: 3})
	s.Put(Token{Key: KeyPlant, Position: 0})
	s.Put(Token{Key: KeyComponent, Position: 3})
	s.Put(Token{Key: "affix", Position: 0})

	var keys []string
	for _, tok := range s.Sorted() {
		keys = append(keys, tok.Key)
	}
	assert.Equal(t, []string{"affix", KeyPlant, KeyComponent, KeyEquipment}, keys)
	// Reading sorted must not reorder storage.
	assert.Equal(t, []string{KeyEquipment, KeyPlant, KeyComponent, "affix"}, s.Keys())
}

func TestSetValueSkipsPlaceholders(t *testing.T) {
	s := NewSet()
	s.Put(Missing(KeyEquipment, 3))
	s.Put(Token{Key: KeyPlant, Value: "AGL01", IsMatch: true})

	assert.Equal(t, "", s.Value(KeyEquipment))
	assert.Equal(t, "AGL01", s.Value(KeyPlant))
	assert.False(t, s.Resolved(KeyEquipment))
}

func TestSetJSONRoundTripKeepsCanonicalOrder(t *testing.T) {
	s := NewSet()
	s.Put(Token{Key: KeyEntity, Value: "SDE", Position: 6, Kind: KindSuffix, IsMatch: true})
	s.Put(Token{Key: KeyPlant, Value: "AGL01", Position: 0, Kind: KindCodification, IsMatch: true})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	back := NewSet()
	require.NoError(t, json.Unmarshal(data, back))
	if diff := cmp.Diff(s.Sorted(), back.Entries()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewSet()
	s.Put(Token{Key: KeyPlant, Value: "AGL01"})
	c := s.Clone()
	c.Put(Token{Key: KeyPlant, Value: "XYZ"})

	assert.Equal(t, "AGL01", s.Values()[KeyPlant])
}

func TestZeroSetAcceptsPut(t *testing.T) {
	var s Set
	s.Put(Token{Key: KeyPlant, Value: "AGL01"})
	s.Put(Token{Key: KeyPlant, Value: "AGL02"})
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "AGL02", s.Value(KeyPlant))
}
