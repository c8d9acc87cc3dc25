package token

import (
	"encoding/json"
	"sort"
	"strings"
)

// Set holds tokens keyed by canonical slot. Insertion order is kept and
// ordering by canonical position happens on read, never by reinsertion.
type Set struct {
	entries []Token
	index   map[string]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Len returns the number of tokens.
func (s *Set) Len() int { return len(s.entries) }

// Get returns the token stored under key.
func (s *Set) Get(key string) (Token, bool) {
	i, ok := s.index[key]
	if !ok {
		return Token{}, false
	}
	return s.entries[i], true
}

// Put stores t under t.Key, replacing any previous token in place.
func (s *Set) Put(t Token) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[t.Key]; ok {
		s.entries[i] = t
		return
	}
	s.index[t.Key] = len(s.entries)
	s.entries = append(s.entries, t)
}

// Delete removes the token under key and reports whether one existed.
func (s *Set) Delete(key string) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].Key] = j
	}
	return true
}

// Processable returns the token under key if it is processable.
func (s *Set) Processable(key string) (Token, bool) {
	t, ok := s.Get(key)
	if !ok || !t.IsProcessable() {
		return Token{}, false
	}
	return t, true
}

// Resolved reports whether key holds a processable value.
func (s *Set) Resolved(key string) bool {
	_, ok := s.Processable(key)
	return ok
}

// Value returns the processable value under key, or "".
func (s *Set) Value(key string) string {
	t, _ := s.Processable(key)
	return t.Value
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, t := range s.entries {
		keys[i] = t.Key
	}
	return keys
}

// Entries returns a copy of the tokens in insertion order.
func (s *Set) Entries() []Token {
	out := make([]Token, len(s.entries))
	copy(out, s.entries)
	return out
}

// Sorted returns a copy ordered by canonical position, ties broken by key
// case-insensitively.
func (s *Set) Sorted() []Token {
	out := s.Entries()
	SortCanonical(out)
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := NewSet()
	for _, t := range s.entries {
		c.Put(t)
	}
	return c
}

// Values maps each key to its value, placeholders included.
func (s *Set) Values() map[string]string {
	out := make(map[string]string, len(s.entries))
	for _, t := range s.entries {
		out[t.Key] = t.Value
	}
	return out
}

// MarshalJSON writes the tokens in canonical order.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON reads a token array.
func (s *Set) UnmarshalJSON(data []byte) error {
	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	s.entries = nil
	s.index = make(map[string]int, len(tokens))
	for _, t := range tokens {
		s.Put(t)
	}
	return nil
}

// SortCanonical orders tokens by position, then key case-insensitively.
func SortCanonical(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Position != tokens[j].Position {
			return tokens[i].Position < tokens[j].Position
		}
		return strings.ToLower(tokens[i].Key) < strings.ToLower(tokens[j].Key)
	})
}
