package registry

import (
	"sort"
	"strings"
)

// CodeSet is a set of valid codes, used for the discipline and entity lists.
type CodeSet struct {
	codes map[string]struct{}
}

// NewCodeSet builds a set from codes, upper-casing and trimming each.
func NewCodeSet(codes []string) *CodeSet {
	s := &CodeSet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			s.codes[c] = struct{}{}
		}
	}
	return s
}

// Contains reports membership. A nil set contains nothing.
func (s *CodeSet) Contains(code string) bool {
	if s == nil {
		return false
	}
	_, ok := s.codes[strings.ToUpper(code)]
	return ok
}

// Len returns the number of codes.
func (s *CodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.codes)
}

// Codes returns the codes sorted.
func (s *CodeSet) Codes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
