package tokenize

import (
	"math"
	"strings"

	"github.com/cognicore/plantag/pkg/plantag/token"
)

// scoring folds the per-token deltas into a 0-100 confidence value.
func scoring(st *state) error {
	r := st.res
	sum := 0
	for _, v := range r.TokenScores {
		sum += v
	}
	total := sum
	if len(r.TokenScores) == 0 {
		total = r.TotalScore
	} else if sum != r.TotalScore {
		r.message("token scores drifted (%d != %d), using total", sum, r.TotalScore)
		total = r.TotalScore
	}

	lo, hi := st.opts.MinScore, st.opts.MaxScore
	if hi <= lo {
		lo, hi = DefaultOptions().MinScore, DefaultOptions().MaxScore
	}
	clamped := min(max(total, lo), hi)
	score := int(math.Round(float64(clamped-lo) * 100 / float64(hi-lo)))

	r.Score0to100 = st.capScore(score)
	return nil
}

// capScore limits score once errors or warnings are on record.
func (st *state) capScore(score int) int {
	r := st.res
	switch {
	case r.HasErrors() && score > st.opts.ErrorScoreCap:
		return st.opts.ErrorScoreCap
	case r.HasWarnings() && score > st.opts.WarningScoreCap:
		return st.opts.WarningScoreCap
	}
	return score
}

// postProcess splits tokens into valid and excluded sets, orders the valid
// ones canonically and checks that their source segments follow that order.
func postProcess(st *state) error {
	r := st.res
	valid := make([]token.Token, 0, r.Tokens.Len())
	excluded := token.NewSet()
	for _, t := range r.Tokens.Entries() {
		if t.IsProcessable() && strings.TrimSpace(t.Value) != "" {
			valid = append(valid, t)
		} else {
			excluded.Put(t)
		}
	}
	token.SortCanonical(valid)

	tokens := token.NewSet()
	for _, t := range valid {
		tokens.Put(t)
	}
	r.Tokens = tokens
	r.ExcludedTokens = excluded

	lastSeg, lastKey := -1, ""
	for _, t := range valid {
		if t.Segment < 0 || !st.ordered(t.Key) {
			continue
		}
		if t.Segment < lastSeg {
			r.structural("token order inversion: %s (segment %d) follows %s (segment %d)", t.Key, t.Segment, lastKey, lastSeg)
			continue
		}
		lastSeg, lastKey = t.Segment, t.Key
	}

	// The order check may add warnings after scoring.
	r.Score0to100 = st.capScore(r.Score0to100)

	r.IsValid = !r.HasErrors() && len(valid) > 0
	r.IsConsistencyChecked = true
	return nil
}

// ordered reports whether key takes part in the order check: base slots
// and the discipline and entity suffixes.
func (st *state) ordered(key string) bool {
	if key == token.KeyDiscipline || key == token.KeyEntity {
		return true
	}
	return st.snap != nil && st.snap.Patterns.IsBase(key)
}
