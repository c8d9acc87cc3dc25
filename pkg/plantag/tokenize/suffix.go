package tokenize

import (
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

func suffixRecognition(st *state) error {
	recognizeCodeSuffix(st, token.KeyDiscipline, st.snap.Disciplines, st.lastPosition()+1)
	recognizeCodeSuffix(st, token.KeyEntity, st.snap.Entities, st.lastPosition()+2)

	base := st.snap.Patterns.Base()
	for _, p := range st.snap.Patterns.Suffixes() {
		idx, ok := firstFreeMatch(st, p)
		if !ok {
			continue
		}
		applySuffix(st, base, p, idx)
	}
	return nil
}

// recognizeCodeSuffix scans segments from the end for a member of codes.
// The first hit wins.
func recognizeCodeSuffix(st *state, key string, codes *registry.CodeSet, fallbackPos int) {
	if st.res.Tokens.Resolved(key) {
		return
	}
	segs := st.res.Segments
	for i := len(segs) - 1; i >= 0; i-- {
		if st.isConsumed(i) || !codes.Contains(segs[i]) {
			continue
		}
		pos := st.position(key, fallbackPos)
		st.res.Tokens.Put(token.Token{
			Key:               key,
			Value:             segs[i],
			Position:          pos,
			Segment:           i,
			Kind:              token.KindSuffix,
			IsMatch:           true,
			SourceRegistryKey: segs[i],
		})
		st.consume(i, pos)
		st.res.addScore(key, st.opts.Deltas.Suffix)
		st.res.message("%s recognized (%q)", key, segs[i])
		return
	}
	st.res.message("no %s code in tag", key)
}

func firstFreeMatch(st *state, p registry.Pattern) (int, bool) {
	for i, seg := range st.res.Segments {
		if st.isConsumed(i) {
			continue
		}
		if p.Match(seg) {
			return i, true
		}
	}
	return -1, false
}

// applySuffix fills the suffix's target base slot when it is still open,
// otherwise keeps the suffix under its own key.
func applySuffix(st *state, base []registry.Pattern, p registry.Pattern, idx int) {
	seg := st.res.Segments[idx]
	d := st.opts.Deltas

	var target registry.Pattern
	var found bool
	if p.Exception {
		st.res.HasSectionToken = true
		target, found = st.snap.Patterns.Get(token.KeyPlantSection)
	} else {
		target, found = suffixTarget(base, p)
	}

	if found && st.open(target.Key) {
		_, wasPlaceholder := st.res.Tokens.Get(target.Key)
		st.res.Tokens.Delete(p.Key)
		st.res.Tokens.Put(token.Token{
			Key:               target.Key,
			Value:             seg,
			Position:          target.Position,
			Segment:           idx,
			Kind:              token.KindSuffix,
			IsMatch:           true,
			IsFallback:        true,
			SourceRegistryKey: p.Key,
			Note:              p.Key + " override",
		})
		st.consume(idx, target.Position)
		delta := d.SuffixOverride
		if wasPlaceholder {
			delta -= d.Missing
		}
		st.res.addScore(target.Key, delta)
		st.res.message("%s overridden by %s suffix (%q)", target.Key, p.Key, seg)
		return
	}

	if _, exists := st.res.Tokens.Get(p.Key); exists {
		return
	}
	st.res.Tokens.Put(token.Token{
		Key:      p.Key,
		Value:    seg,
		Position: p.Position,
		Segment:  idx,
		Kind:     token.KindSuffix,
		IsMatch:  true,
	})
	st.consume(idx, p.Position)
	st.res.addScore(p.Key, d.Suffix)
	if found {
		st.res.message("%s suffix (%q) kept, %s already resolved", p.Key, seg, target.Key)
	} else {
		st.res.message("%s suffix (%q) has no target slot", p.Key, seg)
	}
}

// suffixTarget picks the base slot a suffix may replace: the nearest one at
// or before its position, or the next one after it for incremental markers.
// Among slots sharing a position the first declared wins.
func suffixTarget(base []registry.Pattern, p registry.Pattern) (registry.Pattern, bool) {
	var target registry.Pattern
	found := false
	for _, b := range base {
		if p.TargetsNext {
			if b.Position > p.Position {
				return b, true
			}
			continue
		}
		if b.Position <= p.Position && (!found || b.Position > target.Position) {
			target, found = b, true
		}
	}
	return target, found
}
