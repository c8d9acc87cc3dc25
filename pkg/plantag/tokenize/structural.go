package tokenize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

func preProcess(st *state) error {
	raw := st.res.RawInput
	if strings.TrimSpace(raw) == "" {
		return errEmptyTag(raw)
	}
	segments := Split(raw)
	if len(segments) == 0 {
		return errEmptyTag(raw)
	}
	st.res.NormalizedInput = strings.Join(segments, Delimiter)
	st.res.Segments = segments
	st.log.Debug("normalized", zap.Strings("segments", segments))
	return nil
}

// structuralCodification resolves slots from registered codes. It never
// writes placeholders; unresolved slots are left to the regex fallback.
func structuralCodification(st *state) error {
	for i, seg := range st.res.Segments {
		entry, ok := st.lookupCodification(seg)
		if !ok {
			continue
		}
		key := entry.Type.SlotKey()
		if key == "" {
			continue
		}
		if st.res.Tokens.Resolved(key) {
			st.res.message("segment %q codified as %s %s, slot already resolved", seg, key, entry.Code)
			continue
		}
		pos := st.position(key, int(entry.Type)-1)
		st.res.Tokens.Put(token.Token{
			Key:               key,
			Value:             seg,
			Position:          pos,
			Segment:           i,
			Kind:              token.KindCodification,
			IsMatch:           true,
			SourceRegistryKey: entry.Code,
			Note:              "codification " + entry.Code,
		})
		st.consume(i, pos)
		st.res.addScore(key, st.opts.Deltas.Codified)
		st.res.message("%s resolved from codification %s (%q)", key, entry.Code, seg)
	}
	return nil
}

// regexBaseFallback resolves every base slot codification left open by
// matching the segment at the slot's canonical position.
func regexBaseFallback(st *state) error {
	segs := st.res.Segments
	d := st.opts.Deltas

	for _, a := range st.snap.Patterns.Affixes() {
		if a.Position >= len(segs) || st.res.Tokens.Resolved(a.Key) || !st.claimable(a.Position, a.Position) {
			continue
		}
		if seg := segs[a.Position]; a.Match(seg) {
			st.res.Tokens.Put(token.Token{
				Key:      a.Key,
				Value:    seg,
				Position: a.Position,
				Segment:  a.Position,
				Kind:     token.KindAffix,
				IsMatch:  true,
			})
			st.consume(a.Position, a.Position)
		}
	}

	base := st.snap.Patterns.Base()
	for _, p := range base {
		if st.res.Tokens.Resolved(p.Key) {
			continue
		}
		if t, ok := st.res.Tokens.Get(p.Key); ok && t.ReplacedBy != "" {
			continue
		}

		idx := p.Position
		if idx < 0 || idx >= len(segs) {
			st.markMissing(p, "no segment at position %d", idx)
			continue
		}
		if !st.claimable(idx, p.Position) {
			st.markMissing(p, "segment %d %q already claimed", idx, segs[idx])
			continue
		}

		seg := segs[idx]
		if p.Match(seg) {
			st.res.Tokens.Put(token.Token{
				Key:        p.Key,
				Value:      seg,
				Position:   p.Position,
				Segment:    idx,
				Kind:       token.KindBase,
				IsMatch:    true,
				IsFallback: true,
				Note:       "pattern " + p.Key,
			})
			st.consume(idx, p.Position)
			st.res.addScore(p.Key, d.Fallback)
			st.res.message("%s resolved by pattern (%q)", p.Key, seg)
			continue
		}

		if alt, ok := alternativeAt(st, base, p, seg); ok {
			st.res.Tokens.Put(token.Token{
				Key:           alt.Key,
				Value:         seg,
				Position:      alt.Position,
				Segment:       idx,
				Kind:          token.KindBase,
				IsReplacement: true,
				IsFallback:    true,
				ReplacesKey:   p.Key,
				Note:          alt.Key + " replaces " + p.Key,
			})
			placeholder := token.Missing(p.Key, p.Position)
			placeholder.ReplacedBy = alt.Key
			st.res.Tokens.Put(placeholder)
			st.consume(idx, p.Position)
			st.res.addScore(alt.Key, d.Replacement)
			st.res.message("%s replaced by %s (%q)", p.Key, alt.Key, seg)
			continue
		}

		st.markMissing(p, "segment %q does not match", seg)
	}
	return nil
}

// alternativeAt finds another open base slot declared at the same canonical
// position whose pattern matches seg.
func alternativeAt(st *state, base []registry.Pattern, expected registry.Pattern, seg string) (registry.Pattern, bool) {
	for _, p := range base {
		if p.Key == expected.Key || p.Position != expected.Position {
			continue
		}
		if st.res.Tokens.Resolved(p.Key) {
			continue
		}
		if p.Match(seg) {
			return p, true
		}
	}
	return registry.Pattern{}, false
}

func (st *state) markMissing(p registry.Pattern, reason string, args ...any) {
	st.res.Tokens.Put(token.Missing(p.Key, p.Position))
	st.res.addScore(p.Key, st.opts.Deltas.Missing)
	st.res.structural("%s unresolved: "+reason, append([]any{p.Key}, args...)...)
}
