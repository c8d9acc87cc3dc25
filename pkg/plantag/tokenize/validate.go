package tokenize

import (
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// codificationChain is the structural backbone, parent first.
var codificationChain = []string{
	token.KeyPlant,
	token.KeyPlantUnit,
	token.KeyPlantSection,
	token.KeyEquipment,
}

// codificationValidation checks parent/child consistency of the resolved
// backbone against the codification registry. It only adjusts scores and
// messages; resolved values are never touched. Slots filled by an exception
// suffix are not codification values and are skipped.
func codificationValidation(st *state) error {
	d := st.opts.Deltas
	codes := make(map[string]string, len(codificationChain))

	for i, key := range codificationChain {
		t, ok := st.res.Tokens.Processable(key)
		if !ok || t.Kind == token.KindSuffix {
			continue
		}
		entry, codified := st.codeOf(t)
		if !codified {
			st.res.addScore(key, d.Uncodified)
			st.res.structural("%s value %q is not codified", key, t.Value)
			continue
		}
		codes[key] = entry.Code

		if i == 0 {
			st.res.addScore(key, d.Consistent)
			st.res.message("%s %s is a registered root", key, entry.Code)
			continue
		}
		parentKey := codificationChain[i-1]
		parentCode, known := codes[parentKey]
		if !known {
			st.res.message("%s %s: parent %s not codified, consistency not checked", key, entry.Code, parentKey)
			continue
		}
		if entry.ParentCode == parentCode {
			st.res.addScore(key, d.Consistent)
			st.res.message("%s %s is registered under %s %s", key, entry.Code, parentKey, parentCode)
			continue
		}
		st.res.addScore(key, d.Inconsistent)
		st.res.structural("%s %s is registered under %q, but %s is %s", key, entry.Code, entry.ParentCode, parentKey, parentCode)
	}
	return nil
}

// codeOf returns the codification entry behind a token: the code recorded
// by the codification stage, or a registry hit on the value whose type
// matches the slot.
func (st *state) codeOf(t token.Token) (registry.CodificationEntry, bool) {
	want := registry.CodificationTypeForSlot(t.Key)
	if t.Kind == token.KindCodification && t.SourceRegistryKey != "" {
		if e, ok := st.snap.Codification.Lookup(t.SourceRegistryKey); ok {
			return e, true
		}
	}
	e, ok := st.lookupCodification(t.Value)
	if !ok || e.Type != want {
		return registry.CodificationEntry{}, false
	}
	return e, true
}
