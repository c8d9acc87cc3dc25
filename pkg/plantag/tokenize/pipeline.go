// Package tokenize turns a raw plant tag into classified tokens.
//
// The pipeline runs seven stages over one shared state:
//
//	raw tag → pre-processing → structural codification → regex base fallback
//	        → suffix recognition → codification validation → scoring
//	        → post-processing
//
// Stages record findings on the Result instead of failing. Only an empty tag
// (ErrHardInput) or a broken registry snapshot (ErrConfiguration) stops the
// recognition stages; scoring and post-processing always run so every
// Result is complete.
package tokenize

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
)

// ScoreDeltas are the per-token score contributions of each finding.
type ScoreDeltas struct {
	Codified       int
	Fallback       int
	Replacement    int
	Missing        int
	Suffix         int
	SuffixOverride int
	Consistent     int
	Inconsistent   int
	Uncodified     int
}

// Options configures a Pipeline.
type Options struct {
	// CodificationPrefixLen is the segment prefix length looked up in the
	// codification registry when the whole segment is not registered.
	CodificationPrefixLen int

	MinScore        int
	MaxScore        int
	ErrorScoreCap   int
	WarningScoreCap int
	Deltas          ScoreDeltas

	Logger *zap.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		CodificationPrefixLen: 3,
		MinScore:              -60,
		MaxScore:              60,
		ErrorScoreCap:         20,
		WarningScoreCap:       80,
		Deltas: ScoreDeltas{
			Codified:       5,
			Fallback:       3,
			Replacement:    2,
			Missing:        -5,
			Suffix:         2,
			SuffixOverride: 1,
			Consistent:     5,
			Inconsistent:   -5,
			Uncodified:     -2,
		},
	}
}

type stage struct {
	name string
	// final stages run even after a hard input error
	final bool
	run   func(st *state) error
}

// Pipeline tokenizes raw tags against a registry snapshot. It holds no
// per-item state and is safe for concurrent use.
type Pipeline struct {
	opts   Options
	log    *zap.Logger
	stages []stage
}

// New creates a pipeline. Zero-valued numeric options are not defaulted;
// start from DefaultOptions.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opts: opts,
		log:  log.Named("tokenize"),
		stages: []stage{
			{name: "PreProcessing", run: preProcess},
			{name: "StructuralCodification", run: structuralCodification},
			{name: "RegexBaseFallback", run: regexBaseFallback},
			{name: "SuffixRecognition", run: suffixRecognition},
			{name: "CodificationValidation", run: codificationValidation},
			{name: "Scoring", final: true, run: scoring},
			{name: "PostProcessing", final: true, run: postProcess},
		},
	}
}

// Run tokenizes raw. The returned Result is never nil. The error is non-nil
// only for ErrHardInput (this item is unusable) or ErrConfiguration (the
// snapshot is broken and the run should stop).
func (p *Pipeline) Run(snap *registry.Snapshot, raw string) (*Result, error) {
	st := &state{
		snap:     snap,
		opts:     p.opts,
		res:      newResult(raw),
		consumed: make(map[int]int),
		log:      p.log.With(zap.String("tag", raw)),
	}

	if err := snap.Validate(); err != nil {
		st.res.fail(err.Error())
		p.log.Error("registry snapshot rejected", zap.Error(err))
		return st.res, err
	}

	var hardErr error
	for _, s := range p.stages {
		if hardErr != nil && !s.final {
			continue
		}
		err := p.runStage(st, s)
		if err == nil {
			continue
		}
		if errors.Is(err, internalerr.ErrHardInput) || errors.Is(err, internalerr.ErrConfiguration) {
			st.res.fail(err.Error())
			st.log.Warn("tag rejected", zap.String("stage", s.name), zap.Error(err))
			if hardErr == nil {
				hardErr = err
			}
			continue
		}
		st.res.warn("%v", err)
		st.log.Debug("stage finding", zap.String("stage", s.name), zap.Error(err))
	}
	return st.res, hardErr
}

func (p *Pipeline) runStage(st *state, s stage) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = internalerr.Recovered(s.name, v)
		}
	}()
	if err := s.run(st); err != nil {
		return &internalerr.StageError{Stage: s.name, Err: err}
	}
	return nil
}

// state is the mutable context shared by the stages of one run.
type state struct {
	snap *registry.Snapshot
	opts Options
	res  *Result
	log  *zap.Logger

	// consumed maps a segment index to the canonical position of the slot
	// that claimed it.
	consumed map[int]int
}

func (st *state) consume(segment, position int) {
	if segment >= 0 {
		st.consumed[segment] = position
	}
}

// claimable reports whether a slot at position may read segment: it is
// free, or claimed by a slot sharing the same canonical position.
func (st *state) claimable(segment, position int) bool {
	pos, taken := st.consumed[segment]
	return !taken || pos == position
}

func (st *state) isConsumed(segment int) bool {
	_, taken := st.consumed[segment]
	return taken
}

// position returns the canonical position of key, or fallback when the
// pattern registry does not declare it.
func (st *state) position(key string, fallback int) int {
	if pos, ok := st.snap.Patterns.Position(key); ok {
		return pos
	}
	return fallback
}

// lastPosition is the highest declared canonical position.
func (st *state) lastPosition() int {
	last := 0
	for _, p := range st.snap.Patterns.All() {
		if p.Position > last {
			last = p.Position
		}
	}
	return last
}

// open reports whether a slot can still be filled: absent, or a plain
// placeholder that no other slot already covers.
func (st *state) open(key string) bool {
	t, ok := st.res.Tokens.Get(key)
	if !ok {
		return true
	}
	return !t.IsProcessable() && t.ReplacedBy == ""
}

// lookupCodification tries the whole segment, then its fixed-length prefix.
func (st *state) lookupCodification(segment string) (registry.CodificationEntry, bool) {
	if e, ok := st.snap.Codification.Lookup(segment); ok {
		return e, true
	}
	n := st.opts.CodificationPrefixLen
	if n > 0 && len(segment) > n {
		if e, ok := st.snap.Codification.Lookup(segment[:n]); ok {
			return e, true
		}
	}
	return registry.CodificationEntry{}, false
}

func errEmptyTag(raw string) error {
	return fmt.Errorf("raw tag %q is empty: %w", raw, internalerr.ErrHardInput)
}
