// Package disposition decides what happens to a tokenized item: which
// quality bucket it falls into and which hierarchy it is routed to.
package disposition

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/tokenize"
)

// ErrNoTokenResult is returned when a stage is handed no tokenization
// result. It is a caller bug, not a data-quality finding.
var ErrNoTokenResult = fmt.Errorf("tokenization result is absent: %w", internalerr.ErrHardInput)

// Options configures a Pipeline.
type Options struct {
	// HighScore is the tokenization score from which a FinalImport item is
	// labelled High quality.
	HighScore int
	Logger    *zap.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{HighScore: 80}
}

type stage struct {
	name string
	run  func(p *Pipeline, r *Result) error
}

// Pipeline runs the six disposition stages. It is safe for concurrent use.
type Pipeline struct {
	opts   Options
	log    *zap.Logger
	stages []stage
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opts: opts,
		log:  log.Named("disposition"),
		stages: []stage{
			{"PreProcessing", (*Pipeline).preProcess},
			{"TokenSnapshot", (*Pipeline).tokenSnapshot},
			{"QualityAssessment", (*Pipeline).qualityAssessment},
			{"BucketAssignment", (*Pipeline).bucketAssignment},
			{"RouteResolution", (*Pipeline).routeResolution},
			{"Consistency", (*Pipeline).consistency},
		},
	}
}

// Run classifies one item. The Result is never nil. A non-nil error means
// tr was absent; every data-quality issue is recorded on the Result instead.
func (p *Pipeline) Run(itemID, discipline string, tr *tokenize.Result) (*Result, error) {
	r := newResult(itemID, discipline, tr)
	log := p.log.With(zap.String("item", itemID))

	for _, s := range p.stages {
		err := p.runStage(s, r)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrNoTokenResult) {
			r.fail("%v", err)
			r.IsValid = false
			r.IsConsistencyChecked = true
			log.Error("disposition aborted", zap.String("stage", s.name), zap.Error(err))
			return r, err
		}
		r.warn("%v", err)
		log.Debug("stage finding", zap.String("stage", s.name), zap.Error(err))
	}

	log.Debug("disposition",
		zap.Stringer("bucket", r.QualityBucket),
		zap.String("route", r.Route),
		zap.String("quality", r.QualityLabel),
		zap.Bool("valid", r.IsValid))
	return r, nil
}

func (p *Pipeline) runStage(s stage, r *Result) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = internalerr.Recovered(s.name, v)
		}
	}()
	if r.Tokens == nil {
		return &internalerr.StageError{Stage: s.name, Err: ErrNoTokenResult}
	}
	if err := s.run(p, r); err != nil {
		return &internalerr.StageError{Stage: s.name, Err: err}
	}
	return nil
}
