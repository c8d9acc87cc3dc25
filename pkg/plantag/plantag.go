// Package plantag classifies freeform plant item tags. An Engine runs each
// item through tokenization, disposition and hierarchy placement against one
// immutable registry snapshot.
package plantag

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/plantag/pkg/plantag/disposition"
	"github.com/cognicore/plantag/pkg/plantag/hierarchy"
	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/store"
	"github.com/cognicore/plantag/pkg/plantag/token"
	"github.com/cognicore/plantag/pkg/plantag/tokenize"
)

// Engine is the classification facade. It is safe for concurrent use.
type Engine struct {
	holder    *registry.Holder
	store     store.Store
	tokenizer *tokenize.Pipeline
	disposer  *disposition.Pipeline
	builder   *hierarchy.Builder
	log       *zap.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine. Start from DefaultOptions.
type Options struct {
	Registry *registry.Holder
	// Store, when set, receives the outcome of every processed item.
	Store store.Store

	Tokenize    tokenize.Options
	Disposition disposition.Options
	Hierarchy   hierarchy.Options

	Logger *zap.Logger
}

// DefaultOptions returns options with production pipeline settings and no
// registry.
func DefaultOptions() Options {
	return Options{
		Tokenize:    tokenize.DefaultOptions(),
		Disposition: disposition.DefaultOptions(),
		Hierarchy:   hierarchy.DefaultOptions(),
	}
}

// New creates an engine. The registry holder is required; it may still be
// empty, in which case processing fails until a snapshot is loaded.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("engine needs a registry holder: %w", internalerr.ErrConfiguration)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Tokenize.Logger == nil {
		opts.Tokenize.Logger = log
	}
	if opts.Disposition.Logger == nil {
		opts.Disposition.Logger = log
	}
	if opts.Hierarchy.Logger == nil {
		opts.Hierarchy.Logger = log
	}
	return &Engine{
		holder:    opts.Registry,
		store:     opts.Store,
		tokenizer: tokenize.New(opts.Tokenize),
		disposer:  disposition.New(opts.Disposition),
		builder:   hierarchy.NewBuilder(opts.Hierarchy),
		log:       log.Named("engine"),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Item is one plant item to classify.
type Item struct {
	ID         string `json:"id,omitempty"`
	Tag        string `json:"tag"`
	Discipline string `json:"discipline,omitempty"`
}

// Outcome gathers the three results of one item. Every field is populated
// even when processing failed, except Chain, which is nil for items rejected
// by a hard input error.
type Outcome struct {
	ItemID          string              `json:"itemId"`
	Tag             string              `json:"tag"`
	Discipline      string              `json:"discipline,omitempty"`
	SnapshotVersion string              `json:"snapshotVersion"`
	Tokens          *tokenize.Result    `json:"tokens"`
	Disposition     *disposition.Result `json:"disposition"`
	Chain           []*hierarchy.Node   `json:"chain,omitempty"`

	// Err is the hard input error that stopped this item, if any.
	Err error `json:"-"`
}

// Failed reports whether a hard input error stopped the item.
func (o *Outcome) Failed() bool { return o.Err != nil }

// Snapshot returns the current registry snapshot.
func (e *Engine) Snapshot() (*registry.Snapshot, error) {
	return e.holder.Snapshot()
}

// Reload replaces the registry snapshot from src. Items already in flight
// finish against the snapshot they started with.
func (e *Engine) Reload(ctx context.Context, src registry.Source) (*registry.Snapshot, error) {
	snap, err := e.holder.Reload(ctx, src)
	if err != nil {
		e.log.Error("registry reload failed", zap.Error(err))
		return nil, err
	}
	e.log.Info("registry reloaded", zap.String("version", snap.Version))
	return snap, nil
}

// Process classifies one item against the current snapshot. A hard input
// error is returned together with the outcome; a configuration error comes
// back with a nil outcome.
func (e *Engine) Process(ctx context.Context, item Item) (*Outcome, error) {
	snap, err := e.holder.Snapshot()
	if err != nil {
		return nil, err
	}
	return e.process(ctx, snap, item)
}

// ProcessBatch classifies items on up to workers goroutines. The whole batch
// sees one snapshot and the output keeps the input order. Hard input errors
// stay on their outcome; a configuration or store error cancels the batch.
func (e *Engine) ProcessBatch(ctx context.Context, items []Item, workers int) ([]*Outcome, error) {
	snap, err := e.holder.Snapshot()
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]*Outcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := e.process(gctx, snap, item)
			out[i] = o
			if err != nil && !errors.Is(err, internalerr.ErrHardInput) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	e.log.Debug("batch done", zap.Int("items", len(items)), zap.String("snapshot", snap.Version))
	return out, nil
}

// Tree consolidates the chains of outcomes into one hierarchy.
func Tree(outcomes []*Outcome) *hierarchy.Node {
	chains := make([][]*hierarchy.Node, 0, len(outcomes))
	for _, o := range outcomes {
		if o != nil && len(o.Chain) > 0 {
			chains = append(chains, o.Chain)
		}
	}
	return hierarchy.Consolidate(chains)
}

func (e *Engine) process(ctx context.Context, snap *registry.Snapshot, item Item) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := item.ID
	if id == "" {
		id = e.newID()
	}
	log := e.log.With(zap.String("item", id))

	tr, err := e.tokenizer.Run(snap, item.Tag)
	if errors.Is(err, internalerr.ErrConfiguration) {
		log.Error("registry snapshot rejected", zap.Error(err))
		return nil, err
	}
	hardErr := err

	discipline := item.Discipline
	if discipline == "" {
		discipline = tr.Tokens.Value(token.KeyDiscipline)
	}

	dr, err := e.disposer.Run(id, discipline, tr)
	if err != nil && hardErr == nil {
		hardErr = err
	}

	o := &Outcome{
		ItemID:          id,
		Tag:             item.Tag,
		Discipline:      discipline,
		SnapshotVersion: snap.Version,
		Tokens:          tr,
		Disposition:     dr,
		Err:             hardErr,
	}

	if hardErr == nil {
		o.Chain, err = e.builder.Build(snap.Hierarchy, hierarchy.Item{ID: id, Discipline: discipline, Tokens: tr.Tokens})
		if err != nil {
			log.Error("hierarchy build failed", zap.Error(err))
			return nil, err
		}
	} else {
		log.Warn("item rejected", zap.Error(hardErr))
	}

	if e.store != nil {
		if err := e.store.UpsertOutcome(ctx, record(o)); err != nil {
			return o, fmt.Errorf("store outcome %s: %w", id, err)
		}
	}
	return o, hardErr
}

func (e *Engine) newID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Now(), e.entropy).String()
}

func record(o *Outcome) store.Outcome {
	r := store.Outcome{
		ItemID:          o.ItemID,
		Tag:             o.Tag,
		Discipline:      o.Discipline,
		SnapshotVersion: o.SnapshotVersion,
	}
	if o.Tokens != nil {
		r.Score = o.Tokens.Score0to100
	}
	if d := o.Disposition; d != nil {
		r.Bucket = d.QualityBucket.String()
		r.Route = d.Route
		r.QualityLabel = d.QualityLabel
	}
	for _, n := range o.Chain {
		r.Chain = append(r.Chain, n.Tag)
	}
	return r
}
