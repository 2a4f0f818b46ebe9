package corpus

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/graph"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/nullmodel"
	"github.com/gilchrisn/graph-motif-service/pkg/threshold"
)

// ProgressCallback reports each processed subject: its index, id and whether it was kept
type ProgressCallback func(index int, subjectID string, accepted bool)

// Builder produces corpora from subject matrices, going through a Store when UseCache is set
type Builder struct {
	Store      Store                 // may be nil when UseCache is false
	Counter    motif.Counter         // required on a cache miss
	Randomizer *nullmodel.Randomizer // inline null model when no SwapSet slot is available
	SwapSet    *nullmodel.SwapSet    // optional precomputed null models, by subject index
	UseCache   bool
	Progress   ProgressCallback

	logger zerolog.Logger
}

// BuildResult describes one BuildOrLoad call
type BuildResult struct {
	Corpus   *Corpus
	Rejected int    // subjects dropped at thresholding
	Cached   bool   // served from the store without computing
	RunID    string // identifies this build in logs
}

// NewBuilder creates a builder with caching enabled when store is non-nil
func NewBuilder(store Store, counter motif.Counter, randomizer *nullmodel.Randomizer, logger zerolog.Logger) *Builder {
	return &Builder{
		Store:      store,
		Counter:    counter,
		Randomizer: randomizer,
		UseCache:   store != nil,
		logger:     logger,
	}
}

// BuildOrLoad returns the corpus for key. A cache hit skips thresholding and counting
// entirely. On a miss every subject is processed in order and the result is stored only
// after all subjects succeeded; a failure leaves no entry for key.
func (b *Builder) BuildOrLoad(ctx context.Context, key Key, subjects []dataset.Subject) (*BuildResult, error) {
	runID := uuid.New().String()
	logger := b.logger.With().Str("run_id", runID).Str("key", key.String()).Logger()

	if b.UseCache {
		if b.Store == nil {
			return nil, errors.New("cache enabled without a store")
		}
		c, err := b.Store.Load(key)
		switch {
		case err == nil:
			logger.Info().Int("subjects", c.Len()).Msg("Corpus loaded from cache")
			return &BuildResult{Corpus: c, Cached: true, RunID: runID}, nil
		case errors.Is(err, ErrCacheMiss):
			logger.Debug().Msg("Cache miss")
		default:
			return nil, err
		}
	}

	c, rejected, err := b.build(ctx, key, subjects, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", key)
	}

	if b.UseCache {
		if err := b.Store.Save(key, c); err != nil {
			return nil, errors.Wrapf(err, "failed to store corpus %s", key)
		}
	}

	return &BuildResult{Corpus: c, Rejected: rejected, RunID: runID}, nil
}

func (b *Builder) build(ctx context.Context, key Key, subjects []dataset.Subject, logger zerolog.Logger) (*Corpus, int, error) {
	if b.Counter == nil {
		return nil, 0, errors.New("no motif counter configured")
	}
	if key.Null && b.SwapSet == nil && b.Randomizer == nil {
		return nil, 0, errors.New("null-model corpus requested without randomizer or swap set")
	}

	start := time.Now()
	logger.Info().Int("subjects", len(subjects)).Bool("null", key.Null).Msg("Building corpus")

	th := threshold.NewThresholder(key.Degree, logger)
	c := New(key)

	for i, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, th.Rejected, err
		}

		g, ok := th.Apply(subject.ID, subject.Matrix)
		if !ok {
			b.report(i, subject.ID, false)
			continue
		}

		if key.Null {
			var err error
			if g, err = b.nullGraph(key, i, g); err != nil {
				return nil, th.Rejected, errors.Wrapf(err, "subject %s", subject.ID)
			}
		}

		census, err := b.Counter.CountMotifs(ctx, g, key.MotifSize)
		if err != nil {
			return nil, th.Rejected, errors.Wrapf(err, "subject %s", subject.ID)
		}
		freqs, err := census.Normalize()
		if err != nil {
			return nil, th.Rejected, errors.Wrapf(err, "subject %s", subject.ID)
		}

		c.add(Record{Subgraphs: census.Total, Frequencies: freqs})
		b.report(i, subject.ID, true)
	}

	logger.Info().
		Int("accepted", th.Accepted).
		Int("rejected", th.Rejected).
		Int("motifs", len(c.ids)).
		Dur("elapsed", time.Since(start)).
		Msg("Corpus built")

	return c, th.Rejected, nil
}

// nullGraph prefers the precomputed slot for subject index i and falls back to
// randomizing the thresholded graph in place
func (b *Builder) nullGraph(key Key, i int, g *graph.Digraph) (*graph.Digraph, error) {
	if b.SwapSet != nil && b.SwapSet.Degree == key.Degree {
		if swapped, ok := b.SwapSet.Graph(key.GroupKey(), i); ok {
			return swapped, nil
		}
	}
	if b.Randomizer == nil {
		return nil, errors.Newf("no precomputed null model for subject index %d", i)
	}
	return b.Randomizer.Randomize(g, b.Randomizer.Config().Passes)
}

func (b *Builder) report(i int, id string, accepted bool) {
	if b.Progress != nil {
		b.Progress(i, id, accepted)
	}
}

// Invalidate removes the cached corpus for key
func (b *Builder) Invalidate(key Key) error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Delete(key)
}
