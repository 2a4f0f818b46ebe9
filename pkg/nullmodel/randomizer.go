package nullmodel

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-motif-service/pkg/graph"
)

// ErrDegenerateGraph is returned when no valid double-edge swap can be found
var ErrDegenerateGraph = errors.New("degenerate graph: no valid edge swap")

// Config controls the edge-swap randomizer
type Config struct {
	Passes      int   `json:"passes"`       // accepted swaps per graph
	MaxAttempts int   `json:"max_attempts"` // consecutive failed draws before giving up
	RandomSeed  int64 `json:"random_seed"`  // -1 uses a time-based seed
}

// DefaultConfig returns the swap settings used for precomputed null models
func DefaultConfig() Config {
	return Config{
		Passes:      2500,
		MaxAttempts: 10000,
		RandomSeed:  -1,
	}
}

// Randomizer performs degree-preserving double-edge swaps
type Randomizer struct {
	config Config
	rng    *rand.Rand
	logger zerolog.Logger
	onSwap SwapCallback
}

// SwapCallback observes every accepted swap: its 1-based number, the replaced and the
// inserted edges, and the edit distance to the source graph afterwards
type SwapCallback func(swap int, removed, added [2]graph.Edge, distance float64)

// NewRandomizer creates a randomizer with its own random source
func NewRandomizer(config Config, logger zerolog.Logger) *Randomizer {
	seed := config.RandomSeed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Randomizer{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// OnSwap registers a callback invoked after each accepted swap
func (r *Randomizer) OnSwap(cb SwapCallback) {
	r.onSwap = cb
}

// Config returns the randomizer settings
func (r *Randomizer) Config() Config {
	return r.config
}

// Randomize returns a copy of g after exactly passes accepted swaps. g is not modified.
func (r *Randomizer) Randomize(g *graph.Digraph, passes int) (*graph.Digraph, error) {
	work, _, err := r.run(g, passes, false)
	return work, err
}

// RandomizeWithTrace behaves like Randomize and also returns the edit distance to g
// (differing adjacency entries / 2) before the first swap and after each accepted swap
func (r *Randomizer) RandomizeWithTrace(g *graph.Digraph, passes int) (*graph.Digraph, []float64, error) {
	return r.run(g, passes, true)
}

func (r *Randomizer) run(g *graph.Digraph, passes int, trace bool) (*graph.Digraph, []float64, error) {
	if passes < 0 {
		return nil, nil, errors.Newf("passes must be non-negative: %d", passes)
	}

	work := g.Clone()
	var diffs []float64
	if trace {
		diffs = make([]float64, 0, passes+1)
		diffs = append(diffs, 0)
	}

	diff := 0
	for pass := 0; pass < passes; pass++ {
		removed, added, err := r.swapOnce(work)
		if err != nil {
			r.logger.Warn().
				Int("pass", pass).
				Int("edges", work.NumEdges()).
				Msg("Edge swap failed")
			return nil, nil, errors.Wrapf(err, "after %d accepted swaps", pass)
		}

		for _, e := range removed {
			if g.HasEdge(e.From, e.To) {
				diff++
			} else {
				diff--
			}
		}
		for _, e := range added {
			if g.HasEdge(e.From, e.To) {
				diff--
			} else {
				diff++
			}
		}
		distance := float64(diff) / 2

		if trace {
			diffs = append(diffs, distance)
		}
		if r.onSwap != nil {
			r.onSwap(pass+1, removed, added, distance)
		}
	}

	return work, diffs, nil
}

// swapOnce performs one accepted swap (a,b),(c,d) -> (a,d),(c,b) in place.
// A first edge that found no partner stays invalid until the graph changes, so once every
// edge has failed the graph admits no swap at all.
func (r *Randomizer) swapOnce(g *graph.Digraph) ([2]graph.Edge, [2]graph.Edge, error) {
	var removed, added [2]graph.Edge
	m := g.NumEdges()
	if m < 2 {
		return removed, added, errors.Mark(errors.Newf("%d edges", m), ErrDegenerateGraph)
	}

	failed := make(map[graph.Edge]struct{})
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		first := g.EdgeAt(r.rng.Intn(m))
		if _, seen := failed[first]; seen {
			continue
		}
		a, b := first.From, first.To

		for _, j := range r.rng.Perm(m) {
			second := g.EdgeAt(j)
			c, d := second.From, second.To
			if a == d || c == b {
				continue
			}
			if g.HasEdge(a, d) || g.HasEdge(c, b) {
				continue
			}

			g.RemoveEdge(a, b)
			g.RemoveEdge(c, d)
			if err := g.AddEdge(a, d); err != nil {
				return removed, added, err
			}
			if err := g.AddEdge(c, b); err != nil {
				return removed, added, err
			}
			removed = [2]graph.Edge{first, second}
			added = [2]graph.Edge{{From: a, To: d}, {From: c, To: b}}
			return removed, added, nil
		}

		failed[first] = struct{}{}
		if len(failed) == m {
			return removed, added, errors.Mark(
				errors.Newf("none of %d edges has a swap partner", m), ErrDegenerateGraph)
		}
	}

	return removed, added, errors.Mark(
		errors.Newf("no valid swap after %d attempts", r.config.MaxAttempts), ErrDegenerateGraph)
}

// SameDegrees reports whether two graphs share in- and out-degree sequences
func SameDegrees(g, h *graph.Digraph) bool {
	if g.NumNodes != h.NumNodes || g.NumEdges() != h.NumEdges() {
		return false
	}
	gin, gout := g.InDegrees(), g.OutDegrees()
	hin, hout := h.InDegrees(), h.OutDegrees()
	for i := range gin {
		if gin[i] != hin[i] || gout[i] != hout[i] {
			return false
		}
	}
	return true
}
