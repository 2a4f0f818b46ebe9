package stats

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
)

var (
	// ErrEmptyDistribution marks a frequency vector that is empty or sums to zero
	ErrEmptyDistribution = errors.New("empty distribution")
	// ErrUndefinedRatio marks a concentration ratio whose tail sums to zero
	ErrUndefinedRatio = errors.New("concentration ratio undefined: tail sums to zero")
)

// Entropy returns -sum(x ln x) over the nonzero values of x
func Entropy(x []float64) float64 {
	h := 0.0
	for _, v := range x {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

// Gini returns the Gini coefficient of x, which must be sorted ascending.
// It is 0 for equal values and 1-1/N when a single value holds all mass.
func Gini(x []float64) (float64, error) {
	total := floats.Sum(x)
	if len(x) == 0 || total == 0 {
		return 0, errors.Mark(errors.Newf("gini of %d values summing to %g", len(x), total), ErrEmptyDistribution)
	}

	n := float64(len(x))
	b := 0.0
	for i, v := range x {
		b += v * (n - float64(i))
	}
	b /= n * total
	return 1 + 1/n - 2*b, nil
}

// ConcentrationRatio returns the mass of the largest max(1, N/5) values over the mass of
// the rest. x need not be sorted.
func ConcentrationRatio(x []float64) (float64, error) {
	total := floats.Sum(x)
	if len(x) == 0 || total == 0 {
		return 0, errors.Mark(errors.Newf("concentration ratio of %d values summing to %g", len(x), total), ErrEmptyDistribution)
	}

	desc := make([]float64, len(x))
	copy(desc, x)
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))

	k := len(desc) / 5
	if k < 1 {
		k = 1
	}
	top := floats.Sum(desc[:k])
	rest := floats.Sum(desc[k:])
	if rest == 0 {
		return 0, errors.Mark(errors.Newf("top %d of %d values hold all mass", k, len(desc)), ErrUndefinedRatio)
	}
	return top / rest, nil
}

// Distribution holds per-subject distribution statistics for one corpus, in subject order
type Distribution struct {
	Key           corpus.Key `json:"key"`
	Entropy       []float64  `json:"entropy"`
	Gini          []float64  `json:"gini"`
	Concentration []float64  `json:"concentration"`
}

// DistStats computes entropy, Gini and concentration ratio over every subject's sorted
// motif distribution. The first subject with an undefined statistic aborts the computation.
func DistStats(c *corpus.Corpus) (*Distribution, error) {
	d := &Distribution{
		Key:           c.Key,
		Entropy:       make([]float64, 0, c.Len()),
		Gini:          make([]float64, 0, c.Len()),
		Concentration: make([]float64, 0, c.Len()),
	}

	for i, values := range c.SortedDistributions() {
		g, err := Gini(values)
		if err != nil {
			return nil, errors.Wrapf(err, "subject %d of %s", i, c.Key)
		}
		cr, err := ConcentrationRatio(values)
		if err != nil {
			return nil, errors.Wrapf(err, "subject %d of %s", i, c.Key)
		}
		d.Entropy = append(d.Entropy, Entropy(values))
		d.Gini = append(d.Gini, g)
		d.Concentration = append(d.Concentration, cr)
	}
	return d, nil
}

// Engine runs permutation tests with a fixed shuffle count and its own random source.
// It is safe for concurrent use.
type Engine struct {
	KMax int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine; a negative seed uses the clock
func NewEngine(kmax int, seed int64) *Engine {
	if kmax < 1 {
		kmax = DefaultKMax
	}
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{KMax: kmax, rng: rand.New(rand.NewSource(seed))}
}

// Test runs PermTest on two samples
func (e *Engine) Test(d1, d2 []float64) (PermResult, error) {
	return e.TestK(d1, d2, e.KMax)
}

// TestK runs PermTest with an explicit shuffle count
func (e *Engine) TestK(d1, d2 []float64, kmax int) (PermResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PermTest(d1, d2, kmax, e.rng)
}

// CompareMotif tests one motif's per-subject frequencies between two corpora
func (e *Engine) CompareMotif(a, b *corpus.Corpus, id motif.ID) (PermResult, error) {
	res, err := e.Test(a.VectorFor(id), b.VectorFor(id))
	if err != nil {
		return PermResult{}, errors.Wrapf(err, "motif %s: %s vs %s", id, a.Key, b.Key)
	}
	return res, nil
}

// DistComparison holds permutation tests of the three distribution statistics
type DistComparison struct {
	Entropy       PermResult `json:"entropy"`
	Gini          PermResult `json:"gini"`
	Concentration PermResult `json:"concentration"`
}

// CompareDistributions tests each distribution statistic between two corpora
func (e *Engine) CompareDistributions(a, b *Distribution) (DistComparison, error) {
	var out DistComparison
	var err error
	if out.Entropy, err = e.Test(a.Entropy, b.Entropy); err != nil {
		return out, errors.Wrap(err, "entropy")
	}
	if out.Gini, err = e.Test(a.Gini, b.Gini); err != nil {
		return out, errors.Wrap(err, "gini")
	}
	if out.Concentration, err = e.Test(a.Concentration, b.Concentration); err != nil {
		return out, errors.Wrap(err, "concentration")
	}
	return out, nil
}
