package stats

import (
	"math"
	"math/rand"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
)

// DefaultKMax is the number of shuffles used when none is configured
const DefaultKMax = 5000

// PermResult is the outcome of a two-sample permutation test
type PermResult struct {
	Sign float64 `json:"sign"` // mean(d1) - mean(d2)
	P    float64 `json:"p"`    // in [1/KMax, 1]
	KMax int     `json:"kmax"`
}

// TwoSidedP doubles P, capped at 1. Exchangeable samples give values near 1.
func (r PermResult) TwoSidedP() float64 {
	return math.Min(1, 2*r.P)
}

// PermTest compares the means of d1 and d2 against kmax random relabelings of the pooled
// sample. P is the smaller tail mass at the first shuffled difference exceeding the
// observed one, never below 1/kmax.
func PermTest(d1, d2 []float64, kmax int, rng *rand.Rand) (PermResult, error) {
	if len(d1) == 0 || len(d2) == 0 {
		return PermResult{}, errors.Mark(
			errors.Newf("permutation test needs two non-empty samples, got %d and %d", len(d1), len(d2)),
			ErrEmptyDistribution)
	}
	if kmax < 1 {
		return PermResult{}, errors.Newf("kmax must be positive, got %d", kmax)
	}
	if rng == nil {
		return PermResult{}, errors.New("permutation test needs a random source")
	}

	n1 := len(d1)
	observed := stat.Mean(d1, nil) - stat.Mean(d2, nil)

	pooled := make([]float64, 0, n1+len(d2))
	pooled = append(pooled, d1...)
	pooled = append(pooled, d2...)

	diffs := make([]float64, kmax)
	for k := range diffs {
		rng.Shuffle(len(pooled), func(i, j int) { pooled[i], pooled[j] = pooled[j], pooled[i] })
		diffs[k] = stat.Mean(pooled[:n1], nil) - stat.Mean(pooled[n1:], nil)
	}
	sort.Float64s(diffs)

	floor := 1 / float64(kmax)
	p := floor
	if i := sort.Search(kmax, func(i int) bool { return observed < diffs[i] }); i < kmax {
		p = math.Max(floor, math.Min(float64(kmax-i)/float64(kmax), float64(i)/float64(kmax)))
	}

	return PermResult{Sign: observed, P: p, KMax: kmax}, nil
}
