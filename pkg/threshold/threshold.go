package threshold

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-motif-service/pkg/graph"
)

// ErrRejectedSubject marks a matrix that cannot support the requested degree
var ErrRejectedSubject = errors.New("subject rejected: insufficient nonzero weights for degree")

// Threshold binarizes a weighted matrix at target average out-degree.
// The threshold is the (rows*degree + 1)-th largest entry; an edge (i,j) is kept iff M[i,j] > t.
// Nodes are labeled 1..rows.
func Threshold(m mat.Matrix, degree int) (*graph.Digraph, float64, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, 0, errors.Mark(errors.Newf("matrix is not square: %dx%d", rows, cols), ErrRejectedSubject)
	}
	if degree < 1 {
		return nil, 0, errors.Mark(errors.Newf("degree must be positive: %d", degree), ErrRejectedSubject)
	}

	want := rows * degree
	flat := make([]float64, 0, rows*cols)
	nonzero := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v != 0 {
				nonzero++
			}
			flat = append(flat, v)
		}
	}

	if nonzero < want || want >= len(flat) {
		return nil, 0, errors.Mark(
			errors.Newf("%d nonzero entries, need %d for degree %d", nonzero, want, degree),
			ErrRejectedSubject)
	}

	sort.Float64s(flat)
	t := flat[len(flat)-want-1]

	g := graph.NewDigraph(rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if i == j {
				continue
			}
			if m.At(i, j) > t {
				if err := g.AddEdge(i+1, j+1); err != nil {
					return nil, 0, err
				}
			}
		}
	}

	return g, t, nil
}

// Thresholder applies Threshold and keeps acceptance counters across subjects
type Thresholder struct {
	Degree   int
	Accepted int
	Rejected int
	logger   zerolog.Logger
}

// NewThresholder creates a thresholder for the given target degree
func NewThresholder(degree int, logger zerolog.Logger) *Thresholder {
	return &Thresholder{Degree: degree, logger: logger}
}

// Apply thresholds one subject. A rejected subject returns (nil, false) and bumps the counter.
func (th *Thresholder) Apply(subjectID string, m mat.Matrix) (*graph.Digraph, bool) {
	g, t, err := Threshold(m, th.Degree)
	if err != nil {
		th.Rejected++
		th.logger.Debug().
			Str("subject", subjectID).
			Int("degree", th.Degree).
			Err(err).
			Msg("Subject rejected")
		return nil, false
	}

	th.Accepted++
	th.logger.Debug().
		Str("subject", subjectID).
		Float64("threshold", t).
		Int("edges", g.NumEdges()).
		Msg("Subject thresholded")
	return g, true
}

// Reset clears the counters
func (th *Thresholder) Reset() {
	th.Accepted = 0
	th.Rejected = 0
}
