package threshold

import (
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomWeights builds an n x n matrix with distinct positive off-diagonal weights
func randomWeights(n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m.Set(i, j, rng.Float64()+1e-9)
			}
		}
	}
	return m
}

func TestThresholdEdgeCount(t *testing.T) {
	for _, degree := range []int{1, 3, 5, 10} {
		m := randomWeights(30, int64(degree))

		g, th, err := Threshold(m, degree)
		require.NoError(t, err)
		assert.Equal(t, 30*degree, g.NumEdges(), "degree %d", degree)
		assert.Equal(t, 30, g.NumNodes)

		for _, e := range g.Edges() {
			assert.Greater(t, m.At(e.From-1, e.To-1), th)
		}
	}
}

func TestThresholdDeterministic(t *testing.T) {
	m := randomWeights(20, 7)

	g1, t1, err := Threshold(m, 4)
	require.NoError(t, err)
	g2, t2, err := Threshold(m, 4)
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
	assert.True(t, g1.SameEdges(g2))
}

func TestThresholdKeepsLargestWeights(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		0, 0.9, 0.1,
		0.5, 0, 0.2,
		0.8, 0.3, 0,
	})

	g, th, err := Threshold(m, 1)
	require.NoError(t, err)

	assert.Equal(t, 0.3, th)
	assert.Equal(t, 3, g.NumEdges())
	assert.True(t, g.HasEdge(1, 2))
	assert.True(t, g.HasEdge(2, 1))
	assert.True(t, g.HasEdge(3, 1))
}

func TestThresholdExactNonzeroCount(t *testing.T) {
	// exactly rows*degree nonzero entries: every nonzero weight becomes an edge
	m := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 0, 2,
		3, 0, 0,
	})

	g, th, err := Threshold(m, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, th)
	assert.Equal(t, 3, g.NumEdges())
}

func TestThresholdRejectsSparseMatrix(t *testing.T) {
	m := mat.NewDense(88, 88, nil)
	m.Set(0, 1, 0.5)
	m.Set(2, 3, 0.7)

	g, _, err := Threshold(m, 5)
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejectedSubject))
}

func TestThresholdRejectsInvalidInput(t *testing.T) {
	_, _, err := Threshold(mat.NewDense(2, 3, nil), 1)
	assert.True(t, errors.Is(err, ErrRejectedSubject))

	_, _, err = Threshold(randomWeights(4, 1), 0)
	assert.True(t, errors.Is(err, ErrRejectedSubject))
}

func TestThresholderCounters(t *testing.T) {
	th := NewThresholder(5, zerolog.Nop())

	sparse := mat.NewDense(88, 88, nil)
	sparse.Set(0, 1, 0.5)
	sparse.Set(2, 3, 0.7)

	g, ok := th.Apply("sparse", sparse)
	assert.False(t, ok)
	assert.Nil(t, g)

	g, ok = th.Apply("dense", randomWeights(88, 3))
	require.True(t, ok)
	assert.Equal(t, 88*5, g.NumEdges())

	assert.Equal(t, 1, th.Rejected)
	assert.Equal(t, 1, th.Accepted)

	th.Reset()
	assert.Zero(t, th.Rejected)
	assert.Zero(t, th.Accepted)
}
