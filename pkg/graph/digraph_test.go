package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCycle(t *testing.T, n int) *Digraph {
	t.Helper()
	g := NewDigraph(n)
	for i := 1; i <= n; i++ {
		require.NoError(t, g.AddEdge(i, i%n+1))
	}
	return g
}

func TestAddEdgeValidation(t *testing.T) {
	g := NewDigraph(3)

	require.NoError(t, g.AddEdge(1, 2))
	assert.Error(t, g.AddEdge(1, 2), "duplicate edge")
	assert.Error(t, g.AddEdge(2, 2), "self-loop")
	assert.Error(t, g.AddEdge(0, 1), "node 0 is out of range")
	assert.Error(t, g.AddEdge(1, 4), "node 4 is out of range")

	assert.Equal(t, 1, g.NumEdges())
	assert.True(t, g.HasEdge(1, 2))
	assert.False(t, g.HasEdge(2, 1))
}

func TestRemoveEdgeKeepsIndexConsistent(t *testing.T) {
	g := buildCycle(t, 5)

	assert.True(t, g.RemoveEdge(1, 2))
	assert.False(t, g.RemoveEdge(1, 2))
	assert.Equal(t, 4, g.NumEdges())
	require.NoError(t, g.Validate())

	for _, e := range g.Edges() {
		assert.True(t, g.HasEdge(e.From, e.To))
	}
}

func TestDegrees(t *testing.T) {
	g := NewDigraph(4)
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(1, 3))
	require.NoError(t, g.AddEdge(4, 3))

	assert.Equal(t, []int{2, 0, 0, 1}, g.OutDegrees())
	assert.Equal(t, []int{0, 1, 2, 0}, g.InDegrees())
}

func TestCloneIsIndependent(t *testing.T) {
	g := buildCycle(t, 4)
	clone := g.Clone()

	require.True(t, g.SameEdges(clone))
	clone.RemoveEdge(1, 2)
	require.NoError(t, clone.AddEdge(1, 3))

	assert.True(t, g.HasEdge(1, 2))
	assert.False(t, g.HasEdge(1, 3))
	assert.False(t, g.SameEdges(clone))
}

func TestAdjacencyAndGonum(t *testing.T) {
	g := buildCycle(t, 3)

	adj := g.Adjacency()
	assert.Equal(t, 1.0, adj.At(0, 1))
	assert.Equal(t, 1.0, adj.At(2, 0))
	assert.Equal(t, 0.0, adj.At(1, 0))

	dg := g.Gonum()
	assert.Equal(t, 3, dg.Nodes().Len())
	assert.True(t, dg.HasEdgeFromTo(1, 2))
	assert.False(t, dg.HasEdgeFromTo(2, 1))
}

func TestEdgeListRoundTrip(t *testing.T) {
	g := buildCycle(t, 6)

	var buf bytes.Buffer
	require.NoError(t, g.WriteEdgeList(&buf))
	assert.Equal(t, "6\n", buf.String()[:2])

	parsed, err := ReadEdgeList(&buf)
	require.NoError(t, err)
	assert.True(t, g.SameEdges(parsed))
}

func TestReadEdgeListErrors(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"bad header": "abc\n1 2\n",
		"short edge": "3\n1\n",
		"range":      "2\n1 3\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadEdgeList(bytes.NewBufferString(input))
			assert.Error(t, err)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g := buildCycle(t, 5)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded Digraph
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 5, decoded.NumNodes)
	assert.True(t, g.SameEdges(&decoded))
}
