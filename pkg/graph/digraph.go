package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// Edge is a directed edge between two 1-based node labels
type Edge struct {
	From int
	To   int
}

// Digraph represents a binary directed graph with nodes labeled 1..NumNodes
type Digraph struct {
	NumNodes int
	edges    []Edge       // insertion ordered
	index    map[Edge]int // edge -> position in edges
}

// NewDigraph creates an empty directed graph with n nodes
func NewDigraph(numNodes int) *Digraph {
	return &Digraph{
		NumNodes: numNodes,
		edges:    make([]Edge, 0),
		index:    make(map[Edge]int),
	}
}

// AddEdge adds the directed edge u -> v
func (g *Digraph) AddEdge(u, v int) error {
	if u < 1 || u > g.NumNodes || v < 1 || v > g.NumNodes {
		return errors.Newf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if u == v {
		return errors.Newf("self-loop not allowed: %d", u)
	}

	e := Edge{From: u, To: v}
	if _, ok := g.index[e]; ok {
		return errors.Newf("duplicate edge: %d -> %d", u, v)
	}

	g.index[e] = len(g.edges)
	g.edges = append(g.edges, e)
	return nil
}

// RemoveEdge removes the directed edge u -> v. The last edge takes its slot.
func (g *Digraph) RemoveEdge(u, v int) bool {
	e := Edge{From: u, To: v}
	pos, ok := g.index[e]
	if !ok {
		return false
	}

	last := len(g.edges) - 1
	if pos != last {
		moved := g.edges[last]
		g.edges[pos] = moved
		g.index[moved] = pos
	}
	g.edges = g.edges[:last]
	delete(g.index, e)
	return true
}

// HasEdge reports whether u -> v is present
func (g *Digraph) HasEdge(u, v int) bool {
	_, ok := g.index[Edge{From: u, To: v}]
	return ok
}

// Edges returns a copy of the current edge list
func (g *Digraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgeAt returns the i-th edge of the current ordering
func (g *Digraph) EdgeAt(i int) Edge {
	return g.edges[i]
}

// NumEdges returns the number of edges
func (g *Digraph) NumEdges() int {
	return len(g.edges)
}

// OutDegrees returns out-degree per node, index 0 is node 1
func (g *Digraph) OutDegrees() []int {
	deg := make([]int, g.NumNodes)
	for _, e := range g.edges {
		deg[e.From-1]++
	}
	return deg
}

// InDegrees returns in-degree per node, index 0 is node 1
func (g *Digraph) InDegrees() []int {
	deg := make([]int, g.NumNodes)
	for _, e := range g.edges {
		deg[e.To-1]++
	}
	return deg
}

// Clone creates a deep copy of the graph
func (g *Digraph) Clone() *Digraph {
	clone := &Digraph{
		NumNodes: g.NumNodes,
		edges:    make([]Edge, len(g.edges)),
		index:    make(map[Edge]int, len(g.index)),
	}
	copy(clone.edges, g.edges)
	for e, pos := range g.index {
		clone.index[e] = pos
	}
	return clone
}

// SameEdges reports whether both graphs hold exactly the same edge set
func (g *Digraph) SameEdges(other *Digraph) bool {
	if g.NumNodes != other.NumNodes || len(g.edges) != len(other.edges) {
		return false
	}
	for e := range g.index {
		if _, ok := other.index[e]; !ok {
			return false
		}
	}
	return true
}

// Adjacency returns the 0/1 adjacency matrix, row i / column j is node i+1 / j+1
func (g *Digraph) Adjacency() *mat.Dense {
	if g.NumNodes == 0 {
		return &mat.Dense{}
	}
	adj := mat.NewDense(g.NumNodes, g.NumNodes, nil)
	for _, e := range g.edges {
		adj.Set(e.From-1, e.To-1, 1)
	}
	return adj
}

// Gonum converts the graph to a gonum directed graph with node IDs 1..NumNodes
func (g *Digraph) Gonum() *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for i := 1; i <= g.NumNodes; i++ {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.edges {
		dg.SetEdge(dg.NewEdge(simple.Node(int64(e.From)), simple.Node(int64(e.To))))
	}
	return dg
}

// Validate checks graph consistency
func (g *Digraph) Validate() error {
	if g.NumNodes < 0 {
		return errors.New("graph must have non-negative number of nodes")
	}
	if len(g.edges) != len(g.index) {
		return errors.Newf("edge index out of sync: %d edges, %d indexed", len(g.edges), len(g.index))
	}
	for i, e := range g.edges {
		if g.index[e] != i {
			return errors.Newf("edge %d -> %d indexed at %d, stored at %d", e.From, e.To, g.index[e], i)
		}
		if e.From < 1 || e.From > g.NumNodes || e.To < 1 || e.To > g.NumNodes {
			return errors.Newf("edge %d -> %d out of range", e.From, e.To)
		}
	}
	return nil
}

// WriteEdgeList writes the node count on the first line, then one "u v" line per edge
func (g *Digraph) WriteEdgeList(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", g.NumNodes); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, e := range g.edges {
		if _, err := fmt.Fprintf(bw, "%d %d\n", e.From, e.To); err != nil {
			return errors.Wrap(err, "failed to write edge")
		}
	}
	return bw.Flush()
}

// ReadEdgeList parses the format produced by WriteEdgeList
func ReadEdgeList(r io.Reader) (*Digraph, error) {
	scanner := bufio.NewScanner(r)
	var g *Digraph
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if g == nil {
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid node count on line %d", lineNum)
			}
			g = NewDigraph(n)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Newf("invalid edge on line %d: %q", lineNum, line)
		}
		u, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid source node on line %d", lineNum)
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid target node on line %d", lineNum)
		}
		if err := g.AddEdge(u, v); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read edge list")
	}
	if g == nil {
		return nil, errors.New("empty edge list")
	}
	return g, nil
}

type digraphJSON struct {
	NumNodes int      `json:"num_nodes"`
	Edges    [][2]int `json:"edges"`
}

// MarshalJSON encodes the graph as {"num_nodes": n, "edges": [[u, v], ...]}
func (g *Digraph) MarshalJSON() ([]byte, error) {
	out := digraphJSON{NumNodes: g.NumNodes, Edges: make([][2]int, len(g.edges))}
	for i, e := range g.edges {
		out.Edges[i] = [2]int{e.From, e.To}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON
func (g *Digraph) UnmarshalJSON(data []byte) error {
	var in digraphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := NewDigraph(in.NumNodes)
	for _, e := range in.Edges {
		if err := decoded.AddEdge(e[0], e[1]); err != nil {
			return err
		}
	}
	*g = *decoded
	return nil
}
