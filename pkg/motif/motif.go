package motif

import (
	"context"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-motif-service/pkg/graph"
)

// ErrCollaboratorFailure marks missing or malformed output from the motif-counting engine
var ErrCollaboratorFailure = errors.New("motif counter failure")

// ID is a canonical motif identifier: the off-diagonal adjacency bits of the motif,
// least significant bit = last off-diagonal cell in row-major order
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal form used in cache records
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid motif id %q", s)
	}
	return ID(v), nil
}

// SortIDs sorts ids ascending in place
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Census is the raw result of one subgraph census
type Census struct {
	Total  int64        // total subgraphs of the requested size
	Counts map[ID]int64 // motif id -> occurrences
}

// Validate checks the census is usable for normalization
func (c *Census) Validate() error {
	if c == nil {
		return errors.Mark(errors.New("no census"), ErrCollaboratorFailure)
	}
	if c.Total <= 0 {
		return errors.Mark(errors.Newf("total subgraph count must be positive: %d", c.Total), ErrCollaboratorFailure)
	}
	for id, n := range c.Counts {
		if n < 0 || n > c.Total {
			return errors.Mark(errors.Newf("motif %d count %d outside [0, %d]", id, n, c.Total), ErrCollaboratorFailure)
		}
	}
	return nil
}

// Normalize converts raw counts into frequencies count / total
func (c *Census) Normalize() (map[ID]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	freqs := make(map[ID]float64, len(c.Counts))
	total := float64(c.Total)
	for id, n := range c.Counts {
		freqs[id] = float64(n) / total
	}
	return freqs, nil
}

// Counter runs a subgraph census on a graph. Implementations must be deterministic for
// a fixed graph and size; callers invoke them sequentially.
type Counter interface {
	CountMotifs(ctx context.Context, g *graph.Digraph, size int) (*Census, error)
}

// Decode returns the size x size adjacency matrix encoded by id
func Decode(id ID, size int) (*mat.Dense, error) {
	if size < 2 {
		return nil, errors.Newf("motif size must be at least 2: %d", size)
	}
	bits := size*size - size
	if id < 0 || (bits < 63 && int64(id) >= int64(1)<<uint(bits)) {
		return nil, errors.Newf("motif id %d out of range for size %d", id, size)
	}

	adj := mat.NewDense(size, size, nil)
	v := int64(id)
	for cell := size*size - 1; cell >= 0 && v > 0; cell-- {
		i, j := cell/size, cell%size
		if i == j {
			continue
		}
		adj.Set(i, j, float64(v&1))
		v >>= 1
	}
	return adj, nil
}

// Encode is the inverse of Decode for a square 0/1 matrix
func Encode(adj mat.Matrix) (ID, error) {
	r, c := adj.Dims()
	if r != c {
		return 0, errors.Newf("adjacency is not square: %dx%d", r, c)
	}
	if r*r-r > 62 {
		return 0, errors.Newf("motif size %d too large to encode", r)
	}

	var v int64
	bit := uint(0)
	for cell := r*r - 1; cell >= 0; cell-- {
		i, j := cell/r, cell%r
		if i == j {
			continue
		}
		if adj.At(i, j) != 0 {
			v |= 1 << bit
		}
		bit++
	}
	return ID(v), nil
}
