package corpus

import (
	"encoding/json"
	"iter"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graph-motif-service/pkg/motif"
)

// Record is one subject's normalized motif distribution
type Record struct {
	Subgraphs   int64                // total census count, recovers absolute counts
	Frequencies map[motif.ID]float64 // motif -> count / Subgraphs
}

// MarshalJSON writes the record as [subgraphs, {"<id>": frequency, ...}]
func (r Record) MarshalJSON() ([]byte, error) {
	freqs := make(map[string]float64, len(r.Frequencies))
	for id, f := range r.Frequencies {
		freqs[id.String()] = f
	}
	return json.Marshal([]interface{}{r.Subgraphs, freqs})
}

// UnmarshalJSON reads the tuple form written by MarshalJSON
func (r *Record) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return errors.Newf("record must have 2 fields, got %d", len(tuple))
	}

	var subgraphs float64
	if err := json.Unmarshal(tuple[0], &subgraphs); err != nil {
		return errors.Wrap(err, "invalid subgraph total")
	}
	if subgraphs < 0 {
		return errors.Newf("negative subgraph total %g", subgraphs)
	}
	var raw map[string]float64
	if err := json.Unmarshal(tuple[1], &raw); err != nil {
		return errors.Wrap(err, "invalid frequency map")
	}

	freqs := make(map[motif.ID]float64, len(raw))
	for k, f := range raw {
		id, err := motif.ParseID(k)
		if err != nil {
			return err
		}
		if f < 0 || f > 1 {
			return errors.Newf("frequency %g for motif %s outside [0,1]", f, k)
		}
		freqs[id] = f
	}

	r.Subgraphs = int64(subgraphs)
	r.Frequencies = freqs
	return nil
}

// Corpus holds one record per accepted subject for a single Key, in subject order.
// A corpus is immutable once built: stores hand out shared pointers, and the frequency
// maps returned by Record and Records must not be modified.
type Corpus struct {
	Key     Key
	records []Record
	ids     map[motif.ID]struct{}
}

// New creates an empty corpus
func New(key Key) *Corpus {
	return &Corpus{Key: key, ids: make(map[motif.ID]struct{})}
}

// FromRecords creates a corpus from records in order
func FromRecords(key Key, records []Record) *Corpus {
	c := New(key)
	for _, r := range records {
		c.add(r)
	}
	return c
}

func (c *Corpus) add(r Record) {
	c.records = append(c.records, r)
	for id := range r.Frequencies {
		c.ids[id] = struct{}{}
	}
}

// Len returns the number of subjects
func (c *Corpus) Len() int {
	return len(c.records)
}

// Record returns the i-th subject record
func (c *Corpus) Record(i int) Record {
	return c.records[i]
}

// Records returns the records in subject order
func (c *Corpus) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// IDs returns the union of motif ids across subjects, ascending
func (c *Corpus) IDs() []motif.ID {
	ids := make([]motif.ID, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	motif.SortIDs(ids)
	return ids
}

// Contains reports whether any subject has the motif
func (c *Corpus) Contains(id motif.ID) bool {
	_, ok := c.ids[id]
	return ok
}

// VectorFor returns per-subject frequencies of a motif; subjects lacking it get 0
func (c *Corpus) VectorFor(id motif.ID) []float64 {
	v := make([]float64, len(c.records))
	for i, r := range c.records {
		v[i] = r.Frequencies[id]
	}
	return v
}

// Mean returns the across-subject mean frequency of a motif (0 for an empty corpus)
func (c *Corpus) Mean(id motif.ID) float64 {
	if len(c.records) == 0 {
		return 0
	}
	return stat.Mean(c.VectorFor(id), nil)
}

// Std returns the population standard deviation of a motif's frequency
func (c *Corpus) Std(id motif.ID) float64 {
	if len(c.records) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(c.VectorFor(id), nil)
	return std
}

// MotifMean pairs a motif with its mean frequency
type MotifMean struct {
	ID   motif.ID `json:"id"`
	Mean float64  `json:"mean"`
	Std  float64  `json:"std"`
}

// MeanFrequencies lists every motif by descending mean frequency, ties by ascending id
func (c *Corpus) MeanFrequencies() []MotifMean {
	ids := c.IDs()
	out := make([]MotifMean, len(ids))
	for i, id := range ids {
		out[i] = MotifMean{ID: id, Mean: c.Mean(id), Std: c.Std(id)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TopMotifs returns the n motifs with the largest mean frequency, ties by ascending id
func (c *Corpus) TopMotifs(n int) []motif.ID {
	ranked := c.MeanFrequencies()
	if n > len(ranked) {
		n = len(ranked)
	}
	if n < 0 {
		n = 0
	}
	top := make([]motif.ID, n)
	for i := 0; i < n; i++ {
		top[i] = ranked[i].ID
	}
	return top
}

// SortedDistributions yields each subject's frequency values sorted ascending.
// The sequence is finite and can be ranged over repeatedly.
func (c *Corpus) SortedDistributions() iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		for i, r := range c.records {
			values := make([]float64, 0, len(r.Frequencies))
			for _, f := range r.Frequencies {
				values = append(values, f)
			}
			sort.Float64s(values)
			if !yield(i, values) {
				return
			}
		}
	}
}

// Totals yields each subject's absolute motif counts recovered from frequencies
func (c *Corpus) Totals() []map[motif.ID]int64 {
	out := make([]map[motif.ID]int64, len(c.records))
	for i, r := range c.records {
		counts := make(map[motif.ID]int64, len(r.Frequencies))
		for id, f := range r.Frequencies {
			counts[id] = int64(f*float64(r.Subgraphs) + 0.1)
		}
		out[i] = counts
	}
	return out
}

// MarshalJSON writes the records as an array in subject order
func (c *Corpus) MarshalJSON() ([]byte, error) {
	records := c.records
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// Decode parses the persisted form for key
func Decode(key Key, data []byte) (*Corpus, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errors.New("payload is not a record array")
	}
	return FromRecords(key, records), nil
}
