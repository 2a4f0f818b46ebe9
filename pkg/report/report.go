package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
)

// Pair is one labeled column of a comparison table, e.g. "NL/AD"
type Pair struct {
	Label string
	A, B  *corpus.Corpus
}

// DistPair is a labeled comparison between two distribution statistic sets
type DistPair struct {
	Label string
	A, B  *stats.Distribution
}

// Row holds one permutation test per column
type Row struct {
	Label   string             `json:"label"`
	Results []stats.PermResult `json:"results"`
}

// Table is a grid of permutation tests: rows are motifs or measures, columns are pairs
type Table struct {
	Heading string   `json:"heading"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// CommonMotifs returns the motif ids present in every corpus, ascending
func CommonMotifs(corpora ...*corpus.Corpus) []motif.ID {
	if len(corpora) == 0 {
		return nil
	}
	var common []motif.ID
	for _, id := range corpora[0].IDs() {
		shared := true
		for _, c := range corpora[1:] {
			if !c.Contains(id) {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, id)
		}
	}
	return common
}

// MotifComparison tests each motif across every pair
func MotifComparison(engine *stats.Engine, ids []motif.ID, pairs []Pair) (*Table, error) {
	table := &Table{Heading: "Motif", Columns: make([]string, len(pairs))}
	for i, p := range pairs {
		table.Columns[i] = p.Label
	}

	for _, id := range ids {
		row := Row{Label: id.String(), Results: make([]stats.PermResult, len(pairs))}
		for i, p := range pairs {
			res, err := engine.CompareMotif(p.A, p.B, id)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", p.Label)
			}
			row.Results[i] = res
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// DistComparison tests entropy, Gini and concentration ratio across every pair
func DistComparison(engine *stats.Engine, pairs []DistPair) (*Table, error) {
	table := &Table{
		Heading: "Measure",
		Columns: make([]string, len(pairs)),
		Rows: []Row{
			{Label: "Entropy", Results: make([]stats.PermResult, len(pairs))},
			{Label: "Gini", Results: make([]stats.PermResult, len(pairs))},
			{Label: "Concentration", Results: make([]stats.PermResult, len(pairs))},
		},
	}

	for i, p := range pairs {
		table.Columns[i] = p.Label
		cmp, err := engine.CompareDistributions(p.A, p.B)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", p.Label)
		}
		table.Rows[0].Results[i] = cmp.Entropy
		table.Rows[1].Results[i] = cmp.Gini
		table.Rows[2].Results[i] = cmp.Concentration
	}
	return table, nil
}

// WriteMotifSummaryCSV writes id, mean and standard deviation for every motif, by id
func WriteMotifSummaryCSV(w io.Writer, c *corpus.Corpus) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Motif ID", "Mean", "STD"}); err != nil {
		return err
	}
	for _, id := range c.IDs() {
		if err := cw.Write([]string{id.String(), formatFloat(c.Mean(id)), formatFloat(c.Std(id))}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteComparisonCSV writes the p-value grid of a table
func WriteComparisonCSV(w io.Writer, table *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{table.Heading}, table.Columns...)); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := make([]string, 0, len(row.Results)+1)
		record = append(record, row.Label)
		for _, r := range row.Results {
			record = append(record, formatFloat(r.P))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFrequencyListing writes motifs by descending mean frequency as percentages
func WriteFrequencyListing(w io.Writer, c *corpus.Corpus) error {
	var b strings.Builder
	b.WriteString("Motifs:\t Frequencies:\n")
	for _, m := range c.MeanFrequencies() {
		fmt.Fprintf(&b, "%-12s%.2f%%\n", m.ID, m.Mean*100)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
