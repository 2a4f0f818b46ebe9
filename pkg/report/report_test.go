package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
)

func groupCorpus(group string, records ...map[motif.ID]float64) *corpus.Corpus {
	recs := make([]corpus.Record, 0, len(records))
	for _, freqs := range records {
		recs = append(recs, corpus.Record{Subgraphs: 100, Frequencies: freqs})
	}
	return corpus.FromRecords(corpus.NewKey(dataset.GroupKey{Group: group, Correlation: "corr"}, 3, 10, false), recs)
}

func sample() (*corpus.Corpus, *corpus.Corpus) {
	nl := groupCorpus("NL",
		map[motif.ID]float64{6: 0.5, 12: 0.25, 38: 0.25},
		map[motif.ID]float64{6: 0.75, 12: 0.25},
	)
	ad := groupCorpus("AD",
		map[motif.ID]float64{6: 0.25, 12: 0.75},
		map[motif.ID]float64{6: 0.5, 12: 0.5},
	)
	return nl, ad
}

func TestCommonMotifs(t *testing.T) {
	nl, ad := sample()
	assert.Equal(t, []motif.ID{6, 12}, CommonMotifs(nl, ad))
	assert.Equal(t, []motif.ID{6, 12, 38}, CommonMotifs(nl))
	assert.Nil(t, CommonMotifs())
}

func TestMotifComparisonCSV(t *testing.T) {
	nl, ad := sample()
	engine := stats.NewEngine(100, 1)

	table, err := MotifComparison(engine, CommonMotifs(nl, ad), []Pair{
		{Label: "NL/AD", A: nl, B: ad},
		{Label: "AD/NL", A: ad, B: nl},
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "6", table.Rows[0].Label)
	assert.InDelta(t, 0.625-0.375, table.Rows[0].Results[0].Sign, 1e-12)
	assert.InDelta(t, 0.375-0.625, table.Rows[0].Results[1].Sign, 1e-12)

	var buf bytes.Buffer
	require.NoError(t, WriteComparisonCSV(&buf, table))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Motif", "NL/AD", "AD/NL"}, rows[0])
	assert.Equal(t, "12", rows[2][0])
}

func TestDistComparison(t *testing.T) {
	nl, ad := sample()
	dnl, err := stats.DistStats(nl)
	require.NoError(t, err)
	dad, err := stats.DistStats(ad)
	require.NoError(t, err)

	table, err := DistComparison(stats.NewEngine(50, 2), []DistPair{{Label: "NL/AD", A: dnl, B: dad}})
	require.NoError(t, err)
	assert.Equal(t, []string{"NL/AD"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Concentration", table.Rows[2].Label)
	assert.Equal(t, 50, table.Rows[1].Results[0].KMax)
}

func TestWriteMotifSummaryCSV(t *testing.T) {
	nl, _ := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteMotifSummaryCSV(&buf, nl))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Motif ID", "Mean", "STD"},
		{"6", "0.625", "0.125"},
		{"12", "0.25", "0"},
		{"38", "0.125", "0.125"},
	}, rows)
}

func TestWriteFrequencyListing(t *testing.T) {
	nl, _ := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteFrequencyListing(&buf, nl))
	assert.Equal(t,
		"Motifs:\t Frequencies:\n"+
			"6           62.50%\n"+
			"12          25.00%\n"+
			"38          12.50%\n",
		buf.String())
}
