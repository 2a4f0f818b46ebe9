package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/report"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
)

var (
	compareTop    int
	compareMotifs []int64
	compareKMax   int
	compareOut    string
	compareDist   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare KEY_A KEY_B [KEY_C KEY_D ...]",
	Short: "Permutation-test cached corpora against each other",
	Long: `Compare cached corpora pairwise with a two-sample permutation test. Arguments are
taken in pairs; each pair becomes one column of the result table.

By default the top motifs of the first corpus that occur in every corpus are tested.
With --dist, entropy, Gini coefficient and concentration ratio are tested instead.

Examples:
  motifstat compare real_NL_corr_s3_d10 real_AD_corr_s3_d10
  motifstat compare real_NL_corr_s3_d10 null_NL_corr_s3_d10 --motif 38 --motif 238
  motifstat compare real_NL_corr_s3_d10 real_AD_corr_s3_d10 --dist --out dist.csv`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 || len(args)%2 != 0 {
			return errors.New("expected an even number of corpus keys")
		}
		return nil
	},
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntVarP(&compareTop, "top", "n", 10, "Number of top motifs to test")
	compareCmd.Flags().Int64SliceVarP(&compareMotifs, "motif", "m", nil, "Motif ids to test (overrides --top)")
	compareCmd.Flags().IntVar(&compareKMax, "kmax", 0, "Shuffles per test (default stats.kmax)")
	compareCmd.Flags().StringVarP(&compareOut, "out", "o", "", "Write the p-value table as CSV")
	compareCmd.Flags().BoolVar(&compareDist, "dist", false, "Compare distribution statistics instead of motifs")
}

func newEngine(kmax int) *stats.Engine {
	if kmax <= 0 {
		kmax = cfg.KMax()
	}
	return stats.NewEngine(kmax, cfg.StatsRandomSeed())
}

func runCompare(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	corpora := make([]*corpus.Corpus, len(args))
	for i, name := range args {
		if corpora[i], err = loadCorpus(store, name); err != nil {
			return err
		}
	}

	engine := newEngine(compareKMax)
	var table *report.Table
	if compareDist {
		table, err = compareDistributions(engine, corpora)
	} else {
		table, err = compareMotifIDs(engine, corpora)
	}
	if err != nil {
		return err
	}

	printTable(cmd.OutOrStdout(), table)
	if compareOut != "" {
		f, err := os.Create(compareOut)
		if err != nil {
			return errors.Wrap(err, "failed to create output file")
		}
		defer f.Close()
		return report.WriteComparisonCSV(f, table)
	}
	return nil
}

func compareMotifIDs(engine *stats.Engine, corpora []*corpus.Corpus) (*report.Table, error) {
	var ids []motif.ID
	if len(compareMotifs) > 0 {
		for _, id := range compareMotifs {
			ids = append(ids, motif.ID(id))
		}
	} else {
		ids = topShared(corpora, compareTop)
	}

	pairs := make([]report.Pair, 0, len(corpora)/2)
	for i := 0; i < len(corpora); i += 2 {
		pairs = append(pairs, report.Pair{
			Label: pairLabel(corpora[i].Key, corpora[i+1].Key),
			A:     corpora[i],
			B:     corpora[i+1],
		})
	}
	return report.MotifComparison(engine, ids, pairs)
}

func compareDistributions(engine *stats.Engine, corpora []*corpus.Corpus) (*report.Table, error) {
	pairs := make([]report.DistPair, 0, len(corpora)/2)
	for i := 0; i < len(corpora); i += 2 {
		a, err := stats.DistStats(corpora[i])
		if err != nil {
			return nil, err
		}
		b, err := stats.DistStats(corpora[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, report.DistPair{
			Label: pairLabel(corpora[i].Key, corpora[i+1].Key),
			A:     a,
			B:     b,
		})
	}
	return report.DistComparison(engine, pairs)
}

// topShared returns the n most frequent motifs of the first corpus that occur in all of them
func topShared(corpora []*corpus.Corpus, n int) []motif.ID {
	shared := make(map[motif.ID]bool)
	for _, id := range report.CommonMotifs(corpora...) {
		shared[id] = true
	}
	var ids []motif.ID
	for _, id := range corpora[0].TopMotifs(len(corpora[0].IDs())) {
		if len(ids) == n {
			break
		}
		if shared[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// pairLabel names a column like NL/AD, or NL/DD(NL) for a null model of the same group
func pairLabel(a, b corpus.Key) string {
	label := func(k corpus.Key) string {
		if k.Null {
			return "DD(" + k.Group + ")"
		}
		return k.Group
	}
	return label(a) + "/" + label(b)
}

func printTable(w io.Writer, table *report.Table) {
	fmt.Fprintf(w, "%-14s", table.Heading)
	for _, c := range table.Columns {
		fmt.Fprintf(w, "%16s", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 14+16*len(table.Columns)))
	for _, row := range table.Rows {
		fmt.Fprintf(w, "%-14s", row.Label)
		for _, r := range row.Results {
			marker := " "
			if r.P < 0.05 {
				marker = "*"
			}
			fmt.Fprintf(w, "%15.4f%s", r.P, marker)
		}
		fmt.Fprintln(w)
	}
}
