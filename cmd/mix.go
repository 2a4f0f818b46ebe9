package cmd

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/report"
)

var (
	mixTop  int
	mixSeed int64
)

var mixCmd = &cobra.Command{
	Use:   "mix KEY KEY [KEY...]",
	Short: "Compare groups against proportionally shuffled pseudo-groups",
	Long: `Pool the subjects of the given corpora, deal them into pseudo-groups of the
original sizes with every group represented in proportion, and test each real group
against its pseudo-group. Differences that survive shuffling are not group effects.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMix,
}

func init() {
	rootCmd.AddCommand(mixCmd)
	mixCmd.Flags().IntVarP(&mixTop, "top", "n", 10, "Number of top motifs to test")
	mixCmd.Flags().Int64Var(&mixSeed, "seed", -1, "Shuffle seed (-1 uses the clock)")
}

func runMix(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	groups := make(map[string]*corpus.Corpus, len(args))
	order := make([]*corpus.Corpus, 0, len(args))
	for _, name := range args {
		c, err := loadCorpus(store, name)
		if err != nil {
			return err
		}
		if _, dup := groups[name]; dup {
			return errors.Newf("corpus %s given twice", name)
		}
		groups[name] = c
		order = append(order, c)
	}

	seed := mixSeed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	mixed, err := corpus.MixGroups(groups, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	pairs := make([]report.Pair, 0, len(args))
	for _, name := range args {
		pairs = append(pairs, report.Pair{
			Label: groups[name].Key.Group + "/mix",
			A:     groups[name],
			B:     mixed[name],
		})
	}

	table, err := report.MotifComparison(newEngine(0), topShared(order, mixTop), pairs)
	if err != nil {
		return err
	}
	printTable(cmd.OutOrStdout(), table)
	return nil
}
