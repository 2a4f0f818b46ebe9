package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/nullmodel"
	"github.com/gilchrisn/graph-motif-service/pkg/threshold"
	"github.com/gilchrisn/graph-motif-service/pkg/utils"
)

var (
	swapData   string
	swapOut    string
	swapDegree int
	swapPasses int

	traceGroup string
	traceCorr  string
	traceOut   string
)

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Precompute degree-preserving null models",
	Long: `Threshold every subject of the dataset and randomize it with double-edge swaps.
The result is written as a swap file consumed by "build --null --swap-file".

Examples:
  motifstat swap --data subjects.yaml --out swaps.json
  motifstat swap trace --data subjects.yaml --group NL --corr corr --out trace.jsonl`,
	RunE: runSwap,
}

var swapTraceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Measure how fast edge swapping moves away from the original graphs",
	Long: `Randomize every subject of one group and report the edit distance to the
original graph after each accepted swap. Individual swaps can be streamed to a
JSON lines file.`,
	RunE: runSwapTrace,
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapCmd.AddCommand(swapTraceCmd)

	swapCmd.PersistentFlags().StringVarP(&swapData, "data", "d", "", "Dataset file (json or yaml)")
	swapCmd.PersistentFlags().IntVar(&swapDegree, "degree", 0, "Threshold degree (default pipeline.degree)")
	swapCmd.PersistentFlags().IntVar(&swapPasses, "passes", 0, "Accepted swaps per graph (default nullmodel.passes)")
	swapCmd.Flags().StringVarP(&swapOut, "out", "o", "swaps.json", "Output swap file")

	swapTraceCmd.Flags().StringVarP(&traceGroup, "group", "g", "", "Group to trace")
	swapTraceCmd.Flags().StringVar(&traceCorr, "corr", "", "Correlation kind to trace")
	swapTraceCmd.Flags().StringVarP(&traceOut, "out", "o", "", "JSON lines file receiving every swap")
	swapTraceCmd.MarkFlagRequired("group")
	swapTraceCmd.MarkFlagRequired("corr")
}

func swapSettings() (*dataset.Dataset, *nullmodel.Randomizer, error) {
	if swapData == "" {
		return nil, nil, errors.New("--data is required")
	}
	if swapDegree > 0 {
		cfg.Set("pipeline.degree", swapDegree)
	}
	if swapPasses > 0 {
		cfg.Set("nullmodel.passes", swapPasses)
	}

	ds, err := dataset.Load(swapData)
	if err != nil {
		return nil, nil, err
	}
	return ds, nullmodel.NewRandomizer(cfg.NullModelConfig(), logger), nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	ds, randomizer, err := swapSettings()
	if err != nil {
		return err
	}

	set, err := nullmodel.BuildSwapSet(ds, cfg.Degree(), randomizer, logger)
	if err != nil {
		return err
	}
	if err := set.Save(swapOut); err != nil {
		return err
	}

	logger.Info().
		Str("file", swapOut).
		Int("groups", len(set.Graphs)).
		Int("passes", set.Passes).
		Msg("Swap file written")
	return nil
}

func runSwapTrace(cmd *cobra.Command, args []string) error {
	ds, randomizer, err := swapSettings()
	if err != nil {
		return err
	}
	key := dataset.GroupKey{Group: traceGroup, Correlation: traceCorr}
	subjects, ok := ds.Lookup(key)
	if !ok {
		return errors.Newf("group %s not in dataset", key)
	}

	var tracker *utils.SwapTracker
	if traceOut != "" {
		if tracker, err = utils.NewSwapTracker(traceOut); err != nil {
			return err
		}
		defer tracker.Close()
		randomizer.OnSwap(tracker.LogSwap)
	}

	passes := cfg.SwapPasses()
	th := threshold.NewThresholder(cfg.Degree(), logger)
	var finals []float64
	for _, subject := range subjects {
		g, ok := th.Apply(subject.ID, subject.Matrix)
		if !ok {
			continue
		}
		tracker.SetSubject(subject.ID)

		_, trace, err := randomizer.RandomizeWithTrace(g, passes)
		if err != nil {
			return errors.Wrapf(err, "subject %s", subject.ID)
		}
		final := trace[len(trace)-1]
		finals = append(finals, final/float64(g.NumEdges()))

		fmt.Fprintf(cmd.OutOrStdout(), "%s\tedges=%d\tdistance=%g\n", subject.ID, g.NumEdges(), final)
	}

	if len(finals) > 0 {
		mean, std := stat.MeanStdDev(finals, nil)
		fmt.Fprintf(cmd.OutOrStdout(), "subjects=%d\trejected=%d\tfraction changed=%.3f±%.3f\n",
			len(finals), th.Rejected, mean, std)
	}
	return nil
}
