package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graph-motif-service/pkg/stats"
)

var distJSON bool

var diststatsCmd = &cobra.Command{
	Use:   "diststats KEY",
	Short: "Per-subject entropy, Gini coefficient and concentration ratio",
	Args:  cobra.ExactArgs(1),
	RunE:  runDistStats,
}

func init() {
	rootCmd.AddCommand(diststatsCmd)
	diststatsCmd.Flags().BoolVar(&distJSON, "json", false, "Output as JSON")
}

func runDistStats(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	c, err := loadCorpus(store, args[0])
	if err != nil {
		return err
	}
	d, err := stats.DistStats(c)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if distJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	fmt.Fprintf(out, "%-8s%12s%12s%14s\n", "Subject", "Entropy", "Gini", "Concentration")
	for i := range d.Entropy {
		fmt.Fprintf(out, "%-8d%12.4f%12.4f%14.4f\n", i, d.Entropy[i], d.Gini[i], d.Concentration[i])
	}
	if len(d.Entropy) > 0 {
		fmt.Fprintf(out, "%-8s%12.4f%12.4f%14.4f\n", "mean",
			stat.Mean(d.Entropy, nil), stat.Mean(d.Gini, nil), stat.Mean(d.Concentration, nil))
	}
	return nil
}
