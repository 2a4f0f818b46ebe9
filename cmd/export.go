package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/report"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export [KEY...]",
	Short: "Write motif summary CSVs and frequency listings",
	Long: `Write <key>.csv (motif id, mean, standard deviation) and <key>.txt (motifs by
descending mean frequency) for each cached corpus. Without arguments every corpus in
the cache is exported.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "export", "Output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	names := args
	if len(names) == 0 {
		lister, ok := store.(corpus.Lister)
		if !ok {
			return errors.New("cache cannot list corpora; pass keys explicitly")
		}
		keys, err := lister.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			names = append(names, k.String())
		}
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create export directory")
	}
	for _, name := range names {
		c, err := loadCorpus(store, name)
		if err != nil {
			return err
		}
		if err := writeSummary(filepath.Join(exportDir, name+".csv"), c); err != nil {
			return err
		}
		if err := writeListing(exportDir, c); err != nil {
			return err
		}
		logger.Info().Str("key", name).Str("dir", exportDir).Msg("Corpus exported")
	}
	return nil
}

func writeSummary(path string, c *corpus.Corpus) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create summary")
	}
	defer f.Close()
	return report.WriteMotifSummaryCSV(f, c)
}
