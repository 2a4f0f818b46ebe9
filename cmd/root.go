package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/config"
	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
)

var (
	configFile string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "motifstat",
	Short: "motifstat - motif frequency analysis of correlation graphs",
	Long: `motifstat thresholds subject correlation matrices into directed graphs, counts
their motifs with an external census engine, caches per-group motif corpora and
compares groups with permutation tests.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.NewConfig()
		if configFile != "" {
			if err := cfg.LoadFromFile(configFile); err != nil {
				return errors.Wrapf(err, "failed to load config %s", configFile)
			}
		}
		if logLevel != "" {
			cfg.Set("logging.level", logLevel)
		}
		logger = cfg.CreateLogger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

func Execute() error {
	return rootCmd.Execute()
}

// openStore opens the configured corpus cache
func openStore() (corpus.Store, func() error, error) {
	store, closeFn, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open corpus cache")
	}
	return store, closeFn, nil
}

// loadCorpus reads one cached corpus by its key string
func loadCorpus(store corpus.Store, name string) (*corpus.Corpus, error) {
	key, err := corpus.ParseKey(name)
	if err != nil {
		return nil, err
	}
	return store.Load(key)
}
