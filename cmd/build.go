package cmd

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/nullmodel"
	"github.com/gilchrisn/graph-motif-service/pkg/report"
)

var (
	buildData       string
	buildGroups     []string
	buildCorr       string
	buildDegree     int
	buildSize       int
	buildNull       bool
	buildSwapFile   string
	buildNoCache    bool
	buildRandom     bool
	buildListingDir string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or load motif corpora",
	Long: `Build the motif corpus of each selected group, or load it from the cache.

Each subject matrix is thresholded to the target degree, optionally replaced by a
degree-preserving null model, and counted by the external census engine.

Examples:
  motifstat build --data subjects.yaml
  motifstat build --data subjects.yaml --group NL --group AD --corr corr --size 4
  motifstat build --data subjects.yaml --null --swap-file swaps.json
  motifstat build --random --size 3`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildData, "data", "d", "", "Dataset file (json or yaml)")
	buildCmd.Flags().StringSliceVarP(&buildGroups, "group", "g", nil, "Groups to build (default all)")
	buildCmd.Flags().StringVar(&buildCorr, "corr", "", "Correlation kind to build (default all)")
	buildCmd.Flags().IntVar(&buildDegree, "degree", 0, "Threshold degree (default pipeline.degree)")
	buildCmd.Flags().IntVar(&buildSize, "size", 0, "Motif size (default pipeline.motif_size)")
	buildCmd.Flags().BoolVar(&buildNull, "null", false, "Build null-model corpora")
	buildCmd.Flags().StringVar(&buildSwapFile, "swap-file", "", "Precomputed null models (default nullmodel.swap_file)")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Bypass the corpus cache")
	buildCmd.Flags().BoolVar(&buildRandom, "random", false, "Build the uniform random baseline group")
	buildCmd.Flags().StringVar(&buildListingDir, "listing-dir", "", "Write a frequency listing per corpus to this directory")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildDegree > 0 {
		cfg.Set("pipeline.degree", buildDegree)
	}
	if buildSize > 0 {
		cfg.Set("pipeline.motif_size", buildSize)
	}
	if buildNoCache {
		cfg.Set("pipeline.use_cache", false)
	}
	if buildSwapFile != "" {
		cfg.Set("nullmodel.swap_file", buildSwapFile)
	}

	groups, err := selectGroups()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return errors.New("no groups selected")
	}

	builder, cleanup, err := newBuilder()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, group := range groups {
		key := corpus.NewKey(group.Key, cfg.MotifSize(), cfg.Degree(), buildNull)
		result, err := builder.BuildOrLoad(ctx, key, group.Subjects)
		if err != nil {
			return err
		}

		logger.Info().
			Str("key", key.String()).
			Int("subjects", result.Corpus.Len()).
			Int("rejected", result.Rejected).
			Bool("cached", result.Cached).
			Msg("Corpus ready")

		if buildListingDir != "" {
			if err := writeListing(buildListingDir, result.Corpus); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectGroups resolves the groups named on the command line
func selectGroups() ([]dataset.Group, error) {
	var groups []dataset.Group
	if buildRandom {
		seed := cfg.SwapRandomSeed()
		if seed < 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		groups = append(groups, dataset.Group{
			Key:      dataset.GroupKey{Group: dataset.RandomGroup, Correlation: "uniform"},
			Subjects: dataset.RandomMatrices(cfg.RandomSubjects(), cfg.GraphSize(), rng),
		})
	}
	if buildData == "" {
		if !buildRandom {
			return nil, errors.New("--data is required unless --random is set")
		}
		return groups, nil
	}

	ds, err := dataset.Load(buildData)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(buildGroups))
	for _, g := range buildGroups {
		wanted[g] = true
	}
	for _, g := range ds.Groups {
		if len(wanted) > 0 && !wanted[g.Key.Group] {
			continue
		}
		if buildCorr != "" && g.Key.Correlation != buildCorr {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// newBuilder wires the cache, the census engine and the null-model source from config
func newBuilder() (*corpus.Builder, func(), error) {
	var (
		store   corpus.Store
		closeFn = func() error { return nil }
		err     error
	)
	if cfg.UseCache() {
		if store, closeFn, err = openStore(); err != nil {
			return nil, nil, err
		}
	}

	counter, err := motif.NewExecCounter(cfg.ExecConfig(), logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	builder := corpus.NewBuilder(store, counter, nullmodel.NewRandomizer(cfg.NullModelConfig(), logger), logger)
	if path := cfg.SwapFile(); path != "" {
		set, err := nullmodel.LoadSwapSet(path)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		builder.SwapSet = set
	}

	cleanup := func() {
		if err := closeFn(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close corpus cache")
		}
	}
	return builder, cleanup, nil
}

func writeListing(dir string, c *corpus.Corpus) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create listing directory")
	}
	f, err := os.Create(filepath.Join(dir, c.Key.String()+".txt"))
	if err != nil {
		return errors.Wrap(err, "failed to create listing")
	}
	defer f.Close()
	return report.WriteFrequencyListing(f, c)
}
