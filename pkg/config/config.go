package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/nullmodel"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
)

// Config manages pipeline configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults. Every key can be overridden
// from the environment as MOTIF_<SECTION>_<KEY>.
func NewConfig() *Config {
	v := viper.New()

	// Pipeline parameters
	v.SetDefault("pipeline.graph_size", 88)
	v.SetDefault("pipeline.degree", 10)
	v.SetDefault("pipeline.motif_size", 3)
	v.SetDefault("pipeline.use_cache", true)
	v.SetDefault("pipeline.random_subjects", 100)

	// Null model parameters
	v.SetDefault("nullmodel.passes", 2500)
	v.SetDefault("nullmodel.max_attempts", 10000)
	v.SetDefault("nullmodel.random_seed", -1)
	v.SetDefault("nullmodel.swap_file", "")

	// Statistics parameters
	v.SetDefault("stats.kmax", stats.DefaultKMax)
	v.SetDefault("stats.random_seed", -1)

	// External motif counter
	v.SetDefault("counter.command", "./Kavosh")
	v.SetDefault("counter.work_dir", ".")
	v.SetDefault("counter.input_file", "result/OUTPUT.txt")
	v.SetDefault("counter.output_file", "result/MotifCount.txt")
	v.SetDefault("counter.timeout", "0s")

	// Corpus cache
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.sqlite_path", "cache/corpus.db")
	v.SetDefault("cache.memory_entries", 64)

	// HTTP server
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")

	// Logging parameters
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("MOTIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for pipeline parameters
func (c *Config) GraphSize() int      { return c.v.GetInt("pipeline.graph_size") }
func (c *Config) Degree() int         { return c.v.GetInt("pipeline.degree") }
func (c *Config) MotifSize() int      { return c.v.GetInt("pipeline.motif_size") }
func (c *Config) UseCache() bool      { return c.v.GetBool("pipeline.use_cache") }
func (c *Config) RandomSubjects() int { return c.v.GetInt("pipeline.random_subjects") }

func (c *Config) SwapPasses() int       { return c.v.GetInt("nullmodel.passes") }
func (c *Config) SwapMaxAttempts() int  { return c.v.GetInt("nullmodel.max_attempts") }
func (c *Config) SwapRandomSeed() int64 { return c.v.GetInt64("nullmodel.random_seed") }
func (c *Config) SwapFile() string      { return c.v.GetString("nullmodel.swap_file") }

func (c *Config) KMax() int              { return c.v.GetInt("stats.kmax") }
func (c *Config) StatsRandomSeed() int64 { return c.v.GetInt64("stats.random_seed") }

func (c *Config) CounterCommand() string        { return c.v.GetString("counter.command") }
func (c *Config) CounterWorkDir() string        { return c.v.GetString("counter.work_dir") }
func (c *Config) CounterInputFile() string      { return c.v.GetString("counter.input_file") }
func (c *Config) CounterOutputFile() string     { return c.v.GetString("counter.output_file") }
func (c *Config) CounterTimeout() time.Duration { return c.v.GetDuration("counter.timeout") }

func (c *Config) CacheBackend() string  { return c.v.GetString("cache.backend") }
func (c *Config) CacheDir() string      { return c.v.GetString("cache.dir") }
func (c *Config) SQLitePath() string    { return c.v.GetString("cache.sqlite_path") }
func (c *Config) MemoryEntries() int    { return c.v.GetInt("cache.memory_entries") }
func (c *Config) ServerAddress() string { return c.v.GetString("server.address") }

func (c *Config) ReadTimeout() time.Duration  { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration { return c.v.GetDuration("server.write_timeout") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// NullModelConfig returns the randomizer settings
func (c *Config) NullModelConfig() nullmodel.Config {
	return nullmodel.Config{
		Passes:      c.SwapPasses(),
		MaxAttempts: c.SwapMaxAttempts(),
		RandomSeed:  c.SwapRandomSeed(),
	}
}

// ExecConfig returns the external counter settings
func (c *Config) ExecConfig() motif.ExecConfig {
	return motif.ExecConfig{
		Command:    c.CounterCommand(),
		WorkDir:    c.CounterWorkDir(),
		InputFile:  c.CounterInputFile(),
		OutputFile: c.CounterOutputFile(),
		Timeout:    c.CounterTimeout(),
	}
}

// OpenStore opens the configured cache backend, fronted by an in-memory LRU when
// cache.memory_entries is positive. The returned close function releases the backend.
func (c *Config) OpenStore() (corpus.Store, func() error, error) {
	var (
		store   corpus.Store
		closeFn = func() error { return nil }
	)

	switch backend := c.CacheBackend(); backend {
	case "file":
		fs, err := corpus.NewFileStore(c.CacheDir())
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case "sqlite":
		ss, err := corpus.NewSQLiteStore(c.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		store = ss
		closeFn = ss.Close
	default:
		return nil, nil, errors.Newf("unknown cache backend %q", backend)
	}

	if n := c.MemoryEntries(); n > 0 {
		memo, err := corpus.NewMemoStore(store, n)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		store = memo
	}
	return store, closeFn, nil
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "motifstat").Logger()
}
