package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
)

func TestDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, 88, c.GraphSize())
	assert.Equal(t, 10, c.Degree())
	assert.Equal(t, 3, c.MotifSize())
	assert.True(t, c.UseCache())
	assert.Equal(t, 2500, c.SwapPasses())
	assert.Equal(t, 5000, c.KMax())
	assert.Equal(t, "file", c.CacheBackend())
	assert.Equal(t, time.Duration(0), c.CounterTimeout())
	assert.Equal(t, "info", c.LogLevel())

	nm := c.NullModelConfig()
	assert.Equal(t, 2500, nm.Passes)
	assert.Equal(t, int64(-1), nm.RandomSeed)

	ec := c.ExecConfig()
	assert.Equal(t, "./Kavosh", ec.Command)
	assert.Equal(t, "result/MotifCount.txt", ec.OutputFile)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motif.yaml")
	content := `
pipeline:
  degree: 8
  motif_size: 4
counter:
  command: "./Kavosh -v"
  timeout: 90s
stats:
  kmax: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := NewConfig()
	require.NoError(t, c.LoadFromFile(path))
	assert.Equal(t, 8, c.Degree())
	assert.Equal(t, 4, c.MotifSize())
	assert.Equal(t, 1000, c.KMax())
	assert.Equal(t, 90*time.Second, c.ExecConfig().Timeout)
	assert.Equal(t, "./Kavosh -v", c.CounterCommand())

	// untouched keys keep their defaults
	assert.Equal(t, 2500, c.SwapPasses())
}

func TestLoadFromMissingFile(t *testing.T) {
	c := NewConfig()
	assert.Error(t, c.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("MOTIF_PIPELINE_DEGREE", "12")
	t.Setenv("MOTIF_CACHE_BACKEND", "sqlite")

	c := NewConfig()
	assert.Equal(t, 12, c.Degree())
	assert.Equal(t, "sqlite", c.CacheBackend())
}

func TestSet(t *testing.T) {
	c := NewConfig()
	c.Set("nullmodel.passes", 10)
	assert.Equal(t, 10, c.NullModelConfig().Passes)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	t.Run("file with memo", func(t *testing.T) {
		c := NewConfig()
		c.Set("cache.dir", filepath.Join(dir, "files"))
		store, closeFn, err := c.OpenStore()
		require.NoError(t, err)
		defer closeFn()
		_, ok := store.(*corpus.MemoStore)
		assert.True(t, ok)
	})

	t.Run("sqlite without memo", func(t *testing.T) {
		c := NewConfig()
		c.Set("cache.backend", "sqlite")
		c.Set("cache.sqlite_path", filepath.Join(dir, "db", "corpus.db"))
		c.Set("cache.memory_entries", 0)
		store, closeFn, err := c.OpenStore()
		require.NoError(t, err)
		defer closeFn()
		_, ok := store.(*corpus.SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := NewConfig()
		c.Set("cache.backend", "redis")
		_, _, err := c.OpenStore()
		assert.Error(t, err)
	})
}

func TestCreateLoggerFallsBackToInfo(t *testing.T) {
	c := NewConfig()
	c.Set("logging.level", "loud")
	logger := c.CreateLogger()
	assert.Equal(t, "info", logger.GetLevel().String())
}
