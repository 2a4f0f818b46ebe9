package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
)

func storeContract(t *testing.T, store Store) {
	key := testKey()
	other := key.WithNull(true)

	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Load(key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.False(t, errors.Is(err, ErrCacheCorrupt))

	c := fourSubjects()
	require.NoError(t, store.Save(key, c))

	exists, err = store.Exists(key)
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, key, loaded.Key)
	assert.Equal(t, c.IDs(), loaded.IDs())
	assert.Equal(t, c.Records(), loaded.Records())

	// the other key is untouched
	_, err = store.Load(other)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	// overwrite
	smaller := FromRecords(key, c.Records()[:2])
	require.NoError(t, store.Save(key, smaller))
	loaded, err = store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	if lister, ok := store.(Lister); ok {
		require.NoError(t, store.Save(other, smaller))
		keys, err := lister.Keys()
		require.NoError(t, err)
		assert.ElementsMatch(t, []Key{key, other}, keys)
	}

	require.NoError(t, store.Delete(key))
	_, err = store.Load(key)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	require.NoError(t, store.Delete(key))
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	storeContract(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "corpus.db"))
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestMemoStore(t *testing.T) {
	backing, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	store, err := NewMemoStore(backing, 4)
	require.NoError(t, err)
	storeContract(t, store)
}

func TestFileStoreCorruptEntry(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key := testKey()
	for _, payload := range []string{`[[10, {"7": `, `null`, `[[-5, {"7": 0.5}]]`} {
		require.NoError(t, os.WriteFile(store.Path(key), []byte(payload), 0644))

		_, err = store.Load(key)
		require.Error(t, err, payload)
		assert.True(t, errors.Is(err, ErrCacheCorrupt), payload)
		assert.False(t, errors.Is(err, ErrCacheMiss), payload)
	}
}

func TestSQLiteStoreCorruptEntry(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer store.Close()

	key := testKey()
	require.NoError(t, store.putRaw(key, []byte("garbage")))

	_, err = store.Load(key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheCorrupt))
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(testKey(), fourSubjects()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real_NL_corr_s3_d10.json", entries[0].Name())
}

func TestFileStoreKeysSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(testKey(), fourSubjects()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []Key{testKey()}, keys)
}

func TestMemoStoreServesFromMemory(t *testing.T) {
	dir := t.TempDir()
	backing, err := NewFileStore(dir)
	require.NoError(t, err)
	store, err := NewMemoStore(backing, 1)
	require.NoError(t, err)

	key := testKey()
	require.NoError(t, store.Save(key, fourSubjects()))
	assert.Equal(t, 1, store.Len())

	// removing the file behind the memo does not affect a memoized key
	require.NoError(t, os.Remove(backing.Path(key)))
	c, err := store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	// a second key evicts the first
	second := NewKey(dataset.GroupKey{Group: "AD", Correlation: "corr"}, 3, 10, false)
	require.NoError(t, store.Save(second, fourSubjects()))
	_, err = store.Load(key)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	_, err = NewMemoStore(backing, 0)
	assert.Error(t, err)
}

func TestMemoStoreCorpusNotChangedThroughCallerSlices(t *testing.T) {
	backing, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	store, err := NewMemoStore(backing, 2)
	require.NoError(t, err)

	key := testKey()
	records := fourSubjects().Records()
	require.NoError(t, store.Save(key, FromRecords(key, records)))
	records[0] = Record{Subgraphs: 1}

	first, err := store.Load(key)
	require.NoError(t, err)
	got := first.Records()
	got[1] = Record{Subgraphs: 2}
	_ = append(got, Record{Subgraphs: 3})

	again, err := store.Load(key)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 4, again.Len())
	assert.Equal(t, int64(1000), again.Record(0).Subgraphs)
	assert.Equal(t, int64(2000), again.Record(1).Subgraphs)
}
