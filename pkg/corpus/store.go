package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/gilchrisn/graph-motif-service/pkg/utils"
)

var (
	// ErrCacheMiss is returned by Store.Load when no entry exists for the key
	ErrCacheMiss = errors.New("corpus cache miss")
	// ErrCacheCorrupt marks an entry that exists but cannot be decoded
	ErrCacheCorrupt = errors.New("corpus cache entry corrupt")
)

// Store persists corpora by key. Save must be atomic: a reader sees the previous entry
// or the complete new one, never a partial write.
type Store interface {
	Load(key Key) (*Corpus, error)
	Save(key Key, c *Corpus) error
	Exists(key Key) (bool, error)
	Delete(key Key) error
}

// Lister is implemented by stores that can enumerate their keys
type Lister interface {
	Keys() ([]Key, error)
}

func corrupt(key Key, err error) error {
	return errors.Mark(errors.Wrapf(err, "cache entry %s", key), ErrCacheCorrupt)
}

// FileStore keeps one JSON file per key in a directory
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing key
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir, key.String()+".json")
}

func (s *FileStore) Load(key Key) (*Corpus, error) {
	data, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, errors.Mark(errors.Newf("no cache entry for %s", key), ErrCacheMiss)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cache entry %s", key)
	}

	c, err := Decode(key, data)
	if err != nil {
		return nil, corrupt(key, err)
	}
	return c, nil
}

func (s *FileStore) Save(key Key, c *Corpus) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode corpus")
	}
	return utils.WriteFileAtomic(s.Path(key), data)
}

func (s *FileStore) Exists(key Key) (bool, error) {
	_, err := os.Stat(s.Path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "failed to stat cache entry")
}

func (s *FileStore) Delete(key Key) error {
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete cache entry")
	}
	return nil
}

// Keys lists the keys of all well-formed entry names in the directory
func (s *FileStore) Keys() ([]Key, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cache entries")
	}
	keys := make([]Key, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		k, err := ParseKey(name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}
