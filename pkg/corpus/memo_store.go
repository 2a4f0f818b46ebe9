package corpus

import (
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoStore keeps recently used corpora in memory in front of a backing store.
// Writes go through to the backing store before the memory entry is updated.
type MemoStore struct {
	backing Store
	cache   *lru.Cache[string, *Corpus]
}

// NewMemoStore wraps backing with an LRU of at most entries corpora
func NewMemoStore(backing Store, entries int) (*MemoStore, error) {
	if entries <= 0 {
		return nil, errors.Newf("memo store size must be positive, got %d", entries)
	}
	cache, err := lru.New[string, *Corpus](entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memo cache")
	}
	return &MemoStore{backing: backing, cache: cache}, nil
}

// Backing returns the wrapped store
func (s *MemoStore) Backing() Store {
	return s.backing
}

func (s *MemoStore) Load(key Key) (*Corpus, error) {
	if c, ok := s.cache.Get(key.String()); ok {
		return c, nil
	}
	c, err := s.backing.Load(key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key.String(), c)
	return c, nil
}

func (s *MemoStore) Save(key Key, c *Corpus) error {
	if err := s.backing.Save(key, c); err != nil {
		s.cache.Remove(key.String())
		return err
	}
	s.cache.Add(key.String(), c)
	return nil
}

func (s *MemoStore) Exists(key Key) (bool, error) {
	if s.cache.Contains(key.String()) {
		return true, nil
	}
	return s.backing.Exists(key)
}

func (s *MemoStore) Delete(key Key) error {
	s.cache.Remove(key.String())
	return s.backing.Delete(key)
}

// Keys delegates to the backing store when it can enumerate
func (s *MemoStore) Keys() ([]Key, error) {
	lister, ok := s.backing.(Lister)
	if !ok {
		return nil, errors.New("backing store cannot list keys")
	}
	return lister.Keys()
}

// Len returns the number of corpora held in memory
func (s *MemoStore) Len() int {
	return s.cache.Len()
}
