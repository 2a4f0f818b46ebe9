package api

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
)

// CorpusInfo summarizes one corpus for listings
type CorpusInfo struct {
	Key      string     `json:"key"`
	Spec     corpus.Key `json:"spec"`
	Subjects int        `json:"subjects"`
	Motifs   int        `json:"motifs"`
}

// Catalog resolves corpus keys to corpora, loading from the store on first use
type Catalog struct {
	mu      sync.RWMutex
	store   corpus.Store
	corpora map[string]*corpus.Corpus
}

// NewCatalog creates a catalog over store; store may be nil for a register-only catalog
func NewCatalog(store corpus.Store) *Catalog {
	return &Catalog{
		store:   store,
		corpora: make(map[string]*corpus.Corpus),
	}
}

// Register adds or replaces a corpus under its key
func (c *Catalog) Register(corp *corpus.Corpus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corpora[corp.Key.String()] = corp
}

// Refresh loads every corpus the store can enumerate
func (c *Catalog) Refresh() (int, error) {
	lister, ok := c.store.(corpus.Lister)
	if !ok {
		return 0, errors.New("store cannot list corpora")
	}
	keys, err := lister.Keys()
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		corp, err := c.store.Load(key)
		if err != nil {
			return 0, err
		}
		c.Register(corp)
	}
	return len(keys), nil
}

// Get returns the corpus for a key string
func (c *Catalog) Get(name string) (*corpus.Corpus, error) {
	c.mu.RLock()
	corp, ok := c.corpora[name]
	c.mu.RUnlock()
	if ok {
		return corp, nil
	}

	key, err := corpus.ParseKey(name)
	if err != nil {
		return nil, err
	}
	if c.store == nil {
		return nil, errors.Mark(errors.Newf("corpus %s not registered", name), corpus.ErrCacheMiss)
	}
	corp, err = c.store.Load(key)
	if err != nil {
		return nil, err
	}
	c.Register(corp)
	return corp, nil
}

// List returns registered corpora ordered by key
func (c *Catalog) List() []CorpusInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CorpusInfo, 0, len(c.corpora))
	for name, corp := range c.corpora {
		out = append(out, CorpusInfo{
			Key:      name,
			Spec:     corp.Key,
			Subjects: corp.Len(),
			Motifs:   len(corp.IDs()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered corpora
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.corpora)
}
