package nullmodel

import (
	"encoding/json"
	"net/url"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/graph"
	"github.com/gilchrisn/graph-motif-service/pkg/threshold"
	"github.com/gilchrisn/graph-motif-service/pkg/utils"
)

// SwapSet holds precomputed null-model graphs per group, aligned by subject index.
// A nil slot marks a subject that was rejected at thresholding.
type SwapSet struct {
	Degree int                         `json:"degree"`
	Passes int                         `json:"passes"`
	Graphs map[string][]*graph.Digraph `json:"graphs"` // SlotKey(group) -> graphs
}

// SlotKey names a group inside a swap set. Both labels are escaped so "/" only
// separates them.
func SlotKey(key dataset.GroupKey) string {
	return url.QueryEscape(key.Group) + "/" + url.QueryEscape(key.Correlation)
}

// Graph returns the precomputed graph for subject index i of a group
func (s *SwapSet) Graph(key dataset.GroupKey, i int) (*graph.Digraph, bool) {
	graphs, ok := s.Graphs[SlotKey(key)]
	if !ok || i < 0 || i >= len(graphs) || graphs[i] == nil {
		return nil, false
	}
	return graphs[i], true
}

// BuildSwapSet thresholds every subject of ds at degree and randomizes it
func BuildSwapSet(ds *dataset.Dataset, degree int, r *Randomizer, logger zerolog.Logger) (*SwapSet, error) {
	passes := r.Config().Passes
	set := &SwapSet{
		Degree: degree,
		Passes: passes,
		Graphs: make(map[string][]*graph.Digraph),
	}

	for _, group := range ds.Groups {
		logger.Info().Str("group", group.Key.String()).Int("subjects", len(group.Subjects)).Msg("Edge-swapping group")

		th := threshold.NewThresholder(degree, logger)
		graphs := make([]*graph.Digraph, len(group.Subjects))
		for i, subject := range group.Subjects {
			g, ok := th.Apply(subject.ID, subject.Matrix)
			if !ok {
				continue
			}
			swapped, err := r.Randomize(g, passes)
			if err != nil {
				return nil, errors.Wrapf(err, "group %s subject %s", group.Key, subject.ID)
			}
			graphs[i] = swapped
		}
		set.Graphs[SlotKey(group.Key)] = graphs

		logger.Info().
			Str("group", group.Key.String()).
			Int("rejected", th.Rejected).
			Msg("Group edge-swapped")
	}

	return set, nil
}

// Save writes the swap set as JSON, replacing path atomically
func (s *SwapSet) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode swap set")
	}
	return utils.WriteFileAtomic(path, data)
}

// LoadSwapSet reads a swap set written by Save
func LoadSwapSet(path string) (*SwapSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read swap set")
	}
	var s SwapSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse swap set")
	}
	if s.Graphs == nil {
		s.Graphs = make(map[string][]*graph.Digraph)
	}
	return &s, nil
}
