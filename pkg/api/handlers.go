package api

import (
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
	"github.com/gilchrisn/graph-motif-service/pkg/utils"
)

const (
	defaultTopN = 10
	maxTopN     = 1000
	maxKMax     = 100000
)

// Handlers contains HTTP request handlers
type Handlers struct {
	catalog *Catalog
	engine  *stats.Engine
}

// NewHandlers creates new API handlers
func NewHandlers(catalog *Catalog, engine *stats.Engine) *Handlers {
	return &Handlers{catalog: catalog, engine: engine}
}

// MotifDetail describes one motif within a corpus
type MotifDetail struct {
	ID        motif.ID    `json:"id"`
	Mean      float64     `json:"mean"`
	Std       float64     `json:"std"`
	Values    []float64   `json:"values"`
	Adjacency [][]float64 `json:"adjacency,omitempty"`
}

// ComparisonResult is the outcome of a motif permutation test between two corpora
type ComparisonResult struct {
	A         string   `json:"a"`
	B         string   `json:"b"`
	Motif     motif.ID `json:"motif"`
	MeanA     float64  `json:"mean_a"`
	MeanB     float64  `json:"mean_b"`
	Sign      float64  `json:"sign"`
	P         float64  `json:"p"`
	TwoSidedP float64  `json:"two_sided_p"`
	KMax      int      `json:"kmax"`
}

// HealthCheck reports service status
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Service healthy", map[string]interface{}{
		"status":  "healthy",
		"corpora": h.catalog.Len(),
	})
}

// ListCorpora lists the registered corpora
func (h *Handlers) ListCorpora(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Corpora retrieved", h.catalog.List())
}

// GetTopMotifs returns the n motifs with the largest mean frequency
func (h *Handlers) GetTopMotifs(w http.ResponseWriter, r *http.Request) {
	corp, ok := h.corpusFromPath(w, r)
	if !ok {
		return
	}
	n, ok := utils.IntParam(r, "n", defaultTopN, maxTopN)
	if !ok {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid n", nil)
		return
	}

	ranked := corp.MeanFrequencies()
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	utils.WriteSuccessResponse(w, "Top motifs retrieved", ranked)
}

// GetMotif returns one motif's per-subject frequencies and its adjacency pattern
func (h *Handlers) GetMotif(w http.ResponseWriter, r *http.Request) {
	corp, ok := h.corpusFromPath(w, r)
	if !ok {
		return
	}
	id, err := motif.ParseID(mux.Vars(r)["motifId"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid motif id", err)
		return
	}
	if !corp.Contains(id) {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Motif not found in corpus", nil)
		return
	}

	detail := MotifDetail{
		ID:     id,
		Mean:   corp.Mean(id),
		Std:    corp.Std(id),
		Values: corp.VectorFor(id),
	}
	if adj, err := motif.Decode(id, corp.Key.MotifSize); err == nil {
		detail.Adjacency = denseRows(adj)
	}
	utils.WriteSuccessResponse(w, "Motif retrieved", detail)
}

// Compare runs a permutation test on one motif between two corpora
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nameA, nameB := q.Get("a"), q.Get("b")
	if nameA == "" || nameB == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Parameters a and b are required", nil)
		return
	}
	id, err := motif.ParseID(q.Get("motif"))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid motif id", err)
		return
	}
	kmax, ok := utils.IntParam(r, "kmax", h.engine.KMax, maxKMax)
	if !ok {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid kmax", nil)
		return
	}

	a, ok := h.lookup(w, nameA)
	if !ok {
		return
	}
	b, ok := h.lookup(w, nameB)
	if !ok {
		return
	}

	va, vb := a.VectorFor(id), b.VectorFor(id)
	res, err := h.engine.TestK(va, vb, kmax)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnprocessableEntity, "Comparison failed", err)
		return
	}

	log.Debug().
		Str("a", nameA).
		Str("b", nameB).
		Str("motif", id.String()).
		Float64("p", res.P).
		Msg("Motif comparison")

	utils.WriteSuccessResponse(w, "Comparison complete", ComparisonResult{
		A:         nameA,
		B:         nameB,
		Motif:     id,
		MeanA:     a.Mean(id),
		MeanB:     b.Mean(id),
		Sign:      res.Sign,
		P:         res.P,
		TwoSidedP: res.TwoSidedP(),
		KMax:      res.KMax,
	})
}

func (h *Handlers) corpusFromPath(w http.ResponseWriter, r *http.Request) (*corpus.Corpus, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["key"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid corpus key", err)
		return nil, false
	}
	return h.lookup(w, name)
}

func (h *Handlers) lookup(w http.ResponseWriter, name string) (*corpus.Corpus, bool) {
	if _, err := corpus.ParseKey(name); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid corpus key", err)
		return nil, false
	}

	corp, err := h.catalog.Get(name)
	switch {
	case err == nil:
		return corp, true
	case errors.Is(err, corpus.ErrCacheMiss):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Corpus not found", err)
	case errors.Is(err, corpus.ErrCacheCorrupt):
		log.Error().Err(err).Str("key", name).Msg("Corrupt corpus entry")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Corpus entry corrupt", err)
	default:
		log.Error().Err(err).Str("key", name).Msg("Failed to load corpus")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to load corpus", err)
	}
	return nil, false
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
