package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-motif-service/pkg/corpus"
	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
	"github.com/gilchrisn/graph-motif-service/pkg/motif"
	"github.com/gilchrisn/graph-motif-service/pkg/stats"
	"github.com/gilchrisn/graph-motif-service/pkg/utils"
)

func groupCorpus(group string, values ...float64) *corpus.Corpus {
	recs := make([]corpus.Record, 0, len(values))
	for _, v := range values {
		recs = append(recs, corpus.Record{Subgraphs: 100, Frequencies: map[motif.ID]float64{6: v, 12: 1 - v}})
	}
	return corpus.FromRecords(corpus.NewKey(dataset.GroupKey{Group: group, Correlation: "corr"}, 3, 10, false), recs)
}

func newTestServer(t *testing.T) (http.Handler, *corpus.FileStore) {
	t.Helper()
	store, err := corpus.NewFileStore(t.TempDir())
	require.NoError(t, err)

	catalog := NewCatalog(store)
	catalog.Register(groupCorpus("NL", 0.9, 0.8, 0.85, 0.95))
	catalog.Register(groupCorpus("AD", 0.1, 0.2, 0.15, 0.05))

	return NewRouter(NewHandlers(catalog, stats.NewEngine(200, 1))), store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := get(t, h, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestListCorpora(t *testing.T) {
	h, _ := newTestServer(t)
	_, env := get(t, h, "/api/v1/corpora")

	var infos []CorpusInfo
	require.NoError(t, json.Unmarshal(env.Data, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "real_AD_corr_s3_d10", infos[0].Key)
	assert.Equal(t, 4, infos[0].Subjects)
	assert.Equal(t, 2, infos[0].Motifs)
}

func TestTopMotifs(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := get(t, h, "/api/v1/corpora/real_NL_corr_s3_d10/top?n=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var top []corpus.MotifMean
	require.NoError(t, json.Unmarshal(env.Data, &top))
	require.Len(t, top, 1)
	assert.Equal(t, motif.ID(6), top[0].ID)
	assert.InDelta(t, 0.875, top[0].Mean, 1e-12)

	rec, _ = get(t, h, "/api/v1/corpora/real_NL_corr_s3_d10/top?n=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMotif(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := get(t, h, "/api/v1/corpora/real_AD_corr_s3_d10/motifs/6")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail MotifDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, []float64{0.1, 0.2, 0.15, 0.05}, detail.Values)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0, 0, 1}, {1, 0, 0}}, detail.Adjacency)

	rec, _ = get(t, h, "/api/v1/corpora/real_AD_corr_s3_d10/motifs/38")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownAndInvalidCorpus(t *testing.T) {
	h, _ := newTestServer(t)

	rec, env := get(t, h, "/api/v1/corpora/real_MCI_corr_s3_d10/top")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, _ = get(t, h, "/api/v1/corpora/not-a-key/top")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorpusLoadedFromStore(t *testing.T) {
	h, store := newTestServer(t)
	mci := groupCorpus("MCI", 0.5, 0.5)
	require.NoError(t, store.Save(mci.Key, mci))

	rec, _ := get(t, h, "/api/v1/corpora/real_MCI_corr_s3_d10/top")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorruptStoreEntry(t *testing.T) {
	h, store := newTestServer(t)
	key := corpus.NewKey(dataset.GroupKey{Group: "MCI", Correlation: "corr"}, 3, 10, false)
	require.NoError(t, os.WriteFile(store.Path(key), []byte("{"), 0644))

	rec, _ := get(t, h, "/api/v1/corpora/real_MCI_corr_s3_d10/top")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCompare(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := get(t, h, "/api/v1/compare?a=real_NL_corr_s3_d10&b=real_AD_corr_s3_d10&motif=6&kmax=100")
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var res ComparisonResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 100, res.KMax)
	assert.InDelta(t, 0.75, res.Sign, 1e-12)
	assert.GreaterOrEqual(t, res.P, 0.01)
	assert.LessOrEqual(t, res.P, 1.0)

	for _, target := range []string{
		"/api/v1/compare?a=real_NL_corr_s3_d10&motif=6",
		"/api/v1/compare?a=real_NL_corr_s3_d10&b=real_AD_corr_s3_d10&motif=x",
		"/api/v1/compare?a=real_NL_corr_s3_d10&b=real_AD_corr_s3_d10&motif=6&kmax=0",
	} {
		rec, _ := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestCatalogRefresh(t *testing.T) {
	store, err := corpus.NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	nl := groupCorpus("NL", 0.5)
	require.NoError(t, store.Save(nl.Key, nl))

	catalog := NewCatalog(store)
	n, err := catalog.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, catalog.Len())

	_, err = NewCatalog(nil).Refresh()
	assert.Error(t, err)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}
