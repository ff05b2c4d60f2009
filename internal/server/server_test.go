// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/search-ops/internal/benchrunner"
	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/eval"
	"github.com/elastic/search-ops/internal/indexer"
	"github.com/elastic/search-ops/internal/reindex"
	"github.com/elastic/search-ops/internal/search"
)

// fakeEngine serves a single canned document and a configurable alias state.
type fakeEngine struct {
	elasticsearch.Engine

	aliases map[string][]string
	pingErr error
}

func (e *fakeEngine) Ping(ctx context.Context) error {
	return e.pingErr
}

func (e *fakeEngine) GetAlias(ctx context.Context, aliases ...string) (map[string][]string, error) {
	result := map[string][]string{}
	for _, alias := range aliases {
		if indices, ok := e.aliases[alias]; ok {
			result[alias] = indices
		}
	}
	return result, nil
}

func (e *fakeEngine) Search(ctx context.Context, index string, body map[string]interface{}) (*elasticsearch.SearchResult, error) {
	source, _ := json.Marshal(docs.Document{
		ID:          "8b9c6d3e-6f7a-4b5c-8d9e-0f1a2b3c4d5e",
		Title:       "title",
		Body:        "body",
		Category:    "engineering",
		Author:      "kim",
		PublishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	return &elasticsearch.SearchResult{
		Total:  1,
		TookMs: 3,
		Hits:   []elasticsearch.SearchHit{{ID: "doc-1", Source: source}},
	}, nil
}

func testServer(t *testing.T, engine *fakeEngine) *Server {
	t.Helper()

	config := configuration.Default()
	config.Reports.BaseDir = t.TempDir()
	config.Datasets.BaseDir = t.TempDir()

	aliases := reindex.NewAliasManager(engine, config.Index.ReadAlias, config.Index.WriteAlias)
	loader := docs.NewDatasetLoader(config.Datasets.BaseDir)

	tuning, err := search.TuningFromConfiguration(config.Ranking)
	require.NoError(t, err)

	return NewServer(config, Services{
		Engine:  engine,
		Search:  search.NewService(engine, config.Index.ReadAlias, tuning),
		Indexer: indexer.New(engine, config.Indexer, config.Index.WriteAlias),
		Orchestrator: reindex.NewOrchestrator(
			engine,
			aliases,
			reindex.NewValidator(engine),
			reindex.NewRetentionRecorder(config.Reports.BaseDir),
			config.Index.Prefix,
			docs.IndexTemplate,
		),
		Rollback:    reindex.NewRollbackService(aliases),
		Aliases:     aliases,
		EvalRunner:  eval.NewRunner(engine, loader, config.Index.ReadAlias),
		BenchRunner: benchrunner.NewRunner(engine, loader, config.Index.ReadAlias),
	})
}

func doRequest(t *testing.T, server *Server, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	var env envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env), "body: %s", recorder.Body.String())
	return recorder, env
}

func TestHealthEnvelope(t *testing.T) {
	engine := &fakeEngine{aliases: map[string][]string{
		"docs_read":  {"docs_v1"},
		"docs_write": {"docs_v1"},
	}}

	recorder, env := doRequest(t, testServer(t, engine), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "OK", env.Message)
	assert.False(t, env.Timestamp.IsZero())

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Contains(t, data, "aliases")
}

func TestSearchReturnsHits(t *testing.T) {
	engine := &fakeEngine{}

	recorder, env := doRequest(t, testServer(t, engine), http.MethodGet, "/api/search?q=kubernetes", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(10), data["size"])
}

func TestSearchRejectsUnknownSort(t *testing.T) {
	recorder, env := doRequest(t, testServer(t, &fakeEngine{}), http.MethodGet, "/api/search?q=a&sort=bogus", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Contains(t, env.Message, "unknown sort")
}

func TestSearchRejectsInvalidTimeBound(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodGet, "/api/search?q=a&publishedFrom=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSuggestRequiresQuery(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodGet, "/api/suggest", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestIndexCreateRequiresVersion(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/index/create", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestIndexBulkRejectsEmptyDocuments(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/index/bulk", `{"documents": []}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReindexRejectsMissingVersions(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/index/reindex", `{"sourceVersion": 1}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRollbackConflictOnDivergedAliases(t *testing.T) {
	engine := &fakeEngine{aliases: map[string][]string{
		"docs_read":  {"docs_v2"},
		"docs_write": {"docs_v2", "docs_v3"},
	}}

	recorder, env := doRequest(t, testServer(t, engine), http.MethodPost, "/admin/index/rollback",
		`{"currentIndex": "docs_v2", "rollbackToIndex": "docs_v1"}`)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, http.StatusConflict, env.Code)
}

func TestEvalRunRequiresDataset(t *testing.T) {
	recorder, env := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/eval/run", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, env.Message, "datasetId")
}

func TestEvalRunUnknownDataset(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/eval/run?datasetId=missing", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestEvalCompareValidatesBody(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/eval/compare", `{"beforeReportId": "a"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestBenchmarkValidatesBody(t *testing.T) {
	recorder, _ := doRequest(t, testServer(t, &fakeEngine{}), http.MethodPost, "/admin/performance/benchmark", `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
