// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/opserror"
)

// rankedEngine serves a fixed ranking per query text.
type rankedEngine struct {
	elasticsearch.Engine

	rankings map[string][]string
	targets  []string
}

func (e *rankedEngine) Search(ctx context.Context, index string, body map[string]interface{}) (*elasticsearch.SearchResult, error) {
	e.targets = append(e.targets, index)

	queryText := extractQueryText(body)
	ids := e.rankings[queryText]

	result := &elasticsearch.SearchResult{Total: int64(len(ids)), TookMs: 3}
	for i, id := range ids {
		score := float64(len(ids) - i)
		source, _ := json.Marshal(docs.Document{
			ID:          id,
			Title:       "title " + id,
			Body:        "body",
			Category:    "engineering",
			Author:      "kim",
			PublishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		result.Hits = append(result.Hits, elasticsearch.SearchHit{ID: id, Score: &score, Source: source})
	}
	return result, nil
}

func extractQueryText(body map[string]interface{}) string {
	query := body["query"].(map[string]interface{})
	boolQuery, ok := query["bool"].(map[string]interface{})
	if !ok {
		boolQuery = query["function_score"].(map[string]interface{})["query"].(map[string]interface{})["bool"].(map[string]interface{})
	}
	must := boolQuery["must"].([]interface{})
	clause := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	return fmt.Sprint(clause["query"])
}

func writeEvalDataset(t *testing.T, baseDir, datasetID string, queries []docs.Query, judgements []docs.Judgement) {
	t.Helper()
	for folder, payload := range map[string]interface{}{
		"querysets/" + datasetID + "_queries.json":     queries,
		"judgements/" + datasetID + "_judgements.json": judgements,
	} {
		path := filepath.Join(baseDir, folder)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, encoded, 0644))
	}
}

func TestRunEvaluatesDataset(t *testing.T) {
	baseDir := t.TempDir()
	writeEvalDataset(t, baseDir, "golden",
		[]docs.Query{
			{ID: "q1", Text: "kubernetes"},
			{ID: "q2", Text: "terraform"},
		},
		[]docs.Judgement{
			{QueryID: "q1", DocID: "doc-1", Grade: 3},
			{QueryID: "q1", DocID: "doc-2", Grade: 0},
			{QueryID: "q2", DocID: "doc-3", Grade: 2},
		})

	engine := &rankedEngine{rankings: map[string][]string{
		"kubernetes": {"doc-1", "doc-2"},
		"terraform":  {"doc-9", "doc-3"},
	}}
	runner := NewRunner(engine, docs.NewDatasetLoader(baseDir), "docs_read")
	runner.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	result, err := runner.Run(context.Background(), RunOptions{DatasetID: "golden", TopK: 10})
	require.NoError(t, err)

	assert.Equal(t, "golden", result.DatasetID)
	assert.Equal(t, 10, result.TopK)
	assert.Equal(t, "docs_read", result.TargetIndex)
	assert.Equal(t, []string{"docs_read", "docs_read"}, engine.targets)

	require.Len(t, result.Results, 2)

	q1 := result.Results[0]
	assert.Equal(t, "q1", q1.QueryID)
	assert.Equal(t, 2, q1.JudgedHits)
	require.Len(t, q1.Hits, 2)
	assert.Equal(t, 1, q1.Hits[0].Rank)
	assert.True(t, q1.Hits[0].Judged)
	require.NotNil(t, q1.Hits[0].Grade)
	assert.Equal(t, 3, *q1.Hits[0].Grade)
	// Relevant doc first of one relevant judgement.
	assert.InDelta(t, 1.0, q1.Metrics.RecallAtK, 1e-12)
	assert.InDelta(t, 1.0, q1.Metrics.MRR, 1e-12)

	q2 := result.Results[1]
	assert.Equal(t, 1, q2.JudgedHits)
	assert.False(t, q2.Hits[0].Judged)
	// Relevant doc at rank 2.
	assert.InDelta(t, 0.5, q2.Metrics.MRR, 1e-12)
}

func TestRunTruncatesHitsToTopK(t *testing.T) {
	baseDir := t.TempDir()
	writeEvalDataset(t, baseDir, "golden",
		[]docs.Query{{ID: "q1", Text: "kubernetes"}},
		[]docs.Judgement{{QueryID: "q1", DocID: "doc-3", Grade: 3}})

	engine := &rankedEngine{rankings: map[string][]string{
		"kubernetes": {"doc-1", "doc-2", "doc-3"},
	}}
	runner := NewRunner(engine, docs.NewDatasetLoader(baseDir), "docs_read")

	result, err := runner.Run(context.Background(), RunOptions{DatasetID: "golden", TopK: 2})
	require.NoError(t, err)

	q1 := result.Results[0]
	assert.Len(t, q1.Hits, 2)
	assert.Equal(t, int64(3), q1.TotalHits)
	// The only relevant doc fell outside the cutoff.
	assert.Zero(t, q1.Metrics.RecallAtK)
	assert.Zero(t, q1.Metrics.MRR)
}

func TestRunEmptyDataset(t *testing.T) {
	baseDir := t.TempDir()
	writeEvalDataset(t, baseDir, "empty", []docs.Query{}, []docs.Judgement{})

	runner := NewRunner(&rankedEngine{}, docs.NewDatasetLoader(baseDir), "docs_read")

	result, err := runner.Run(context.Background(), RunOptions{DatasetID: "empty"})
	require.NoError(t, err)

	assert.Zero(t, result.TopK)
	assert.Empty(t, result.Results)
	assert.Zero(t, result.Summary.TotalQueries)
}

func TestRunMissingDataset(t *testing.T) {
	runner := NewRunner(&rankedEngine{}, docs.NewDatasetLoader(t.TempDir()), "docs_read")

	_, err := runner.Run(context.Background(), RunOptions{DatasetID: "missing"})
	require.Error(t, err)
	assert.Equal(t, opserror.NotFound, opserror.KindOf(err))
}

func TestRunTargetIndexOverride(t *testing.T) {
	baseDir := t.TempDir()
	writeEvalDataset(t, baseDir, "golden",
		[]docs.Query{{ID: "q1", Text: "kubernetes"}},
		nil)

	engine := &rankedEngine{rankings: map[string][]string{"kubernetes": {"doc-1"}}}
	runner := NewRunner(engine, docs.NewDatasetLoader(baseDir), "docs_read")

	result, err := runner.Run(context.Background(), RunOptions{DatasetID: "golden", TargetIndex: "docs_v2"})
	require.NoError(t, err)

	assert.Equal(t, "docs_v2", result.TargetIndex)
	assert.Equal(t, []string{"docs_v2"}, engine.targets)
}
