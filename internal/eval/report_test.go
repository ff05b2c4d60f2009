// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRunResult() *RunResult {
	startedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	results := []QueryResult{
		{
			QueryID:   "q-good",
			QueryText: "kubernetes operator",
			Metrics:   QueryMetrics{PrecisionAtK: 1.0, RecallAtK: 1.0, MRR: 1.0, NDCGAtK: 1.0},
			TotalHits: 12,
		},
		{
			QueryID:   "q-bad",
			QueryText: "search relevance",
			Intent:    "informational",
			Metrics:   QueryMetrics{PrecisionAtK: 0.3, RecallAtK: 0.2, MRR: 0.5, NDCGAtK: 0.333},
			TotalHits: 4,
		},
	}
	return &RunResult{
		DatasetID:   "news",
		TopK:        10,
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(2 * time.Second),
		ElapsedMs:   2000,
		TargetIndex: "docs_read",
		Summary:     Summarize(results, 10),
		Results:     results,
	}
}

func TestReportWriterWorstQueries(t *testing.T) {
	writer := NewReportWriter(t.TempDir(), 1)

	report, err := writer.Write(sampleRunResult(), "")
	require.NoError(t, err)

	require.Len(t, report.WorstQueries, 1)
	assert.Equal(t, "q-bad", report.WorstQueries[0].QueryID)
	assert.Equal(t, "20260314_092653", report.ReportID)
}

func TestReportWriterFiles(t *testing.T) {
	baseDir := t.TempDir()
	writer := NewReportWriter(baseDir, 5)

	report, err := writer.Write(sampleRunResult(), "exp")
	require.NoError(t, err)
	assert.Equal(t, "exp_20260314_092653", report.ReportID)

	dir := filepath.Join(baseDir, report.ReportID)

	encoded, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	for _, key := range []string{"reportId", "datasetId", "topK", "totalQueries", "startedAt", "completedAt", "elapsedMs", "summary", "worstQueries"} {
		assert.Contains(t, decoded, key)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Worst Queries")
	assert.Contains(t, string(summary), "q-bad")
}

func TestWorstQueriesOrdering(t *testing.T) {
	results := []QueryResult{
		{QueryID: "a", Metrics: QueryMetrics{NDCGAtK: 0.5, RecallAtK: 0.8}},
		{QueryID: "b", Metrics: QueryMetrics{NDCGAtK: 0.5, RecallAtK: 0.2}},
		{QueryID: "c", Metrics: QueryMetrics{NDCGAtK: 0.1, RecallAtK: 1.0}},
	}

	worst := WorstQueries(results, 3)

	require.Len(t, worst, 3)
	assert.Equal(t, "c", worst[0].QueryID)
	assert.Equal(t, "b", worst[1].QueryID) // nDCG tie broken by recall
	assert.Equal(t, "a", worst[2].QueryID)
}

func TestWorstQueriesCountClamped(t *testing.T) {
	results := []QueryResult{
		{QueryID: "only", Metrics: QueryMetrics{NDCGAtK: 0.4}},
	}

	assert.Len(t, WorstQueries(results, 10), 1)
	assert.Empty(t, WorstQueries(nil, 10))
}
