// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedHits(grades ...*int) []EvaluatedHit {
	hits := make([]EvaluatedHit, len(grades))
	for i, grade := range grades {
		hits[i] = EvaluatedHit{
			Rank:   i + 1,
			Grade:  grade,
			Judged: grade != nil,
		}
	}
	return hits
}

func grade(g int) *int {
	return &g
}

func TestCalculateScenario(t *testing.T) {
	judgements := map[string]int{"doc-1": 3, "doc-2": 2}
	hits := rankedHits(nil, nil, grade(3)) // doc-3, doc-4, doc-1

	metrics := Calculate(hits, judgements, 3)

	assert.InDelta(t, 1.0/3.0, metrics.PrecisionAtK, 1e-12)
	assert.InDelta(t, 0.5, metrics.RecallAtK, 1e-12)
	assert.InDelta(t, 1.0/3.0, metrics.MRR, 1e-12)

	dcg := (math.Exp2(3) - 1) / math.Log2(4)
	idcg := (math.Exp2(3)-1)/math.Log2(2) + (math.Exp2(2)-1)/math.Log2(3)
	assert.InDelta(t, dcg/idcg, metrics.NDCGAtK, 1e-12)

	assert.Equal(t, 2, metrics.RelevantJudgements)
	assert.Equal(t, 1, metrics.RelevantRetrieved)
}

func TestCalculateRanges(t *testing.T) {
	cases := []struct {
		name       string
		hits       []EvaluatedHit
		judgements map[string]int
		k          int
	}{
		{"all relevant", rankedHits(grade(3), grade(2), grade(1)), map[string]int{"a": 3, "b": 2, "c": 1}, 3},
		{"none relevant", rankedHits(nil, nil), map[string]int{"a": 2}, 2},
		{"zero grades", rankedHits(grade(0), grade(0)), map[string]int{"a": 0, "b": 0}, 2},
		{"more judged than retrieved", rankedHits(grade(1)), map[string]int{"a": 1, "b": 3, "c": 2}, 5},
		{"no hits", nil, map[string]int{"a": 1}, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			metrics := Calculate(c.hits, c.judgements, c.k)
			assert.GreaterOrEqual(t, metrics.PrecisionAtK, 0.0)
			assert.LessOrEqual(t, metrics.PrecisionAtK, 1.0)
			assert.GreaterOrEqual(t, metrics.RecallAtK, 0.0)
			assert.LessOrEqual(t, metrics.RecallAtK, 1.0)
			assert.GreaterOrEqual(t, metrics.MRR, 0.0)
			assert.LessOrEqual(t, metrics.MRR, 1.0)
			assert.GreaterOrEqual(t, metrics.NDCGAtK, 0.0)
			assert.LessOrEqual(t, metrics.NDCGAtK, 1.0)
		})
	}
}

func TestCalculateDeterminism(t *testing.T) {
	judgements := map[string]int{"a": 3, "b": 1, "c": 2, "d": 0}
	hits := rankedHits(grade(1), nil, grade(3), grade(0), grade(2))

	first := Calculate(hits, judgements, 5)
	second := Calculate(hits, judgements, 5)
	assert.Equal(t, first, second)
}

func TestCalculateEmptyJudgements(t *testing.T) {
	metrics := Calculate(rankedHits(nil, nil, nil), map[string]int{}, 3)

	assert.Zero(t, metrics.PrecisionAtK)
	assert.Zero(t, metrics.RecallAtK)
	assert.Zero(t, metrics.MRR)
	assert.Zero(t, metrics.NDCGAtK)
}

func TestCalculateNoHits(t *testing.T) {
	metrics := Calculate(nil, map[string]int{"a": 3}, 10)

	assert.Zero(t, metrics.PrecisionAtK)
	assert.Zero(t, metrics.RecallAtK)
	assert.Equal(t, 1, metrics.RelevantJudgements)
}

func TestCalculatePerfectRanking(t *testing.T) {
	judgements := map[string]int{"a": 3, "b": 2}
	metrics := Calculate(rankedHits(grade(3), grade(2)), judgements, 2)

	assert.InDelta(t, 1.0, metrics.NDCGAtK, 1e-12)
	assert.InDelta(t, 1.0, metrics.MRR, 1e-12)
	assert.InDelta(t, 1.0, metrics.PrecisionAtK, 1e-12)
	assert.InDelta(t, 1.0, metrics.RecallAtK, 1e-12)
}

func TestQueryMetricsRoundTrip(t *testing.T) {
	original := Calculate(rankedHits(nil, grade(2), grade(3)), map[string]int{"a": 2, "b": 3, "c": 1}, 3)

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded QueryMetrics
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.InDelta(t, original.PrecisionAtK, decoded.PrecisionAtK, 1e-12)
	assert.InDelta(t, original.RecallAtK, decoded.RecallAtK, 1e-12)
	assert.InDelta(t, original.MRR, decoded.MRR, 1e-12)
	assert.InDelta(t, original.NDCGAtK, decoded.NDCGAtK, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, 10)

	assert.Zero(t, summary.TopK)
	assert.Zero(t, summary.TotalQueries)
	assert.Zero(t, summary.MeanPrecisionAtK)
	assert.Zero(t, summary.MeanRecallAtK)
	assert.Zero(t, summary.MeanMRR)
	assert.Zero(t, summary.MeanNDCGAtK)
}

func TestSummarizeMeans(t *testing.T) {
	results := []QueryResult{
		{Metrics: QueryMetrics{PrecisionAtK: 1.0, RecallAtK: 1.0, MRR: 1.0, NDCGAtK: 1.0}},
		{Metrics: QueryMetrics{PrecisionAtK: 0.5, RecallAtK: 0.0, MRR: 0.5, NDCGAtK: 0.2}},
	}

	summary := Summarize(results, 10)

	assert.Equal(t, 10, summary.TopK)
	assert.Equal(t, 2, summary.TotalQueries)
	assert.InDelta(t, 0.75, summary.MeanPrecisionAtK, 1e-12)
	assert.InDelta(t, 0.5, summary.MeanRecallAtK, 1e-12)
	assert.InDelta(t, 0.75, summary.MeanMRR, 1e-12)
	assert.InDelta(t, 0.6, summary.MeanNDCGAtK, 1e-12)
}
