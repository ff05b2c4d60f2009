// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package benchrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeSamplesEmpty(t *testing.T) {
	assert.Equal(t, LatencyStats{}, SummarizeSamples(nil))
}

func TestSummarizeSamplesSingle(t *testing.T) {
	stats := SummarizeSamples([]int64{42})

	assert.Equal(t, LatencyStats{
		Samples: 1,
		Min:     42,
		P50:     42,
		P95:     42,
		Max:     42,
		Avg:     42,
	}, stats)
}

func TestSummarizeSamplesNearestRank(t *testing.T) {
	// Unsorted on purpose, summarization must not depend on input order.
	samples := []int64{100, 10, 90, 30, 20, 80, 40, 70, 50, 60}

	stats := SummarizeSamples(samples)

	assert.Equal(t, 10, stats.Samples)
	assert.Equal(t, int64(10), stats.Min)
	assert.Equal(t, int64(50), stats.P50)
	assert.Equal(t, int64(100), stats.P95)
	assert.Equal(t, int64(100), stats.Max)
	assert.InDelta(t, 55.0, stats.Avg, 1e-9)
}

func TestSummarizeSamplesDoesNotMutateInput(t *testing.T) {
	samples := []int64{3, 1, 2}
	SummarizeSamples(samples)
	assert.Equal(t, []int64{3, 1, 2}, samples)
}

func TestPercentileClamp(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5}

	assert.Equal(t, int64(1), percentile(sorted, 0))
	assert.Equal(t, int64(3), percentile(sorted, 0.5))
	assert.Equal(t, int64(5), percentile(sorted, 0.95))
	assert.Equal(t, int64(5), percentile(sorted, 1))
}
