// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package benchrunner measures search latency over a query set and persists
// comparable performance reports.
package benchrunner

import (
	"math"
	"sort"
)

// LatencyStats summarizes a latency sample set, in milliseconds.
type LatencyStats struct {
	Samples int     `json:"samples"`
	Min     int64   `json:"min"`
	P50     int64   `json:"p50"`
	P95     int64   `json:"p95"`
	Max     int64   `json:"max"`
	Avg     float64 `json:"avg"`
}

// SummarizeSamples computes the latency statistics of a sample set. Empty
// input yields all-zero stats.
func SummarizeSamples(samples []int64) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}

	sorted := make([]int64, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	sum := int64(0)
	for _, sample := range sorted {
		sum += sample
	}

	return LatencyStats{
		Samples: len(sorted),
		Min:     sorted[0],
		P50:     percentile(sorted, 0.50),
		P95:     percentile(sorted, 0.95),
		Max:     sorted[len(sorted)-1],
		Avg:     float64(sum) / float64(len(sorted)),
	}
}

// percentile picks the nearest-rank percentile from an ascending sample list:
// index = clamp(ceil(p*n)-1, 0, n-1).
func percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	index := int(math.Ceil(p*float64(n))) - 1
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	return sorted[index]
}
