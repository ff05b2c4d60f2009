// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package eval runs query sets against the index, scores the ranked results
// against human judgements and persists comparable reports.
package eval

import (
	"math"
	"sort"

	"github.com/elastic/search-ops/internal/docs"
)

// EvaluatedHit is a ranked hit paired with its judgement, if any.
type EvaluatedHit struct {
	Rank     int           `json:"rank"`
	Document docs.Document `json:"document"`
	Score    *float64      `json:"score,omitempty"`
	Grade    *int          `json:"grade,omitempty"`
	Judged   bool          `json:"judged"`
}

func (h EvaluatedHit) grade() int {
	if h.Grade == nil {
		return 0
	}
	return *h.Grade
}

// QueryMetrics are the IR metrics of a single query at cutoff K.
type QueryMetrics struct {
	PrecisionAtK       float64 `json:"precisionAtK"`
	RecallAtK          float64 `json:"recallAtK"`
	MRR                float64 `json:"mrr"`
	NDCGAtK            float64 `json:"ndcgAtK"`
	RelevantJudgements int     `json:"relevantJudgements"`
	RelevantRetrieved  int     `json:"relevantRetrieved"`
}

// Calculate derives the metrics of a query from its top-K hits and the full
// judgement set of the query. The computation is deterministic, identical
// inputs produce identical floats.
func Calculate(hits []EvaluatedHit, judgements map[string]int, k int) QueryMetrics {
	if len(hits) > k {
		hits = hits[:k]
	}

	retrieved := len(hits)
	if retrieved == 0 {
		retrieved = 1
	}

	relevantRetrieved := 0
	mrr := 0.0
	for i, hit := range hits {
		if hit.grade() > 0 {
			relevantRetrieved++
			if mrr == 0 {
				mrr = 1.0 / float64(i+1)
			}
		}
	}

	relevantJudgements := 0
	for _, grade := range judgements {
		if grade > 0 {
			relevantJudgements++
		}
	}

	recall := 0.0
	if relevantJudgements > 0 {
		recall = float64(relevantRetrieved) / float64(relevantJudgements)
	}

	return QueryMetrics{
		PrecisionAtK:       float64(relevantRetrieved) / float64(retrieved),
		RecallAtK:          recall,
		MRR:                mrr,
		NDCGAtK:            ndcg(hits, judgements, k),
		RelevantJudgements: relevantJudgements,
		RelevantRetrieved:  relevantRetrieved,
	}
}

// ndcg normalizes the discounted cumulative gain of the hits against the
// ideal ordering of the judged grades.
func ndcg(hits []EvaluatedHit, judgements map[string]int, k int) float64 {
	dcg := 0.0
	for i, hit := range hits {
		if i >= k {
			break
		}
		dcg += gain(hit.grade()) / discount(i)
	}

	var positives []int
	for _, grade := range judgements {
		if grade > 0 {
			positives = append(positives, grade)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positives)))
	if len(positives) > k {
		positives = positives[:k]
	}

	idcg := 0.0
	for i, grade := range positives {
		idcg += gain(grade) / discount(i)
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func gain(grade int) float64 {
	return math.Exp2(float64(grade)) - 1
}

func discount(position int) float64 {
	return math.Log2(float64(position) + 2)
}

// Summary aggregates the per-query metrics of a run by arithmetic mean.
type Summary struct {
	TopK             int     `json:"topK"`
	TotalQueries     int     `json:"totalQueries"`
	MeanPrecisionAtK float64 `json:"meanPrecisionAtK"`
	MeanRecallAtK    float64 `json:"meanRecallAtK"`
	MeanMRR          float64 `json:"meanMrr"`
	MeanNDCGAtK      float64 `json:"meanNdcgAtK"`
}

// Summarize builds the mean summary. An empty run yields an all-zero
// summary.
func Summarize(results []QueryResult, topK int) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	summary := Summary{
		TopK:         topK,
		TotalQueries: len(results),
	}
	for _, result := range results {
		summary.MeanPrecisionAtK += result.Metrics.PrecisionAtK
		summary.MeanRecallAtK += result.Metrics.RecallAtK
		summary.MeanMRR += result.Metrics.MRR
		summary.MeanNDCGAtK += result.Metrics.NDCGAtK
	}
	total := float64(len(results))
	summary.MeanPrecisionAtK /= total
	summary.MeanRecallAtK /= total
	summary.MeanMRR /= total
	summary.MeanNDCGAtK /= total
	return summary
}
