// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package benchrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
	"github.com/elastic/search-ops/internal/search"
)

const runTimestampFormat = "20060102_150405"

// RunOptions parameterizes a benchmark run.
type RunOptions struct {
	DatasetID      string
	TopK           int
	Iterations     int
	Warmups        int
	TargetIndex    string
	ReportIDPrefix string
}

// QueryLatency is the latency profile of a single query.
type QueryLatency struct {
	QueryID   string       `json:"queryId"`
	QueryText string       `json:"queryText"`
	Stats     LatencyStats `json:"stats"`
}

// RunResult is the outcome of a benchmark run.
type RunResult struct {
	RunID       string         `json:"runId"`
	DatasetID   string         `json:"datasetId"`
	TopK        int            `json:"topK"`
	Iterations  int            `json:"iterations"`
	Warmups     int            `json:"warmups"`
	TargetIndex string         `json:"targetIndex"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
	ElapsedMs   int64          `json:"elapsedMs"`
	QPS         float64        `json:"qps"`
	Global      LatencyStats   `json:"global"`
	Queries     []QueryLatency `json:"queries"`
}

// Runner executes a query set repeatedly and collects the engine-reported
// took times.
type Runner struct {
	engine    elasticsearch.Engine
	loader    *docs.DatasetLoader
	readAlias string

	now func() time.Time
}

// NewRunner creates a benchmark runner reading through readAlias unless a run
// targets a concrete index.
func NewRunner(engine elasticsearch.Engine, loader *docs.DatasetLoader, readAlias string) *Runner {
	return &Runner{
		engine:    engine,
		loader:    loader,
		readAlias: readAlias,
		now:       time.Now,
	}
}

// Run benchmarks the dataset: per query, warmup searches are discarded, then
// the iterations record the engine took time.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Iterations < 1 {
		return nil, opserror.New(opserror.BadRequest, "iterations must be at least 1, got %d", opts.Iterations)
	}
	if opts.Warmups < 0 {
		return nil, opserror.New(opserror.BadRequest, "warmups must not be negative, got %d", opts.Warmups)
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	queries, err := r.loader.LoadQueries(opts.DatasetID)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, opserror.New(opserror.BadRequest, "query set %q is empty", opts.DatasetID)
	}

	target := opts.TargetIndex
	if target == "" {
		target = r.readAlias
	}

	startedAt := r.now()
	var pooled []int64
	results := make([]QueryLatency, 0, len(queries))
	for _, query := range queries {
		body := search.Compose(benchmarkRequest(query, opts))

		for i := 0; i < opts.Warmups; i++ {
			if _, err := r.engine.Search(ctx, target, body); err != nil {
				return nil, opserror.Wrap(opserror.Engine, err, "warmup of query %q failed against %q", query.ID, target)
			}
		}

		samples := make([]int64, 0, opts.Iterations)
		for i := 0; i < opts.Iterations; i++ {
			result, err := r.engine.Search(ctx, target, body)
			if err != nil {
				return nil, opserror.Wrap(opserror.Engine, err, "benchmark of query %q failed against %q", query.ID, target)
			}
			samples = append(samples, result.TookMs)
		}

		pooled = append(pooled, samples...)
		results = append(results, QueryLatency{
			QueryID:   query.ID,
			QueryText: query.Text,
			Stats:     SummarizeSamples(samples),
		})
	}
	completedAt := r.now()

	elapsed := completedAt.Sub(startedAt)
	qps := float64(len(pooled))
	if seconds := elapsed.Seconds(); seconds > 0 {
		qps = float64(len(pooled)) / seconds
	}

	runID := fmt.Sprintf("%s_%s", opts.DatasetID, startedAt.UTC().Format(runTimestampFormat))
	if opts.ReportIDPrefix != "" {
		runID = opts.ReportIDPrefix + "_" + runID
	}

	logger.Infof("benchmarked dataset %q: %d queries, %d samples against %q", opts.DatasetID, len(queries), len(pooled), target)
	return &RunResult{
		RunID:       runID,
		DatasetID:   opts.DatasetID,
		TopK:        opts.TopK,
		Iterations:  opts.Iterations,
		Warmups:     opts.Warmups,
		TargetIndex: target,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		ElapsedMs:   elapsed.Milliseconds(),
		QPS:         qps,
		Global:      SummarizeSamples(pooled),
		Queries:     results,
	}, nil
}

func benchmarkRequest(query docs.Query, opts RunOptions) search.Request {
	req := search.Request{
		Query:       query.Text,
		Sort:        search.SortRelevance,
		Size:        opts.TopK,
		TargetIndex: opts.TargetIndex,
	}
	if query.Filters != nil {
		req.Category = query.Filters.Category
		req.Tags = query.Filters.Tags
		req.Author = query.Filters.Author
		req.PublishedFrom = query.Filters.PublishedAtFrom
		req.PublishedTo = query.Filters.PublishedAtTo
	}
	return req
}
