// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

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

const defaultTopK = 10

// QueryResult is the evaluation of a single query.
type QueryResult struct {
	QueryID    string         `json:"queryId"`
	QueryText  string         `json:"queryText"`
	Intent     string         `json:"intent,omitempty"`
	Hits       []EvaluatedHit `json:"hits"`
	Metrics    QueryMetrics   `json:"metrics"`
	TotalHits  int64          `json:"totalHits"`
	JudgedHits int            `json:"judgedHits"`
}

// RunResult is the outcome of evaluating a full dataset.
type RunResult struct {
	DatasetID   string        `json:"datasetId"`
	TopK        int           `json:"topK"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	ElapsedMs   int64         `json:"elapsedMs"`
	TargetIndex string        `json:"targetIndex"`
	Summary     Summary       `json:"summary"`
	Results     []QueryResult `json:"results"`
}

// RunOptions parameterizes an evaluation run.
type RunOptions struct {
	DatasetID   string
	TopK        int
	TargetIndex string
	MultiMatch  search.MultiMatchType
	Tuning      search.Tuning
}

// Runner executes query sets and pairs the ranked hits with judgements.
type Runner struct {
	engine    elasticsearch.Engine
	loader    *docs.DatasetLoader
	readAlias string

	now func() time.Time
}

// NewRunner creates an evaluation runner reading through readAlias unless a
// run targets a concrete index.
func NewRunner(engine elasticsearch.Engine, loader *docs.DatasetLoader, readAlias string) *Runner {
	return &Runner{
		engine:    engine,
		loader:    loader,
		readAlias: readAlias,
		now:       time.Now,
	}
}

// Run evaluates the dataset and aggregates per-query metrics.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	dataset, err := r.loader.Load(opts.DatasetID)
	if err != nil {
		return nil, err
	}

	target := opts.TargetIndex
	if target == "" {
		target = r.readAlias
	}

	startedAt := r.now()
	results := make([]QueryResult, 0, len(dataset.Queries))
	for _, query := range dataset.Queries {
		result, err := r.evaluateQuery(ctx, target, query, dataset.JudgementsFor(query.ID), opts)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	completedAt := r.now()

	topK := opts.TopK
	if len(results) == 0 {
		topK = 0
	}

	logger.Infof("evaluated dataset %q: %d queries at top-%d against %q", dataset.ID, len(results), opts.TopK, target)
	return &RunResult{
		DatasetID:   dataset.ID,
		TopK:        topK,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		ElapsedMs:   completedAt.Sub(startedAt).Milliseconds(),
		TargetIndex: target,
		Summary:     Summarize(results, opts.TopK),
		Results:     results,
	}, nil
}

func (r *Runner) evaluateQuery(ctx context.Context, target string, query docs.Query, judgements map[string]int, opts RunOptions) (*QueryResult, error) {
	req := queryToRequest(query, opts)
	body := search.Compose(req)

	searchResult, err := r.engine.Search(ctx, target, body)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "evaluation query %q failed against %q", query.ID, target)
	}

	hits := make([]EvaluatedHit, 0, len(searchResult.Hits))
	judgedHits := 0
	for i, hit := range searchResult.Hits {
		if i >= opts.TopK {
			break
		}
		doc, err := hit.Document()
		if err != nil {
			return nil, fmt.Errorf("could not decode hit %q of query %q: %w", hit.ID, query.ID, err)
		}

		evaluated := EvaluatedHit{
			Rank:     i + 1,
			Document: doc,
			Score:    hit.Score,
		}
		if grade, ok := judgements[doc.ID]; ok {
			g := grade
			evaluated.Grade = &g
			evaluated.Judged = true
			judgedHits++
		}
		hits = append(hits, evaluated)
	}

	return &QueryResult{
		QueryID:    query.ID,
		QueryText:  query.Text,
		Intent:     query.Intent,
		Hits:       hits,
		Metrics:    Calculate(hits, judgements, opts.TopK),
		TotalHits:  searchResult.Total,
		JudgedHits: judgedHits,
	}, nil
}

// queryToRequest translates a dataset query into a search request, carrying
// the query's filters over.
func queryToRequest(query docs.Query, opts RunOptions) search.Request {
	req := search.Request{
		Query:       query.Text,
		Sort:        search.SortRelevance,
		MultiMatch:  opts.MultiMatch,
		Page:        0,
		Size:        opts.TopK,
		TargetIndex: opts.TargetIndex,
		Tuning:      opts.Tuning,
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
