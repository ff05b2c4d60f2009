// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package search

import (
	"context"
	"fmt"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

const defaultSuggestSize = 5

// Hit is a ranked document returned to the caller.
type Hit struct {
	Document   docs.Document       `json:"document"`
	Score      *float64            `json:"score,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Result is the outcome of a search or suggest call.
type Result struct {
	Total  int64 `json:"total"`
	TookMs int64 `json:"tookMs"`
	Page   int   `json:"page"`
	Size   int   `json:"size"`
	Hits   []Hit `json:"hits"`
}

// Service executes composed queries against the engine.
type Service struct {
	engine        elasticsearch.Engine
	readAlias     string
	defaultTuning Tuning
}

// NewService creates a search service reading through the given alias.
func NewService(engine elasticsearch.Engine, readAlias string, defaultTuning Tuning) *Service {
	return &Service{
		engine:        engine,
		readAlias:     readAlias,
		defaultTuning: defaultTuning,
	}
}

// Search runs the request against its target index, or the read alias when no
// target is set.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Tuning.Recency == nil && req.Tuning.Popularity == nil && req.Tuning.ScoreMode == "" {
		req.Tuning = s.defaultTuning
	}
	target := req.TargetIndex
	if target == "" {
		target = s.readAlias
	}

	result, err := s.engine.Search(ctx, target, Compose(req))
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "search against %q failed", target)
	}

	logger.Debugf("search %q on %q: %d hits in %dms", req.Query, target, result.Total, result.TookMs)
	return s.collectHits(result, req.Page, req.Size)
}

// Suggest returns title completions for the given prefix.
func (s *Service) Suggest(ctx context.Context, query, category string, size int) (*Result, error) {
	if query == "" {
		return nil, opserror.New(opserror.BadRequest, "suggest query must not be empty")
	}
	if size <= 0 {
		size = defaultSuggestSize
	}

	body := ComposeSuggest(query, category, size, s.defaultTuning.Popularity)
	result, err := s.engine.Search(ctx, s.readAlias, body)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "suggest against %q failed", s.readAlias)
	}
	return s.collectHits(result, 0, size)
}

func (s *Service) collectHits(result *elasticsearch.SearchResult, page, size int) (*Result, error) {
	hits := make([]Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, err := hit.Document()
		if err != nil {
			return nil, fmt.Errorf("could not decode hit %q: %w", hit.ID, err)
		}
		hits = append(hits, Hit{
			Document:   doc,
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}
	return &Result{
		Total:  result.Total,
		TookMs: result.TookMs,
		Page:   page,
		Size:   size,
		Hits:   hits,
	}, nil
}
