// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"
	"sort"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
)

// fakeEngine is an in-memory Engine for orchestrator, validator and rollback
// tests.
type fakeEngine struct {
	counts    map[string]int64
	indices   map[string]struct{}
	aliases   map[string][]string
	documents map[string][]docs.Document
	hits      map[string][]elasticsearch.SearchHit

	// reindexLoss drops documents from the target count to simulate an
	// incomplete engine-side reindex.
	reindexLoss int64

	aliasCalls [][]elasticsearch.AliasAction
}

var _ elasticsearch.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		counts:    map[string]int64{},
		indices:   map[string]struct{}{},
		aliases:   map[string][]string{},
		documents: map[string][]docs.Document{},
		hits:      map[string][]elasticsearch.SearchHit{},
	}
}

func (f *fakeEngine) CreateIndex(ctx context.Context, name string, template []byte) error {
	f.indices[name] = struct{}{}
	return nil
}

func (f *fakeEngine) IndexExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.indices[name]
	return ok, nil
}

func (f *fakeEngine) DeleteIndex(ctx context.Context, name string) error {
	delete(f.indices, name)
	delete(f.counts, name)
	delete(f.documents, name)
	return nil
}

func (f *fakeEngine) Count(ctx context.Context, index string) (int64, error) {
	return f.counts[index], nil
}

func (f *fakeEngine) Scan(ctx context.Context, index string, from, size int) ([]docs.Document, error) {
	sorted := make([]docs.Document, len(f.documents[index]))
	copy(sorted, f.documents[index])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if from >= len(sorted) {
		return nil, nil
	}
	end := from + size
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[from:end], nil
}

func (f *fakeEngine) Search(ctx context.Context, index string, body map[string]interface{}) (*elasticsearch.SearchResult, error) {
	hits := f.hits[index]
	return &elasticsearch.SearchResult{
		Total:  int64(len(hits)),
		TookMs: 1,
		Hits:   hits,
	}, nil
}

func (f *fakeEngine) Bulk(ctx context.Context, target string, ops []elasticsearch.BulkOperation) ([]elasticsearch.BulkItemStatus, error) {
	statuses := make([]elasticsearch.BulkItemStatus, len(ops))
	for i, op := range ops {
		statuses[i] = elasticsearch.BulkItemStatus{ID: op.ID, Status: 200}
	}
	return statuses, nil
}

func (f *fakeEngine) Reindex(ctx context.Context, source, target string, waitForCompletion, refresh bool) (*elasticsearch.ReindexResult, error) {
	f.counts[target] = f.counts[source] - f.reindexLoss
	f.documents[target] = append([]docs.Document{}, f.documents[source]...)
	f.hits[target] = append([]elasticsearch.SearchHit{}, f.hits[source]...)
	return &elasticsearch.ReindexResult{TookMs: 7}, nil
}

func (f *fakeEngine) UpdateAliases(ctx context.Context, actions []elasticsearch.AliasAction) error {
	f.aliasCalls = append(f.aliasCalls, actions)
	for _, action := range actions {
		switch {
		case action.Remove != nil:
			delete(f.aliases, action.Remove.Alias)
		case action.Add != nil:
			f.aliases[action.Add.Alias] = append(f.aliases[action.Add.Alias], action.Add.Index)
		}
	}
	return nil
}

func (f *fakeEngine) GetAlias(ctx context.Context, names ...string) (map[string][]string, error) {
	result := map[string][]string{}
	for _, name := range names {
		if targets, ok := f.aliases[name]; ok {
			result[name] = append([]string{}, targets...)
		}
	}
	return result, nil
}

func (f *fakeEngine) Refresh(ctx context.Context, index string) error {
	return nil
}

func (f *fakeEngine) Ping(ctx context.Context) error {
	return nil
}
