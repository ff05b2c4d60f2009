// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package elasticsearch

import (
	"context"
	"encoding/json"

	"github.com/elastic/search-ops/internal/docs"
)

// Engine is the port the control plane consumes. The target of Search and
// Bulk may be an alias or a concrete index.
type Engine interface {
	CreateIndex(ctx context.Context, name string, template []byte) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) error
	Count(ctx context.Context, index string) (int64, error)

	// Scan returns one page of documents sorted ascending by document id.
	// The ordering is part of the contract, content hashing is defined only
	// under it.
	Scan(ctx context.Context, index string, from, size int) ([]docs.Document, error)

	Search(ctx context.Context, index string, body map[string]interface{}) (*SearchResult, error)
	Bulk(ctx context.Context, target string, ops []BulkOperation) ([]BulkItemStatus, error)
	Reindex(ctx context.Context, source, target string, waitForCompletion, refresh bool) (*ReindexResult, error)

	// UpdateAliases applies all actions as a single atomic cluster-state
	// update.
	UpdateAliases(ctx context.Context, actions []AliasAction) error
	GetAlias(ctx context.Context, aliases ...string) (map[string][]string, error)

	Refresh(ctx context.Context, index string) error
	Ping(ctx context.Context) error
}

// SearchResult is the decoded engine search response.
type SearchResult struct {
	Total  int64
	TookMs int64
	Hits   []SearchHit
}

// SearchHit is a single ranked hit.
type SearchHit struct {
	ID         string
	Score      *float64
	Source     json.RawMessage
	Highlights map[string][]string
}

// Document decodes the hit source into the document model.
func (h SearchHit) Document() (docs.Document, error) {
	var doc docs.Document
	err := json.Unmarshal(h.Source, &doc)
	return doc, err
}

// BulkOperation is a single index operation of a bulk request.
type BulkOperation struct {
	ID       string
	Document interface{}
}

// BulkItemStatus is the per-item outcome of a bulk request, in request order.
type BulkItemStatus struct {
	ID     string
	Status int
	Error  string
}

// Failed reports whether the item was rejected by the engine.
func (s BulkItemStatus) Failed() bool {
	return s.Status >= 300
}

// ReindexResult is the decoded engine reindex response.
type ReindexResult struct {
	TookMs   int64
	Failures []string
}

// AliasAction is one entry of an atomic alias update.
type AliasAction struct {
	Add    *AliasDetail `json:"add,omitempty"`
	Remove *AliasDetail `json:"remove,omitempty"`
}

// AliasDetail names the index/alias pair an action applies to.
type AliasDetail struct {
	Index        string `json:"index"`
	Alias        string `json:"alias"`
	IsWriteIndex bool   `json:"is_write_index,omitempty"`
	MustExist    *bool  `json:"must_exist,omitempty"`
}

// AddAliasAction builds an add action.
func AddAliasAction(index, alias string, isWriteIndex bool) AliasAction {
	return AliasAction{Add: &AliasDetail{Index: index, Alias: alias, IsWriteIndex: isWriteIndex}}
}

// RemoveAliasAction builds a remove action detaching the alias from any index
// it is currently bound to. The action is a no-op when the alias does not
// exist.
func RemoveAliasAction(alias string) AliasAction {
	mustExist := false
	return AliasAction{Remove: &AliasDetail{Index: "*", Alias: alias, MustExist: &mustExist}}
}
