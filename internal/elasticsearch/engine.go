// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/logger"
)

// CreateIndex creates the index from the given template. It fails if the
// index already exists.
func (c *Client) CreateIndex(ctx context.Context, name string, template []byte) error {
	resp, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(template)),
	)
	if err != nil {
		return fmt.Errorf("could not create index %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errorFromResponse("create index "+name, resp)
	}
	logger.Debugf("created index %q", name)
	return nil
}

// IndexExists checks if the given index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.es.Indices.Exists([]string{name},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("could not check index %q: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, errorFromResponse("check index "+name, resp)
}

// DeleteIndex removes the given index.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	resp, err := c.es.Indices.Delete([]string{name},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("could not delete index %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errorFromResponse("delete index "+name, resp)
	}
	logger.Debugf("deleted index %q", name)
	return nil
}

// Count returns the number of documents in the index.
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	resp, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
	)
	if err != nil {
		return 0, fmt.Errorf("could not count documents in %q: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, errorFromResponse("count "+index, resp)
	}

	var results struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, fmt.Errorf("could not decode count response: %w", err)
	}

	logger.Debugf("found %d documents in %q", results.Count, index)
	return results.Count, nil
}

// Scan returns one page of documents from the index, sorted ascending by
// document id.
func (c *Client) Scan(ctx context.Context, index string, from, size int) ([]docs.Document, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
		"from": from,
		"size": size,
	}

	result, err := c.Search(ctx, index, body)
	if err != nil {
		return nil, fmt.Errorf("could not scan %q from %d: %w", index, from, err)
	}

	documents := make([]docs.Document, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, err := hit.Document()
		if err != nil {
			return nil, fmt.Errorf("could not decode document %q from %q: %w", hit.ID, index, err)
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

// Search executes the given query body against the index or alias.
func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}) (*SearchResult, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not encode search body: %w", err)
	}

	resp, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(encoded)),
	)
	if err != nil {
		return nil, fmt.Errorf("could not search %q: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, errorFromResponse("search "+index, resp)
	}

	var results struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID        string              `json:"_id"`
				Score     *float64            `json:"_score"`
				Source    json.RawMessage     `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("could not decode search response: %w", err)
	}

	result := SearchResult{
		Total:  results.Hits.Total.Value,
		TookMs: results.Took,
	}
	for _, hit := range results.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{
			ID:         hit.ID,
			Score:      hit.Score,
			Source:     hit.Source,
			Highlights: hit.Highlight,
		})
	}
	return &result, nil
}

// Bulk submits one batch of index operations and returns the per-item
// statuses in request order. A transport failure fails the whole batch.
func (c *Client) Bulk(ctx context.Context, target string, ops []BulkOperation) ([]BulkItemStatus, error) {
	var buf bytes.Buffer
	for _, op := range ops {
		action, err := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_id": op.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("could not encode bulk action for %q: %w", op.ID, err)
		}
		source, err := json.Marshal(op.Document)
		if err != nil {
			return nil, fmt.Errorf("could not encode document %q: %w", op.ID, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	resp, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(target),
	)
	if err != nil {
		return nil, fmt.Errorf("could not submit bulk request to %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, errorFromResponse("bulk "+target, resp)
	}

	var results struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("could not decode bulk response: %w", err)
	}

	statuses := make([]BulkItemStatus, 0, len(results.Items))
	for _, item := range results.Items {
		for _, detail := range item {
			status := BulkItemStatus{
				ID:     detail.ID,
				Status: detail.Status,
			}
			if detail.Error != nil {
				status.Error = fmt.Sprintf("%s: %s", detail.Error.Type, detail.Error.Reason)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// Reindex copies all documents from source to target on the engine side.
func (c *Client) Reindex(ctx context.Context, source, target string, waitForCompletion, refresh bool) (*ReindexResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"source": map[string]interface{}{"index": source},
		"dest":   map[string]interface{}{"index": target},
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode reindex body: %w", err)
	}

	resp, err := c.es.Reindex(bytes.NewReader(body),
		c.es.Reindex.WithContext(ctx),
		c.es.Reindex.WithWaitForCompletion(waitForCompletion),
		c.es.Reindex.WithRefresh(refresh),
	)
	if err != nil {
		return nil, fmt.Errorf("could not reindex %q into %q: %w", source, target, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, errorFromResponse(fmt.Sprintf("reindex %s -> %s", source, target), resp)
	}

	var results struct {
		Took     int64 `json:"took"`
		Failures []struct {
			ID    string `json:"id"`
			Cause struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"cause"`
		} `json:"failures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("could not decode reindex response: %w", err)
	}

	result := ReindexResult{TookMs: results.Took}
	for _, failure := range results.Failures {
		result.Failures = append(result.Failures,
			fmt.Sprintf("%s: %s: %s", failure.ID, failure.Cause.Type, failure.Cause.Reason))
	}
	return &result, nil
}

// UpdateAliases applies the actions as one atomic alias update.
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	body, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return fmt.Errorf("could not encode alias actions: %w", err)
	}

	resp, err := c.es.Indices.UpdateAliases(bytes.NewReader(body),
		c.es.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("could not update aliases: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errorFromResponse("update aliases", resp)
	}
	logger.Debugf("applied %d alias actions", len(actions))
	return nil
}

// GetAlias returns the indices currently bound to each of the given aliases.
// Unknown aliases are omitted from the result.
func (c *Client) GetAlias(ctx context.Context, aliases ...string) (map[string][]string, error) {
	resp, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithContext(ctx),
		c.es.Indices.GetAlias.WithName(aliases...),
	)
	if err != nil {
		return nil, fmt.Errorf("could not get aliases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return map[string][]string{}, nil
	}
	if resp.IsError() {
		return nil, errorFromResponse("get aliases", resp)
	}

	var results map[string]struct {
		Aliases map[string]interface{} `json:"aliases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("could not decode alias response: %w", err)
	}

	bound := map[string][]string{}
	for index, entry := range results {
		for alias := range entry.Aliases {
			bound[alias] = append(bound[alias], index)
		}
	}
	return bound, nil
}

// Refresh makes all operations performed on the index since the last refresh
// available for search.
func (c *Client) Refresh(ctx context.Context, index string) error {
	resp, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("could not refresh %q: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errorFromResponse("refresh "+index, resp)
	}
	return nil
}

// Ping checks the engine connectivity.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not ping the engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errorFromResponse("ping", resp)
	}
	return nil
}
