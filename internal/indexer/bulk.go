// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package indexer implements the chunked, partial-failure-aware bulk writer.
package indexer

import (
	"context"
	"time"

	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

const (
	defaultChunkSize  = 500
	defaultMaxRetries = 2
)

// payload is the document as stored in the engine. The autocomplete field is
// derived from the title at index time.
type payload struct {
	docs.Document
	TitleAutocomplete string `json:"titleAutocomplete"`
}

// Failure describes a document the engine rejected on its last attempt.
type Failure struct {
	ID      string `json:"id"`
	Status  int    `json:"status"`
	Reason  string `json:"reason"`
	Attempt int    `json:"attempt"`
}

// Result summarizes a bulk indexing run. Success and Failed always add up to
// Total.
type Result struct {
	Total    int       `json:"total"`
	Success  int       `json:"success"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
	Attempts int       `json:"attempts"`
	TookMs   int64     `json:"tookMs"`
}

// BulkIndexer writes documents in chunks and retries only the documents that
// failed on the previous pass.
type BulkIndexer struct {
	engine        elasticsearch.Engine
	defaultTarget string
	chunkSize     int
	maxRetries    int

	// backoff, when set, is called between retry passes with the upcoming
	// attempt number. No backoff is applied by default.
	backoff func(attempt int)
}

// Option customizes a BulkIndexer.
type Option func(*BulkIndexer)

// OptionWithBackoff installs a pause between retry passes.
func OptionWithBackoff(backoff func(attempt int)) Option {
	return func(b *BulkIndexer) {
		b.backoff = backoff
	}
}

// New creates a bulk indexer writing to defaultTarget unless a call overrides
// it.
func New(engine elasticsearch.Engine, config configuration.IndexerConfig, defaultTarget string, options ...Option) *BulkIndexer {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	indexer := BulkIndexer{
		engine:        engine,
		defaultTarget: defaultTarget,
		chunkSize:     chunkSize,
		maxRetries:    maxRetries,
	}
	for _, option := range options {
		option(&indexer)
	}
	return &indexer
}

// Index writes the documents to target, or the default target when empty.
// Per-item engine rejections do not produce an error, they are reported in
// the result. Transport errors fail the whole chunk and its items become
// retry candidates.
func (b *BulkIndexer) Index(ctx context.Context, documents []docs.Document, target string) (*Result, error) {
	if len(documents) == 0 {
		return nil, opserror.New(opserror.BadRequest, "no documents to index")
	}
	if target == "" {
		target = b.defaultTarget
	}
	for _, doc := range documents {
		if err := doc.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result := Result{Total: len(documents)}

	pending := documents
	var lastFailures []Failure
	for len(pending) > 0 && result.Attempts <= b.maxRetries {
		if result.Attempts > 0 && b.backoff != nil {
			b.backoff(result.Attempts + 1)
		}
		result.Attempts++

		var failedDocs []docs.Document
		var failures []Failure
		for _, chunk := range chunks(pending, b.chunkSize) {
			chunkFailures, chunkFailedDocs := b.submitChunk(ctx, target, chunk, result.Attempts)
			failures = append(failures, chunkFailures...)
			failedDocs = append(failedDocs, chunkFailedDocs...)
		}

		result.Success += len(pending) - len(failedDocs)
		pending = failedDocs
		lastFailures = failures
	}

	result.Failed = len(pending)
	if result.Failed > 0 {
		result.Failures = lastFailures
	}
	result.TookMs = time.Since(start).Milliseconds()

	logger.Debugf("bulk indexed %d/%d documents into %q in %d attempts", result.Success, result.Total, target, result.Attempts)
	return &result, nil
}

func (b *BulkIndexer) submitChunk(ctx context.Context, target string, chunk []docs.Document, attempt int) ([]Failure, []docs.Document) {
	byID := make(map[string]docs.Document, len(chunk))
	ops := make([]elasticsearch.BulkOperation, len(chunk))
	for i, doc := range chunk {
		byID[doc.ID] = doc
		ops[i] = elasticsearch.BulkOperation{
			ID: doc.ID,
			Document: payload{
				Document:          doc,
				TitleAutocomplete: doc.Title,
			},
		}
	}

	statuses, err := b.engine.Bulk(ctx, target, ops)
	if err != nil {
		// Transport failure, the whole chunk becomes a retry candidate.
		logger.Warnf("bulk chunk of %d documents failed on attempt %d: %v", len(chunk), attempt, err)
		failures := make([]Failure, len(chunk))
		for i, doc := range chunk {
			failures[i] = Failure{
				ID:      doc.ID,
				Reason:  err.Error(),
				Attempt: attempt,
			}
		}
		return failures, chunk
	}

	var failures []Failure
	var failedDocs []docs.Document
	for _, status := range statuses {
		if !status.Failed() {
			continue
		}
		failures = append(failures, Failure{
			ID:      status.ID,
			Status:  status.Status,
			Reason:  status.Error,
			Attempt: attempt,
		})
		if doc, ok := byID[status.ID]; ok {
			failedDocs = append(failedDocs, doc)
		}
	}
	return failures, failedDocs
}

func chunks(documents []docs.Document, size int) [][]docs.Document {
	var result [][]docs.Document
	for start := 0; start < len(documents); start += size {
		end := start + size
		if end > len(documents) {
			end = len(documents)
		}
		result = append(result, documents[start:end])
	}
	return result
}
