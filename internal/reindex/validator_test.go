// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/opserror"
)

func hashDoc(id, title string) docs.Document {
	return docs.Document{
		ID:              id,
		Title:           title,
		Body:            "body of " + title,
		Category:        "engineering",
		Author:          "sun.mi.park",
		PublishedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		PopularityScore: 4.2,
	}
}

func TestValidateCountMismatch(t *testing.T) {
	engine := newFakeEngine()
	engine.counts["docs_v1"] = 10
	engine.counts["docs_v2"] = 8

	result, err := NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", ValidationOptions{
		EnableCountValidation: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.NotNil(t, result.Count)
	assert.Equal(t, int64(10), result.Count.SourceCount)
	assert.Equal(t, int64(8), result.Count.TargetCount)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "count mismatch")
}

func TestValidateCountMatch(t *testing.T) {
	engine := newFakeEngine()
	engine.counts["docs_v1"] = 10
	engine.counts["docs_v2"] = 10

	result, err := NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", ValidationOptions{
		EnableCountValidation: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Empty(t, result.Reasons)
}

func TestCompareTopIDs(t *testing.T) {
	overlap := CompareTopIDs("query", []string{"doc-1", "doc-2", "doc-3"}, []string{"doc-1", "doc-4", "doc-5"}, 0.5)

	assert.InDelta(t, 0.2, overlap.Jaccard, 1e-12)
	assert.False(t, overlap.Passed)
	assert.Equal(t, []string{"doc-2", "doc-3"}, overlap.MissingInTarget)
	assert.Equal(t, []string{"doc-4", "doc-5"}, overlap.MissingInSource)
}

func TestCompareTopIDsEmptyUnion(t *testing.T) {
	overlap := CompareTopIDs("query", nil, nil, 0.9)

	assert.Equal(t, 1.0, overlap.Jaccard)
	assert.True(t, overlap.Passed)
}

func TestValidateSampleQueries(t *testing.T) {
	engine := newFakeEngine()
	engine.hits["docs_v1"] = []elasticsearch.SearchHit{{ID: "doc-1"}, {ID: "doc-2"}, {ID: "doc-3"}}
	engine.hits["docs_v2"] = []elasticsearch.SearchHit{{ID: "doc-1"}, {ID: "doc-4"}, {ID: "doc-5"}}

	result, err := NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", ValidationOptions{
		EnableSampleQueryValidation: true,
		SampleQueries:               []string{"쿠버네티스"},
		SampleTopK:                  3,
		MinJaccard:                  0.5,
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.NotNil(t, result.SampleQueries)
	require.Len(t, result.SampleQueries.Queries, 1)
	assert.InDelta(t, 0.2, result.SampleQueries.Queries[0].Jaccard, 1e-12)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "jaccard")
}

func TestValidateContentHash(t *testing.T) {
	source := []docs.Document{hashDoc("a", "first"), hashDoc("b", "second")}

	engine := newFakeEngine()
	engine.documents["docs_v1"] = source
	engine.documents["docs_v2"] = source

	opts := ValidationOptions{
		EnableHashValidation: true,
		HashMaxDocs:          1000,
		HashPageSize:         1,
	}

	result, err := NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", opts)
	require.NoError(t, err)
	require.NotNil(t, result.Hash)
	assert.True(t, result.Hash.Passed)
	assert.Equal(t, 2, result.Hash.SourceDocs)
	assert.Equal(t, result.Hash.SourceHash, result.Hash.TargetHash)

	// A single changed title flips the digest.
	engine.documents["docs_v2"] = []docs.Document{hashDoc("a", "first"), hashDoc("b", "changed")}
	result, err = NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", opts)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "content hash mismatch")
}

func TestValidateContentHashMaxDocsOne(t *testing.T) {
	engine := newFakeEngine()
	engine.documents["docs_v1"] = []docs.Document{hashDoc("a", "same"), hashDoc("b", "source only")}
	engine.documents["docs_v2"] = []docs.Document{hashDoc("a", "same"), hashDoc("b", "target only")}

	result, err := NewValidator(engine).Validate(context.Background(), "docs_v1", "docs_v2", ValidationOptions{
		EnableHashValidation: true,
		HashMaxDocs:          1,
		HashPageSize:         200,
	})
	require.NoError(t, err)

	// Only the first document of each side is scanned.
	require.NotNil(t, result.Hash)
	assert.Equal(t, 1, result.Hash.SourceDocs)
	assert.Equal(t, 1, result.Hash.TargetDocs)
	assert.True(t, result.Hash.Passed)
}

func TestValidateVacuous(t *testing.T) {
	result, err := NewValidator(newFakeEngine()).Validate(context.Background(), "docs_v1", "docs_v2", ValidationOptions{})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Nil(t, result.Count)
	assert.Nil(t, result.SampleQueries)
	assert.Nil(t, result.Hash)
}

func TestValidationOptionsBounds(t *testing.T) {
	cases := []struct {
		name string
		opts ValidationOptions
	}{
		{"jaccard above one", ValidationOptions{MinJaccard: 1.5}},
		{"sample queries missing", ValidationOptions{EnableSampleQueryValidation: true, SampleTopK: 10}},
		{"sample topK zero", ValidationOptions{EnableSampleQueryValidation: true, SampleQueries: []string{"q"}}},
		{"hash max docs zero", ValidationOptions{EnableHashValidation: true, HashPageSize: 10}},
		{"hash page size zero", ValidationOptions{EnableHashValidation: true, HashMaxDocs: 10}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewValidator(newFakeEngine()).Validate(context.Background(), "a", "b", c.opts)
			require.Error(t, err)
			assert.Equal(t, opserror.BadRequest, opserror.KindOf(err))
		})
	}
}
