// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
	"github.com/elastic/search-ops/internal/search"
)

// ValidationOptions selects and parameterizes the pre-switch checks. Each
// check can be disabled independently; when none is enabled the validation
// passes vacuously.
type ValidationOptions struct {
	EnableCountValidation       bool     `json:"enableCountValidation"`
	EnableSampleQueryValidation bool     `json:"enableSampleQueryValidation"`
	EnableHashValidation        bool     `json:"enableHashValidation"`
	SampleQueries               []string `json:"sampleQueries,omitempty"`
	SampleTopK                  int      `json:"sampleTopK"`
	MinJaccard                  float64  `json:"minJaccard"`
	HashMaxDocs                 int      `json:"hashMaxDocs"`
	HashPageSize                int      `json:"hashPageSize"`
}

// ValidationOptionsFromConfiguration maps the configured defaults.
func ValidationOptionsFromConfiguration(config configuration.ValidationConfig) ValidationOptions {
	return ValidationOptions{
		EnableCountValidation:       config.EnableCountValidation,
		EnableSampleQueryValidation: config.EnableSampleQueryValidation,
		EnableHashValidation:        config.EnableHashValidation,
		SampleQueries:               config.SampleQueries,
		SampleTopK:                  config.SampleTopK,
		MinJaccard:                  config.MinJaccard,
		HashMaxDocs:                 config.HashMaxDocs,
		HashPageSize:                config.HashPageSize,
	}
}

// Validate checks the option bounds.
func (o ValidationOptions) Validate() error {
	if o.MinJaccard < 0 || o.MinJaccard > 1 {
		return opserror.New(opserror.BadRequest, "minJaccard %v out of range [0,1]", o.MinJaccard)
	}
	if o.EnableSampleQueryValidation {
		if len(o.SampleQueries) == 0 {
			return opserror.New(opserror.BadRequest, "sample query validation enabled without sample queries")
		}
		if o.SampleTopK <= 0 {
			return opserror.New(opserror.BadRequest, "sampleTopK must be positive")
		}
	}
	if o.EnableHashValidation {
		if o.HashMaxDocs <= 0 {
			return opserror.New(opserror.BadRequest, "hashMaxDocs must be positive")
		}
		if o.HashPageSize <= 0 {
			return opserror.New(opserror.BadRequest, "hashPageSize must be positive")
		}
	}
	return nil
}

// CountResult is the outcome of the document count check.
type CountResult struct {
	SourceCount int64 `json:"sourceCount"`
	TargetCount int64 `json:"targetCount"`
	Passed      bool  `json:"passed"`
}

// QueryOverlap is the outcome of the top-K overlap check for one sample
// query.
type QueryOverlap struct {
	Query           string   `json:"query"`
	Jaccard         float64  `json:"jaccard"`
	MissingInTarget []string `json:"missingInTarget,omitempty"`
	MissingInSource []string `json:"missingInSource,omitempty"`
	Passed          bool     `json:"passed"`
}

// SampleQueryResult aggregates the overlap of all sample queries.
type SampleQueryResult struct {
	Queries []QueryOverlap `json:"queries"`
	Passed  bool           `json:"passed"`
}

// HashResult is the outcome of the content hash check.
type HashResult struct {
	SourceHash string `json:"sourceHash"`
	TargetHash string `json:"targetHash"`
	SourceDocs int    `json:"sourceDocs"`
	TargetDocs int    `json:"targetDocs"`
	Passed     bool   `json:"passed"`
}

// ValidationResult combines the enabled checks. Passed is the conjunction of
// all enabled checks.
type ValidationResult struct {
	Count         *CountResult       `json:"count,omitempty"`
	SampleQueries *SampleQueryResult `json:"sampleQueries,omitempty"`
	Hash          *HashResult        `json:"hash,omitempty"`
	Passed        bool               `json:"passed"`
	Reasons       []string           `json:"reasons,omitempty"`
}

// Validator gates the alias switch of a blue/green migration.
type Validator struct {
	engine elasticsearch.Engine
}

// NewValidator creates a validator using the given engine.
func NewValidator(engine elasticsearch.Engine) *Validator {
	return &Validator{engine: engine}
}

// Validate runs the enabled checks against source and target, bypassing
// aliases.
func (v *Validator) Validate(ctx context.Context, source, target string, opts ValidationOptions) (*ValidationResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := ValidationResult{Passed: true}

	if opts.EnableCountValidation {
		count, err := v.validateCounts(ctx, source, target)
		if err != nil {
			return nil, err
		}
		result.Count = count
		if !count.Passed {
			result.Passed = false
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("count mismatch: source=%d target=%d", count.SourceCount, count.TargetCount))
		}
	}

	if opts.EnableSampleQueryValidation {
		samples, err := v.validateSampleQueries(ctx, source, target, opts)
		if err != nil {
			return nil, err
		}
		result.SampleQueries = samples
		if !samples.Passed {
			result.Passed = false
			for _, overlap := range samples.Queries {
				if overlap.Passed {
					continue
				}
				result.Reasons = append(result.Reasons,
					fmt.Sprintf("sample query %q jaccard %.4f below threshold %.4f", overlap.Query, overlap.Jaccard, opts.MinJaccard))
			}
		}
	}

	if opts.EnableHashValidation {
		hash, err := v.validateContentHash(ctx, source, target, opts)
		if err != nil {
			return nil, err
		}
		result.Hash = hash
		if !hash.Passed {
			result.Passed = false
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("content hash mismatch: source=%s (%d docs) target=%s (%d docs)",
					hash.SourceHash, hash.SourceDocs, hash.TargetHash, hash.TargetDocs))
		}
	}

	logger.Debugf("validation of %q against %q passed=%v", target, source, result.Passed)
	return &result, nil
}

func (v *Validator) validateCounts(ctx context.Context, source, target string) (*CountResult, error) {
	sourceCount, err := v.engine.Count(ctx, source)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "could not count source index %q", source)
	}
	targetCount, err := v.engine.Count(ctx, target)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "could not count target index %q", target)
	}
	return &CountResult{
		SourceCount: sourceCount,
		TargetCount: targetCount,
		Passed:      sourceCount == targetCount,
	}, nil
}

func (v *Validator) validateSampleQueries(ctx context.Context, source, target string, opts ValidationOptions) (*SampleQueryResult, error) {
	result := SampleQueryResult{Passed: true}
	for _, query := range opts.SampleQueries {
		sourceIDs, err := v.topIDs(ctx, source, query, opts.SampleTopK)
		if err != nil {
			return nil, err
		}
		targetIDs, err := v.topIDs(ctx, target, query, opts.SampleTopK)
		if err != nil {
			return nil, err
		}

		overlap := CompareTopIDs(query, sourceIDs, targetIDs, opts.MinJaccard)
		if !overlap.Passed {
			result.Passed = false
		}
		result.Queries = append(result.Queries, overlap)
	}
	return &result, nil
}

// CompareTopIDs computes the Jaccard similarity of the two top-K id sets. An
// empty union counts as full similarity.
func CompareTopIDs(query string, sourceIDs, targetIDs []string, minJaccard float64) QueryOverlap {
	sourceSet := toSet(sourceIDs)
	targetSet := toSet(targetIDs)

	intersection := 0
	for id := range sourceSet {
		if _, ok := targetSet[id]; ok {
			intersection++
		}
	}
	union := len(sourceSet) + len(targetSet) - intersection

	jaccard := 1.0
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}

	overlap := QueryOverlap{
		Query:   query,
		Jaccard: jaccard,
		Passed:  jaccard >= minJaccard,
	}
	for id := range sourceSet {
		if _, ok := targetSet[id]; !ok {
			overlap.MissingInTarget = append(overlap.MissingInTarget, id)
		}
	}
	for id := range targetSet {
		if _, ok := sourceSet[id]; !ok {
			overlap.MissingInSource = append(overlap.MissingInSource, id)
		}
	}
	sort.Strings(overlap.MissingInTarget)
	sort.Strings(overlap.MissingInSource)
	return overlap
}

func (v *Validator) topIDs(ctx context.Context, index, query string, topK int) ([]string, error) {
	body := search.Compose(search.Request{
		Query: query,
		Size:  topK,
	})
	result, err := v.engine.Search(ctx, index, body)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "sample query %q failed against %q", query, index)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (v *Validator) validateContentHash(ctx context.Context, source, target string, opts ValidationOptions) (*HashResult, error) {
	sourceHash, sourceDocs, err := v.hashIndex(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	targetHash, targetDocs, err := v.hashIndex(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	return &HashResult{
		SourceHash: sourceHash,
		TargetHash: targetHash,
		SourceDocs: sourceDocs,
		TargetDocs: targetDocs,
		Passed:     sourceHash == targetHash && sourceDocs == targetDocs,
	}, nil
}

// hashIndex folds the documents of the index into a SHA-256 digest, scanning
// in ascending id order up to hashMaxDocs.
func (v *Validator) hashIndex(ctx context.Context, index string, opts ValidationOptions) (string, int, error) {
	digest := sha256.New()
	scanned := 0

	for scanned < opts.HashMaxDocs {
		pageSize := opts.HashPageSize
		if remaining := opts.HashMaxDocs - scanned; remaining < pageSize {
			pageSize = remaining
		}

		page, err := v.engine.Scan(ctx, index, scanned, pageSize)
		if err != nil {
			return "", 0, opserror.Wrap(opserror.Engine, err, "could not scan index %q for hashing", index)
		}
		if len(page) == 0 {
			break
		}

		for _, doc := range page {
			digest.Write([]byte(doc.ContentKey()))
			digest.Write([]byte{'\n'})
		}
		scanned += len(page)

		if len(page) < pageSize {
			break
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), scanned, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
