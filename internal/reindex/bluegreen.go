// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"
	"errors"
	"strings"

	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/multierror"
	"github.com/elastic/search-ops/internal/opserror"
)

// BlueGreenRequest describes one migration between generations.
type BlueGreenRequest struct {
	SourceVersion     int
	TargetVersion     int
	Validation        ValidationOptions
	WaitForCompletion bool
	RefreshAfter      bool
}

// BlueGreenResult reports a completed migration.
type BlueGreenResult struct {
	SourceIndex           string            `json:"sourceIndex"`
	TargetIndex           string            `json:"targetIndex"`
	SourceCount           int64             `json:"sourceCount"`
	TargetCount           int64             `json:"targetCount"`
	ReindexTookMs         int64             `json:"reindexTookMs"`
	Failures              []string          `json:"failures,omitempty"`
	AliasBefore           AliasState        `json:"aliasBefore"`
	AliasAfter            AliasState        `json:"aliasAfter"`
	Validation            *ValidationResult `json:"validation,omitempty"`
	RetentionManifestPath string            `json:"retentionManifestPath,omitempty"`
}

// Orchestrator drives a migration through create, reindex, validate, switch
// and record. Failures are fatal for the migration, there are no retries at
// this level, and no alias change happens unless validation passes.
type Orchestrator struct {
	engine    elasticsearch.Engine
	aliases   *AliasManager
	validator *Validator
	recorder  *RetentionRecorder

	indexPrefix string
	template    []byte
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(engine elasticsearch.Engine, aliases *AliasManager, validator *Validator, recorder *RetentionRecorder, indexPrefix string, template []byte) *Orchestrator {
	return &Orchestrator{
		engine:      engine,
		aliases:     aliases,
		validator:   validator,
		recorder:    recorder,
		indexPrefix: indexPrefix,
		template:    template,
	}
}

// Reindex runs one blue/green migration.
func (o *Orchestrator) Reindex(ctx context.Context, req BlueGreenRequest) (*BlueGreenResult, error) {
	if req.SourceVersion < 1 || req.TargetVersion < 1 {
		return nil, opserror.New(opserror.BadRequest, "index generations must be >= 1")
	}
	if req.SourceVersion == req.TargetVersion {
		return nil, opserror.New(opserror.BadRequest, "source and target generation must differ")
	}

	source := IndexName(o.indexPrefix, req.SourceVersion)
	target := IndexName(o.indexPrefix, req.TargetVersion)
	logger.Infof("starting blue/green migration %s -> %s", source, target)

	aliasBefore, err := o.aliases.State(ctx)
	if err != nil {
		return nil, err
	}

	if err := o.createTarget(ctx, target); err != nil {
		return nil, err
	}

	reindexResult, err := o.engine.Reindex(ctx, source, target, req.WaitForCompletion, req.RefreshAfter)
	if err != nil {
		return nil, opserror.Wrap(opserror.Engine, err, "reindex %s -> %s failed", source, target)
	}
	if len(reindexResult.Failures) > 0 {
		return nil, opserror.New(opserror.Engine, "reindex %s -> %s reported %d per-document failures: %s",
			source, target, len(reindexResult.Failures), strings.Join(reindexResult.Failures, "; "))
	}

	if req.RefreshAfter {
		if err := o.engine.Refresh(ctx, target); err != nil {
			return nil, opserror.Wrap(opserror.Engine, err, "could not refresh %q after reindex", target)
		}
	}

	validation, err := o.validator.Validate(ctx, source, target, req.Validation)
	if err != nil {
		return nil, err
	}
	if !validation.Passed {
		var reasons multierror.Error
		for _, reason := range validation.Reasons {
			reasons = append(reasons, errors.New(reason))
		}
		return nil, opserror.Wrap(opserror.ValidationFailed, reasons,
			"validation of %q against %q failed", target, source)
	}

	if err := o.aliases.SwitchTo(ctx, target); err != nil {
		return nil, err
	}
	aliasAfter, err := o.aliases.State(ctx)
	if err != nil {
		return nil, err
	}

	sourceCount, targetCount, err := o.resolveCounts(ctx, source, target, validation)
	if err != nil {
		return nil, err
	}

	manifestPath, err := o.recorder.Record(RetentionInfo{
		SourceIndex:  source,
		TargetIndex:  target,
		SourceCount:  sourceCount,
		TargetCount:  targetCount,
		ReadTargets:  aliasBefore.ReadTargets,
		WriteTargets: aliasBefore.WriteTargets,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("blue/green migration %s -> %s completed", source, target)
	return &BlueGreenResult{
		SourceIndex:           source,
		TargetIndex:           target,
		SourceCount:           sourceCount,
		TargetCount:           targetCount,
		ReindexTookMs:         reindexResult.TookMs,
		Failures:              reindexResult.Failures,
		AliasBefore:           aliasBefore,
		AliasAfter:            aliasAfter,
		Validation:            validation,
		RetentionManifestPath: manifestPath,
	}, nil
}

// CreateGeneration creates the physical index of a generation from the
// configured template.
func (o *Orchestrator) CreateGeneration(ctx context.Context, version int) (string, error) {
	if version < 1 {
		return "", opserror.New(opserror.BadRequest, "index generation must be >= 1")
	}
	name := IndexName(o.indexPrefix, version)
	if err := o.createTarget(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

func (o *Orchestrator) createTarget(ctx context.Context, target string) error {
	exists, err := o.engine.IndexExists(ctx, target)
	if err != nil {
		return opserror.Wrap(opserror.Engine, err, "could not check target index %q", target)
	}
	if exists {
		return opserror.New(opserror.Conflict, "target index %q already exists", target)
	}

	if err := o.engine.CreateIndex(ctx, target, o.template); err != nil {
		var engineErr *elasticsearch.EngineError
		if errors.As(err, &engineErr) && engineErr.IsAlreadyExists() {
			return opserror.Wrap(opserror.Conflict, err, "target index %q already exists", target)
		}
		return opserror.Wrap(opserror.Engine, err, "could not create target index %q", target)
	}
	return nil
}

// resolveCounts reuses the counts from the validation when the count check
// ran, and queries the engine otherwise.
func (o *Orchestrator) resolveCounts(ctx context.Context, source, target string, validation *ValidationResult) (int64, int64, error) {
	if validation != nil && validation.Count != nil {
		return validation.Count.SourceCount, validation.Count.TargetCount, nil
	}

	sourceCount, err := o.engine.Count(ctx, source)
	if err != nil {
		return 0, 0, opserror.Wrap(opserror.Engine, err, "could not count source index %q", source)
	}
	targetCount, err := o.engine.Count(ctx, target)
	if err != nil {
		return 0, 0, opserror.Wrap(opserror.Engine, err, "could not count target index %q", target)
	}
	return sourceCount, targetCount, nil
}
