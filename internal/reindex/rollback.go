// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"

	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

// RollbackResult reports a completed rollback.
type RollbackResult struct {
	CurrentIndex    string     `json:"currentIndex"`
	RollbackToIndex string     `json:"rollbackToIndex"`
	AliasBefore     AliasState `json:"aliasBefore"`
	AliasAfter      AliasState `json:"aliasAfter"`
}

// RollbackService moves the alias pair back to a previous generation. The
// move is refused unless both aliases currently point exactly to the index
// the operator believes is live.
type RollbackService struct {
	aliases *AliasManager
}

// NewRollbackService creates a rollback service over the alias pair.
func NewRollbackService(aliases *AliasManager) *RollbackService {
	return &RollbackService{aliases: aliases}
}

// Rollback switches both aliases from currentIndex to rollbackToIndex.
func (s *RollbackService) Rollback(ctx context.Context, currentIndex, rollbackToIndex string) (*RollbackResult, error) {
	if currentIndex == "" || rollbackToIndex == "" {
		return nil, opserror.New(opserror.BadRequest, "current and rollback index must be set")
	}
	if currentIndex == rollbackToIndex {
		return nil, opserror.New(opserror.BadRequest, "current and rollback index must differ")
	}

	before, err := s.aliases.State(ctx)
	if err != nil {
		return nil, err
	}
	if !before.PointsOnlyTo(currentIndex) {
		return nil, opserror.New(opserror.Conflict,
			"refusing rollback: aliases do not point only to %q (read=%v write=%v)",
			currentIndex, before.ReadTargets, before.WriteTargets)
	}

	if err := s.aliases.SwitchTo(ctx, rollbackToIndex); err != nil {
		return nil, err
	}

	after, err := s.aliases.State(ctx)
	if err != nil {
		return nil, err
	}

	logger.Infof("rolled back aliases from %q to %q", currentIndex, rollbackToIndex)
	return &RollbackResult{
		CurrentIndex:    currentIndex,
		RollbackToIndex: rollbackToIndex,
		AliasBefore:     before,
		AliasAfter:      after,
	}, nil
}
