// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package reindex implements the blue/green migration between index
// generations: alias management, pre-switch validation, orchestration,
// rollback and retention.
package reindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

// IndexName derives the physical index name of a generation.
func IndexName(prefix string, version int) string {
	return fmt.Sprintf("%s%d", prefix, version)
}

// AliasState captures which indices the read and write aliases resolve to.
// Targets are sorted, so states compare reliably.
type AliasState struct {
	ReadTargets  []string `json:"readTargets"`
	WriteTargets []string `json:"writeTargets"`
}

// Equal reports whether both states bind the aliases to the same indices.
func (s AliasState) Equal(other AliasState) bool {
	return equalTargets(s.ReadTargets, other.ReadTargets) &&
		equalTargets(s.WriteTargets, other.WriteTargets)
}

// PointsOnlyTo reports whether both aliases resolve to exactly the given
// index.
func (s AliasState) PointsOnlyTo(index string) bool {
	return len(s.ReadTargets) == 1 && s.ReadTargets[0] == index &&
		len(s.WriteTargets) == 1 && s.WriteTargets[0] == index
}

func equalTargets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AliasManager owns the read/write alias pair. It is the only component
// mutating alias state, and always in a single atomic update.
type AliasManager struct {
	engine     elasticsearch.Engine
	readAlias  string
	writeAlias string
}

// NewAliasManager creates a manager for the given alias pair.
func NewAliasManager(engine elasticsearch.Engine, readAlias, writeAlias string) *AliasManager {
	return &AliasManager{
		engine:     engine,
		readAlias:  readAlias,
		writeAlias: writeAlias,
	}
}

// ReadAlias returns the name of the read alias.
func (m *AliasManager) ReadAlias() string {
	return m.readAlias
}

// WriteAlias returns the name of the write alias.
func (m *AliasManager) WriteAlias() string {
	return m.writeAlias
}

// SwitchTo moves both aliases to target in one atomic alias update: remove
// read, remove write, add read, add write with is_write_index. Fails when the
// target index does not exist.
func (m *AliasManager) SwitchTo(ctx context.Context, target string) error {
	exists, err := m.engine.IndexExists(ctx, target)
	if err != nil {
		return opserror.Wrap(opserror.Engine, err, "could not check alias target %q", target)
	}
	if !exists {
		return opserror.New(opserror.NotFound, "alias target index %q does not exist", target)
	}

	actions := []elasticsearch.AliasAction{
		elasticsearch.RemoveAliasAction(m.readAlias),
		elasticsearch.RemoveAliasAction(m.writeAlias),
		elasticsearch.AddAliasAction(target, m.readAlias, false),
		elasticsearch.AddAliasAction(target, m.writeAlias, true),
	}
	if err := m.engine.UpdateAliases(ctx, actions); err != nil {
		return opserror.Wrap(opserror.Engine, err, "could not switch aliases to %q", target)
	}

	logger.Infof("aliases %q and %q now point to %q", m.readAlias, m.writeAlias, target)
	return nil
}

// State returns the indices currently bound to the alias pair.
func (m *AliasManager) State(ctx context.Context) (AliasState, error) {
	bound, err := m.engine.GetAlias(ctx, m.readAlias, m.writeAlias)
	if err != nil {
		return AliasState{}, opserror.Wrap(opserror.Engine, err, "could not read alias state")
	}

	state := AliasState{
		ReadTargets:  append([]string{}, bound[m.readAlias]...),
		WriteTargets: append([]string{}, bound[m.writeAlias]...),
	}
	sort.Strings(state.ReadTargets)
	sort.Strings(state.WriteTargets)
	return state, nil
}
