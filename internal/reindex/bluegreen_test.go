// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/search-ops/internal/opserror"
)

func newTestOrchestrator(t *testing.T, engine *fakeEngine) *Orchestrator {
	t.Helper()
	return NewOrchestrator(
		engine,
		NewAliasManager(engine, "docs_read", "docs_write"),
		NewValidator(engine),
		NewRetentionRecorder(t.TempDir()),
		"docs_v",
		[]byte(`{"mappings":{}}`),
	)
}

func seededEngine() *fakeEngine {
	engine := newFakeEngine()
	engine.indices["docs_v1"] = struct{}{}
	engine.counts["docs_v1"] = 3
	engine.aliases["docs_read"] = []string{"docs_v1"}
	engine.aliases["docs_write"] = []string{"docs_v1"}
	return engine
}

func TestReindexSuccess(t *testing.T) {
	engine := seededEngine()
	orchestrator := newTestOrchestrator(t, engine)

	result, err := orchestrator.Reindex(context.Background(), BlueGreenRequest{
		SourceVersion:     1,
		TargetVersion:     2,
		Validation:        ValidationOptions{EnableCountValidation: true},
		WaitForCompletion: true,
		RefreshAfter:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "docs_v1", result.SourceIndex)
	assert.Equal(t, "docs_v2", result.TargetIndex)
	assert.Equal(t, result.SourceCount, result.TargetCount)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.Passed)

	assert.Equal(t, []string{"docs_v1"}, result.AliasBefore.ReadTargets)
	assert.Equal(t, []string{"docs_v2"}, result.AliasAfter.ReadTargets)
	assert.Equal(t, []string{"docs_v2"}, result.AliasAfter.WriteTargets)

	assert.FileExists(t, result.RetentionManifestPath)
}

func TestReindexValidationFailureKeepsAliases(t *testing.T) {
	engine := seededEngine()
	engine.reindexLoss = 1
	orchestrator := newTestOrchestrator(t, engine)

	before, err := NewAliasManager(engine, "docs_read", "docs_write").State(context.Background())
	require.NoError(t, err)

	_, err = orchestrator.Reindex(context.Background(), BlueGreenRequest{
		SourceVersion: 1,
		TargetVersion: 2,
		Validation:    ValidationOptions{EnableCountValidation: true},
	})
	require.Error(t, err)
	assert.Equal(t, opserror.ValidationFailed, opserror.KindOf(err))
	assert.Contains(t, err.Error(), "count mismatch")

	after, stateErr := NewAliasManager(engine, "docs_read", "docs_write").State(context.Background())
	require.NoError(t, stateErr)
	assert.True(t, before.Equal(after))
	assert.Empty(t, engine.aliasCalls)
}

func TestReindexTargetAlreadyExists(t *testing.T) {
	engine := seededEngine()
	engine.indices["docs_v2"] = struct{}{}
	orchestrator := newTestOrchestrator(t, engine)

	_, err := orchestrator.Reindex(context.Background(), BlueGreenRequest{
		SourceVersion: 1,
		TargetVersion: 2,
	})
	require.Error(t, err)
	assert.Equal(t, opserror.Conflict, opserror.KindOf(err))
}

func TestReindexInvalidVersions(t *testing.T) {
	orchestrator := newTestOrchestrator(t, newFakeEngine())

	_, err := orchestrator.Reindex(context.Background(), BlueGreenRequest{SourceVersion: 1, TargetVersion: 1})
	require.Error(t, err)
	assert.Equal(t, opserror.BadRequest, opserror.KindOf(err))

	_, err = orchestrator.Reindex(context.Background(), BlueGreenRequest{SourceVersion: 0, TargetVersion: 2})
	require.Error(t, err)
	assert.Equal(t, opserror.BadRequest, opserror.KindOf(err))
}

func TestCreateGeneration(t *testing.T) {
	engine := newFakeEngine()
	orchestrator := newTestOrchestrator(t, engine)

	name, err := orchestrator.CreateGeneration(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "docs_v1", name)

	exists, err := engine.IndexExists(context.Background(), "docs_v1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = orchestrator.CreateGeneration(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, opserror.Conflict, opserror.KindOf(err))
}
