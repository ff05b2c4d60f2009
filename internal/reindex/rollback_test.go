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

func TestRollbackSuccess(t *testing.T) {
	engine := newFakeEngine()
	engine.indices["docs_v1"] = struct{}{}
	engine.indices["docs_v2"] = struct{}{}
	engine.aliases["docs_read"] = []string{"docs_v2"}
	engine.aliases["docs_write"] = []string{"docs_v2"}

	service := NewRollbackService(NewAliasManager(engine, "docs_read", "docs_write"))

	result, err := service.Rollback(context.Background(), "docs_v2", "docs_v1")
	require.NoError(t, err)

	assert.True(t, result.AliasBefore.PointsOnlyTo("docs_v2"))
	assert.True(t, result.AliasAfter.PointsOnlyTo("docs_v1"))
}

func TestRollbackRefusedOnDivergedAliases(t *testing.T) {
	engine := newFakeEngine()
	engine.indices["docs_v1"] = struct{}{}
	engine.aliases["docs_read"] = []string{"docs_v2"}
	engine.aliases["docs_write"] = []string{"docs_v2", "docs_v3"}

	service := NewRollbackService(NewAliasManager(engine, "docs_read", "docs_write"))

	_, err := service.Rollback(context.Background(), "docs_v2", "docs_v1")
	require.Error(t, err)
	assert.Equal(t, opserror.Conflict, opserror.KindOf(err))
	assert.Empty(t, engine.aliasCalls)
}

func TestRollbackInvalidArguments(t *testing.T) {
	service := NewRollbackService(NewAliasManager(newFakeEngine(), "docs_read", "docs_write"))

	_, err := service.Rollback(context.Background(), "", "docs_v1")
	require.Error(t, err)
	assert.Equal(t, opserror.BadRequest, opserror.KindOf(err))

	_, err = service.Rollback(context.Background(), "docs_v1", "docs_v1")
	require.Error(t, err)
	assert.Equal(t, opserror.BadRequest, opserror.KindOf(err))
}
