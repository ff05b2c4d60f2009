// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9200", config.Engine.Address)
	assert.Equal(t, "docs_v", config.Index.Prefix)
	assert.Equal(t, "docs_read", config.Index.ReadAlias)
	assert.Equal(t, "docs_write", config.Index.WriteAlias)
	assert.Equal(t, 10, config.Reports.WorstQueries)
	assert.True(t, config.Validation.EnableCountValidation)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  address: https://search.internal:9200
index:
  prefix: articles_v
reports:
  worstQueries: 5
`), 0644))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://search.internal:9200", config.Engine.Address)
	assert.Equal(t, "articles_v", config.Index.Prefix)
	assert.Equal(t, 5, config.Reports.WorstQueries)

	// Untouched sections keep their defaults.
	assert.Equal(t, "docs_read", config.Index.ReadAlias)
	assert.Equal(t, 500, config.Indexer.ChunkSize)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(ElasticsearchHostEnv, "https://cloud.example:443")
	t.Setenv(ElasticsearchUsernameEnv, "elastic")
	t.Setenv(ElasticsearchPasswordEnv, "changeme")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://cloud.example:443", config.Engine.Address)
	assert.Equal(t, "elastic", config.Engine.Username)
	assert.Equal(t, "changeme", config.Engine.Password)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  address: https://from-file:9200
`), 0644))
	t.Setenv(ElasticsearchHostEnv, "https://from-env:9200")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env:9200", config.Engine.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("engine: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
