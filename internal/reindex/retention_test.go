// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesManifest(t *testing.T) {
	baseDir := t.TempDir()
	recorder := NewRetentionRecorder(baseDir)
	recorder.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	info := RetentionInfo{
		SourceIndex:  "docs_v1",
		TargetIndex:  "docs_v2",
		SourceCount:  12345,
		TargetCount:  12345,
		ReadTargets:  []string{"docs_v1"},
		WriteTargets: []string{"docs_v1"},
	}

	path, err := recorder.Record(info)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "reindex", "20260314_092653_docs_v2", "manifest.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	manifest := string(content)
	assert.Contains(t, manifest, "Source index: docs_v1")
	assert.Contains(t, manifest, "Target index: docs_v2")
	assert.Contains(t, manifest, "Source count: 12,345")
	assert.Contains(t, manifest, "Previous read alias targets: docs_v1")
	assert.Contains(t, manifest, "retained for rollback")
}

func TestRecordSameInfoSameManifest(t *testing.T) {
	fixed := func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	info := RetentionInfo{
		SourceIndex: "docs_v1",
		TargetIndex: "docs_v2",
		SourceCount: 10,
		TargetCount: 10,
	}

	read := func(t *testing.T) string {
		recorder := NewRetentionRecorder(t.TempDir())
		recorder.now = fixed
		path, err := recorder.Record(info)
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(content)
	}

	first := read(t)
	second := read(t)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestRecordEmptyAliasTargets(t *testing.T) {
	recorder := NewRetentionRecorder(t.TempDir())

	path, err := recorder.Record(RetentionInfo{SourceIndex: "docs_v1", TargetIndex: "docs_v2"})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Previous read alias targets: (none)")
}
