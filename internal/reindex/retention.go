// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package reindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/elastic/search-ops/internal/logger"
)

const manifestTimestampFormat = "20060102_150405"

// RetentionInfo carries the data written into the retention manifest.
type RetentionInfo struct {
	SourceIndex  string
	TargetIndex  string
	SourceCount  int64
	TargetCount  int64
	ReadTargets  []string
	WriteTargets []string
}

// RetentionRecorder writes a human-readable manifest per successful
// migration, under reports/reindex/{timestamp}_{target}/manifest.md.
type RetentionRecorder struct {
	baseDir string
	now     func() time.Time
}

// NewRetentionRecorder creates a recorder writing below baseDir.
func NewRetentionRecorder(baseDir string) *RetentionRecorder {
	return &RetentionRecorder{
		baseDir: baseDir,
		now:     time.Now,
	}
}

// Record writes the manifest and returns its path.
func (r *RetentionRecorder) Record(info RetentionInfo) (string, error) {
	timestamp := r.now().UTC()
	dir := filepath.Join(r.baseDir, "reindex",
		fmt.Sprintf("%s_%s", timestamp.Format(manifestTimestampFormat), info.TargetIndex))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create retention manifest folder: %w", err)
	}

	path := filepath.Join(dir, "manifest.md")
	if err := os.WriteFile(path, []byte(r.render(timestamp, info)), 0644); err != nil {
		return "", fmt.Errorf("could not write retention manifest: %w", err)
	}

	logger.Infof("retention manifest written to %s", path)
	return path, nil
}

func (r *RetentionRecorder) render(timestamp time.Time, info RetentionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reindex Retention Manifest\n\n")
	fmt.Fprintf(&b, "- Timestamp: %s\n", timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Source index: %s\n", info.SourceIndex)
	fmt.Fprintf(&b, "- Target index: %s\n", info.TargetIndex)
	fmt.Fprintf(&b, "- Previous read alias targets: %s\n", formatTargets(info.ReadTargets))
	fmt.Fprintf(&b, "- Previous write alias targets: %s\n", formatTargets(info.WriteTargets))
	fmt.Fprintf(&b, "- Source count: %s\n", humanize.Comma(info.SourceCount))
	fmt.Fprintf(&b, "- Target count: %s\n", humanize.Comma(info.TargetCount))
	fmt.Fprintf(&b, "\nThe previous index %s is retained for rollback. Delete it manually once the migration is confirmed.\n", info.SourceIndex)
	return b.String()
}

func formatTargets(targets []string) string {
	if len(targets) == 0 {
		return "(none)"
	}
	return strings.Join(targets, ", ")
}
