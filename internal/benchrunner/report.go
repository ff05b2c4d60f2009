// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package benchrunner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/table"

	"github.com/elastic/search-ops/internal/logger"
)

// ReportWriter persists benchmark runs under the performance reports
// directory.
type ReportWriter struct {
	baseDir string
}

// NewReportWriter creates a writer rooted at baseDir, usually
// reports/performance.
func NewReportWriter(baseDir string) *ReportWriter {
	return &ReportWriter{baseDir: baseDir}
}

// Write persists metrics.json and summary.md under {baseDir}/{runId} and
// returns the folder path. A failed write removes the folder again.
func (w *ReportWriter) Write(result *RunResult) (path string, err error) {
	dir := filepath.Join(w.baseDir, result.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create performance report folder %q: %w", dir, err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode performance report %q: %w", result.RunID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), append(encoded, '\n'), 0644); err != nil {
		return "", fmt.Errorf("could not write metrics.json: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(renderSummary(result)), 0644); err != nil {
		return "", fmt.Errorf("could not write summary.md: %w", err)
	}

	logger.Infof("performance report %s written to %s", result.RunID, dir)
	return dir, nil
}

func renderSummary(result *RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Performance Report %s\n\n", result.RunID)
	fmt.Fprintf(&b, "- Dataset: %s\n", result.DatasetID)
	fmt.Fprintf(&b, "- Target: %s\n", result.TargetIndex)
	fmt.Fprintf(&b, "- Top-K: %d\n", result.TopK)
	fmt.Fprintf(&b, "- Iterations: %d (plus %d warmups per query)\n", result.Iterations, result.Warmups)
	fmt.Fprintf(&b, "- Samples: %s\n", humanize.Comma(int64(result.Global.Samples)))
	fmt.Fprintf(&b, "- Started: %s\n", result.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Elapsed: %dms\n", result.ElapsedMs)
	fmt.Fprintf(&b, "- QPS: %.2f\n\n", result.QPS)

	b.WriteString("## Global Latency\n\n")
	globalTable := table.NewWriter()
	globalTable.AppendHeader(table.Row{"Min", "P50", "P95", "Max", "Avg"})
	globalTable.AppendRow(statsRow(result.Global))
	b.WriteString(globalTable.RenderMarkdown())

	b.WriteString("\n\n## Per Query\n\n")
	queryTable := table.NewWriter()
	queryTable.AppendHeader(table.Row{"Query", "Min", "P50", "P95", "Max", "Avg"})
	for _, query := range result.Queries {
		queryTable.AppendRow(append(table.Row{query.QueryID}, statsRow(query.Stats)...))
	}
	b.WriteString(queryTable.RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}

func statsRow(stats LatencyStats) table.Row {
	return table.Row{
		fmt.Sprintf("%dms", stats.Min),
		fmt.Sprintf("%dms", stats.P50),
		fmt.Sprintf("%dms", stats.P95),
		fmt.Sprintf("%dms", stats.Max),
		fmt.Sprintf("%.1fms", stats.Avg),
	}
}
