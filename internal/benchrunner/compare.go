// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package benchrunner

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/table"

	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

// QueryLatencyDelta is the P95 movement of one query between two runs.
// Queries present in only one run are skipped.
type QueryLatencyDelta struct {
	QueryID   string `json:"queryId"`
	BeforeP95 int64  `json:"beforeP95"`
	AfterP95  int64  `json:"afterP95"`
	Delta     int64  `json:"delta"`
}

// Comparison is the diff of two performance runs.
type Comparison struct {
	BeforeRunID  string              `json:"beforeRunId"`
	AfterRunID   string              `json:"afterRunId"`
	GlobalBefore LatencyStats        `json:"globalBefore"`
	GlobalAfter  LatencyStats        `json:"globalAfter"`
	QPSBefore    float64             `json:"qpsBefore"`
	QPSAfter     float64             `json:"qpsAfter"`
	QueryDeltas  []QueryLatencyDelta `json:"queryDeltas"`
	Path         string              `json:"path"`
}

// Comparator diffs two persisted performance runs and writes the comparison
// below {baseDir}/comparisons.
type Comparator struct {
	baseDir string
}

// NewComparator creates a comparator over the performance reports directory.
func NewComparator(baseDir string) *Comparator {
	return &Comparator{baseDir: baseDir}
}

// Compare loads both runs, diffs them and persists the comparison as
// {after}_vs_{before}.md. Query deltas are ordered by P95 movement magnitude.
func (c *Comparator) Compare(beforeID, afterID string) (*Comparison, error) {
	before, err := c.loadRun(beforeID)
	if err != nil {
		return nil, err
	}
	after, err := c.loadRun(afterID)
	if err != nil {
		return nil, err
	}

	comparison := &Comparison{
		BeforeRunID:  before.RunID,
		AfterRunID:   after.RunID,
		GlobalBefore: before.Global,
		GlobalAfter:  after.Global,
		QPSBefore:    before.QPS,
		QPSAfter:     after.QPS,
		QueryDeltas:  queryDeltas(before.Queries, after.Queries),
	}

	dir := filepath.Join(c.baseDir, "comparisons")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create performance comparisons folder: %w", err)
	}
	comparison.Path = filepath.Join(dir, fmt.Sprintf("%s_vs_%s.md", afterID, beforeID))
	if err := os.WriteFile(comparison.Path, []byte(renderComparison(comparison)), 0644); err != nil {
		return nil, fmt.Errorf("could not write performance comparison: %w", err)
	}

	logger.Infof("performance comparison of %s against %s written to %s", afterID, beforeID, comparison.Path)
	return comparison, nil
}

func (c *Comparator) loadRun(runID string) (*RunResult, error) {
	path := filepath.Join(c.baseDir, runID, "metrics.json")
	encoded, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, opserror.New(opserror.NotFound, "performance report %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read performance report %q: %w", runID, err)
	}

	var result RunResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, fmt.Errorf("could not decode performance report %q: %w", runID, err)
	}
	return &result, nil
}

func queryDeltas(before, after []QueryLatency) []QueryLatencyDelta {
	beforeByID := make(map[string]QueryLatency, len(before))
	for _, query := range before {
		beforeByID[query.QueryID] = query
	}

	var deltas []QueryLatencyDelta
	for _, query := range after {
		b, ok := beforeByID[query.QueryID]
		if !ok {
			continue
		}
		deltas = append(deltas, QueryLatencyDelta{
			QueryID:   query.QueryID,
			BeforeP95: b.Stats.P95,
			AfterP95:  query.Stats.P95,
			Delta:     query.Stats.P95 - b.Stats.P95,
		})
	}
	sort.SliceStable(deltas, func(i, j int) bool {
		return math.Abs(float64(deltas[i].Delta)) > math.Abs(float64(deltas[j].Delta))
	})
	return deltas
}

func renderComparison(comparison *Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Performance Comparison\n\n")
	fmt.Fprintf(&b, "- Before: %s\n", comparison.BeforeRunID)
	fmt.Fprintf(&b, "- After: %s\n\n", comparison.AfterRunID)

	b.WriteString("## Global\n\n")
	globalTable := table.NewWriter()
	globalTable.AppendHeader(table.Row{"Run", "Min", "P50", "P95", "Max", "Avg", "QPS"})
	globalTable.AppendRow(append(append(table.Row{"before"}, statsRow(comparison.GlobalBefore)...), fmt.Sprintf("%.2f", comparison.QPSBefore)))
	globalTable.AppendRow(append(append(table.Row{"after"}, statsRow(comparison.GlobalAfter)...), fmt.Sprintf("%.2f", comparison.QPSAfter)))
	b.WriteString(globalTable.RenderMarkdown())

	b.WriteString("\n\n## Per Query P95\n\n")
	if len(comparison.QueryDeltas) == 0 {
		b.WriteString("No overlapping queries.\n")
		return b.String()
	}
	queryTable := table.NewWriter()
	queryTable.AppendHeader(table.Row{"Query", "Before", "After", "Delta"})
	for _, delta := range comparison.QueryDeltas {
		queryTable.AppendRow(table.Row{
			delta.QueryID,
			fmt.Sprintf("%dms", delta.BeforeP95),
			fmt.Sprintf("%dms", delta.AfterP95),
			fmt.Sprintf("%+dms", delta.Delta),
		})
	}
	b.WriteString(queryTable.RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}
