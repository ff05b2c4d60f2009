// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

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

// ChangeStatus classifies how a query moved between two worst-query tables.
type ChangeStatus string

const (
	StatusImproved         ChangeStatus = "IMPROVED"
	StatusRegressed        ChangeStatus = "REGRESSED"
	StatusUnchanged        ChangeStatus = "UNCHANGED"
	StatusRemovedFromWorst ChangeStatus = "REMOVED_FROM_WORST"
	StatusNewInWorst       ChangeStatus = "NEW_IN_WORST"
)

// MetricDelta is the movement of one summary metric between two reports.
type MetricDelta struct {
	Name   string  `json:"name"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Delta  float64 `json:"delta"`
}

// WorstQueryChange is the movement of one query between the worst-query
// tables of two reports. Delta is the nDCG movement; for queries that left
// the table it is 1-beforeNdcg, for queries that entered it is -afterNdcg.
type WorstQueryChange struct {
	QueryID    string       `json:"queryId"`
	Status     ChangeStatus `json:"status"`
	BeforeNDCG *float64     `json:"beforeNdcg,omitempty"`
	AfterNDCG  *float64     `json:"afterNdcg,omitempty"`
	Delta      float64      `json:"delta"`
}

// Comparison is the full diff of two evaluation reports.
type Comparison struct {
	BeforeReportID    string             `json:"beforeReportId"`
	AfterReportID     string             `json:"afterReportId"`
	MetricsDelta      []MetricDelta      `json:"metricsDelta"`
	WorstQueryChanges []WorstQueryChange `json:"worstQueryChanges"`
	TopImprovements   []WorstQueryChange `json:"topImprovements"`
	TopRegressions    []WorstQueryChange `json:"topRegressions"`
	Path              string             `json:"path"`
}

// Comparator diffs two persisted reports and writes the comparison below
// reports/comparisons.
type Comparator struct {
	baseDir    string
	topChanges int
}

// NewComparator creates a comparator over the reports base directory, keeping
// topChanges entries in each of the improvement and regression lists.
func NewComparator(baseDir string, topChanges int) *Comparator {
	if topChanges < 1 {
		topChanges = 1
	}
	return &Comparator{
		baseDir:    baseDir,
		topChanges: topChanges,
	}
}

// Compare loads both reports, diffs them and persists the comparison as
// {after}_vs_{before}.md. Comparing a report against itself yields all-zero
// deltas and empty change lists.
func (c *Comparator) Compare(beforeID, afterID string) (*Comparison, error) {
	before, err := c.loadReport(beforeID)
	if err != nil {
		return nil, err
	}
	after, err := c.loadReport(afterID)
	if err != nil {
		return nil, err
	}

	comparison := &Comparison{
		BeforeReportID:    before.ReportID,
		AfterReportID:     after.ReportID,
		MetricsDelta:      summaryDeltas(before.Summary, after.Summary),
		WorstQueryChanges: worstQueryChanges(before.WorstQueries, after.WorstQueries),
	}
	comparison.TopImprovements, comparison.TopRegressions = topChanges(comparison.WorstQueryChanges, c.topChanges)

	dir := filepath.Join(c.baseDir, "comparisons")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create comparisons folder: %w", err)
	}
	comparison.Path = filepath.Join(dir, fmt.Sprintf("%s_vs_%s.md", afterID, beforeID))
	if err := os.WriteFile(comparison.Path, []byte(renderComparison(comparison)), 0644); err != nil {
		return nil, fmt.Errorf("could not write comparison: %w", err)
	}

	logger.Infof("comparison of %s against %s written to %s", afterID, beforeID, comparison.Path)
	return comparison, nil
}

func (c *Comparator) loadReport(reportID string) (*Report, error) {
	path := filepath.Join(c.baseDir, reportID, "metrics.json")
	encoded, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, opserror.New(opserror.NotFound, "report %q not found", reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read report %q: %w", reportID, err)
	}

	var report Report
	if err := json.Unmarshal(encoded, &report); err != nil {
		return nil, fmt.Errorf("could not decode report %q: %w", reportID, err)
	}
	return &report, nil
}

func summaryDeltas(before, after Summary) []MetricDelta {
	return []MetricDelta{
		{Name: "meanPrecisionAtK", Before: before.MeanPrecisionAtK, After: after.MeanPrecisionAtK, Delta: after.MeanPrecisionAtK - before.MeanPrecisionAtK},
		{Name: "meanRecallAtK", Before: before.MeanRecallAtK, After: after.MeanRecallAtK, Delta: after.MeanRecallAtK - before.MeanRecallAtK},
		{Name: "meanMrr", Before: before.MeanMRR, After: after.MeanMRR, Delta: after.MeanMRR - before.MeanMRR},
		{Name: "meanNdcgAtK", Before: before.MeanNDCGAtK, After: after.MeanNDCGAtK, Delta: after.MeanNDCGAtK - before.MeanNDCGAtK},
	}
}

func worstQueryChanges(before, after []WorstQuery) []WorstQueryChange {
	beforeByID := make(map[string]WorstQuery, len(before))
	for _, worst := range before {
		beforeByID[worst.QueryID] = worst
	}
	afterByID := make(map[string]WorstQuery, len(after))
	for _, worst := range after {
		afterByID[worst.QueryID] = worst
	}

	ids := make([]string, 0, len(beforeByID)+len(afterByID))
	for id := range beforeByID {
		ids = append(ids, id)
	}
	for id := range afterByID {
		if _, seen := beforeByID[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	changes := make([]WorstQueryChange, 0, len(ids))
	for _, id := range ids {
		b, inBefore := beforeByID[id]
		a, inAfter := afterByID[id]

		change := WorstQueryChange{QueryID: id}
		switch {
		case inBefore && inAfter:
			beforeNDCG, afterNDCG := b.NDCGAtK, a.NDCGAtK
			change.BeforeNDCG = &beforeNDCG
			change.AfterNDCG = &afterNDCG
			change.Delta = afterNDCG - beforeNDCG
			switch {
			case change.Delta > 0:
				change.Status = StatusImproved
			case change.Delta < 0:
				change.Status = StatusRegressed
			default:
				change.Status = StatusUnchanged
			}
		case inBefore:
			beforeNDCG := b.NDCGAtK
			change.BeforeNDCG = &beforeNDCG
			change.Delta = 1 - beforeNDCG
			change.Status = StatusRemovedFromWorst
		default:
			afterNDCG := a.NDCGAtK
			change.AfterNDCG = &afterNDCG
			change.Delta = -afterNDCG
			change.Status = StatusNewInWorst
		}
		changes = append(changes, change)
	}
	return changes
}

// topChanges splits the changes into the largest improvements and the largest
// regressions, both ordered by magnitude. Unchanged queries appear in
// neither.
func topChanges(changes []WorstQueryChange, count int) (improvements, regressions []WorstQueryChange) {
	for _, change := range changes {
		switch {
		case change.Delta > 0:
			improvements = append(improvements, change)
		case change.Delta < 0:
			regressions = append(regressions, change)
		}
	}

	byMagnitude := func(changes []WorstQueryChange) func(i, j int) bool {
		return func(i, j int) bool {
			return math.Abs(changes[i].Delta) > math.Abs(changes[j].Delta)
		}
	}
	sort.SliceStable(improvements, byMagnitude(improvements))
	sort.SliceStable(regressions, byMagnitude(regressions))

	if len(improvements) > count {
		improvements = improvements[:count]
	}
	if len(regressions) > count {
		regressions = regressions[:count]
	}
	return improvements, regressions
}

func renderComparison(comparison *Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation Comparison\n\n")
	fmt.Fprintf(&b, "- Before: %s\n", comparison.BeforeReportID)
	fmt.Fprintf(&b, "- After: %s\n\n", comparison.AfterReportID)

	b.WriteString("## Summary Metrics\n\n")
	metricsTable := table.NewWriter()
	metricsTable.AppendHeader(table.Row{"Metric", "Before", "After", "Delta"})
	for _, delta := range comparison.MetricsDelta {
		metricsTable.AppendRow(table.Row{
			delta.Name,
			formatMetric(delta.Before),
			formatMetric(delta.After),
			formatDelta(delta.Delta),
		})
	}
	b.WriteString(metricsTable.RenderMarkdown())

	b.WriteString("\n\n## Worst Query Changes\n\n")
	if len(comparison.WorstQueryChanges) == 0 {
		b.WriteString("No changes.\n")
	} else {
		changesTable := table.NewWriter()
		changesTable.AppendHeader(table.Row{"Query", "Status", "Before nDCG", "After nDCG", "Delta"})
		for _, change := range comparison.WorstQueryChanges {
			changesTable.AppendRow(table.Row{
				change.QueryID,
				string(change.Status),
				formatOptionalMetric(change.BeforeNDCG),
				formatOptionalMetric(change.AfterNDCG),
				formatDelta(change.Delta),
			})
		}
		b.WriteString(changesTable.RenderMarkdown())
		b.WriteString("\n")
	}

	b.WriteString("\n## Top Improvements\n\n")
	renderChangeList(&b, comparison.TopImprovements)
	b.WriteString("\n## Top Regressions\n\n")
	renderChangeList(&b, comparison.TopRegressions)
	return b.String()
}

func renderChangeList(b *strings.Builder, changes []WorstQueryChange) {
	if len(changes) == 0 {
		b.WriteString("None.\n")
		return
	}
	for _, change := range changes {
		fmt.Fprintf(b, "- %s (%s): %s\n", change.QueryID, change.Status, formatDelta(change.Delta))
	}
}

func formatOptionalMetric(value *float64) string {
	if value == nil {
		return "-"
	}
	return formatMetric(*value)
}

func formatDelta(value float64) string {
	return fmt.Sprintf("%+.4f", value)
}
