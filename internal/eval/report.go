// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/table"

	"github.com/elastic/search-ops/internal/logger"
)

const reportTimestampFormat = "20060102_150405"

// Report is the persisted, machine-readable form of an evaluation run. Its
// schema is stable, the comparator consumes it.
type Report struct {
	ReportID     string       `json:"reportId"`
	DatasetID    string       `json:"datasetId"`
	TopK         int          `json:"topK"`
	TotalQueries int          `json:"totalQueries"`
	StartedAt    time.Time    `json:"startedAt"`
	CompletedAt  time.Time    `json:"completedAt"`
	ElapsedMs    int64        `json:"elapsedMs"`
	Summary      Summary      `json:"summary"`
	WorstQueries []WorstQuery `json:"worstQueries"`
}

// WorstQuery is one row of the worst-query table, the regression signal of a
// report.
type WorstQuery struct {
	QueryID      string  `json:"queryId"`
	Intent       string  `json:"intent"`
	PrecisionAtK float64 `json:"precisionAtK"`
	RecallAtK    float64 `json:"recallAtK"`
	MRR          float64 `json:"mrr"`
	NDCGAtK      float64 `json:"ndcgAtK"`
	JudgedHits   int     `json:"judgedHits"`
	RelevantHits int     `json:"relevantHits"`
	TotalHits    int64   `json:"totalHits"`
}

// ReportWriter persists evaluation runs under the reports base directory.
type ReportWriter struct {
	baseDir    string
	worstCount int
}

// NewReportWriter creates a writer keeping worstCount worst queries per
// report.
func NewReportWriter(baseDir string, worstCount int) *ReportWriter {
	if worstCount < 1 {
		worstCount = 1
	}
	return &ReportWriter{
		baseDir:    baseDir,
		worstCount: worstCount,
	}
}

// Write persists metrics.json and summary.md under reports/{reportId} and
// returns the report. The directory is owned by this run; a failed write
// removes it again.
func (w *ReportWriter) Write(result *RunResult, prefix string) (report *Report, err error) {
	report = w.build(result, prefix)

	dir := filepath.Join(w.baseDir, report.ReportID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create report folder %q: %w", dir, err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode report %q: %w", report.ReportID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), append(encoded, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("could not write metrics.json: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(w.renderSummary(report)), 0644); err != nil {
		return nil, fmt.Errorf("could not write summary.md: %w", err)
	}

	logger.Infof("evaluation report %s written to %s", report.ReportID, dir)
	return report, nil
}

func (w *ReportWriter) build(result *RunResult, prefix string) *Report {
	reportID := result.StartedAt.UTC().Format(reportTimestampFormat)
	if prefix != "" {
		reportID = prefix + "_" + reportID
	}

	return &Report{
		ReportID:     reportID,
		DatasetID:    result.DatasetID,
		TopK:         result.TopK,
		TotalQueries: len(result.Results),
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
		ElapsedMs:    result.ElapsedMs,
		Summary:      result.Summary,
		WorstQueries: WorstQueries(result.Results, w.worstCount),
	}
}

// WorstQueries returns the count lowest-scoring queries, ordered ascending by
// nDCG with recall as the tie breaker.
func WorstQueries(results []QueryResult, count int) []WorstQuery {
	sorted := make([]QueryResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Metrics.NDCGAtK != sorted[j].Metrics.NDCGAtK {
			return sorted[i].Metrics.NDCGAtK < sorted[j].Metrics.NDCGAtK
		}
		return sorted[i].Metrics.RecallAtK < sorted[j].Metrics.RecallAtK
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	worst := make([]WorstQuery, 0, count)
	for _, result := range sorted[:count] {
		worst = append(worst, WorstQuery{
			QueryID:      result.QueryID,
			Intent:       result.Intent,
			PrecisionAtK: result.Metrics.PrecisionAtK,
			RecallAtK:    result.Metrics.RecallAtK,
			MRR:          result.Metrics.MRR,
			NDCGAtK:      result.Metrics.NDCGAtK,
			JudgedHits:   result.JudgedHits,
			RelevantHits: result.Metrics.RelevantRetrieved,
			TotalHits:    result.TotalHits,
		})
	}
	return worst
}

func (w *ReportWriter) renderSummary(report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation Report %s\n\n", report.ReportID)
	fmt.Fprintf(&b, "- Dataset: %s\n", report.DatasetID)
	fmt.Fprintf(&b, "- Top-K: %d\n", report.TopK)
	fmt.Fprintf(&b, "- Queries: %d\n", report.TotalQueries)
	fmt.Fprintf(&b, "- Started: %s\n", report.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Elapsed: %dms\n\n", report.ElapsedMs)

	b.WriteString("## Summary\n\n")
	summaryTable := table.NewWriter()
	summaryTable.AppendHeader(table.Row{"Metric", "Mean"})
	summaryTable.AppendRow(table.Row{"Precision@K", formatMetric(report.Summary.MeanPrecisionAtK)})
	summaryTable.AppendRow(table.Row{"Recall@K", formatMetric(report.Summary.MeanRecallAtK)})
	summaryTable.AppendRow(table.Row{"MRR", formatMetric(report.Summary.MeanMRR)})
	summaryTable.AppendRow(table.Row{"nDCG@K", formatMetric(report.Summary.MeanNDCGAtK)})
	b.WriteString(summaryTable.RenderMarkdown())
	b.WriteString("\n\n## Worst Queries\n\n")

	worstTable := table.NewWriter()
	worstTable.AppendHeader(table.Row{"Query", "Intent", "P@K", "R@K", "MRR", "nDCG@K", "Judged", "Relevant", "Total"})
	for _, worst := range report.WorstQueries {
		worstTable.AppendRow(table.Row{
			worst.QueryID,
			worst.Intent,
			formatMetric(worst.PrecisionAtK),
			formatMetric(worst.RecallAtK),
			formatMetric(worst.MRR),
			formatMetric(worst.NDCGAtK),
			worst.JudgedHits,
			worst.RelevantHits,
			worst.TotalHits,
		})
	}
	b.WriteString(worstTable.RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}

func formatMetric(value float64) string {
	return fmt.Sprintf("%.4f", value)
}
