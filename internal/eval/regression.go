// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package eval

import (
	"context"
)

// RegressionResult is the outcome of a run-then-compare regression check.
type RegressionResult struct {
	Run        *RunResult  `json:"run"`
	Report     *Report     `json:"report"`
	Comparison *Comparison `json:"comparison,omitempty"`
}

// RegressionRunner evaluates a dataset, persists the report and compares it
// against a baseline in one step.
type RegressionRunner struct {
	runner     *Runner
	writer     *ReportWriter
	comparator *Comparator
}

// NewRegressionRunner wires the regression runner.
func NewRegressionRunner(runner *Runner, writer *ReportWriter, comparator *Comparator) *RegressionRunner {
	return &RegressionRunner{
		runner:     runner,
		writer:     writer,
		comparator: comparator,
	}
}

// Run evaluates the dataset and writes its report. When baselineReportID is
// set, the fresh report is also compared against it.
func (r *RegressionRunner) Run(ctx context.Context, opts RunOptions, reportIDPrefix, baselineReportID string) (*RegressionResult, error) {
	run, err := r.runner.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	report, err := r.writer.Write(run, reportIDPrefix)
	if err != nil {
		return nil, err
	}

	result := RegressionResult{
		Run:    run,
		Report: report,
	}
	if baselineReportID != "" {
		comparison, err := r.comparator.Compare(baselineReportID, report.ReportID)
		if err != nil {
			return nil, err
		}
		result.Comparison = comparison
	}
	return &result, nil
}
