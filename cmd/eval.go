// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/cobraext"
	"github.com/elastic/search-ops/internal/eval"
)

const evalLongDescription = `Use this command to evaluate search quality against a judged dataset, compare two persisted reports, or run a regression check against a baseline report.`

func setupEvalCommand() *cobraext.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a dataset and report the ranking metrics",
		Args:  cobra.NoArgs,
		RunE:  evalRunCommandAction,
	}
	runCmd.Flags().StringP(cobraext.DatasetFlagName, cobraext.DatasetFlagShorthand, "", cobraext.DatasetFlagDescription)
	runCmd.MarkFlagRequired(cobraext.DatasetFlagName)
	runCmd.Flags().Int(cobraext.TopKFlagName, 0, cobraext.TopKFlagDescription)
	runCmd.Flags().Int(cobraext.WorstQueriesFlagName, 0, cobraext.WorstQueriesFlagDescription)
	runCmd.Flags().Bool(cobraext.GenerateReportFlagName, true, cobraext.GenerateReportFlagDescription)
	runCmd.Flags().String(cobraext.TargetFlagName, "", cobraext.TargetFlagDescription)

	compareCmd := &cobra.Command{
		Use:   "compare <before-report-id> <after-report-id>",
		Short: "Compare two evaluation reports",
		Args:  cobra.ExactArgs(2),
		RunE:  evalCompareCommandAction,
	}

	regressionCmd := &cobra.Command{
		Use:   "regression",
		Short: "Evaluate a dataset and compare against a baseline report",
		Args:  cobra.NoArgs,
		RunE:  evalRegressionCommandAction,
	}
	regressionCmd.Flags().StringP(cobraext.DatasetFlagName, cobraext.DatasetFlagShorthand, "", cobraext.DatasetFlagDescription)
	regressionCmd.MarkFlagRequired(cobraext.DatasetFlagName)
	regressionCmd.Flags().String(cobraext.BaselineReportFlagName, "", cobraext.BaselineReportFlagDescription)
	regressionCmd.Flags().Int(cobraext.TopKFlagName, 0, cobraext.TopKFlagDescription)
	regressionCmd.Flags().Int(cobraext.WorstQueriesFlagName, 0, cobraext.WorstQueriesFlagDescription)
	regressionCmd.Flags().String(cobraext.TargetFlagName, "", cobraext.TargetFlagDescription)
	regressionCmd.Flags().String(cobraext.ReportPrefixFlagName, "", cobraext.ReportPrefixFlagDescription)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate search quality",
		Long:  evalLongDescription,
	}
	cmd.AddCommand(runCmd, compareCmd, regressionCmd)

	return cobraext.NewCommand(cmd)
}

func evalRunCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	datasetID, err := cmd.Flags().GetString(cobraext.DatasetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.DatasetFlagName)
	}
	topK, err := cmd.Flags().GetInt(cobraext.TopKFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TopKFlagName)
	}
	worstQueries, err := cmd.Flags().GetInt(cobraext.WorstQueriesFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.WorstQueriesFlagName)
	}
	generateReport, err := cmd.Flags().GetBool(cobraext.GenerateReportFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.GenerateReportFlagName)
	}
	target, err := cmd.Flags().GetString(cobraext.TargetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TargetFlagName)
	}

	tuning, err := c.defaultTuning()
	if err != nil {
		return err
	}

	run, err := c.evalRunner.Run(cmd.Context(), eval.RunOptions{
		DatasetID:   datasetID,
		TopK:        topK,
		TargetIndex: target,
		Tuning:      tuning,
	})
	if err != nil {
		return err
	}

	printEvalSummary(run)

	if generateReport {
		if worstQueries == 0 {
			worstQueries = c.config.Reports.WorstQueries
		}
		report, err := eval.NewReportWriter(c.evalReportsDir(), worstQueries).Write(run, "")
		if err != nil {
			return err
		}
		fmt.Printf("Report written: %s\n", report.ReportID)
	}
	return nil
}

func evalCompareCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	comparison, err := eval.NewComparator(c.evalReportsDir(), c.config.Reports.WorstQueries).Compare(args[0], args[1])
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Before", "After", "Delta"})
	for _, delta := range comparison.MetricsDelta {
		t.AppendRow(table.Row{delta.Name, fmt.Sprintf("%.4f", delta.Before), fmt.Sprintf("%.4f", delta.After), fmt.Sprintf("%+.4f", delta.Delta)})
	}
	t.Render()

	fmt.Printf("Comparison written: %s\n", comparison.Path)
	return nil
}

func evalRegressionCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	datasetID, err := cmd.Flags().GetString(cobraext.DatasetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.DatasetFlagName)
	}
	baseline, err := cmd.Flags().GetString(cobraext.BaselineReportFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.BaselineReportFlagName)
	}
	topK, err := cmd.Flags().GetInt(cobraext.TopKFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TopKFlagName)
	}
	worstQueries, err := cmd.Flags().GetInt(cobraext.WorstQueriesFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.WorstQueriesFlagName)
	}
	target, err := cmd.Flags().GetString(cobraext.TargetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TargetFlagName)
	}
	prefix, err := cmd.Flags().GetString(cobraext.ReportPrefixFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.ReportPrefixFlagName)
	}

	if worstQueries == 0 {
		worstQueries = c.config.Reports.WorstQueries
	}

	tuning, err := c.defaultTuning()
	if err != nil {
		return err
	}

	regression := eval.NewRegressionRunner(
		c.evalRunner,
		eval.NewReportWriter(c.evalReportsDir(), worstQueries),
		eval.NewComparator(c.evalReportsDir(), worstQueries),
	)
	result, err := regression.Run(cmd.Context(), eval.RunOptions{
		DatasetID:   datasetID,
		TopK:        topK,
		TargetIndex: target,
		Tuning:      tuning,
	}, prefix, baseline)
	if err != nil {
		return err
	}

	printEvalSummary(result.Run)
	fmt.Printf("Report written: %s\n", result.Report.ReportID)
	if result.Comparison != nil {
		fmt.Printf("Comparison written: %s\n", result.Comparison.Path)
	}
	return nil
}

func printEvalSummary(run *eval.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Dataset", "Queries", "Top-K", "P@K", "R@K", "MRR", "nDCG@K"})
	t.AppendRow(table.Row{
		run.DatasetID,
		run.Summary.TotalQueries,
		run.TopK,
		fmt.Sprintf("%.4f", run.Summary.MeanPrecisionAtK),
		fmt.Sprintf("%.4f", run.Summary.MeanRecallAtK),
		fmt.Sprintf("%.4f", run.Summary.MeanMRR),
		fmt.Sprintf("%.4f", run.Summary.MeanNDCGAtK),
	})
	t.Render()
}
