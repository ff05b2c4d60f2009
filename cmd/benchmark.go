// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/benchrunner"
	"github.com/elastic/search-ops/internal/cobraext"
)

const benchmarkLongDescription = `Use this command to measure search latency over a query set. Each query is executed a number of warmup times (discarded) and then a number of measured iterations recording the engine-reported took time.`

func setupBenchmarkCommand() *cobraext.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure search latency over a query set",
		Long:  benchmarkLongDescription,
		Args:  cobra.NoArgs,
		RunE:  benchmarkCommandAction,
	}
	cmd.Flags().StringP(cobraext.DatasetFlagName, cobraext.DatasetFlagShorthand, "", cobraext.DatasetFlagDescription)
	cmd.MarkFlagRequired(cobraext.DatasetFlagName)
	cmd.Flags().Int(cobraext.TopKFlagName, 0, cobraext.TopKFlagDescription)
	cmd.Flags().Int(cobraext.IterationsFlagName, 0, cobraext.IterationsFlagDescription)
	cmd.Flags().Int(cobraext.WarmupsFlagName, -1, cobraext.WarmupsFlagDescription)
	cmd.Flags().String(cobraext.TargetFlagName, "", cobraext.TargetFlagDescription)
	cmd.Flags().String(cobraext.ReportPrefixFlagName, "", cobraext.ReportPrefixFlagDescription)
	cmd.Flags().String(cobraext.BaselineReportFlagName, "", cobraext.BaselineReportFlagDescription)

	return cobraext.NewCommand(cmd)
}

func benchmarkCommandAction(cmd *cobra.Command, args []string) error {
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
	iterations, err := cmd.Flags().GetInt(cobraext.IterationsFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.IterationsFlagName)
	}
	warmups, err := cmd.Flags().GetInt(cobraext.WarmupsFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.WarmupsFlagName)
	}
	target, err := cmd.Flags().GetString(cobraext.TargetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TargetFlagName)
	}
	prefix, err := cmd.Flags().GetString(cobraext.ReportPrefixFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.ReportPrefixFlagName)
	}
	baseline, err := cmd.Flags().GetString(cobraext.BaselineReportFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.BaselineReportFlagName)
	}

	if topK == 0 {
		topK = c.config.Benchmark.TopK
	}
	if iterations == 0 {
		iterations = c.config.Benchmark.Iterations
	}
	if warmups < 0 {
		warmups = c.config.Benchmark.Warmups
	}

	run, err := c.benchRunner.Run(cmd.Context(), benchrunner.RunOptions{
		DatasetID:      datasetID,
		TopK:           topK,
		Iterations:     iterations,
		Warmups:        warmups,
		TargetIndex:    target,
		ReportIDPrefix: prefix,
	})
	if err != nil {
		return err
	}

	path, err := benchrunner.NewReportWriter(c.performanceReportsDir()).Write(run)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Samples", "Min", "P50", "P95", "Max", "Avg", "QPS"})
	t.AppendRow(table.Row{
		run.Global.Samples,
		fmt.Sprintf("%dms", run.Global.Min),
		fmt.Sprintf("%dms", run.Global.P50),
		fmt.Sprintf("%dms", run.Global.P95),
		fmt.Sprintf("%dms", run.Global.Max),
		fmt.Sprintf("%.1fms", run.Global.Avg),
		fmt.Sprintf("%.2f", run.QPS),
	})
	t.Render()
	fmt.Printf("Report written: %s\n", path)

	if baseline != "" {
		comparison, err := benchrunner.NewComparator(c.performanceReportsDir()).Compare(baseline, run.RunID)
		if err != nil {
			return err
		}
		fmt.Printf("Comparison written: %s\n", comparison.Path)
	}
	return nil
}
