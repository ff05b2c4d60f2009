// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cobraext

// Global flags
const (
	VerboseFlagName        = "verbose"
	VerboseFlagShorthand   = "v"
	VerboseFlagDescription = "verbose mode"

	ConfigFlagName        = "config"
	ConfigFlagShorthand   = "c"
	ConfigFlagDescription = "path to the configuration file"
)

// Flag names and descriptions used by CLI commands
const (
	AddressFlagName        = "address"
	AddressFlagDescription = "address for the HTTP server to listen on"

	BaselineReportFlagName        = "baseline"
	BaselineReportFlagDescription = "identifier of the baseline report to compare against"

	DatasetFlagName        = "dataset"
	DatasetFlagShorthand   = "d"
	DatasetFlagDescription = "identifier of the query/judgement dataset"

	DocumentsFileFlagName        = "documents"
	DocumentsFileFlagDescription = "path to the JSON file with documents to index"

	GenerateReportFlagName        = "report"
	GenerateReportFlagDescription = "write the evaluation report to the reports directory"

	IterationsFlagName        = "iterations"
	IterationsFlagDescription = "number of measured search executions per query"

	RefreshFlagName        = "refresh"
	RefreshFlagDescription = "refresh the target index after reindexing"

	ReportPrefixFlagName        = "report-prefix"
	ReportPrefixFlagDescription = "prefix for the generated report identifier"

	RollbackCurrentFlagName        = "current"
	RollbackCurrentFlagDescription = "index the aliases are expected to point to right now"

	RollbackTargetFlagName        = "to"
	RollbackTargetFlagDescription = "index to move the aliases back to"

	SampleQueriesFlagName        = "sample-queries"
	SampleQueriesFlagDescription = "sample queries for the top-K overlap validation"

	SourceVersionFlagName        = "source-version"
	SourceVersionFlagDescription = "generation number of the source index"

	TargetFlagName        = "target"
	TargetFlagDescription = "target index or alias"

	TargetVersionFlagName        = "target-version"
	TargetVersionFlagDescription = "generation number of the target index"

	TopKFlagName        = "top-k"
	TopKFlagDescription = "number of top hits considered per query"

	VersionFlagName        = "version"
	VersionFlagDescription = "generation number of the index"

	WaitForCompletionFlagName        = "wait-for-completion"
	WaitForCompletionFlagDescription = "wait for the engine-side reindex task to complete"

	WarmupsFlagName        = "warmups"
	WarmupsFlagDescription = "number of discarded warmup search executions per query"

	WorstQueriesFlagName        = "worst-queries"
	WorstQueriesFlagDescription = "number of worst queries listed in the report"
)
