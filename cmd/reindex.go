// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/cobraext"
	"github.com/elastic/search-ops/internal/reindex"
)

const reindexLongDescription = `Use this command to run a blue/green migration between two index generations. The target index is created from the embedded template, filled by an engine-side reindex, validated against the source, and only then does the alias pair switch over. A failed validation leaves the aliases untouched.`

func setupReindexCommand() *cobraext.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Run a blue/green migration between index generations",
		Long:  reindexLongDescription,
		Args:  cobra.NoArgs,
		RunE:  reindexCommandAction,
	}
	cmd.Flags().Int(cobraext.SourceVersionFlagName, 0, cobraext.SourceVersionFlagDescription)
	cmd.MarkFlagRequired(cobraext.SourceVersionFlagName)
	cmd.Flags().Int(cobraext.TargetVersionFlagName, 0, cobraext.TargetVersionFlagDescription)
	cmd.MarkFlagRequired(cobraext.TargetVersionFlagName)
	cmd.Flags().Bool(cobraext.WaitForCompletionFlagName, true, cobraext.WaitForCompletionFlagDescription)
	cmd.Flags().Bool(cobraext.RefreshFlagName, true, cobraext.RefreshFlagDescription)
	cmd.Flags().StringSlice(cobraext.SampleQueriesFlagName, nil, cobraext.SampleQueriesFlagDescription)

	return cobraext.NewCommand(cmd)
}

func reindexCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	sourceVersion, err := cmd.Flags().GetInt(cobraext.SourceVersionFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.SourceVersionFlagName)
	}
	targetVersion, err := cmd.Flags().GetInt(cobraext.TargetVersionFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TargetVersionFlagName)
	}
	waitForCompletion, err := cmd.Flags().GetBool(cobraext.WaitForCompletionFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.WaitForCompletionFlagName)
	}
	refresh, err := cmd.Flags().GetBool(cobraext.RefreshFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.RefreshFlagName)
	}
	sampleQueries, err := cmd.Flags().GetStringSlice(cobraext.SampleQueriesFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.SampleQueriesFlagName)
	}

	validation := reindex.ValidationOptionsFromConfiguration(c.config.Validation)
	if len(sampleQueries) > 0 {
		validation.EnableSampleQueryValidation = true
		validation.SampleQueries = sampleQueries
	}

	result, err := c.orchestrator.Reindex(cmd.Context(), reindex.BlueGreenRequest{
		SourceVersion:     sourceVersion,
		TargetVersion:     targetVersion,
		Validation:        validation,
		WaitForCompletion: waitForCompletion,
		RefreshAfter:      refresh,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Migrated %s -> %s (%s documents, reindex took %dms)\n",
		result.SourceIndex, result.TargetIndex, humanize.Comma(result.TargetCount), result.ReindexTookMs)
	fmt.Printf("Aliases now point to %v (read) and %v (write)\n",
		result.AliasAfter.ReadTargets, result.AliasAfter.WriteTargets)
	if result.RetentionManifestPath != "" {
		fmt.Printf("Retention manifest: %s\n", result.RetentionManifestPath)
	}
	return nil
}
