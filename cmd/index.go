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
	"github.com/elastic/search-ops/internal/docs"
)

const indexLongDescription = `Use this command to manage the physical index generations behind the alias pair.`

func setupIndexCommand() *cobraext.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new index generation from the embedded template",
		Args:  cobra.NoArgs,
		RunE:  indexCreateCommandAction,
	}
	createCmd.Flags().Int(cobraext.VersionFlagName, 0, cobraext.VersionFlagDescription)
	createCmd.MarkFlagRequired(cobraext.VersionFlagName)

	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Bulk index documents from a JSON file",
		Args:  cobra.NoArgs,
		RunE:  indexBulkCommandAction,
	}
	bulkCmd.Flags().String(cobraext.DocumentsFileFlagName, "", cobraext.DocumentsFileFlagDescription)
	bulkCmd.MarkFlagRequired(cobraext.DocumentsFileFlagName)
	bulkCmd.Flags().String(cobraext.TargetFlagName, "", cobraext.TargetFlagDescription)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage index generations",
		Long:  indexLongDescription,
	}
	cmd.AddCommand(createCmd, bulkCmd)

	return cobraext.NewCommand(cmd)
}

func indexCreateCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	version, err := cmd.Flags().GetInt(cobraext.VersionFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.VersionFlagName)
	}

	name, err := c.orchestrator.CreateGeneration(cmd.Context(), version)
	if err != nil {
		return err
	}

	fmt.Printf("Created index %s\n", name)
	return nil
}

func indexBulkCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	path, err := cmd.Flags().GetString(cobraext.DocumentsFileFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.DocumentsFileFlagName)
	}
	target, err := cmd.Flags().GetString(cobraext.TargetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.TargetFlagName)
	}

	documents, err := docs.LoadDocuments(path)
	if err != nil {
		return err
	}

	result, err := c.indexer.Index(cmd.Context(), documents, target)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d/%d documents in %d attempts (%dms)\n",
		result.Success, result.Total, result.Attempts, result.TookMs)
	if result.Failed > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Status", "Reason", "Attempt"})
		for _, failure := range result.Failures {
			t.AppendRow(table.Row{failure.ID, failure.Status, failure.Reason, failure.Attempt})
		}
		t.Render()
		return fmt.Errorf("%d documents failed to index", result.Failed)
	}
	return nil
}
