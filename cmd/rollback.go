// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/cobraext"
)

const rollbackLongDescription = `Use this command to move the alias pair back to a previous index generation. The rollback is refused unless both aliases currently point exactly to the index given with --current.`

func setupRollbackCommand() *cobraext.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Move the alias pair back to a previous index",
		Long:  rollbackLongDescription,
		Args:  cobra.NoArgs,
		RunE:  rollbackCommandAction,
	}
	cmd.Flags().String(cobraext.RollbackCurrentFlagName, "", cobraext.RollbackCurrentFlagDescription)
	cmd.MarkFlagRequired(cobraext.RollbackCurrentFlagName)
	cmd.Flags().String(cobraext.RollbackTargetFlagName, "", cobraext.RollbackTargetFlagDescription)
	cmd.MarkFlagRequired(cobraext.RollbackTargetFlagName)

	return cobraext.NewCommand(cmd)
}

func rollbackCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	current, err := cmd.Flags().GetString(cobraext.RollbackCurrentFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.RollbackCurrentFlagName)
	}
	target, err := cmd.Flags().GetString(cobraext.RollbackTargetFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.RollbackTargetFlagName)
	}

	result, err := c.rollback.Rollback(cmd.Context(), current, target)
	if err != nil {
		return err
	}

	fmt.Printf("Rolled back aliases from %s to %s\n", result.CurrentIndex, result.RollbackToIndex)
	fmt.Printf("Aliases now point to %v (read) and %v (write)\n",
		result.AliasAfter.ReadTargets, result.AliasAfter.WriteTargets)
	return nil
}
