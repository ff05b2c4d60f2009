// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/cobraext"
	"github.com/elastic/search-ops/internal/logger"
)

var commands = []*cobraext.Command{
	setupBenchmarkCommand(),
	setupEvalCommand(),
	setupIndexCommand(),
	setupReindexCommand(),
	setupRollbackCommand(),
	setupServeCommand(),
	setupVersionCommand(),
}

// RootCmd creates and returns root cmd for search-ops
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "search-ops",
		Short:        "search-ops - Command line tool for operating and evaluating the documents search index",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cobraext.ComposeCommandActions(cmd, args,
				processPersistentFlags,
			)
		},
	}
	rootCmd.PersistentFlags().BoolP(cobraext.VerboseFlagName, cobraext.VerboseFlagShorthand, false, cobraext.VerboseFlagDescription)
	rootCmd.PersistentFlags().StringP(cobraext.ConfigFlagName, cobraext.ConfigFlagShorthand, "", cobraext.ConfigFlagDescription)

	for _, cmd := range commands {
		rootCmd.AddCommand(cmd.Command)
	}
	return rootCmd
}

// Commands returns the list of commands that have been setup for search-ops.
func Commands() []*cobraext.Command {
	sort.SliceStable(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})

	return commands
}

func processPersistentFlags(cmd *cobra.Command, args []string) error {
	verbose, err := cmd.Flags().GetBool(cobraext.VerboseFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.VerboseFlagName)
	}

	if verbose {
		logger.EnableDebugMode()
	}
	return nil
}
