// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/cobraext"
	"github.com/elastic/search-ops/internal/server"
	"github.com/elastic/search-ops/internal/signal"
)

const serveLongDescription = `Use this command to run the HTTP server exposing the admin control plane and the public search API. The server stops gracefully on SIGINT or SIGTERM.`

func setupServeCommand() *cobraext.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE:  serveCommandAction,
	}
	cmd.Flags().String(cobraext.AddressFlagName, "", cobraext.AddressFlagDescription)

	return cobraext.NewCommand(cmd)
}

func serveCommandAction(cmd *cobra.Command, args []string) error {
	c, err := setupComponents(cmd)
	if err != nil {
		return err
	}

	address, err := cmd.Flags().GetString(cobraext.AddressFlagName)
	if err != nil {
		return cobraext.FlagParsingError(err, cobraext.AddressFlagName)
	}
	if address != "" {
		c.config.Server.Address = address
	}

	srv := server.NewServer(c.config, server.Services{
		Engine:       c.engine,
		Search:       c.search,
		Indexer:      c.indexer,
		Orchestrator: c.orchestrator,
		Rollback:     c.rollback,
		Aliases:      c.aliases,
		EvalRunner:   c.evalRunner,
		BenchRunner:  c.benchRunner,
	})

	ctx, stop := signal.Context(context.Background())
	defer stop()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
