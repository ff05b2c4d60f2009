// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/elastic/search-ops/internal/benchrunner"
	"github.com/elastic/search-ops/internal/cobraext"
	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/eval"
	"github.com/elastic/search-ops/internal/indexer"
	"github.com/elastic/search-ops/internal/reindex"
	"github.com/elastic/search-ops/internal/search"
)

// components wires the full dependency graph from the configuration. Every
// command builds it once at the start of its action.
type components struct {
	config       configuration.Configuration
	engine       *elasticsearch.Client
	search       *search.Service
	indexer      *indexer.BulkIndexer
	loader       *docs.DatasetLoader
	aliases      *reindex.AliasManager
	orchestrator *reindex.Orchestrator
	rollback     *reindex.RollbackService
	evalRunner   *eval.Runner
	benchRunner  *benchrunner.Runner
}

func loadConfiguration(cmd *cobra.Command) (configuration.Configuration, error) {
	path, err := cmd.Flags().GetString(cobraext.ConfigFlagName)
	if err != nil {
		return configuration.Configuration{}, cobraext.FlagParsingError(err, cobraext.ConfigFlagName)
	}
	return configuration.Load(path)
}

func setupComponents(cmd *cobra.Command) (*components, error) {
	config, err := loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}

	engine, err := elasticsearch.NewClient(elasticsearch.OptionsFromConfiguration(config.Engine)...)
	if err != nil {
		return nil, fmt.Errorf("could not create engine client: %w", err)
	}

	tuning, err := search.TuningFromConfiguration(config.Ranking)
	if err != nil {
		return nil, err
	}

	aliases := reindex.NewAliasManager(engine, config.Index.ReadAlias, config.Index.WriteAlias)
	loader := docs.NewDatasetLoader(config.Datasets.BaseDir)

	return &components{
		config:  config,
		engine:  engine,
		search:  search.NewService(engine, config.Index.ReadAlias, tuning),
		indexer: indexer.New(engine, config.Indexer, config.Index.WriteAlias),
		loader:  loader,
		aliases: aliases,
		orchestrator: reindex.NewOrchestrator(
			engine,
			aliases,
			reindex.NewValidator(engine),
			reindex.NewRetentionRecorder(config.Reports.BaseDir),
			config.Index.Prefix,
			docs.IndexTemplate,
		),
		rollback:    reindex.NewRollbackService(aliases),
		evalRunner:  eval.NewRunner(engine, loader, config.Index.ReadAlias),
		benchRunner: benchrunner.NewRunner(engine, loader, config.Index.ReadAlias),
	}, nil
}

func (c *components) evalReportsDir() string {
	return c.config.Reports.BaseDir
}

func (c *components) performanceReportsDir() string {
	return filepath.Join(c.config.Reports.BaseDir, "performance")
}

func (c *components) defaultTuning() (search.Tuning, error) {
	return search.TuningFromConfiguration(c.config.Ranking)
}
