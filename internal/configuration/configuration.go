// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package configuration holds the value struct passed into every component.
// There are no process-wide singletons; commands load a Configuration once and
// hand it down.
package configuration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the engine connection settings.
const (
	ElasticsearchHostEnv     = "SEARCH_OPS_ELASTICSEARCH_HOST"
	ElasticsearchUsernameEnv = "SEARCH_OPS_ELASTICSEARCH_USERNAME"
	ElasticsearchPasswordEnv = "SEARCH_OPS_ELASTICSEARCH_PASSWORD"
)

// Configuration groups the settings of all components.
type Configuration struct {
	Engine     EngineConfig     `yaml:"engine"`
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Reports    ReportsConfig    `yaml:"reports"`
	Datasets   DatasetsConfig   `yaml:"datasets"`
	Validation ValidationConfig `yaml:"validation"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark"`
	Indexer    IndexerConfig    `yaml:"indexer"`
}

// EngineConfig configures the engine client.
type EngineConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// RetryMax bounds transport-level retries, 0 disables them.
	RetryMax int `yaml:"retryMax"`

	// SkipTLSVerify disables TLS validation.
	SkipTLSVerify bool `yaml:"skipTLSVerify"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// IndexConfig configures index generations and the alias pair.
type IndexConfig struct {
	// Prefix is the generation name prefix, generation N is named
	// "<prefix><N>".
	Prefix     string `yaml:"prefix"`
	ReadAlias  string `yaml:"readAlias"`
	WriteAlias string `yaml:"writeAlias"`
}

// ReportsConfig configures where reports and manifests are persisted.
type ReportsConfig struct {
	BaseDir      string `yaml:"baseDir"`
	WorstQueries int    `yaml:"worstQueries"`
}

// DatasetsConfig configures where query and judgement sets are read from.
type DatasetsConfig struct {
	BaseDir string `yaml:"baseDir"`
}

// ValidationConfig carries the reindex validation defaults. A request may
// override any of them.
type ValidationConfig struct {
	EnableCountValidation       bool     `yaml:"enableCountValidation"`
	EnableSampleQueryValidation bool     `yaml:"enableSampleQueryValidation"`
	EnableHashValidation        bool     `yaml:"enableHashValidation"`
	SampleQueries               []string `yaml:"sampleQueries"`
	SampleTopK                  int      `yaml:"sampleTopK"`
	MinJaccard                  float64  `yaml:"minJaccard"`
	HashMaxDocs                 int      `yaml:"hashMaxDocs"`
	HashPageSize                int      `yaml:"hashPageSize"`
}

// RankingConfig carries the default ranking tuning applied when a search
// request does not provide its own.
type RankingConfig struct {
	Recency    RecencyConfig    `yaml:"recency"`
	Popularity PopularityConfig `yaml:"popularity"`
	ScoreMode  string           `yaml:"scoreMode"`
	BoostMode  string           `yaml:"boostMode"`
}

// RecencyConfig configures the Gaussian recency decay.
type RecencyConfig struct {
	Enabled bool    `yaml:"enabled"`
	Scale   string  `yaml:"scale"`
	Decay   float64 `yaml:"decay"`
	Weight  float64 `yaml:"weight"`
}

// PopularityConfig configures popularity boosting.
type PopularityConfig struct {
	Enabled bool `yaml:"enabled"`

	// Mode selects between "rank_feature" and "field_value_factor".
	Mode     string  `yaml:"mode"`
	Pivot    float64 `yaml:"pivot"`
	Boost    float64 `yaml:"boost"`
	Factor   float64 `yaml:"factor"`
	Modifier string  `yaml:"modifier"`
	Missing  float64 `yaml:"missing"`
	Weight   float64 `yaml:"weight"`
}

// BenchmarkConfig carries performance benchmark defaults.
type BenchmarkConfig struct {
	TopK       int `yaml:"topK"`
	Iterations int `yaml:"iterations"`
	Warmups    int `yaml:"warmups"`
}

// IndexerConfig carries bulk indexer defaults.
type IndexerConfig struct {
	ChunkSize  int `yaml:"chunkSize"`
	MaxRetries int `yaml:"maxRetries"`
}

// Default returns the configuration used when no file is provided.
func Default() Configuration {
	return Configuration{
		Engine: EngineConfig{
			Address:  "http://localhost:9200",
			RetryMax: 3,
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Index: IndexConfig{
			Prefix:     "docs_v",
			ReadAlias:  "docs_read",
			WriteAlias: "docs_write",
		},
		Reports: ReportsConfig{
			BaseDir:      "reports",
			WorstQueries: 10,
		},
		Datasets: DatasetsConfig{
			BaseDir: "docs/eval",
		},
		Validation: ValidationConfig{
			EnableCountValidation:       true,
			EnableSampleQueryValidation: false,
			EnableHashValidation:        false,
			SampleTopK:                  10,
			MinJaccard:                  0.6,
			HashMaxDocs:                 1000,
			HashPageSize:                200,
		},
		Ranking: RankingConfig{
			Recency: RecencyConfig{
				Enabled: true,
				Scale:   "30d",
				Decay:   0.5,
				Weight:  1.0,
			},
			Popularity: PopularityConfig{
				Enabled:  true,
				Mode:     "field_value_factor",
				Pivot:    10,
				Boost:    1.0,
				Factor:   1.0,
				Modifier: "log1p",
				Missing:  0,
				Weight:   1.0,
			},
			ScoreMode: "sum",
			BoostMode: "sum",
		},
		Benchmark: BenchmarkConfig{
			TopK:       10,
			Iterations: 10,
			Warmups:    2,
		},
		Indexer: IndexerConfig{
			ChunkSize:  500,
			MaxRetries: 2,
		},
	}
}

// Load reads the configuration file at path on top of the defaults and applies
// environment overrides. An empty path returns the defaults with overrides.
func Load(path string) (Configuration, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Configuration{}, fmt.Errorf("can't read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Configuration{}, fmt.Errorf("can't parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(config *Configuration) {
	if v := os.Getenv(ElasticsearchHostEnv); v != "" {
		config.Engine.Address = v
	}
	if v := os.Getenv(ElasticsearchUsernameEnv); v != "" {
		config.Engine.Username = v
	}
	if v := os.Getenv(ElasticsearchPasswordEnv); v != "" {
		config.Engine.Password = v
	}
}
