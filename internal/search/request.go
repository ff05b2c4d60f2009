// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package search turns structured search requests into the engine's scoring
// tree. Composition is pure, nothing here talks to the engine except the
// Service.
package search

import (
	"time"

	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/opserror"
)

// Sort selects the result ordering.
type Sort int

const (
	SortRelevance Sort = iota
	SortRecency
	SortPopularity
)

// ParseSort maps the wire value to a Sort. An empty value defaults to
// relevance.
func ParseSort(value string) (Sort, error) {
	switch value {
	case "", "RELEVANCE", "relevance":
		return SortRelevance, nil
	case "RECENCY", "recency":
		return SortRecency, nil
	case "POPULARITY", "popularity":
		return SortPopularity, nil
	}
	return SortRelevance, opserror.New(opserror.BadRequest, "unknown sort %q", value)
}

func (s Sort) String() string {
	switch s {
	case SortRecency:
		return "RECENCY"
	case SortPopularity:
		return "POPULARITY"
	default:
		return "RELEVANCE"
	}
}

// MultiMatchType selects the engine's multi-field match mode.
type MultiMatchType int

const (
	MultiMatchBestFields MultiMatchType = iota
	MultiMatchMostFields
	MultiMatchCrossFields
)

// ParseMultiMatchType maps the wire value to a MultiMatchType. An empty value
// defaults to best fields.
func ParseMultiMatchType(value string) (MultiMatchType, error) {
	switch value {
	case "", "BEST_FIELDS", "best_fields":
		return MultiMatchBestFields, nil
	case "MOST_FIELDS", "most_fields":
		return MultiMatchMostFields, nil
	case "CROSS_FIELDS", "cross_fields":
		return MultiMatchCrossFields, nil
	}
	return MultiMatchBestFields, opserror.New(opserror.BadRequest, "unknown multi-match type %q", value)
}

func (t MultiMatchType) String() string {
	switch t {
	case MultiMatchMostFields:
		return "most_fields"
	case MultiMatchCrossFields:
		return "cross_fields"
	default:
		return "best_fields"
	}
}

// PopularityMode selects how the popularity score contributes to ranking.
type PopularityMode int

const (
	PopularityFieldValueFactor PopularityMode = iota
	PopularityRankFeature
)

// ParsePopularityMode maps the wire value to a PopularityMode.
func ParsePopularityMode(value string) (PopularityMode, error) {
	switch value {
	case "", "field_value_factor", "FIELD_VALUE_FACTOR":
		return PopularityFieldValueFactor, nil
	case "rank_feature", "RANK_FEATURE":
		return PopularityRankFeature, nil
	}
	return PopularityFieldValueFactor, opserror.New(opserror.BadRequest, "unknown popularity mode %q", value)
}

// RecencyTuning configures the Gaussian recency decay. A nil value disables
// the decay.
type RecencyTuning struct {
	Scale  string
	Decay  float64
	Weight float64
}

// PopularityTuning configures popularity boosting. A nil value disables it.
type PopularityTuning struct {
	Mode     PopularityMode
	Pivot    float64
	Boost    float64
	Factor   float64
	Modifier string
	Missing  float64
	Weight   float64
}

// Tuning groups the ranking knobs of a request.
type Tuning struct {
	Recency    *RecencyTuning
	Popularity *PopularityTuning
	ScoreMode  string
	BoostMode  string
}

// TuningFromConfiguration resolves the default tuning from the configuration.
func TuningFromConfiguration(config configuration.RankingConfig) (Tuning, error) {
	tuning := Tuning{
		ScoreMode: config.ScoreMode,
		BoostMode: config.BoostMode,
	}
	if tuning.ScoreMode == "" {
		tuning.ScoreMode = "sum"
	}
	if tuning.BoostMode == "" {
		tuning.BoostMode = "sum"
	}
	if config.Recency.Enabled {
		tuning.Recency = &RecencyTuning{
			Scale:  config.Recency.Scale,
			Decay:  config.Recency.Decay,
			Weight: config.Recency.Weight,
		}
	}
	if config.Popularity.Enabled {
		mode, err := ParsePopularityMode(config.Popularity.Mode)
		if err != nil {
			return Tuning{}, err
		}
		tuning.Popularity = &PopularityTuning{
			Mode:     mode,
			Pivot:    config.Popularity.Pivot,
			Boost:    config.Popularity.Boost,
			Factor:   config.Popularity.Factor,
			Modifier: config.Popularity.Modifier,
			Missing:  config.Popularity.Missing,
			Weight:   config.Popularity.Weight,
		}
	}
	return tuning, nil
}

// Request is a structured search request.
type Request struct {
	Query         string
	Category      string
	Tags          []string
	Author        string
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	Sort          Sort
	MultiMatch    MultiMatchType
	Page          int
	Size          int
	TargetIndex   string
	Tuning        Tuning
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if r.Page < 0 {
		return opserror.New(opserror.BadRequest, "page must not be negative")
	}
	if r.Size <= 0 {
		return opserror.New(opserror.BadRequest, "size must be positive")
	}
	return nil
}
