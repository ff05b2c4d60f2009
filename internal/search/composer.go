// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package search

import (
	"time"
)

const (
	mostFieldsTieBreaker = 0.2

	suggestMaxExpansions = 50
)

var matchFields = []string{"title^4", "summary^2", "body"}

// Compose builds the engine query body for the request. It is a pure function
// of its input.
func Compose(req Request) map[string]interface{} {
	query := wrapFunctionScore(req, composeBool(req))

	body := map[string]interface{}{
		"query":            query,
		"from":             req.Page * req.Size,
		"size":             req.Size,
		"track_total_hits": true,
		"highlight":        composeHighlight(),
	}
	if sortClause := composeSort(req.Sort); sortClause != nil {
		body["sort"] = sortClause
	}
	return body
}

func composeBool(req Request) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	if req.Query != "" {
		boolQuery["must"] = []interface{}{composeMultiMatch(req)}
	} else {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}

	if filters := composeFilters(req); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	// The rank-feature clause contributes to scoring without filtering, so
	// it goes into "should" rather than "filter".
	if clause := composeRankFeature(req.Tuning.Popularity); clause != nil {
		boolQuery["should"] = []interface{}{clause}
	}

	return map[string]interface{}{"bool": boolQuery}
}

func composeMultiMatch(req Request) map[string]interface{} {
	multiMatch := map[string]interface{}{
		"query":  req.Query,
		"fields": matchFields,
		"type":   req.MultiMatch.String(),
	}
	if req.MultiMatch == MultiMatchMostFields {
		multiMatch["tie_breaker"] = mostFieldsTieBreaker
	}
	return map[string]interface{}{"multi_match": multiMatch}
}

func composeFilters(req Request) []interface{} {
	var filters []interface{}

	if req.Category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category": req.Category},
		})
	}
	if len(req.Tags) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"tags": req.Tags},
		})
	}
	if req.Author != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"author": req.Author},
		})
	}
	if req.PublishedFrom != nil || req.PublishedTo != nil {
		bounds := map[string]interface{}{}
		if req.PublishedFrom != nil {
			bounds["gte"] = req.PublishedFrom.UTC().Format(time.RFC3339)
		}
		if req.PublishedTo != nil {
			bounds["lte"] = req.PublishedTo.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"publishedAt": bounds},
		})
	}
	return filters
}

func composeRankFeature(popularity *PopularityTuning) map[string]interface{} {
	if popularity == nil || popularity.Mode != PopularityRankFeature {
		return nil
	}
	return map[string]interface{}{
		"rank_feature": map[string]interface{}{
			"field": "popularityScore",
			"saturation": map[string]interface{}{
				"pivot": popularity.Pivot,
			},
			"boost": popularity.Boost,
		},
	}
}

// wrapFunctionScore applies the recency and popularity scoring functions
// selected by the sort mode. Without enabled functions the bool query is
// returned untouched.
func wrapFunctionScore(req Request, query map[string]interface{}) map[string]interface{} {
	var functions []interface{}

	includeRecency := req.Sort == SortRelevance || req.Sort == SortRecency
	if includeRecency && req.Tuning.Recency != nil {
		functions = append(functions, composeRecencyDecay(req.Tuning.Recency))
	}

	includePopularity := req.Sort == SortRelevance || req.Sort == SortPopularity
	if includePopularity {
		if clause := composeFieldValueFactor(req.Tuning.Popularity); clause != nil {
			functions = append(functions, clause)
		}
	}

	if len(functions) == 0 {
		return query
	}

	scoreMode := req.Tuning.ScoreMode
	if scoreMode == "" {
		scoreMode = "sum"
	}
	boostMode := req.Tuning.BoostMode
	if boostMode == "" {
		boostMode = "sum"
	}

	return map[string]interface{}{
		"function_score": map[string]interface{}{
			"query":      query,
			"functions":  functions,
			"score_mode": scoreMode,
			"boost_mode": boostMode,
		},
	}
}

func composeRecencyDecay(recency *RecencyTuning) map[string]interface{} {
	return map[string]interface{}{
		"gauss": map[string]interface{}{
			"publishedAt": map[string]interface{}{
				"origin": "now",
				"scale":  recency.Scale,
				"decay":  recency.Decay,
			},
		},
		"weight": recency.Weight,
	}
}

func composeFieldValueFactor(popularity *PopularityTuning) map[string]interface{} {
	if popularity == nil || popularity.Mode != PopularityFieldValueFactor {
		return nil
	}
	factor := map[string]interface{}{
		"field":   "popularityScore",
		"factor":  popularity.Factor,
		"missing": popularity.Missing,
	}
	if popularity.Modifier != "" {
		factor["modifier"] = popularity.Modifier
	}
	return map[string]interface{}{
		"field_value_factor": factor,
		"weight":             popularity.Weight,
	}
}

func composeSort(sort Sort) []interface{} {
	if sort != SortRecency {
		return nil
	}
	return []interface{}{
		map[string]interface{}{"publishedAt": map[string]interface{}{"order": "desc"}},
		map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
	}
}

func composeHighlight() map[string]interface{} {
	return map[string]interface{}{
		"fields": map[string]interface{}{
			"title":   map[string]interface{}{},
			"summary": map[string]interface{}{},
			"body":    map[string]interface{}{},
		},
	}
}

// ComposeSuggest builds the title autocomplete query: a phrase-prefix match
// boosted by popularity only, ordered by score and then recency.
func ComposeSuggest(query, category string, size int, popularity *PopularityTuning) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match_phrase_prefix": map[string]interface{}{
					"titleAutocomplete": map[string]interface{}{
						"query":          query,
						"max_expansions": suggestMaxExpansions,
					},
				},
			},
		},
	}
	if category != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"category": category},
			},
		}
	}

	inner := map[string]interface{}{"bool": boolQuery}
	wrapped := inner
	if popularity != nil {
		// Suggest always boosts by popularity via field value factor,
		// regardless of the popularity mode configured for search.
		forced := *popularity
		forced.Mode = PopularityFieldValueFactor
		clause := composeFieldValueFactor(&forced)
		wrapped = map[string]interface{}{
			"function_score": map[string]interface{}{
				"query":     inner,
				"functions": []interface{}{clause},
			},
		}
	}

	return map[string]interface{}{
		"query": wrapped,
		"size":  size,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"publishedAt": map[string]interface{}{"order": "desc"}},
		},
	}
}
