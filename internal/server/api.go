// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/elastic/search-ops/internal/opserror"
	"github.com/elastic/search-ops/internal/search"
)

const defaultPageSize = 10

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	sortMode, err := search.ParseSort(params.Get("sort"))
	if err != nil {
		respondError(w, err)
		return
	}
	multiMatch, err := search.ParseMultiMatchType(params.Get("multiMatch"))
	if err != nil {
		respondError(w, err)
		return
	}
	page, err := intParam(r, "page", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	size, err := intParam(r, "size", defaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	publishedFrom, err := timeParam(r, "publishedFrom")
	if err != nil {
		respondError(w, err)
		return
	}
	publishedTo, err := timeParam(r, "publishedTo")
	if err != nil {
		respondError(w, err)
		return
	}

	req := search.Request{
		Query:         params.Get("q"),
		Category:      params.Get("category"),
		Author:        params.Get("author"),
		Tags:          splitTags(params.Get("tags")),
		PublishedFrom: publishedFrom,
		PublishedTo:   publishedTo,
		Sort:          sortMode,
		MultiMatch:    multiMatch,
		Page:          page,
		Size:          size,
	}

	result, err := s.services.Search.Search(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	size, err := intParam(r, "size", 0)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := s.services.Search.Suggest(r.Context(), params.Get("q"), params.Get("category"), size)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Engine.Ping(r.Context()); err != nil {
		respondError(w, opserror.Wrap(opserror.Engine, err, "engine unreachable"))
		return
	}

	aliasState, err := s.services.Aliases.State(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"aliases": aliasState,
	})
}

func splitTags(value string) []string {
	if value == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, opserror.Wrap(opserror.BadRequest, err, "invalid %s %q, expected RFC 3339", name, value)
	}
	return &parsed, nil
}
