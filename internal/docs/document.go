// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package docs defines the document model stored in the search index and the
// evaluation dataset loaders.
package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elastic/search-ops/internal/opserror"
)

// Document is the unit stored in the search index. Documents cross component
// boundaries by value and are never mutated in place.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary,omitempty"`
	Body            string    `json:"body"`
	Tags            []string  `json:"tags,omitempty"`
	Category        string    `json:"category"`
	Author          string    `json:"author"`
	PublishedAt     time.Time `json:"publishedAt"`
	PopularityScore float64   `json:"popularityScore"`
}

// Validate checks the construction invariants of the document.
func (d Document) Validate() error {
	if d.ID == "" {
		return opserror.New(opserror.BadRequest, "document id must not be empty")
	}
	if _, err := uuid.Parse(d.ID); err != nil {
		return opserror.New(opserror.BadRequest, "document id %q is not a valid UUID", d.ID)
	}
	if strings.TrimSpace(d.Title) == "" {
		return opserror.New(opserror.BadRequest, "document %s: title must not be empty", d.ID)
	}
	if strings.TrimSpace(d.Body) == "" {
		return opserror.New(opserror.BadRequest, "document %s: body must not be empty", d.ID)
	}
	if strings.TrimSpace(d.Category) == "" {
		return opserror.New(opserror.BadRequest, "document %s: category must not be empty", d.ID)
	}
	if strings.TrimSpace(d.Author) == "" {
		return opserror.New(opserror.BadRequest, "document %s: author must not be empty", d.ID)
	}
	if d.PublishedAt.IsZero() {
		return opserror.New(opserror.BadRequest, "document %s: publishedAt must be set", d.ID)
	}
	if d.PopularityScore < 0 {
		return opserror.New(opserror.BadRequest, "document %s: popularityScore must not be negative", d.ID)
	}
	return nil
}

// ContentKey serializes the document into the canonical line fed into the
// content-hash validation. Two documents with equal content produce equal
// keys regardless of tag order.
func (d Document) ContentKey() string {
	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)
	sort.Strings(tags)

	return strings.Join([]string{
		d.ID,
		d.Title,
		d.Summary,
		d.Body,
		strings.Join(tags, ","),
		d.Category,
		d.Author,
		d.PublishedAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(d.PopularityScore, 'f', -1, 64),
	}, "|")
}

// LoadDocuments reads a JSON array of documents from path, assigns ids to
// documents missing one and validates every entry.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, opserror.Wrap(opserror.NotFound, err, "documents file %q not found", path)
		}
		return nil, fmt.Errorf("can't read documents file %q: %w", path, err)
	}

	var documents []Document
	if err := json.Unmarshal(data, &documents); err != nil {
		return nil, opserror.Wrap(opserror.BadRequest, err, "can't parse documents file %q", path)
	}

	for i := range documents {
		if documents[i].ID == "" {
			documents[i].ID = uuid.NewString()
		}
		if err := documents[i].Validate(); err != nil {
			return nil, err
		}
	}
	return documents, nil
}
