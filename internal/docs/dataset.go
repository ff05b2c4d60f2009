// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/elastic/search-ops/internal/opserror"
)

const (
	querySetsFolder  = "querysets"
	judgementsFolder = "judgements"

	maxGrade = 3
)

// Query is a single entry of a query set.
type Query struct {
	ID      string        `json:"queryId"`
	Text    string        `json:"queryText"`
	Intent  string        `json:"intent,omitempty"`
	Filters *QueryFilters `json:"filters,omitempty"`
}

// QueryFilters restricts a query to a slice of the corpus.
type QueryFilters struct {
	Category        string     `json:"category,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Author          string     `json:"author,omitempty"`
	PublishedAtFrom *time.Time `json:"publishedAtFrom,omitempty"`
	PublishedAtTo   *time.Time `json:"publishedAtTo,omitempty"`
}

// Judgement is a human-assigned relevance grade for a (query, document) pair.
type Judgement struct {
	QueryID string `json:"queryId"`
	DocID   string `json:"docId"`
	Grade   int    `json:"grade"`
	Note    string `json:"note,omitempty"`
}

// Dataset pairs a query set with its judgement set. Loaded datasets are
// immutable for the duration of a run.
type Dataset struct {
	ID         string
	Queries    []Query
	Judgements []Judgement

	grades map[string]map[string]int
}

// DatasetLoader reads datasets from the configured base directory.
type DatasetLoader struct {
	baseDir string
}

// NewDatasetLoader creates a loader rooted at baseDir, typically "docs/eval".
func NewDatasetLoader(baseDir string) *DatasetLoader {
	return &DatasetLoader{baseDir: baseDir}
}

// QuerySetPath returns the location of the query set of the dataset.
func (l *DatasetLoader) QuerySetPath(datasetID string) string {
	return filepath.Join(l.baseDir, querySetsFolder, datasetID+"_queries.json")
}

// JudgementSetPath returns the location of the judgement set of the dataset.
func (l *DatasetLoader) JudgementSetPath(datasetID string) string {
	return filepath.Join(l.baseDir, judgementsFolder, datasetID+"_judgements.json")
}

// Load reads and validates the dataset with the given identifier.
func (l *DatasetLoader) Load(datasetID string) (*Dataset, error) {
	if datasetID == "" {
		return nil, opserror.New(opserror.BadRequest, "dataset identifier must not be empty")
	}

	var queries []Query
	if err := readJSONFile(l.QuerySetPath(datasetID), &queries); err != nil {
		return nil, err
	}

	var judgements []Judgement
	if err := readJSONFile(l.JudgementSetPath(datasetID), &judgements); err != nil {
		return nil, err
	}

	dataset := &Dataset{
		ID:         datasetID,
		Queries:    queries,
		Judgements: judgements,
	}
	if err := dataset.validate(); err != nil {
		return nil, err
	}
	return dataset, nil
}

// LoadQueries reads only the query set, used by the performance benchmarker
// which does not need judgements.
func (l *DatasetLoader) LoadQueries(datasetID string) ([]Query, error) {
	if datasetID == "" {
		return nil, opserror.New(opserror.BadRequest, "dataset identifier must not be empty")
	}
	var queries []Query
	if err := readJSONFile(l.QuerySetPath(datasetID), &queries); err != nil {
		return nil, err
	}
	return queries, nil
}

func (d *Dataset) validate() error {
	seenQueries := map[string]struct{}{}
	for _, q := range d.Queries {
		if q.ID == "" {
			return opserror.New(opserror.BadRequest, "dataset %s: query with empty queryId", d.ID)
		}
		if q.Text == "" {
			return opserror.New(opserror.BadRequest, "dataset %s: query %s has empty queryText", d.ID, q.ID)
		}
		if _, ok := seenQueries[q.ID]; ok {
			return opserror.New(opserror.BadRequest, "dataset %s: duplicate queryId %q", d.ID, q.ID)
		}
		seenQueries[q.ID] = struct{}{}
	}

	grades := make(map[string]map[string]int, len(d.Queries))
	for _, j := range d.Judgements {
		if _, ok := seenQueries[j.QueryID]; !ok {
			return opserror.New(opserror.BadRequest, "dataset %s: judgement references unknown queryId %q", d.ID, j.QueryID)
		}
		if j.Grade < 0 || j.Grade > maxGrade {
			return opserror.New(opserror.BadRequest, "dataset %s: judgement (%s, %s) grade %d out of range [0,%d]",
				d.ID, j.QueryID, j.DocID, j.Grade, maxGrade)
		}
		perQuery, ok := grades[j.QueryID]
		if !ok {
			perQuery = map[string]int{}
			grades[j.QueryID] = perQuery
		}
		if _, ok := perQuery[j.DocID]; ok {
			return opserror.New(opserror.BadRequest, "dataset %s: duplicate judgement for (%s, %s)", d.ID, j.QueryID, j.DocID)
		}
		perQuery[j.DocID] = j.Grade
	}
	d.grades = grades
	return nil
}

// JudgementsFor returns the docId to grade mapping of the query. The returned
// map must not be modified.
func (d *Dataset) JudgementsFor(queryID string) map[string]int {
	return d.grades[queryID]
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opserror.Wrap(opserror.NotFound, err, "dataset file %q not found", path)
		}
		return fmt.Errorf("can't read dataset file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return opserror.Wrap(opserror.BadRequest, err, "can't parse dataset file %q", path)
	}
	return nil
}
