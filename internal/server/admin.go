// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package server

import (
	"net/http"
	"strconv"

	"github.com/elastic/search-ops/internal/benchrunner"
	"github.com/elastic/search-ops/internal/docs"
	"github.com/elastic/search-ops/internal/eval"
	"github.com/elastic/search-ops/internal/opserror"
	"github.com/elastic/search-ops/internal/reindex"
	"github.com/elastic/search-ops/internal/search"
)

func (s *Server) handleIndexCreate(w http.ResponseWriter, r *http.Request) {
	version, err := intParam(r, "version", 0)
	if err != nil {
		respondError(w, err)
		return
	}

	name, err := s.services.Orchestrator.CreateGeneration(r.Context(), version)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"index": name})
}

type bulkRequest struct {
	Documents []docs.Document `json:"documents" validate:"required,min=1"`
	Target    string          `json:"target"`
}

func (s *Server) handleIndexBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := s.services.Indexer.Index(r.Context(), req.Documents, req.Target)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// validationOverrides are the per-request knobs of the reindex validation.
// Unset fields keep the configured defaults.
type validationOverrides struct {
	EnableCountValidation       *bool    `json:"enableCountValidation"`
	EnableSampleQueryValidation *bool    `json:"enableSampleQueryValidation"`
	EnableHashValidation        *bool    `json:"enableHashValidation"`
	SampleQueries               []string `json:"sampleQueries"`
	SampleTopK                  *int     `json:"sampleTopK" validate:"omitempty,gt=0"`
	MinJaccard                  *float64 `json:"minJaccard" validate:"omitempty,gte=0,lte=1"`
	HashMaxDocs                 *int     `json:"hashMaxDocs" validate:"omitempty,gt=0"`
	HashPageSize                *int     `json:"hashPageSize" validate:"omitempty,gt=0"`
}

func (v *validationOverrides) resolve(defaults reindex.ValidationOptions) reindex.ValidationOptions {
	if v == nil {
		return defaults
	}
	resolved := defaults
	if v.EnableCountValidation != nil {
		resolved.EnableCountValidation = *v.EnableCountValidation
	}
	if v.EnableSampleQueryValidation != nil {
		resolved.EnableSampleQueryValidation = *v.EnableSampleQueryValidation
	}
	if v.EnableHashValidation != nil {
		resolved.EnableHashValidation = *v.EnableHashValidation
	}
	if len(v.SampleQueries) > 0 {
		resolved.SampleQueries = v.SampleQueries
	}
	if v.SampleTopK != nil {
		resolved.SampleTopK = *v.SampleTopK
	}
	if v.MinJaccard != nil {
		resolved.MinJaccard = *v.MinJaccard
	}
	if v.HashMaxDocs != nil {
		resolved.HashMaxDocs = *v.HashMaxDocs
	}
	if v.HashPageSize != nil {
		resolved.HashPageSize = *v.HashPageSize
	}
	return resolved
}

type reindexRequest struct {
	SourceVersion     int                  `json:"sourceVersion" validate:"required,gte=1"`
	TargetVersion     int                  `json:"targetVersion" validate:"required,gte=1"`
	WaitForCompletion *bool                `json:"waitForCompletion"`
	RefreshAfter      *bool                `json:"refreshAfter"`
	Validation        *validationOverrides `json:"validation"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	blueGreen := reindex.BlueGreenRequest{
		SourceVersion:     req.SourceVersion,
		TargetVersion:     req.TargetVersion,
		Validation:        req.Validation.resolve(reindex.ValidationOptionsFromConfiguration(s.config.Validation)),
		WaitForCompletion: req.WaitForCompletion == nil || *req.WaitForCompletion,
		RefreshAfter:      req.RefreshAfter == nil || *req.RefreshAfter,
	}

	result, err := s.services.Orchestrator.Reindex(r.Context(), blueGreen)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

type rollbackRequest struct {
	CurrentIndex    string `json:"currentIndex" validate:"required"`
	RollbackToIndex string `json:"rollbackToIndex" validate:"required"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := s.services.Rollback.Rollback(r.Context(), req.CurrentIndex, req.RollbackToIndex)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleEvalRun(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("datasetId")
	if datasetID == "" {
		respondError(w, opserror.New(opserror.BadRequest, "datasetId is required"))
		return
	}
	topK, err := intParam(r, "topK", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	worstQueries, err := intParam(r, "worstQueries", s.config.Reports.WorstQueries)
	if err != nil {
		respondError(w, err)
		return
	}
	generateReport, err := boolParam(r, "generateReport", true)
	if err != nil {
		respondError(w, err)
		return
	}

	tuning, err := search.TuningFromConfiguration(s.config.Ranking)
	if err != nil {
		respondError(w, err)
		return
	}

	run, err := s.services.EvalRunner.Run(r.Context(), eval.RunOptions{
		DatasetID: datasetID,
		TopK:      topK,
		Tuning:    tuning,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	if !generateReport {
		respond(w, http.StatusOK, run)
		return
	}

	report, err := eval.NewReportWriter(s.evalReportsDir(), worstQueries).Write(run, "")
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"run":    run,
		"report": report,
	})
}

type evalCompareRequest struct {
	BeforeReportID string `json:"beforeReportId" validate:"required"`
	AfterReportID  string `json:"afterReportId" validate:"required"`
	TopChanges     int    `json:"topChanges" validate:"omitempty,gt=0"`
}

func (s *Server) handleEvalCompare(w http.ResponseWriter, r *http.Request) {
	var req evalCompareRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.TopChanges == 0 {
		req.TopChanges = s.config.Reports.WorstQueries
	}

	comparison, err := eval.NewComparator(s.evalReportsDir(), req.TopChanges).Compare(req.BeforeReportID, req.AfterReportID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, comparison)
}

type regressionRequest struct {
	DatasetID        string `json:"datasetId" validate:"required"`
	BaselineReportID string `json:"baselineReportId"`
	TopK             int    `json:"topK" validate:"omitempty,gt=0"`
	WorstQueries     int    `json:"worstQueries" validate:"omitempty,gt=0"`
	TargetIndex      string `json:"targetIndex"`
	ReportIDPrefix   string `json:"reportIdPrefix"`
}

func (s *Server) handleEvalRegression(w http.ResponseWriter, r *http.Request) {
	var req regressionRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	worstQueries := req.WorstQueries
	if worstQueries == 0 {
		worstQueries = s.config.Reports.WorstQueries
	}

	tuning, err := search.TuningFromConfiguration(s.config.Ranking)
	if err != nil {
		respondError(w, err)
		return
	}

	regression := eval.NewRegressionRunner(
		s.services.EvalRunner,
		eval.NewReportWriter(s.evalReportsDir(), worstQueries),
		eval.NewComparator(s.evalReportsDir(), worstQueries),
	)
	result, err := regression.Run(r.Context(), eval.RunOptions{
		DatasetID:   req.DatasetID,
		TopK:        req.TopK,
		TargetIndex: req.TargetIndex,
		Tuning:      tuning,
	}, req.ReportIDPrefix, req.BaselineReportID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

type benchmarkRequest struct {
	DatasetID        string `json:"datasetId" validate:"required"`
	TopK             int    `json:"topK" validate:"omitempty,gt=0"`
	Iterations       int    `json:"iterations" validate:"omitempty,gte=1"`
	Warmups          int    `json:"warmups" validate:"omitempty,gte=0"`
	TargetIndex      string `json:"targetIndex"`
	ReportIDPrefix   string `json:"reportIdPrefix"`
	BaselineReportID string `json:"baselineReportId"`
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmarkRequest
	if err := s.decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.TopK == 0 {
		req.TopK = s.config.Benchmark.TopK
	}
	if req.Iterations == 0 {
		req.Iterations = s.config.Benchmark.Iterations
	}
	if req.Warmups == 0 {
		req.Warmups = s.config.Benchmark.Warmups
	}

	run, err := s.services.BenchRunner.Run(r.Context(), benchrunner.RunOptions{
		DatasetID:      req.DatasetID,
		TopK:           req.TopK,
		Iterations:     req.Iterations,
		Warmups:        req.Warmups,
		TargetIndex:    req.TargetIndex,
		ReportIDPrefix: req.ReportIDPrefix,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := benchrunner.NewReportWriter(s.performanceReportsDir()).Write(run); err != nil {
		respondError(w, err)
		return
	}

	data := map[string]interface{}{"run": run}
	if req.BaselineReportID != "" {
		comparison, err := benchrunner.NewComparator(s.performanceReportsDir()).Compare(req.BaselineReportID, run.RunID)
		if err != nil {
			respondError(w, err)
			return
		}
		data["comparison"] = comparison
	}
	respond(w, http.StatusOK, data)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, opserror.Wrap(opserror.BadRequest, err, "invalid %s %q", name, value)
	}
	return parsed, nil
}

func boolParam(r *http.Request, name string, fallback bool) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, opserror.Wrap(opserror.BadRequest, err, "invalid %s %q", name, value)
	}
	return parsed, nil
}
