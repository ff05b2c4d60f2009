// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/opserror"
)

// envelope is the uniform shape of every JSON response.
type envelope struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, envelope{
		Code:      status,
		Message:   http.StatusText(status),
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("request failed: %v", err)
	} else {
		logger.Debugf("request rejected: %v", err)
	}
	writeEnvelope(w, envelope{
		Code:      status,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func writeEnvelope(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Errorf("could not encode response: %v", err)
	}
}

// statusOf maps domain error kinds to HTTP statuses. Validation-gate and
// engine failures are server-side conditions, they map to 500.
func statusOf(err error) int {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}

	switch opserror.KindOf(err) {
	case opserror.BadRequest:
		return http.StatusBadRequest
	case opserror.NotFound:
		return http.StatusNotFound
	case opserror.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes and validates a JSON request body.
func (s *Server) decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return opserror.Wrap(opserror.BadRequest, err, "invalid request body")
	}
	if err := s.validate.Struct(v); err != nil {
		return opserror.Wrap(opserror.BadRequest, err, "invalid request")
	}
	return nil
}
