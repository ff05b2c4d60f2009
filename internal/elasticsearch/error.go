// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package elasticsearch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v7/esapi"
)

const typeResourceAlreadyExists = "resource_already_exists_exception"

// EngineError is a failure reported by the engine, annotated with the
// operation that triggered it.
type EngineError struct {
	Operation  string
	StatusCode int
	Type       string
	Reason     string
}

func (e *EngineError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("engine error on %s: %s: %s (status %d)", e.Operation, e.Type, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("engine error on %s: status %d", e.Operation, e.StatusCode)
}

// IsAlreadyExists reports whether the error is an index-already-exists
// conflict.
func (e *EngineError) IsAlreadyExists() bool {
	return e.Type == typeResourceAlreadyExists
}

// errorFromResponse decodes the error payload of a non-2xx engine response.
func errorFromResponse(operation string, resp *esapi.Response) error {
	engineErr := EngineError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &engineErr
	}

	var payload struct {
		Error *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		engineErr.Reason = string(body)
		return &engineErr
	}

	engineErr.Type = payload.Error.Type
	engineErr.Reason = payload.Error.Reason
	return &engineErr
}
