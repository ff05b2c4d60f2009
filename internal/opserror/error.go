// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package opserror defines the error kinds shared between the core components
// and the HTTP boundary. Components annotate engine and filesystem failures
// with one of these kinds; the server maps kinds to status codes.
package opserror

import (
	"errors"
	"fmt"
)

// Kind classifies an operational error.
type Kind int

const (
	// Internal is the fallback for unclassified failures.
	Internal Kind = iota

	// BadRequest marks invalid caller-provided parameters.
	BadRequest

	// NotFound marks a missing dataset, report or index.
	NotFound

	// Conflict marks a precondition clash, like an already existing target
	// index or an unexpected alias state on rollback.
	Conflict

	// ValidationFailed marks a reindex validation gate that did not pass.
	ValidationFailed

	// Engine marks a failure reported by the search engine.
	Engine
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case ValidationFailed:
		return "validation_failed"
	case Engine:
		return "engine_error"
	default:
		return "internal"
	}
}

// Error is an error annotated with a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap annotates err with a kind and a contextual message.
func Wrap(kind Kind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// KindOf reports the kind of err, or Internal if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
