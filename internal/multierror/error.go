// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package multierror

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a multi-error representation. The reindex validator collects one
// entry per failed check and the orchestrator surfaces them as a single error.
type Error []error

// Error combines a detailed report consisting of attached errors separated with new lines.
func (me Error) Error() string {
	if me == nil {
		return ""
	}

	strs := make([]string, len(me))
	for i, err := range me {
		strs[i] = fmt.Sprintf("[%d] %v", i, err)
	}
	return strings.Join(strs, "\n")
}

// Unique returns a new Error without duplicated errors. Entries are compared
// by message.
func (me Error) Unique() Error {
	seen := map[string]struct{}{}
	var unique Error
	for _, err := range me {
		if _, ok := seen[err.Error()]; ok {
			continue
		}
		seen[err.Error()] = struct{}{}
		unique = append(unique, err)
	}
	return unique
}

// Sorted returns a new Error with errors ordered by message.
func (me Error) Sorted() Error {
	sorted := make(Error, len(me))
	copy(sorted, me)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Error() < sorted[j].Error()
	})
	return sorted
}
