// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package version

import "fmt"

var (
	// Tag describes the version of the tool, set during the build.
	Tag string

	// CommitHash is the hash of the commit the tool was built from, set
	// during the build.
	CommitHash string

	// BuildTime is the time the tool was built, set during the build.
	BuildTime string
)

// Version returns the printable version string.
func Version() string {
	tag := Tag
	if tag == "" {
		tag = "devel"
	}
	return fmt.Sprintf("search-ops %s (commit: %s, build time: %s)", tag, CommitHash, BuildTime)
}
