// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package docs

import (
	_ "embed"
)

// IndexTemplate is the mapping and settings applied when creating a new index
// generation.
//
//go:embed index_template.json
var IndexTemplate []byte
