package migrations

import "embed"

// FS holds the SQL migrations applied by store.Open.
//
//go:embed *.sql
var FS embed.FS
