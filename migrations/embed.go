// Package migrations embeds the SQL migration files applied at startup.
package migrations

import "embed"

// FS holds the embedded migration files, additive-only by convention.
//
//go:embed *.sql
var FS embed.FS
