// Package postgres embeds the PostgreSQL schema migrations.
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "."
