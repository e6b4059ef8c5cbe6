package migrations

import "embed"

// FS embeds the SQLite schema migrations.
//
//go:embed *.sql
var FS embed.FS
