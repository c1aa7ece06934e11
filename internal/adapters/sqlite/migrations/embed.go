package migrations

import "embed"

// FS contains embedded SQLite migrations for wheel storage.
//
//go:embed *.sql
var FS embed.FS
